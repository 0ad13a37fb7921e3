package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mnemo",
	Short: "Notes, groups and spaced-repetition study over GraphQL",
	Long: "mnemo serves a GraphQL API for notes, labels, groups and study exercises. " +
		"Exercise bodies and user settings live in an S3-compatible bucket.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.mnemo/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(exercisesCmd)
	rootCmd.AddCommand(markCmd)
	rootCmd.AddCommand(restoreCmd)
}
