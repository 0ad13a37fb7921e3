package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lazypower/mnemo/internal/client"
)

var languages []string

func init() {
	for _, cmd := range []*cobra.Command{exercisesCmd, markCmd, restoreCmd} {
		cmd.Flags().StringVar(&serverURL, "url", "", "server URL (default $MNEMO_URL or http://127.0.0.1:4000)")
		cmd.Flags().StringVar(&token, "token", "", "bearer token (default $MNEMO_TOKEN)")
	}
	exercisesCmd.Flags().StringSliceVar(&languages, "lang", nil, "only these language codes, e.g. --lang ko,ja")
}

var exercisesCmd = &cobra.Command{
	Use:   "exercises",
	Short: "List exercises that are not marked for deletion",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authedClient()
		if err != nil {
			return err
		}
		var list []client.Exercise
		err = client.Retry(cmd.Context(), retryAttempts, retryDelay, func(ctx context.Context) error {
			var err error
			list, err = c.Exercises(ctx, languages)
			return err
		})
		if err != nil {
			return explain(err)
		}
		printExercises(cmd.OutOrStdout(), list)
		return nil
	},
}

var markCmd = &cobra.Command{
	Use:   "mark <exercise-id>",
	Short: "Mark an exercise for deletion; it stays restorable until purged",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExerciseMutation(cmd, args[0], (*client.Client).MarkExercise, "marked")
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <exercise-id>",
	Short: "Restore an exercise marked for deletion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExerciseMutation(cmd, args[0], (*client.Client).RestoreExercise, "restored")
	},
}

func runExerciseMutation(cmd *cobra.Command, id string, mutate func(*client.Client, context.Context, string) (*client.Exercise, error), verb string) error {
	c, err := authedClient()
	if err != nil {
		return err
	}
	ex, err := mutate(c, cmd.Context(), id)
	if err != nil {
		return explain(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, ex.ID)
	return nil
}

func printExercises(w io.Writer, list []client.Exercise) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no exercises")
		return
	}
	for _, ex := range list {
		fmt.Fprintf(w, "%s  %-12s %-6s streak %d\n", ex.ID, ex.Type, ex.LanguageCode, ex.Streak)
	}
}
