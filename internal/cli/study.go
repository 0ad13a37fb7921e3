package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/mnemo/internal/apperr"
	"github.com/lazypower/mnemo/internal/client"
)

const (
	retryAttempts = 3
	retryDelay    = time.Second
)

var (
	serverURL string
	token     string
	filterID  string
	cooldown  time.Duration
	correct   bool
)

func init() {
	for _, cmd := range []*cobra.Command{loginCmd, nextCmd, answerCmd} {
		cmd.Flags().StringVar(&serverURL, "url", "", "server URL (default $MNEMO_URL or http://127.0.0.1:4000)")
	}
	for _, cmd := range []*cobra.Command{nextCmd, answerCmd} {
		cmd.Flags().StringVar(&token, "token", "", "bearer token (default $MNEMO_TOKEN)")
	}
	nextCmd.Flags().StringVar(&filterID, "filter", "", "saved exercise filter id")
	nextCmd.Flags().DurationVar(&cooldown, "cooldown", 0, "minimum time since an exercise was last studied (default: server setting)")
	answerCmd.Flags().BoolVar(&correct, "correct", false, "the answer was correct")
}

func authedClient() (*client.Client, error) {
	t := token
	if t == "" {
		t = os.Getenv("MNEMO_TOKEN")
	}
	if t == "" {
		return nil, errors.New("no token: run 'mnemo login' and set MNEMO_TOKEN, or pass --token")
	}
	return client.New(serverURL).WithToken(t), nil
}

// explain adds a hint for coded errors the user can act on.
func explain(err error) error {
	switch apperr.CodeOf(err) {
	case apperr.Unauthenticated:
		return fmt.Errorf("%w (log in again with 'mnemo login')", err)
	case apperr.Authorization:
		return fmt.Errorf("%w (you do not have access)", err)
	case apperr.NotFound:
		return fmt.Errorf("%w (check the id)", err)
	}
	return err
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Obtain a bearer token; the password is read from stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.ErrOrStderr(), "password: ")
		password, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && password == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(password, "\r\n")

		c := client.New(serverURL)
		var tok string
		err = client.Retry(cmd.Context(), retryAttempts, retryDelay, func(ctx context.Context) error {
			var err error
			tok, err = c.LogIn(ctx, args[0], password)
			return err
		})
		if err != nil {
			return explain(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the exercise to study now",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authedClient()
		if err != nil {
			return err
		}
		var wait *time.Duration
		if cmd.Flags().Changed("cooldown") {
			wait = &cooldown
		}

		var ex *client.Exercise
		err = client.Retry(cmd.Context(), retryAttempts, retryDelay, func(ctx context.Context) error {
			var err error
			ex, err = c.NextExercise(ctx, filterID, wait)
			return err
		})
		if err != nil {
			return explain(err)
		}
		if ex == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "nothing to study right now")
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s  [%s, %s, streak %d]\n", ex.ID, ex.Type, ex.LanguageCode, ex.Streak)
		fmt.Fprintf(out, "assignment: %s\n", compact(ex.Assignment))
		for _, h := range ex.Hints {
			fmt.Fprintf(out, "hint: %s\n", h)
		}
		return nil
	},
}

var answerCmd = &cobra.Command{
	Use:   "answer <exercise-id>",
	Short: "Record an answer; pass --correct when it was right",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authedClient()
		if err != nil {
			return err
		}
		// Recording is not idempotent, so a transport failure is not retried.
		x, err := c.RecordAnswer(cmd.Context(), args[0], correct)
		if err != nil {
			return explain(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "streak %d\n", x.CorrectStreak)
		return nil
	},
}

func compact(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, _ := json.Marshal(v)
	return string(data)
}
