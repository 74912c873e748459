package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/maxxcode/internal/tracker"
)

var checkinCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Record today's activity for the streak",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, newTerminalNotifier(cmd.OutOrStdout()))
		if err != nil {
			return err
		}
		defer s.Close()

		// Opening the session already checked in; this one only reports.
		res, err := s.tracker.CheckIn(cmd.Context())
		if err := s.tolerate(err); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🔥 %d day streak\n", res.State.CurrentStreak)
		return nil
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Mark a lesson or practice problem complete",
}

var completeLessonCmd = &cobra.Command{
	Use:   "lesson <id>",
	Short: "Complete a lesson",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runComplete(cmd, args[0], (*tracker.Service).CompleteLesson)
	},
}

var completeProblemCmd = &cobra.Command{
	Use:   "problem <id>",
	Short: "Complete a practice problem",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runComplete(cmd, args[0], (*tracker.Service).CompleteProblem)
	},
}

func init() {
	for _, c := range []*cobra.Command{completeLessonCmd, completeProblemCmd} {
		c.Flags().Int("xp", 0, "Override the xp reward (0 uses the catalog value)")
		completeCmd.AddCommand(c)
	}
}

type completeFunc func(*tracker.Service, context.Context, string, int) (tracker.Result, error)

func runComplete(cmd *cobra.Command, id string, complete completeFunc) error {
	xp, _ := cmd.Flags().GetInt("xp")
	if xp < 0 {
		return fmt.Errorf("--xp must not be negative, got %d", xp)
	}

	s, err := openSession(cmd, newTerminalNotifier(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := complete(s.tracker, cmd.Context(), id, xp)
	if err := s.tolerate(err); err != nil {
		return err
	}
	if res.XPAwarded == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s was already complete, no xp awarded\n", id)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "⚡ %d XP total\n", res.State.XP)
	return nil
}
