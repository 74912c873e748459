package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Erase all progress and start over",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return errors.New("this erases all xp, streaks and badges; rerun with --yes to confirm")
		}

		s, err := openSession(cmd, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		if _, err := s.tracker.Reset(cmd.Context()); s.tolerate(err) != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Progress reset.")
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
}
