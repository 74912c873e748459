package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/abhisek/maxxcode/internal/store"
	"github.com/abhisek/maxxcode/internal/tracker"
	"github.com/abhisek/maxxcode/internal/ui/components"
	"github.com/abhisek/maxxcode/internal/ui/layout"
	"github.com/abhisek/maxxcode/internal/ui/theme"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show xp, streak and track progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd)
	},
}

var badgesCmd = &cobra.Command{
	Use:   "badges",
	Short: "List earned and locked badges",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, newTerminalNotifier(cmd.OutOrStdout()))
		if err != nil {
			return err
		}
		defer s.Close()

		fmt.Fprintln(cmd.OutOrStdout(), components.BadgeList{
			State:   s.tracker.State(),
			Catalog: s.tracker.Catalog(),
		}.View())
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		kind, _ := cmd.Flags().GetString("kind")

		s, err := openSession(cmd, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.tracker.History(cmd.Context(), store.QueryOpts{
			Limit: limit,
			Kind:  store.EventKind(kind),
		})
		if err != nil {
			return fmt.Errorf("query history: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), components.HistoryList{
			Events:  events,
			Catalog: s.tracker.Catalog(),
			Theme:   s.tracker.State().Settings.Theme,
		}.View())
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of entries to show")
	historyCmd.Flags().String("kind", "", "Only show entries of this kind (e.g. lesson_completed)")
}

func runStatus(cmd *cobra.Command) error {
	s, err := openSession(cmd, newTerminalNotifier(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	defer s.Close()
	printStatus(cmd, s.tracker, s.warning())
	return nil
}

// printStatus renders the header, profile card and command hints.
func printStatus(cmd *cobra.Command, svc *tracker.Service, warning string) {
	state := svc.State()
	width := layout.Width(terminalWidth())
	p := theme.For(state.Settings.Theme)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, layout.RenderHeader(state.LastActiveLanguage.DisplayName(), state.XP, state.CurrentStreak, width, p))
	fmt.Fprintln(out, components.ProfileCard{
		State:   state,
		Catalog: svc.Catalog(),
		Width:   width,
		Warning: warning,
	}.View())
	fmt.Fprintln(out, layout.RenderFooter([]layout.KeyHint{
		{Key: "complete lesson <id>", Description: "finish a lesson"},
		{Key: "badges", Description: "see badges"},
		{Key: "history", Description: "recent activity"},
	}, p))
}

func terminalWidth() int {
	w, _, err := term.GetSize(os.Stdout.Fd())
	if err != nil {
		return 0
	}
	return w
}
