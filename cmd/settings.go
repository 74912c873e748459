package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/maxxcode/internal/progress"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the theme and interface language",
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch progress.SettingsPatch
		if cmd.Flags().Changed("theme") {
			v, _ := cmd.Flags().GetString("theme")
			t := progress.Theme(v)
			if !t.Valid() {
				return fmt.Errorf("unknown theme %q (want one of %v)", v, progress.AllThemes())
			}
			patch.Theme = &t
		}
		if cmd.Flags().Changed("lang") {
			v, _ := cmd.Flags().GetString("lang")
			l := progress.AppLanguage(v)
			if !l.Valid() {
				return fmt.Errorf("unknown language %q (want one of %v)", v, progress.AllAppLanguages())
			}
			patch.AppLanguage = &l
		}

		s, err := openSession(cmd, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.tracker.UpdateSettings(cmd.Context(), patch)
		if err := s.tolerate(err); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "theme: %s\nlanguage: %s\n", res.State.Settings.Theme, res.State.Settings.AppLanguage)
		return nil
	},
}

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage the AI helper key",
}

var apikeySetCmd = &cobra.Command{
	Use:   "set <key>",
	Short: "Store an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == "" {
			return errors.New("key must not be empty; use 'apikey clear' to remove it")
		}
		return runSetAPIKey(cmd, args[0])
	},
}

var apikeyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetAPIKey(cmd, "")
	},
}

func runSetAPIKey(cmd *cobra.Command, key string) error {
	s, err := openSession(cmd, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.tracker.SetAPIKey(cmd.Context(), key); s.tolerate(err) != nil {
		return err
	}
	if key == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "API key cleared")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "API key saved")
	}
	return nil
}

var languageCmd = &cobra.Command{
	Use:       "language <python|javascript>",
	Short:     "Switch the active learning track",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(progress.LanguagePython), string(progress.LanguageJavaScript)},
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.tracker.SetActiveLanguage(cmd.Context(), progress.Language(args[0]))
		if err := s.tolerate(err); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active track: %s\n", res.State.LastActiveLanguage.DisplayName())
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Enable developer mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")

		s, err := openSession(cmd, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		if _, err := s.tracker.UnlockAdmin(cmd.Context(), password); s.tolerate(err) != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "developer mode on")
		return nil
	},
}

func init() {
	settingsCmd.Flags().String("theme", "", "Color theme")
	settingsCmd.Flags().String("lang", "", "Interface language: en, hi, hinglish")

	apikeyCmd.AddCommand(apikeySetCmd)
	apikeyCmd.AddCommand(apikeyClearCmd)

	unlockCmd.Flags().String("password", "", "Developer password")
	_ = unlockCmd.MarkFlagRequired("password")
}
