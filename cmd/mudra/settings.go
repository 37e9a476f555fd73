package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/config"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change stored runtime settings",
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the effective value of every setting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := baseConfig(cmd)
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		stored, err := st.Settings().All()
		if err != nil {
			return err
		}
		if err := cfg.ApplySettings(stored); err != nil {
			return fmt.Errorf("stored settings are invalid: %w", err)
		}

		values := cfg.Settings()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
		for _, key := range config.SettingKeys() {
			source := "default"
			if _, ok := stored[key]; ok {
				source = "stored"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", key, values[key], source)
		}
		return w.Flush()
	},
}

var settingsSetCmd = &cobra.Command{
	Use:     "set key=value...",
	Short:   "Store settings; they apply the next time mudra runs",
	Example: `  mudra settings set camera.fps=20 actuator.gain=2`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		values := make(map[string]string, len(args))
		for _, arg := range args {
			k, v, ok := strings.Cut(arg, "=")
			if !ok {
				return fmt.Errorf("expected key=value, got %q", arg)
			}
			values[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}

		cfg, err := baseConfig(cmd)
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		stored, err := st.Settings().All()
		if err != nil {
			return err
		}
		if err := cfg.ApplySettings(stored); err != nil {
			return fmt.Errorf("stored settings are invalid: %w", err)
		}
		if err := cfg.ApplySettings(values); err != nil {
			return err
		}
		if err := st.Settings().SetMany(values); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Stored %d setting(s)\n", len(values))
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recently recognized gestures",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := baseConfig(cmd)
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		events, err := st.Events().Recent(limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tROLE\tGESTURE\tACTION\tCONFIDENCE")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n",
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Role, e.Gesture, e.Action, e.Confidence)
		}
		return w.Flush()
	},
}

func init() {
	eventsCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	settingsCmd.AddCommand(settingsListCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd, eventsCmd)
}
