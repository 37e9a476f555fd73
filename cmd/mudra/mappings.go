package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/mapping"
)

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Show or change which action each gesture triggers",
}

var mappingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every gesture and its action",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		table, err := loadTable(cmd)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "GESTURE\tACTION")
		for _, e := range table.Entries() {
			fmt.Fprintf(w, "%s\t%s\n", e.Gesture, e.Action)
		}
		return w.Flush()
	},
}

var mappingsSetCmd = &cobra.Command{
	Use:   "set gesture=action...",
	Short: "Bind gestures to actions; use action none to unbind",
	Example: `  mudra mappings set fist=left_click point=move_cursor
  mudra mappings set pinch=none`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		candidate, err := parseAssignments(args)
		if err != nil {
			return err
		}

		table, err := loadTable(cmd)
		if err != nil {
			return err
		}

		if err := table.ValidateAndReplace(candidate); err != nil {
			var conflict *mapping.ConflictError
			if errors.As(err, &conflict) {
				return fmt.Errorf("%w; nothing was changed", err)
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", table.Path())
		return nil
	},
}

var vocabularyCmd = &cobra.Command{
	Use:   "vocabulary",
	Short: "List the gestures and actions that can be mapped",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Gestures:")
		for _, g := range gesture.Labels() {
			fmt.Fprintf(out, "  %s\n", g)
		}
		fmt.Fprintln(out, "Actions:")
		for _, a := range mapping.Actions() {
			fmt.Fprintf(out, "  %s\n", a)
		}
	},
}

func init() {
	mappingsCmd.AddCommand(mappingsListCmd, mappingsSetCmd)
	rootCmd.AddCommand(mappingsCmd, vocabularyCmd)
}

// parseAssignments turns gesture=action arguments into a candidate table.
func parseAssignments(args []string) (map[gesture.Label]mapping.Action, error) {
	candidate := make(map[gesture.Label]mapping.Action, len(args))
	for _, arg := range args {
		g, a, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected gesture=action, got %q", arg)
		}
		label, err := gesture.ParseLabel(strings.TrimSpace(g))
		if err != nil {
			return nil, err
		}
		if label == gesture.None {
			return nil, fmt.Errorf("%w: none cannot be mapped", mapping.ErrUnknownGesture)
		}
		action, err := mapping.ParseAction(strings.TrimSpace(a))
		if err != nil {
			return nil, err
		}
		if _, dup := candidate[label]; dup {
			return nil, fmt.Errorf("gesture %s given twice", label)
		}
		candidate[label] = action
	}
	return candidate, nil
}

func loadTable(cmd *cobra.Command) (*mapping.Table, error) {
	cfg, err := baseConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	table := mapping.NewTable(cfg.MappingsPath(), logging.Discard())
	if err := table.Load(); err != nil {
		return nil, err
	}
	return table, nil
}
