package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dayuer/tgpilot/internal/labels"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Inspect and edit the photo label table",
}

var labelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every stored label in insertion order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openLabels(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		store.Each(func(id, label string) bool {
			fmt.Fprintf(out, "%s\t%s\n", id, label)
			return true
		})
		fmt.Fprintf(out, "%d labels in %s\n", store.Len(), store.Path())
		return nil
	},
}

var labelsAddCmd = &cobra.Command{
	Use:   "add <image_id> <label...>",
	Short: "Store or update a label",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openLabels(cmd.Context())
		if err != nil {
			return err
		}
		label := strings.Join(args[1:], " ")
		if err := store.Add(cmd.Context(), args[0], label); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %s → %s\n", args[0], label)
		return nil
	},
}

var labelsResolveCmd = &cobra.Command{
	Use:   "resolve <image_id>",
	Short: "Look up an image id, falling back to its primary component",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openLabels(cmd.Context())
		if err != nil {
			return err
		}
		label, ok := labels.NewMatcher(store).Resolve(args[0])
		if !ok {
			return fmt.Errorf("no label for %s", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), label)
		return nil
	},
}

func init() {
	labelsCmd.AddCommand(labelsListCmd, labelsAddCmd, labelsResolveCmd)
	rootCmd.AddCommand(labelsCmd)
}

func openLabels(ctx context.Context) (*labels.Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return labels.Open(ctx, cfg.Labels.Path)
}
