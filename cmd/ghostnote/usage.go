package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alucardeht/ghostnote/internal/usage"
)

func newUsageCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Inspect or change the free-tier usage count",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show usage count and remaining free actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runStatusTool(cmd, "usage_status", nil)
		},
	}

	consumeCmd := &cobra.Command{
		Use:   "consume",
		Short: "Spend one free action",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := opts.runTool(cmd.Context(), "usage_consume", nil)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), raw)
			}

			var resp struct {
				Allowed bool            `json:"allowed"`
				Status  json.RawMessage `json:"status"`
			}
			if err := json.Unmarshal(raw, &resp); err != nil {
				return err
			}
			status, err := decodeStatus(resp.Status)
			if err != nil {
				return err
			}

			printStatus(cmd.OutOrStdout(), status)
			if !resp.Allowed {
				return usage.ErrLimitReached
			}
			return nil
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the usage count to zero",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runStatusTool(cmd, "usage_reset", nil)
		},
	}

	cmd.AddCommand(statusCmd, consumeCmd, resetCmd)
	return cmd
}

func newProCmd(opts *rootOptions) *cobra.Command {
	var resetUsage bool

	cmd := &cobra.Command{
		Use:       "pro on|off",
		Short:     "Set the pro entitlement",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var isPro bool
			switch args[0] {
			case "on", "true":
				isPro = true
			case "off", "false":
				isPro = false
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}

			return opts.runStatusTool(cmd, "set_pro", map[string]interface{}{
				"is_pro":      isPro,
				"reset_usage": resetUsage,
			})
		},
	}

	cmd.Flags().BoolVar(&resetUsage, "reset-usage", false, "also reset the usage count")
	return cmd
}

func (o *rootOptions) runStatusTool(cmd *cobra.Command, name string, args interface{}) error {
	raw, err := o.runTool(cmd.Context(), name, args)
	if err != nil {
		return err
	}
	if o.jsonOutput {
		return printJSON(cmd.OutOrStdout(), raw)
	}

	status, err := decodeStatus(raw)
	if err != nil {
		return err
	}
	printStatus(cmd.OutOrStdout(), status)
	return nil
}

func decodeStatus(raw json.RawMessage) (usage.Status, error) {
	var status usage.Status
	err := json.Unmarshal(raw, &status)
	return status, err
}

func printStatus(w io.Writer, s usage.Status) {
	if s.IsPro {
		fmt.Fprintf(w, "Plan:      pro (unlimited)\n")
		fmt.Fprintf(w, "Used:      %d\n", s.UsageCount)
		return
	}
	fmt.Fprintf(w, "Plan:      free\n")
	fmt.Fprintf(w, "Used:      %d of %d\n", s.UsageCount, s.Limit)
	fmt.Fprintf(w, "Remaining: %d\n", s.Remaining)
}
