package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alucardeht/ghostnote/internal/daemon"
	"github.com/alucardeht/ghostnote/pkg/version"
)

func (o *rootOptions) dial(ctx context.Context) (*daemon.Client, error) {
	client, err := daemon.Dial(ctx, o.cfg.Daemon.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("%w (is ghostnote-daemon running?)", err)
	}
	if _, err := client.Initialize(ctx, "ghostnote-cli", version.Version); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (o *rootOptions) callTimeout() time.Duration {
	if o.cfg.Daemon.CallTimeout > 0 {
		return o.cfg.Daemon.CallTimeout + 5*time.Second
	}
	return time.Minute
}

func newCallCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool> [json-arguments]",
		Short: "Call a tool on the running daemon",
		Example: `  ghostnote call usage_status
  ghostnote call analyze_text '{"text": "I love this idea", "record": true}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs := json.RawMessage(`{}`)
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("arguments must be valid JSON")
				}
				toolArgs = json.RawMessage(args[1])
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.callTimeout())
			defer cancel()

			client, err := opts.dial(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			var result json.RawMessage
			if err := client.CallTool(ctx, args[0], toolArgs, &result); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newToolsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools the running daemon serves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.callTimeout())
			defer cancel()

			client, err := opts.dial(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			list, err := client.ListTools(ctx)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				raw, err := json.Marshal(list)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), raw)
			}

			for _, tool := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", tool.Name, tool.Title)
			}
			return nil
		},
	}
}
