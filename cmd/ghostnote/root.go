package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alucardeht/ghostnote/internal/config"
	"github.com/alucardeht/ghostnote/internal/daemon"
	"github.com/alucardeht/ghostnote/internal/logger"
	"github.com/alucardeht/ghostnote/internal/store"
	"github.com/alucardeht/ghostnote/internal/tools"
	"github.com/alucardeht/ghostnote/internal/usage"
	"github.com/alucardeht/ghostnote/pkg/version"
)

type rootOptions struct {
	configPath string
	logLevel   string
	jsonOutput bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ghostnote",
		Short: "Tone analysis and usage gate for voice notes",
		Long: `GhostNote classifies the emotional tone of transcripts and tracks the
free-tier usage allowance.

Commands run in-process against the local database. Use "call" to talk to a
running ghostnote-daemon instead.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}

			logCfg := logger.DefaultConfig()
			logCfg.Level = logger.ParseLevel(cfg.Log.Level)
			logCfg.Format = cfg.Log.Format
			logCfg.Output = cmd.ErrOrStderr()
			logger.Init(logCfg)

			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $GHOSTNOTE_HOME/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print raw JSON results")

	cmd.AddCommand(
		newAnalyzeCmd(opts),
		newCleanCmd(opts),
		newUsageCmd(opts),
		newProCmd(opts),
		newHistoryCmd(opts),
		newCallCmd(opts),
		newToolsCmd(opts),
	)

	return cmd
}

// local owns an in-process registry over the configured database.
type local struct {
	store    *store.Store
	gate     *usage.Gate
	registry *tools.Registry
}

func (o *rootOptions) openLocal() (*local, error) {
	if err := o.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	st, err := store.New(o.cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	gate := usage.NewGate(st)
	registry, err := daemon.NewRegistry(st, gate)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &local{store: st, gate: gate, registry: registry}, nil
}

func (l *local) Close() error {
	return l.store.Close()
}

// runTool executes name in-process and returns its result re-encoded as JSON so
// local and daemon output look the same.
func (o *rootOptions) runTool(ctx context.Context, name string, args interface{}) (json.RawMessage, error) {
	l, err := o.openLocal()
	if err != nil {
		return nil, err
	}
	defer l.Close()

	input, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}

	result, err := l.registry.ExecuteWithTimeout(ctx, name, input, o.cfg.Daemon.CallTimeout)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// inputText joins args, or reads stdin when there are none.
func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return "", fmt.Errorf("no text given: pass it as arguments or pipe it on stdin")
		}
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
