package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/ghostnote/internal/config"
	"github.com/alucardeht/ghostnote/internal/daemon"
	"github.com/alucardeht/ghostnote/internal/usage"
)

func setHome(t *testing.T) string {
	t.Helper()
	home, err := os.MkdirTemp("", "gncli")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(home) })
	t.Setenv("GHOSTNOTE_HOME", home)
	return home
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAnalyzeArgs(t *testing.T) {
	setHome(t)

	out, err := execute(t, "", "analyze", "This", "is", "ridiculous.", "Stop", "now!")
	require.NoError(t, err)
	assert.Contains(t, out, "Emotion:   angry")
	assert.Contains(t, out, "Tone:      Direct")
	assert.Contains(t, out, "Words:     5")
	assert.Contains(t, out, "Virality:  55")
}

func TestAnalyzeStdinJSON(t *testing.T) {
	setHome(t)

	out, err := execute(t, "Imagine the future of this breakthrough.\n", "--json", "analyze")
	require.NoError(t, err)

	var resp struct {
		Signal struct {
			Emotion     string   `json:"emotion"`
			Suggestions []string `json:"suggestions"`
		} `json:"signal"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "excited", resp.Signal.Emotion)
	assert.NotNil(t, resp.Signal.Suggestions)
}

func TestAnalyzeFileAndHistory(t *testing.T) {
	home := setHome(t)
	path := filepath.Join(home, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("I am calm and thinking about things."), 0600))

	out, err := execute(t, "", "analyze", "--file", path, "--record")
	require.NoError(t, err)
	assert.Contains(t, out, "Emotion:   calm")
	assert.Contains(t, out, "Encoding:  utf-8")
	assert.Contains(t, out, "Recorded:")

	out, err = execute(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "calm")
	assert.Contains(t, out, "Reflective")

	_, err = execute(t, "", "analyze", "--file", path, "extra")
	assert.Error(t, err)
}

func TestClean(t *testing.T) {
	setHome(t)

	out, err := execute(t, "", "clean", "Um,", "this", "is", "basically", "done")
	require.NoError(t, err)
	assert.Equal(t, ", this is done\n", out)
}

func TestUsageFlow(t *testing.T) {
	setHome(t)

	for i := 0; i < usage.Limit; i++ {
		_, err := execute(t, "", "usage", "consume")
		require.NoError(t, err)
	}

	out, err := execute(t, "", "usage", "consume")
	assert.ErrorIs(t, err, usage.ErrLimitReached)
	assert.Contains(t, out, "Remaining: 0")

	_, err = execute(t, "", "analyze", "--consume", "hello")
	assert.Error(t, err)

	out, err = execute(t, "", "pro", "on")
	require.NoError(t, err)
	assert.Contains(t, out, "pro (unlimited)")

	_, err = execute(t, "", "analyze", "--consume", "hello")
	require.NoError(t, err)

	out, err = execute(t, "", "--json", "usage", "status")
	require.NoError(t, err)
	assert.Contains(t, out, `"remaining": null`)

	out, err = execute(t, "", "pro", "off", "--reset-usage")
	require.NoError(t, err)
	assert.Contains(t, out, "Used:      0 of 3")

	_, err = execute(t, "", "pro", "maybe")
	assert.Error(t, err)

	out, err = execute(t, "", "usage", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Remaining: 3")
}

func TestConfigFlagAndBadConfig(t *testing.T) {
	home := setHome(t)

	cfgPath := filepath.Join(home, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database_path: "+filepath.Join(home, "other.db")+"\n"), 0600))

	_, err := execute(t, "", "--config", cfgPath, "usage", "consume")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(home, "other.db"))
	assert.NoError(t, err)

	require.NoError(t, os.WriteFile(cfgPath, []byte("daemon: [not, a, map]\n"), 0600))
	_, err = execute(t, "", "--config", cfgPath, "usage", "status")
	assert.Error(t, err)
}

func TestCallThroughDaemon(t *testing.T) {
	setHome(t)

	cfg := config.Default()
	require.NoError(t, cfg.EnsureDirectories())
	d, err := daemon.New(cfg)
	require.NoError(t, err)
	require.NoError(t, d.Start())
	defer d.Shutdown()

	out, err := execute(t, "", "call", "analyze_text", `{"text": "I love this amazing idea"}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"emotion": "excited"`)

	out, err = execute(t, "", "tools")
	require.NoError(t, err)
	assert.Contains(t, out, "usage_consume")

	_, err = execute(t, "", "call", "usage_status", "{not json")
	assert.Error(t, err)

	_, err = execute(t, "", "call", "no_such_tool")
	assert.Error(t, err)
}

func TestCallWithoutDaemon(t *testing.T) {
	setHome(t)

	_, err := execute(t, "", "call", "usage_status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghostnote-daemon")
}
