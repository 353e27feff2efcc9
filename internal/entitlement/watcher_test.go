package entitlement

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/alucardeht/ghostnote/internal/config"
	"github.com/alucardeht/ghostnote/internal/usage"
)

type recordingApplier struct {
	mu     sync.Mutex
	pro    []bool
	resets int
	err    error
}

func (r *recordingApplier) SetPro(v bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.pro = append(r.pro, v)
	return nil
}

func (r *recordingApplier) ResetUsage() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
	return nil
}

func testConfig(t *testing.T) config.EntitlementConfig {
	t.Helper()
	return config.EntitlementConfig{
		Enabled:         true,
		InboxDir:        filepath.Join(t.TempDir(), "receipts"),
		DebounceWindow:  20 * time.Millisecond,
		MaxBatchSize:    10,
		ReceiptPatterns: []string{"**/*.json"},
		IgnorePatterns:  []string{"**/*.done", "**/*.tmp"},
	}
}

func TestParseReceipt(t *testing.T) {
	r, err := ParseReceipt([]byte(`{"is_pro": true, "reset_usage": true, "reference": "pay_123"}`))
	require.NoError(t, err)
	assert.True(t, *r.IsPro)
	assert.True(t, r.ResetUsage)
	assert.Equal(t, "pay_123", r.Reference)

	_, err = ParseReceipt([]byte(`{"reset_usage": true}`))
	assert.ErrorIs(t, err, ErrMalformedReceipt)

	_, err = ParseReceipt([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedReceipt)
}

func TestMatches(t *testing.T) {
	cfg := testConfig(t)
	w, err := New(cfg, &recordingApplier{})
	require.NoError(t, err)
	defer w.Stop()

	assert.True(t, w.matches(filepath.Join(cfg.InboxDir, "pay.json")))
	assert.False(t, w.matches(filepath.Join(cfg.InboxDir, "pay.json.done")))
	assert.False(t, w.matches(filepath.Join(cfg.InboxDir, "pay.json.tmp")))
	assert.False(t, w.matches(filepath.Join(cfg.InboxDir, ".pay.json")))
	assert.False(t, w.matches(filepath.Join(cfg.InboxDir, "notes.txt")))
	assert.False(t, w.matches(filepath.Join(filepath.Dir(cfg.InboxDir), "outside.json")))
}

func TestNewRejectsBadPattern(t *testing.T) {
	cfg := testConfig(t)
	cfg.ReceiptPatterns = []string{"[unclosed"}

	_, err := New(cfg, &recordingApplier{})
	assert.Error(t, err)
}

func TestProcessAppliesAndMarksDone(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.InboxDir, 0700))

	applier := &recordingApplier{}
	w, err := New(cfg, applier)
	require.NoError(t, err)
	defer w.Stop()

	path := filepath.Join(cfg.InboxDir, "pay.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"is_pro": true, "reset_usage": true}`), 0600))

	require.NoError(t, w.Process(path))
	assert.Equal(t, []bool{true}, applier.pro)
	assert.Equal(t, 1, applier.resets)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path + processedSuffix)
	assert.NoError(t, err)
}

func TestProcessLeavesMalformedReceipt(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.InboxDir, 0700))

	applier := &recordingApplier{}
	w, err := New(cfg, applier)
	require.NoError(t, err)
	defer w.Stop()

	path := filepath.Join(cfg.InboxDir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"is_pro": "yes"}`), 0600))

	assert.ErrorIs(t, w.Process(path), ErrMalformedReceipt)
	assert.Empty(t, applier.pro)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestProcessApplierFailure(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.InboxDir, 0700))

	w, err := New(cfg, &recordingApplier{err: errors.New("store closed")})
	require.NoError(t, err)
	defer w.Stop()

	path := filepath.Join(cfg.InboxDir, "pay.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"is_pro": true}`), 0600))

	assert.Error(t, w.Process(path))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWatcherAppliesReceipts(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.InboxDir, 0700))

	// A receipt that arrived while nothing was watching.
	early := filepath.Join(cfg.InboxDir, "early.json")
	require.NoError(t, os.WriteFile(early, []byte(`{"is_pro": false}`), 0600))

	gate := usage.NewGate(usage.NewMemoryBackend())
	for i := 0; i < usage.Limit; i++ {
		require.NoError(t, gate.IncrementUsage())
	}

	var mu sync.Mutex
	var changes []usage.ProChange
	gate.Subscribe(func(c usage.ProChange) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})

	w, err := New(cfg, gate)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	mu.Lock()
	assert.Equal(t, []usage.ProChange{{IsPro: false}}, changes)
	mu.Unlock()

	tmp := filepath.Join(cfg.InboxDir, "late.json.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(`{"is_pro": true, "reset_usage": true}`), 0600))
	require.NoError(t, os.Rename(tmp, filepath.Join(cfg.InboxDir, "late.json")))

	require.Eventually(t, gate.IsPro, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0, gate.UsageCount())
	assert.False(t, gate.HasReachedLimit())

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(cfg.InboxDir, "late.json.done"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []usage.ProChange{{IsPro: false}, {IsPro: true}}, changes)
}

func TestBatcherCollapsesPerPath(t *testing.T) {
	ready := make(chan []FileEvent, 4)
	b := NewBatcher(30*time.Millisecond, 10, func(events []FileEvent) {
		ready <- events
	})
	defer b.Stop()

	now := time.Now()
	b.Add(FileEvent{Path: "b.json", Type: EventModify, Timestamp: now})
	b.Add(FileEvent{Path: "a.json", Type: EventCreate, Timestamp: now.Add(time.Millisecond)})
	b.Add(FileEvent{Path: "a.json", Type: EventModify, Timestamp: now.Add(2 * time.Millisecond)})

	select {
	case events := <-ready:
		require.Len(t, events, 2)
		assert.Equal(t, "b.json", events[0].Path)
		assert.Equal(t, EventModify, events[0].Type)
		assert.Equal(t, "a.json", events[1].Path)
		assert.Equal(t, EventCreate, events[1].Type)
		assert.Equal(t, now.Add(time.Millisecond), events[1].Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("batcher never delivered")
	}
}

func TestBatcherDropsVanishedAndDoneReceipts(t *testing.T) {
	var mu sync.Mutex
	var batches [][]FileEvent
	b := NewBatcher(time.Hour, 10, func(events []FileEvent) {
		mu.Lock()
		batches = append(batches, events)
		mu.Unlock()
	})

	b.Add(FileEvent{Path: "gone.json", Type: EventCreate})
	b.Add(FileEvent{Path: "gone.json", Type: EventDelete})
	b.Add(FileEvent{Path: "moved.json", Type: EventModify})
	b.Add(FileEvent{Path: "moved.json", Type: EventRename})
	b.Add(FileEvent{Path: "old.json.done", Type: EventCreate})
	b.Add(FileEvent{Path: "keep.json", Type: EventCreate})
	b.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, "keep.json", batches[0][0].Path)
}

func TestBatcherNothingPendingNeverDelivers(t *testing.T) {
	called := false
	b := NewBatcher(time.Hour, 10, func([]FileEvent) { called = true })

	b.Add(FileEvent{Path: "a.json", Type: EventCreate})
	b.Add(FileEvent{Path: "a.json", Type: EventDelete})
	b.Stop()

	assert.False(t, called)
}

func TestBatcherDeliversOnMaxPendingAndStop(t *testing.T) {
	var mu sync.Mutex
	var batches [][]FileEvent
	b := NewBatcher(time.Hour, 2, func(events []FileEvent) {
		mu.Lock()
		batches = append(batches, events)
		mu.Unlock()
	})

	b.Add(FileEvent{Path: "a", Type: EventCreate})
	b.Add(FileEvent{Path: "b", Type: EventCreate})
	b.Add(FileEvent{Path: "c", Type: EventCreate})
	b.Stop()
	b.Add(FileEvent{Path: "d", Type: EventCreate})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 2)
	assert.Equal(t, []string{"a", "b"}, []string{batches[0][0].Path, batches[0][1].Path})
	require.Len(t, batches[1], 1)
	assert.Equal(t, "c", batches[1][0].Path)
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "create", EventCreate.String())
	assert.Equal(t, "rename", EventRename.String())
	assert.Equal(t, "unknown", EventType(42).String())
	assert.True(t, FileEvent{Type: EventModify}.Actionable())
	assert.False(t, FileEvent{Type: EventDelete}.Actionable())
}
