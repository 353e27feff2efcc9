// Package entitlement applies pro-status receipts dropped into an inbox directory.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/alucardeht/ghostnote/internal/config"
	"github.com/alucardeht/ghostnote/internal/logger"
)

var log = logger.ForComponent("entitlement")

const processedSuffix = ".done"

// Applier is the part of usage.Gate the watcher drives.
type Applier interface {
	SetPro(value bool) error
	ResetUsage() error
}

type Watcher struct {
	config      config.EntitlementConfig
	applier     Applier
	fsWatcher   *fsnotify.Watcher
	fsWatcherMu sync.Mutex
	batcher     *Batcher
	mu          sync.Mutex
	running     bool
	cancel      context.CancelFunc
	done        chan struct{}
	processMu   sync.Mutex
}

func New(cfg config.EntitlementConfig, applier Applier) (*Watcher, error) {
	if cfg.InboxDir == "" {
		return nil, fmt.Errorf("entitlement inbox dir is required")
	}

	for _, pattern := range append(append([]string{}, cfg.ReceiptPatterns...), cfg.IgnorePatterns...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid pattern %q", pattern)
		}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		config:    cfg,
		applier:   applier,
		fsWatcher: fsWatcher,
	}
	w.batcher = NewBatcher(cfg.DebounceWindow, cfg.MaxBatchSize, w.onReady)

	return w, nil
}

// Start watches the inbox and applies receipts already waiting there.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	if err := os.MkdirAll(w.config.InboxDir, 0700); err != nil {
		w.mu.Unlock()
		return fmt.Errorf("failed to create inbox: %w", err)
	}

	w.fsWatcherMu.Lock()
	err := w.fsWatcher.Add(w.config.InboxDir)
	w.fsWatcherMu.Unlock()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("failed to watch inbox: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true
	w.mu.Unlock()

	log.Info("watching receipts inbox", "path", w.config.InboxDir)

	go w.handleEvents(runCtx)

	w.scanInbox()
	return nil
}

func (w *Watcher) scanInbox() {
	entries, err := os.ReadDir(w.config.InboxDir)
	if err != nil {
		log.Warn("failed to scan inbox", "error", err)
		return
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(w.config.InboxDir, name)
		if w.matches(path) {
			w.processLogged(path)
		}
	}
}

func (w *Watcher) handleEvents(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			log.Debug("inbox event", "path", event.Name, "op", event.Op.String())

			if fileEvent := w.convertEvent(event); fileEvent != nil {
				w.batcher.Add(*fileEvent)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn("inbox watcher error", "error", err)
		}
	}
}

func (w *Watcher) convertEvent(event fsnotify.Event) *FileEvent {
	if !w.matches(event.Name) {
		return nil
	}

	var eventType EventType

	switch {
	case event.Has(fsnotify.Create):
		eventType = EventCreate
	case event.Has(fsnotify.Write):
		eventType = EventModify
	case event.Has(fsnotify.Remove):
		eventType = EventDelete
	case event.Has(fsnotify.Rename):
		eventType = EventRename
	default:
		return nil
	}

	return &FileEvent{
		Path:      event.Name,
		Type:      eventType,
		Timestamp: time.Now(),
	}
}

func (w *Watcher) onReady(events []FileEvent) {
	for _, event := range events {
		w.processLogged(event.Path)
	}
}

func (w *Watcher) processLogged(path string) {
	if err := w.Process(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		log.Warn("skipping receipt", "path", path, "error", err)
	}
}

// Process applies one receipt and marks it done. Malformed receipts are left in
// place so they can be inspected.
func (w *Watcher) Process(path string) error {
	w.processMu.Lock()
	defer w.processMu.Unlock()

	receipt, err := readReceipt(path)
	if err != nil {
		return err
	}

	if err := w.applier.SetPro(*receipt.IsPro); err != nil {
		return fmt.Errorf("failed to apply receipt: %w", err)
	}
	if receipt.ResetUsage {
		if err := w.applier.ResetUsage(); err != nil {
			return fmt.Errorf("failed to reset usage: %w", err)
		}
	}

	log.Info("receipt applied", "path", path, "is_pro", *receipt.IsPro, "reference", receipt.Reference)

	if err := os.Rename(path, path+processedSuffix); err != nil {
		return fmt.Errorf("failed to mark receipt done: %w", err)
	}
	return nil
}

func (w *Watcher) matches(path string) bool {
	rel, err := filepath.Rel(w.config.InboxDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)

	if strings.HasPrefix(filepath.Base(rel), ".") {
		return false
	}

	for _, pattern := range w.config.IgnorePatterns {
		if match, _ := doublestar.Match(pattern, rel); match {
			return false
		}
	}

	for _, pattern := range w.config.ReceiptPatterns {
		if match, _ := doublestar.Match(pattern, rel); match {
			return true
		}
	}

	return false
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.fsWatcherMu.Lock()
		defer w.fsWatcherMu.Unlock()
		return w.fsWatcher.Close()
	}

	w.running = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	<-done
	w.batcher.Stop()

	log.Info("stopped receipts watcher")

	w.fsWatcherMu.Lock()
	defer w.fsWatcherMu.Unlock()
	return w.fsWatcher.Close()
}
