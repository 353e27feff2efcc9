package entitlement

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Batcher holds inbox events until the inbox has been quiet for one window,
// then hands over the paths that may still hold an unread receipt. A path that
// is deleted or renamed away before the window closes is forgotten, and paths
// already marked done are never queued.
type Batcher struct {
	window     time.Duration
	maxPending int
	onReady    func([]FileEvent)

	mu      sync.Mutex
	pending map[string]FileEvent
	timer   *time.Timer
	closed  bool
}

func NewBatcher(window time.Duration, maxPending int, onReady func([]FileEvent)) *Batcher {
	if maxPending <= 0 {
		maxPending = 1
	}
	return &Batcher{
		window:     window,
		maxPending: maxPending,
		onReady:    onReady,
		pending:    make(map[string]FileEvent),
	}
}

func (b *Batcher) Add(event FileEvent) {
	if strings.HasSuffix(event.Path, processedSuffix) {
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}

	prev, seen := b.pending[event.Path]
	switch {
	case !event.Actionable():
		delete(b.pending, event.Path)
	case seen:
		// Keep first-seen order; a create followed by writes is still a create.
		prev.Type = mergeType(prev.Type, event.Type)
		b.pending[event.Path] = prev
	default:
		b.pending[event.Path] = event
	}

	if len(b.pending) == 0 {
		b.stopTimerLocked()
		b.mu.Unlock()
		return
	}

	if len(b.pending) >= b.maxPending {
		batch := b.takeLocked()
		b.mu.Unlock()
		b.deliver(batch)
		return
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.window, b.fire)
	} else {
		b.timer.Reset(b.window)
	}
	b.mu.Unlock()
}

func mergeType(prev, next EventType) EventType {
	if prev == EventCreate {
		return EventCreate
	}
	return next
}

func (b *Batcher) fire() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	batch := b.takeLocked()
	b.mu.Unlock()
	b.deliver(batch)
}

// takeLocked empties the pending set, oldest event first.
func (b *Batcher) takeLocked() []FileEvent {
	b.stopTimerLocked()

	batch := make([]FileEvent, 0, len(b.pending))
	for _, event := range b.pending {
		batch = append(batch, event)
	}
	b.pending = make(map[string]FileEvent)

	sort.Slice(batch, func(i, j int) bool {
		if batch[i].Timestamp.Equal(batch[j].Timestamp) {
			return batch[i].Path < batch[j].Path
		}
		return batch[i].Timestamp.Before(batch[j].Timestamp)
	})
	return batch
}

func (b *Batcher) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *Batcher) deliver(batch []FileEvent) {
	if len(batch) > 0 && b.onReady != nil {
		b.onReady(batch)
	}
}

// Stop delivers whatever is still pending and drops later events.
func (b *Batcher) Stop() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	batch := b.takeLocked()
	b.mu.Unlock()
	b.deliver(batch)
}
