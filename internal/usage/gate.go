// Package usage tracks how many free actions an installation has spent and whether
// it holds a pro entitlement.
package usage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/alucardeht/ghostnote/internal/logger"
)

// Limit is the number of free actions before the gate closes.
const Limit = 3

// Unlimited is what RemainingGenerations returns for pro installations.
const Unlimited = math.MaxInt

var ErrLimitReached = errors.New("free usage limit reached")

var log = logger.ForComponent("usage")

// ProChange is delivered to listeners after every SetPro.
type ProChange struct {
	IsPro bool `json:"is_pro"`
}

type Listener func(ProChange)

type Gate struct {
	backend Backend

	mu sync.Mutex

	listenersMu sync.RWMutex
	listeners   map[uint64]Listener
	nextID      uint64
}

func NewGate(backend Backend) *Gate {
	return &Gate{
		backend:   backend,
		listeners: make(map[uint64]Listener),
	}
}

func (g *Gate) UsageCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.usageCountLocked()
}

func (g *Gate) usageCountLocked() int {
	raw, ok, err := g.backend.Get(KeyUsageCount)
	if err != nil {
		log.Warn("failed to read usage count", "error", err)
		return 0
	}
	if !ok {
		return 0
	}
	return parseCount(raw)
}

func (g *Gate) IncrementUsage() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.incrementLocked()
}

func (g *Gate) incrementLocked() error {
	next := g.usageCountLocked() + 1
	if err := g.backend.Set(KeyUsageCount, formatCount(next)); err != nil {
		return fmt.Errorf("failed to write usage count: %w", err)
	}
	return nil
}

func (g *Gate) ResetUsage() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.backend.Set(KeyUsageCount, formatCount(0)); err != nil {
		return fmt.Errorf("failed to reset usage count: %w", err)
	}
	return nil
}

// IsPro is true when either the primary or the legacy key holds "true".
func (g *Gate) IsPro() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isProLocked()
}

func (g *Gate) isProLocked() bool {
	return g.readFlag(KeyProStatus) || g.readFlag(KeyLegacyProStatus)
}

func (g *Gate) readFlag(key string) bool {
	raw, ok, err := g.backend.Get(key)
	if err != nil {
		log.Warn("failed to read entitlement flag", "key", key, "error", err)
		return false
	}
	return ok && parseFlag(raw)
}

// SetPro writes the primary flag and then notifies every listener once, in
// registration order. A failed write notifies nobody.
func (g *Gate) SetPro(value bool) error {
	g.mu.Lock()
	err := g.backend.Set(KeyProStatus, formatFlag(value))
	g.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to write pro status: %w", err)
	}

	g.notify(ProChange{IsPro: value})
	return nil
}

func (g *Gate) HasReachedLimit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hasReachedLimitLocked()
}

func (g *Gate) hasReachedLimitLocked() bool {
	if g.isProLocked() {
		return false
	}
	return g.usageCountLocked() >= Limit
}

func (g *Gate) RemainingGenerations() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remainingLocked()
}

func (g *Gate) remainingLocked() int {
	if g.isProLocked() {
		return Unlimited
	}
	return max(0, Limit-g.usageCountLocked())
}

// Consume spends one free action. It returns ErrLimitReached without counting
// when the gate is closed.
func (g *Gate) Consume() (Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hasReachedLimitLocked() {
		return g.statusLocked(), ErrLimitReached
	}
	if err := g.incrementLocked(); err != nil {
		return g.statusLocked(), err
	}
	return g.statusLocked(), nil
}

// Subscribe registers fn for pro changes. The returned func removes it.
func (g *Gate) Subscribe(fn Listener) func() {
	g.listenersMu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	g.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.listenersMu.Lock()
			delete(g.listeners, id)
			g.listenersMu.Unlock()
		})
	}
}

func (g *Gate) notify(change ProChange) {
	g.listenersMu.RLock()
	fns := make([]Listener, 0, len(g.listeners))
	ids := make([]uint64, 0, len(g.listeners))
	for id := range g.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, g.listeners[id])
	}
	g.listenersMu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}

// Status is a point-in-time view of the gate.
type Status struct {
	UsageCount   int  `json:"usage_count"`
	IsPro        bool `json:"is_pro"`
	Limit        int  `json:"limit"`
	Remaining    int  `json:"-"`
	Unlimited    bool `json:"unlimited"`
	LimitReached bool `json:"limit_reached"`
}

func (s Status) MarshalJSON() ([]byte, error) {
	type alias Status
	var remaining *int
	if !s.Unlimited {
		r := s.Remaining
		remaining = &r
	}
	return json.Marshal(struct {
		alias
		Remaining *int `json:"remaining"`
	}{alias(s), remaining})
}

func (s *Status) UnmarshalJSON(data []byte) error {
	type alias Status
	var wire struct {
		alias
		Remaining *int `json:"remaining"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*s = Status(wire.alias)
	s.Unlimited = wire.Remaining == nil
	s.Remaining = Unlimited
	if wire.Remaining != nil {
		s.Remaining = *wire.Remaining
	}
	return nil
}

func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statusLocked()
}

func (g *Gate) statusLocked() Status {
	remaining := g.remainingLocked()
	return Status{
		UsageCount:   g.usageCountLocked(),
		IsPro:        g.isProLocked(),
		Limit:        Limit,
		Remaining:    remaining,
		Unlimited:    remaining == Unlimited,
		LimitReached: g.hasReachedLimitLocked(),
	}
}
