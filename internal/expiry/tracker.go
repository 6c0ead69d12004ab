// Package expiry implements the per-sandbox one-shot expiration timer:
// C3 of the sandbox lifecycle control plane. A renewal atomically cancels
// and replaces the previous timer; on fire the tracker asks the supplied
// Reaper to terminate the backing workload.
package expiry

import (
	"log/slog"
	"sync"
	"time"
)

// Reaper terminates the workload for a sandbox id when its timer fires.
// Implemented by the sandbox service, which calls the provider's
// Terminate (kill+remove for Docker, delete for K8s).
type Reaper interface {
	Expire(id string)
}

type entry struct {
	expiresAt time.Time
	timer     *time.Timer
}

// Tracker holds exactly one scheduled expiration per live sandbox id.
// All state is protected by a single mutex; no lock is held across
// runtime I/O — the fired timer's callback runs Reaper.Expire outside
// the mutex.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*entry
	reaper  Reaper
}

func New(reaper Reaper) *Tracker {
	return &Tracker{
		entries: make(map[string]*entry),
		reaper:  reaper,
	}
}

// Schedule cancels any existing timer for id and installs a new one that
// fires at expiresAt (delay is clamped to a minimum of 0, so an
// already-past deadline fires promptly).
func (t *Tracker) Schedule(id string, expiresAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[id]; ok {
		e.timer.Stop()
	}

	delay := time.Until(expiresAt)
	if delay < 0 {
		delay = 0
	}

	e := &entry{expiresAt: expiresAt}
	e.timer = time.AfterFunc(delay, func() { t.fire(id) })
	t.entries[id] = e
}

// Cancel stops and removes the timer for id, if any.
func (t *Tracker) Cancel(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[id]; ok {
		e.timer.Stop()
		delete(t.entries, id)
	}
}

// TrackedExpiration returns the scheduled deadline for id. If none is
// tracked, it parses label using the caller-supplied parse function and
// returns fallback if that also fails to produce a usable value — this
// lets callers seed the tracker view from a runtime label without a
// second code path.
func (t *Tracker) TrackedExpiration(id string, label string, parse func(string) time.Time, fallback time.Time) time.Time {
	t.mu.Lock()
	if e, ok := t.entries[id]; ok {
		t.mu.Unlock()
		return e.expiresAt
	}
	t.mu.Unlock()

	if label == "" {
		return fallback
	}
	if parsed := parse(label); !parsed.IsZero() {
		return parsed
	}
	return fallback
}

func (t *Tracker) fire(id string) {
	t.mu.Lock()
	delete(t.entries, id)
	t.mu.Unlock()

	slog.Info("expiration fired", "sandbox_id", id)
	t.reaper.Expire(id)
}

// Seed is called once at process start for every live workload discovered
// by the provider's reconciliation scan. Already-expired deadlines are
// reaped inline by the caller before calling Seed (or by passing an
// already-elapsed expiresAt, which this will fire promptly).
func (t *Tracker) Seed(id string, expiresAt time.Time) {
	t.Schedule(id, expiresAt)
}
