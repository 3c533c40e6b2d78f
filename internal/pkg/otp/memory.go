package otp

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

// Memory is a process-lifetime Store backed by maps with per-email locking.
// Records are lazily evicted on access and by PurgeExpired sweeps.
type Memory struct {
	mu        sync.Mutex
	records   map[string]*memoryEntry
	cooldowns map[string]time.Time
}

type memoryEntry struct {
	mu  sync.Mutex
	rec Record
	// gone marks an entry consumed or evicted between map lookup and lock
	// acquisition.
	gone bool
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records:   make(map[string]*memoryEntry),
		cooldowns: make(map[string]time.Time),
	}
}

// Save overwrites any record for rec.Email.
func (m *Memory) Save(_ context.Context, rec Record, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[rec.Email] = &memoryEntry{rec: rec}
	return nil
}

// Get returns the live record for email, evicting it first if expired.
func (m *Memory) Get(_ context.Context, email string, now time.Time, ttl time.Duration) (Record, error) {
	m.mu.Lock()
	entry, ok := m.records[email]
	m.mu.Unlock()
	if !ok {
		return Record{}, ErrNoPending
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.gone {
		return Record{}, ErrNoPending
	}
	if now.Sub(entry.rec.IssuedAt) > ttl {
		m.evict(email, entry)
		return Record{}, ErrNoPending
	}
	return entry.rec, nil
}

// Attempt evaluates candidate under the per-email lock so that concurrent
// calls cannot both consume the record or race the attempts counter.
func (m *Memory) Attempt(_ context.Context, email, candidate string, now time.Time, ttl time.Duration, maxAttempts int) (AttemptResult, error) {
	for {
		m.mu.Lock()
		entry, ok := m.records[email]
		m.mu.Unlock()
		if !ok {
			return AttemptResult{Outcome: OutcomeNotFound}, nil
		}

		entry.mu.Lock()
		if entry.gone {
			// Lost a race with consumption or eviction; the map may already
			// hold a fresh entry for this email.
			entry.mu.Unlock()
			continue
		}

		res := m.attemptLocked(entry, email, candidate, now, ttl, maxAttempts)
		entry.mu.Unlock()
		return res, nil
	}
}

func (m *Memory) attemptLocked(entry *memoryEntry, email, candidate string, now time.Time, ttl time.Duration, maxAttempts int) AttemptResult {
	if now.Sub(entry.rec.IssuedAt) > ttl {
		m.evict(email, entry)
		return AttemptResult{Outcome: OutcomeExpired}
	}

	if entry.rec.Attempts >= maxAttempts {
		return AttemptResult{Outcome: OutcomeLocked}
	}

	if subtle.ConstantTimeCompare([]byte(entry.rec.Code), []byte(candidate)) != 1 {
		entry.rec.Attempts++
		return AttemptResult{
			Outcome:           OutcomeInvalidCode,
			AttemptsRemaining: maxAttempts - entry.rec.Attempts,
		}
	}

	payload := entry.rec.Payload
	m.evict(email, entry)
	return AttemptResult{Outcome: OutcomeSuccess, Payload: payload}
}

// evict removes entry from the map only if it is still the current entry for
// email; a newer record issued meanwhile stays untouched. Caller holds
// entry.mu.
func (m *Memory) evict(email string, entry *memoryEntry) {
	entry.gone = true

	m.mu.Lock()
	if current, ok := m.records[email]; ok && current == entry {
		delete(m.records, email)
	}
	m.mu.Unlock()
}

// Delete removes the record for email, if any.
func (m *Memory) Delete(_ context.Context, email string) error {
	m.mu.Lock()
	entry, ok := m.records[email]
	delete(m.records, email)
	m.mu.Unlock()

	if ok {
		entry.mu.Lock()
		entry.gone = true
		entry.mu.Unlock()
	}
	return nil
}

// StartCooldown opens a resend cooldown window for email.
func (m *Memory) StartCooldown(_ context.Context, email string, now time.Time, d time.Duration) error {
	m.mu.Lock()
	m.cooldowns[email] = now.Add(d)
	m.mu.Unlock()
	return nil
}

// CooldownRemaining reports the time left in the cooldown window, evicting
// elapsed windows as it goes.
func (m *Memory) CooldownRemaining(_ context.Context, email string, now time.Time) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.cooldowns[email]
	if !ok {
		return 0, nil
	}

	remaining := until.Sub(now)
	if remaining <= 0 {
		delete(m.cooldowns, email)
		return 0, nil
	}
	return remaining, nil
}

// PurgeExpired sweeps out aged records and elapsed cooldown windows. Lazy
// per-key eviction keeps behavior correct without this; the sweep only bounds
// memory growth from abandoned flows.
func (m *Memory) PurgeExpired(_ context.Context, now time.Time, ttl time.Duration) error {
	m.mu.Lock()
	entries := make(map[string]*memoryEntry, len(m.records))
	for email, entry := range m.records {
		entries[email] = entry
	}
	for email, until := range m.cooldowns {
		if !now.Before(until) {
			delete(m.cooldowns, email)
		}
	}
	m.mu.Unlock()

	// Lock ordering is entry.mu before m.mu everywhere, so the sweep locks
	// each entry outside the map lock.
	for email, entry := range entries {
		entry.mu.Lock()
		if !entry.gone && now.Sub(entry.rec.IssuedAt) > ttl {
			m.evict(email, entry)
		}
		entry.mu.Unlock()
	}
	return nil
}
