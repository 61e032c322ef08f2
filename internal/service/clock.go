package service

import (
	"sync"
	"time"

	"gamerental-backend/internal/domain"
)

// sessionClock drives elapsed-time accumulation for active rentals: one
// cancellable minute ticker per session, and at most one pending auto-resume
// timer per paused session. The in-memory minute count is authoritative
// between persists, so a failed write is reconciled by the next successful
// one.
type sessionClock struct {
	mu           sync.Mutex
	sessions     map[domain.RentalKey]*session
	tickPeriod   time.Duration
	pauseTimeout time.Duration
	persist      func(key domain.RentalKey, minutes int64)
}

type session struct {
	key         domain.RentalKey
	minutes     int64
	paused      bool
	ticker      *time.Ticker
	stop        chan struct{}
	resumeTimer *time.Timer
	autoResumes int
}

func newSessionClock(tickPeriod, pauseTimeout time.Duration, persist func(domain.RentalKey, int64)) *sessionClock {
	return &sessionClock{
		sessions:     make(map[domain.RentalKey]*session),
		tickPeriod:   tickPeriod,
		pauseTimeout: pauseTimeout,
		persist:      persist,
	}
}

// Track starts ticking for a session, resuming from startMinutes. Tracking
// an already tracked key replaces the previous session.
func (c *sessionClock) Track(key domain.RentalKey, startMinutes int64) {
	c.mu.Lock()
	if old, ok := c.sessions[key]; ok {
		c.teardownLocked(old)
	}
	s := &session{
		key:     key,
		minutes: startMinutes,
		ticker:  time.NewTicker(c.tickPeriod),
		stop:    make(chan struct{}),
	}
	c.sessions[key] = s
	c.mu.Unlock()

	go c.run(s)
}

func (c *sessionClock) run(s *session) {
	for {
		select {
		case <-s.stop:
			return
		case <-s.ticker.C:
			if minutes, ok := c.step(s); ok {
				c.persist(s.key, minutes)
			}
		}
	}
}

// step advances one tick: +1 minute unless the session is paused or has
// been replaced.
func (c *sessionClock) step(s *session) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessions[s.key] != s || s.paused {
		return 0, false
	}
	s.minutes++
	return s.minutes, true
}

// Stop cancels the session's ticker and any pending timer, and returns the
// final accumulated minutes.
func (c *sessionClock) Stop(key domain.RentalKey) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[key]
	if !ok {
		return 0, false
	}
	c.teardownLocked(s)
	delete(c.sessions, key)
	return s.minutes, true
}

// teardownLocked must be called with the lock held, at most once per session.
func (c *sessionClock) teardownLocked(s *session) {
	s.ticker.Stop()
	close(s.stop)
	if s.resumeTimer != nil {
		s.resumeTimer.Stop()
		s.resumeTimer = nil
	}
}

// Pause freezes the tick and arms the auto-resume timer. Pausing again
// re-arms the timer; the prior one is cancelled so only one is ever
// pending. Returns the current minutes so the caller can flush them.
func (c *sessionClock) Pause(key domain.RentalKey) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[key]
	if !ok {
		return 0, ErrRentalNotFound
	}
	s.paused = true
	if s.resumeTimer != nil {
		s.resumeTimer.Stop()
	}
	s.resumeTimer = time.AfterFunc(c.pauseTimeout, func() { c.autoResume(s) })
	return s.minutes, nil
}

// Resume cancels the pending auto-resume and unfreezes the tick.
func (c *sessionClock) Resume(key domain.RentalKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[key]
	if !ok {
		return ErrRentalNotFound
	}
	if s.resumeTimer != nil {
		s.resumeTimer.Stop()
		s.resumeTimer = nil
	}
	s.paused = false
	return nil
}

func (c *sessionClock) autoResume(s *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessions[s.key] != s || !s.paused {
		return
	}
	s.paused = false
	s.resumeTimer = nil
	s.autoResumes++
}

// Minutes returns the current in-memory minute count for a tracked session.
func (c *sessionClock) Minutes(key domain.RentalKey) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[key]
	if !ok {
		return 0, false
	}
	return s.minutes, true
}

func (c *sessionClock) Tracked(key domain.RentalKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sessions[key]
	return ok
}

func (c *sessionClock) Paused(key domain.RentalKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[key]
	return ok && s.paused
}

// Shutdown stops every session without persisting.
func (c *sessionClock) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, s := range c.sessions {
		c.teardownLocked(s)
		delete(c.sessions, key)
	}
}
