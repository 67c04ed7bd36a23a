package services

import (
	"math"
	"sync"
	"time"
)

const ThrottleCooldownCapSeconds = 30

type throttleEntry struct {
	failCount     int
	cooldownUntil time.Time
}

// LoginThrottle slows down password guessing per Telegram user: each failed
// attempt sets a cooldown of min(30, 2^fail_count) seconds.
type LoginThrottle struct {
	mu      sync.Mutex
	entries map[int64]*throttleEntry
	now     func() time.Time
}

func NewLoginThrottle() *LoginThrottle {
	return &LoginThrottle{entries: make(map[int64]*throttleEntry), now: time.Now}
}

// WaitSeconds returns how many seconds the user must wait before trying again (0 if no cooldown).
func (t *LoginThrottle) WaitSeconds(tgUserID int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entries[tgUserID]
	if e == nil {
		return 0
	}
	now := t.now()
	if now.Before(e.cooldownUntil) {
		return int(e.cooldownUntil.Sub(now).Seconds()) + 1 // round up
	}
	return 0
}

// RecordFailed increments fail_count and starts the next cooldown.
func (t *LoginThrottle) RecordFailed(tgUserID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entries[tgUserID]
	if e == nil {
		e = &throttleEntry{}
		t.entries[tgUserID] = e
	}
	e.failCount++
	e.cooldownUntil = t.now().Add(time.Duration(CooldownSecondsForFailCount(e.failCount)) * time.Second)
}

// RecordSuccess resets fail_count and cooldown for the user.
func (t *LoginThrottle) RecordSuccess(tgUserID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, tgUserID)
}

// CooldownSecondsForFailCount returns min(30, 2^failCount).
func CooldownSecondsForFailCount(failCount int) int {
	s := int(math.Pow(2, float64(failCount)))
	if s > ThrottleCooldownCapSeconds {
		return ThrottleCooldownCapSeconds
	}
	return s
}
