package services

import (
	"testing"
	"time"
)

func TestCooldownSecondsForFailCount(t *testing.T) {
	tests := []struct {
		failCount int
		want      int
	}{
		{0, 1},   // 2^0=1
		{1, 2},   // 2^1=2
		{2, 4},   // 2^2=4
		{3, 8},   // 2^3=8
		{4, 16},  // 2^4=16
		{5, 30},  // 2^5=32 -> cap 30
		{6, 30},  // 2^6=64 -> cap 30
		{10, 30}, // cap 30
	}
	for _, tt := range tests {
		got := CooldownSecondsForFailCount(tt.failCount)
		if got != tt.want {
			t.Errorf("CooldownSecondsForFailCount(%d) = %d, want %d", tt.failCount, got, tt.want)
		}
	}
}

func TestLoginThrottle(t *testing.T) {
	now := t0
	th := NewLoginThrottle()
	th.now = func() time.Time { return now }
	const user int64 = 42

	if wait := th.WaitSeconds(user); wait != 0 {
		t.Errorf("fresh user: wait = %d, want 0", wait)
	}

	th.RecordFailed(user)
	if wait := th.WaitSeconds(user); wait != 3 {
		t.Errorf("after one fail: wait = %d, want 3 (2s rounded up)", wait)
	}

	now = now.Add(2 * time.Second)
	if wait := th.WaitSeconds(user); wait != 0 {
		t.Errorf("after cooldown expired: wait = %d, want 0", wait)
	}

	for i := 0; i < 8; i++ {
		th.RecordFailed(user)
	}
	if wait := th.WaitSeconds(user); wait > ThrottleCooldownCapSeconds+1 {
		t.Errorf("after many fails: wait = %d, want <= cap", wait)
	}

	th.RecordSuccess(user)
	if wait := th.WaitSeconds(user); wait != 0 {
		t.Errorf("after success: wait = %d, want 0", wait)
	}
	if wait := th.WaitSeconds(7); wait != 0 {
		t.Errorf("other user: wait = %d, want 0", wait)
	}
}
