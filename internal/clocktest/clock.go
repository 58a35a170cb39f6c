// Package clocktest fournit une horloge manuelle: les timers ne se déclenchent
// que dans Advance, sur la goroutine de l'appelant.
package clocktest

import (
	"sort"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/ports"
)

type Clock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*timer
}

func New(now time.Time) *Clock {
	return &Clock{now: now}
}

type timer struct {
	c      *Clock
	id     int
	due    time.Time
	every  time.Duration
	fn     func()
	active bool
}

func (t *timer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	was := t.active
	t.active = false
	return was
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *Clock) AfterFunc(d time.Duration, fn func()) ports.Timer {
	return c.add(d, 0, fn)
}

func (c *Clock) Every(d time.Duration, fn func()) ports.Timer {
	if d <= 0 {
		d = time.Second
	}
	return c.add(d, d, fn)
}

func (c *Clock) add(d, every time.Duration, fn func()) *timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &timer{c: c, id: c.seq, due: c.now.Add(d), every: every, fn: fn, active: true}
	c.timers = append(c.timers, t)
	return t
}

// Pending compte les timers encore actifs.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if t.active {
			n++
		}
	}
	return n
}

// Advance avance l'horloge de d en déclenchant, dans l'ordre, chaque timer échu.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.compactLocked()
			c.mu.Unlock()
			return
		}
		c.now = next.due
		if next.every > 0 {
			next.due = next.due.Add(next.every)
		} else {
			next.active = false
		}
		fn := next.fn
		c.mu.Unlock()

		fn()
	}
}

func (c *Clock) nextDueLocked(target time.Time) *timer {
	candidates := make([]*timer, 0, len(c.timers))
	for _, t := range c.timers {
		if t.active && !t.due.After(target) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].due.Equal(candidates[j].due) {
			return candidates[i].id < candidates[j].id
		}
		return candidates[i].due.Before(candidates[j].due)
	})
	return candidates[0]
}

func (c *Clock) compactLocked() {
	kept := c.timers[:0]
	for _, t := range c.timers {
		if t.active {
			kept = append(kept, t)
		}
	}
	c.timers = kept
}
