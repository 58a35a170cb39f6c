package realclock

import (
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/ports"
)

type Clock struct{}

func New() Clock { return Clock{} }

func (Clock) Now() time.Time { return time.Now() }

func (Clock) AfterFunc(d time.Duration, fn func()) ports.Timer {
	return time.AfterFunc(d, fn)
}

func (Clock) Every(d time.Duration, fn func()) ports.Timer {
	if d <= 0 {
		d = time.Second
	}
	t := &ticker{ticker: time.NewTicker(d), done: make(chan struct{})}
	go t.run(fn)
	return t
}

type ticker struct {
	ticker *time.Ticker
	once   sync.Once
	done   chan struct{}
}

func (t *ticker) run(fn func()) {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			// Stop peut arriver pendant l'attente: on revérifie avant d'appeler fn.
			select {
			case <-t.done:
				return
			default:
			}
			fn()
		}
	}
}

func (t *ticker) Stop() bool {
	stopped := false
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
		stopped = true
	})
	return stopped
}
