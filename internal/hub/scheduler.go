package hub

import (
	"sync"
	"time"

	"nvivas/backend/bingo-go-server/internal/room"
)

// Scheduler creates recurring draw timers. fn runs on the timer's own
// goroutine and must only enqueue work for the hub.
type Scheduler interface {
	Every(d time.Duration, fn func()) room.Timer
}

// TickerScheduler backs timers with time.Ticker.
type TickerScheduler struct{}

type tickerTimer struct {
	stop chan struct{}
	once sync.Once
}

func (t *tickerTimer) Stop() {
	t.once.Do(func() { close(t.stop) })
}

// Every starts a goroutine that calls fn every d until the timer is stopped.
func (TickerScheduler) Every(d time.Duration, fn func()) room.Timer {
	t := &tickerTimer{stop: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				// Stop may race with the tick; prefer stopping.
				select {
				case <-t.stop:
					return
				default:
				}
				fn()
			case <-t.stop:
				return
			}
		}
	}()

	return t
}
