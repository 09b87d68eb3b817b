package alarm

import (
	"sync"
	"time"
)

// Clock schedules repeating work. Stop funcs must not block.
type Clock interface {
	Every(d time.Duration, fn func()) (stop func())
}

type SystemClock struct{}

func (SystemClock) Every(d time.Duration, fn func()) func() {
	ticker := time.NewTicker(d)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
