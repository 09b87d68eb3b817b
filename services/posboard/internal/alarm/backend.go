package alarm

import (
	"errors"
	"fmt"
)

var (
	// ErrPlaybackBlocked is returned by a media sink that refuses to play
	// before the page has been interacted with.
	ErrPlaybackBlocked = errors.New("media playback blocked")
	// ErrLocked is returned by the tone backend before the unlock gesture.
	ErrLocked    = errors.New("audio locked until user gesture")
	ErrNoBackend = errors.New("no audio backend could start")
)

// Backend is one way of sounding the alarm.
type Backend interface {
	Start() error
	Stop()
}

// startFirst tries each backend in order and returns the first one that starts.
func startFirst(backends ...Backend) (Backend, error) {
	var errs []error
	for _, b := range backends {
		if b == nil {
			continue
		}
		if err := b.Start(); err != nil {
			errs = append(errs, err)
			continue
		}
		return b, nil
	}
	if len(errs) == 0 {
		return nil, ErrNoBackend
	}
	return nil, fmt.Errorf("%w: %w", ErrNoBackend, errors.Join(errs...))
}
