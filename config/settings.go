package config

import (
	"sync/atomic"

	"github.com/rediwo/redi-shape/options"
)

// Settings holds the process-wide option layer. It is read on every flatten
// call and may be swapped at any time, e.g. by a Watcher.
type Settings struct {
	current atomic.Pointer[options.Override]
}

func NewSettings(initial *options.Override) *Settings {
	s := &Settings{}
	s.Store(initial)
	return s
}

// Store replaces the current layer
func (s *Settings) Store(o *options.Override) {
	s.current.Store(o.Clone())
}

// Override implements options.Source. A nil Settings has no layer.
func (s *Settings) Override() *options.Override {
	if s == nil {
		return nil
	}
	return s.current.Load()
}
