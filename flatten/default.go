package flatten

import (
	"context"
	"sync"

	"github.com/rediwo/redi-shape/options"
	"github.com/rediwo/redi-shape/types"
)

var (
	defaultMu     sync.RWMutex
	defaultEngine *Engine
)

// Default returns the process-wide engine, creating it on first use
func Default() *Engine {
	defaultMu.RLock()
	e := defaultEngine
	defaultMu.RUnlock()
	if e != nil {
		return e
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultEngine == nil {
		defaultEngine = New()
	}
	return defaultEngine
}

// SetDefault replaces the process-wide engine
func SetDefault(e *Engine) {
	defaultMu.Lock()
	defaultEngine = e
	defaultMu.Unlock()
}

// ResetDefault drops the process-wide engine. The next call to Default
// creates a fresh one.
func ResetDefault() {
	SetDefault(nil)
}

// Flatten converts obj with the process-wide engine
func Flatten(ctx context.Context, obj any, fields, exclude []string, opts ...options.Option) (any, error) {
	return Default().Flatten(ctx, obj, fields, exclude, opts...)
}

// Restore renames alias keys with the process-wide engine's settings
func Restore(data *types.Object, opts ...options.Option) (*types.Object, error) {
	return Default().Restore(data, opts...)
}
