// Package sink persists check results as they complete.
package sink

import (
	"context"
	"errors"

	"github.com/namelens/listlens/internal/core"
)

// Sink records one completed result. Implementations must be safe for
// concurrent use.
type Sink interface {
	Record(ctx context.Context, result *core.CheckResult) error
}

// Multi fans a result out to every sink in order. It stops at the first error.
type Multi []Sink

// Record implements Sink.
func (m Multi) Record(ctx context.Context, result *core.CheckResult) error {
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, result); err != nil {
			return err
		}
	}
	return nil
}

// Closer is implemented by sinks holding open resources.
type Closer interface {
	Close() error
}

// Close closes every sink that holds resources and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		closer, ok := s.(Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
