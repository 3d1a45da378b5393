package common

import (
	"time"

	"go.uber.org/zap"

	"pcbaerp/internal/audit"
	"pcbaerp/internal/ids"
)

// Env holds the dependencies shared by every module handler.
type Env struct {
	Log   *zap.Logger
	Audit *audit.Logger
	IDs   *ids.Generator

	// DraftCapacity and DraftTTL bound each resource's open drafts.
	DraftCapacity int
	DraftTTL      time.Duration

	// Now is the clock used for draft defaults. nil means time.Now.
	Now func() time.Time
}

// Logger returns the named logger, or a no-op logger when none is set.
func (e Env) Logger(name string) *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log.Named(name)
}

// Clock returns e.Now or time.Now.
func (e Env) Clock() func() time.Time {
	if e.Now == nil {
		return time.Now
	}
	return e.Now
}

// NextID returns a generator for PREFIX-YYYY-NNNN identifiers.
func (e Env) NextID(prefix string) func(taken func(string) bool) string {
	gen := e.IDs
	if gen == nil {
		gen = ids.New()
	}
	return func(taken func(string) bool) string {
		return gen.Next(prefix, 4, taken)
	}
}

func (e Env) capacity() int {
	if e.DraftCapacity <= 0 {
		return 1024
	}
	return e.DraftCapacity
}

func (e Env) ttl() time.Duration {
	if e.DraftTTL <= 0 {
		return 30 * time.Minute
	}
	return e.DraftTTL
}
