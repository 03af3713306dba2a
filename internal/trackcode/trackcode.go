// Package trackcode allocates the public tracking codes handed to citizens.
// Candidates are cheap and uncoordinated; Resolver checks them against the
// store until a free one turns up.
package trackcode

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"sampark/backend/internal/config"
)

// ErrAllocationExhausted means every attempt produced a code already in use.
// Nothing was written, so the caller may retry the whole submission.
var ErrAllocationExhausted = errors.New("could not allocate a unique tracking code")

// Generator produces candidates of the form PREFIX + 5 random digits
// (10000-99999) + the last 4 digits of the millisecond clock.
type Generator struct {
	Prefix string
	IntN   func(n int) int
	Now    func() time.Time
}

// NewGenerator returns a Generator backed by math/rand/v2 and the wall clock.
func NewGenerator() *Generator {
	return &Generator{
		Prefix: config.TrackingIDPrefix,
		IntN:   rand.IntN,
		Now:    time.Now,
	}
}

// Candidate returns a code that is likely, but not guaranteed, to be unused.
func (g *Generator) Candidate() string {
	random := 10000 + g.IntN(90000)
	suffix := g.Now().UnixMilli() % 10000
	return fmt.Sprintf("%s%05d%04d", g.Prefix, random, suffix)
}

// Checker reports whether a tracking code is already taken.
type Checker interface {
	TrackingIDExists(ctx context.Context, code string) (bool, error)
}

// Resolver turns the generator into an allocator with a retry ceiling.
type Resolver struct {
	Store       Checker
	Candidate   func() string
	MaxAttempts int

	// OnCollision, when set, is called for every candidate already in use.
	OnCollision func(code string)
}

// NewResolver wires a default Generator to store.
func NewResolver(store Checker) *Resolver {
	return &Resolver{
		Store:       store,
		Candidate:   NewGenerator().Candidate,
		MaxAttempts: config.MaxTrackingIDAttempts,
	}
}

// Allocate returns a code that did not exist at the time of the check. The
// unique index on the grievance table still has the final say.
func (r *Resolver) Allocate(ctx context.Context) (string, error) {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = config.MaxTrackingIDAttempts
	}

	for i := 0; i < attempts; i++ {
		code := r.Candidate()
		exists, err := r.Store.TrackingIDExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check tracking code %s: %w", code, err)
		}
		if !exists {
			return code, nil
		}
		log.Printf("WARNING: tracking code collision on %s (attempt %d/%d)", code, i+1, attempts)
		if r.OnCollision != nil {
			r.OnCollision(code)
		}
	}
	return "", ErrAllocationExhausted
}
