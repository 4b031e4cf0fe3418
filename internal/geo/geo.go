// Package geo acquires an optional location to give fact-check grounding
// tools local context. Acquisition is best effort: a slow, failing or absent
// source means the request proceeds without a location.
package geo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/veritas/internal/genai"
	"github.com/fyrsmithlabs/veritas/internal/logging"
	"go.uber.org/zap"
)

// DefaultTimeout bounds Acquire when no timeout is given.
const DefaultTimeout = 5 * time.Second

// ErrUnavailable is returned by locators that have no position to offer.
var ErrUnavailable = errors.New("geo: location unavailable")

// Location is a WGS84 coordinate pair.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Validate checks the coordinate ranges.
func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("latitude out of range: %v", l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("longitude out of range: %v", l.Longitude)
	}
	return nil
}

// LatLng converts to the endpoint's retrieval context. Nil stays nil.
func (l *Location) LatLng() *genai.LatLng {
	if l == nil {
		return nil
	}
	return &genai.LatLng{Latitude: l.Latitude, Longitude: l.Longitude}
}

// Locator produces the caller's current location.
type Locator interface {
	Locate(ctx context.Context) (Location, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (Location, error)

// Locate calls f.
func (f LocatorFunc) Locate(ctx context.Context) (Location, error) {
	return f(ctx)
}

// Fixed always reports the same location. It serves client-supplied
// coordinates and the configured default.
type Fixed Location

// Locate returns the fixed location.
func (f Fixed) Locate(context.Context) (Location, error) {
	return Location(f), nil
}

// None never has a location.
var None Locator = LocatorFunc(func(context.Context) (Location, error) {
	return Location{}, ErrUnavailable
})

// FirstOf tries each locator in turn and returns the first success.
// Nil entries are skipped.
func FirstOf(locators ...Locator) Locator {
	return LocatorFunc(func(ctx context.Context) (Location, error) {
		for _, l := range locators {
			if l == nil {
				continue
			}
			if loc, err := l.Locate(ctx); err == nil {
				return loc, nil
			}
			if ctx.Err() != nil {
				return Location{}, ctx.Err()
			}
		}
		return Location{}, ErrUnavailable
	})
}

// Acquire asks locator for a position and waits at most timeout. It returns
// nil on timeout, error, an invalid position or a nil locator. It never
// blocks past the timeout even if the locator ignores its context.
func Acquire(ctx context.Context, locator Locator, timeout time.Duration) *Location {
	if locator == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		loc Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		loc, err := locator.Locate(ctx)
		done <- result{loc, err}
	}()

	logger := logging.FromContext(ctx)
	select {
	case r := <-done:
		if r.err != nil {
			logger.Debug(ctx, "location not available", zap.Error(r.err))
			return nil
		}
		if err := r.loc.Validate(); err != nil {
			logger.Debug(ctx, "location rejected", zap.Error(err))
			return nil
		}
		return &r.loc
	case <-ctx.Done():
		logger.Debug(ctx, "location lookup timed out", zap.Duration("timeout", timeout))
		return nil
	}
}
