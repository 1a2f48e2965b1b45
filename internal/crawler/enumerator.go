package crawler

import (
	"context"
	"strings"

	"sjsage522/dealerworker/helpers"
	"sjsage522/dealerworker/logger"
	crawlerrors "sjsage522/dealerworker/pkg/errors"
)

// BranchFailure is a part of the crawl that was skipped after its retries
// ran out
type BranchFailure struct {
	Stage string   `json:"stage"`
	Path  []string `json:"path"`
	Facet string   `json:"facet,omitempty"`
	Page  int      `json:"page,omitempty"`
	Err   string   `json:"error"`
}

func (f BranchFailure) String() string {
	s := f.Stage + " " + strings.Join(f.Path, "/")
	if f.Facet != "" {
		s += " [" + f.Facet + "]"
	}
	return s + ": " + f.Err
}

// Enumerator walks a vendor's geography tree down to its leaf level
type Enumerator struct {
	vendor Vendor
	retry  RetryPolicy
	pacer  *helpers.Pacer
	log    *logger.Logger

	Requests int
	Failures []BranchFailure
}

// NewEnumerator creates an enumerator for v
func NewEnumerator(v Vendor, retry RetryPolicy, pacer *helpers.Pacer) *Enumerator {
	return &Enumerator{vendor: v, retry: retry, pacer: pacer, log: logger.ForVendor(v.Name())}
}

// Leaves returns the leaf units in province, city, district order. A level
// request that still fails after its retries skips that branch and is
// recorded in Failures; only cancellation and rate limiting abort the walk.
func (e *Enumerator) Leaves(ctx context.Context) ([]*GeographyUnit, error) {
	depth := e.vendor.Depth()

	provinces, err := e.list(ctx, "provinces", nil, func(ctx context.Context) ([]*GeographyUnit, error) {
		return e.vendor.Provinces(ctx)
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().Int("count", len(provinces)).Msg("Provinces listed")

	if depth <= LevelProvince {
		return provinces, nil
	}

	var leaves []*GeographyUnit
	for _, province := range provinces {
		cities, err := e.list(ctx, "cities", province, func(ctx context.Context) ([]*GeographyUnit, error) {
			return e.vendor.Cities(ctx, province)
		})
		if err != nil {
			return nil, err
		}

		if depth == LevelCity {
			leaves = append(leaves, cities...)
			continue
		}

		for _, city := range cities {
			districts, err := e.list(ctx, "districts", city, func(ctx context.Context) ([]*GeographyUnit, error) {
				return e.vendor.Districts(ctx, city)
			})
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, districts...)
		}
	}

	e.log.Info().Int("count", len(leaves)).Str("leaf_level", depth.String()).Msg("Leaves listed")
	return leaves, nil
}

func (e *Enumerator) list(ctx context.Context, stage string, parent *GeographyUnit, call func(context.Context) ([]*GeographyUnit, error)) ([]*GeographyUnit, error) {
	var units []*GeographyUnit
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		e.Requests++
		var err error
		units, err = call(ctx)
		return err
	})
	if paceErr := e.pace(ctx); paceErr != nil {
		return nil, paceErr
	}

	if err != nil {
		if isFatal(ctx, err) {
			return nil, err
		}
		failure := BranchFailure{Stage: stage, Err: err.Error()}
		if parent != nil {
			failure.Path = parent.Path()
		}
		e.Failures = append(e.Failures, failure)
		e.log.Warn().Err(err).Str("stage", stage).Strs("path", failure.Path).Msg("Skipping branch")
		return nil, nil
	}

	for _, u := range units {
		if u.Parent == nil {
			u.Parent = parent
		}
	}
	return units, nil
}

func (e *Enumerator) pace(ctx context.Context) error {
	if e.pacer == nil {
		return ctx.Err()
	}
	return e.pacer.Wait(ctx)
}

// isFatal reports whether err ends the whole crawl rather than one branch
func isFatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return crawlerrors.Is(err, crawlerrors.ErrorTypeRateLimit) || crawlerrors.Is(err, crawlerrors.ErrorTypeSink)
}
