package discovery

import (
	"context"
	"errors"
	"fmt"

	"menubox/internal/domain"
	"menubox/internal/logging"
)

// Result is the outcome of a discovery run.
type Result struct {
	Items  []domain.MenuItem
	Source string
}

// Orchestrator runs the cascade: cached menu first, then each strategy in
// order until one yields items.
type Orchestrator struct {
	menus      domain.MenuItemStore
	strategies []Strategy
}

// NewOrchestrator creates an Orchestrator over strategies in priority order.
func NewOrchestrator(menus domain.MenuItemStore, strategies ...Strategy) *Orchestrator {
	return &Orchestrator{menus: menus, strategies: strategies}
}

// Discover returns the first non-empty menu found for req.Identity. Stage
// failures are logged and skipped. Items found by a strategy are persisted
// so the next run for the same identity is served from the cache.
//
// When nothing is found and every attempted strategy was unavailable, the
// empty result is returned together with domain.ErrServiceUnavailable.
func (o *Orchestrator) Discover(ctx context.Context, req Request) (Result, error) {
	log := logging.Ctx(ctx).With().Str("restaurant", req.Identity.Name).Logger()
	id := req.Identity.ID

	if id != "" && o.menus != nil {
		items, err := o.menus.ListFor(ctx, id)
		switch {
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			log.Warn().Str("stage", SourceCached).Err(err).Msg("menu cache read failed")
		case len(items) > 0:
			log.Info().Str("source", SourceCached).Int("items", len(items)).Msg("menu discovered")
			return Result{Items: items, Source: SourceCached}, nil
		}
	}

	attempted, unavailable := 0, 0
	var lastUnavailable error
	for _, s := range o.strategies {
		if c, ok := s.(conditional); ok && !c.Applies(req) {
			continue
		}
		attempted++
		items, err := s.Discover(ctx, req)
		if err != nil {
			if errors.Is(err, domain.ErrServiceUnavailable) {
				unavailable++
				lastUnavailable = err
				log.Warn().Str("stage", s.Name()).Err(err).Msg("discovery stage unavailable")
			} else {
				log.Warn().Str("stage", s.Name()).Err(err).Msg("discovery stage failed")
			}
			continue
		}
		items = domain.DedupeItems(items)
		if len(items) == 0 {
			log.Debug().Str("stage", s.Name()).Msg("discovery stage found nothing")
			continue
		}
		if id != "" && o.menus != nil {
			if err := o.menus.SaveAll(ctx, id, items); err != nil {
				log.Warn().Str("stage", s.Name()).Err(err).Msg("menu cache write failed")
			}
		}
		log.Info().Str("source", s.Name()).Int("items", len(items)).Msg("menu discovered")
		return Result{Items: items, Source: s.Name()}, nil
	}

	log.Info().Str("source", SourceNone).Msg("no menu discovered")
	if attempted > 0 && unavailable == attempted {
		return Result{Items: []domain.MenuItem{}, Source: SourceNone}, fmt.Errorf("menu discovery: %w", lastUnavailable)
	}
	return Result{Items: []domain.MenuItem{}, Source: SourceNone}, nil
}
