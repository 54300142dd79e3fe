package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"ETFRanker/internal/category"
	"ETFRanker/internal/domain"
	"ETFRanker/internal/editorial"
	"ETFRanker/internal/ports"
	"ETFRanker/internal/ranking"
)

const renderConcurrency = 4

// ServiceDeps wires the registry and the record store into the service.
type ServiceDeps struct {
	Registry *category.Registry
	Lookup   ports.RecordLookup
	Logger   *slog.Logger
}

// Service exposes ranked lists and editorial picks per category.
type Service struct {
	registry *category.Registry
	lookup   ports.RecordLookup
	logger   *slog.Logger
}

// CategoryView is everything a category page needs in one render.
type CategoryView struct {
	ID     string               `json:"id"`
	Title  string               `json:"title"`
	Ranked []domain.FundRecord  `json:"ranked"`
	Picks  []domain.MergedEntry `json:"picks"`
}

// NewService constructs the use case.
func NewService(deps ServiceDeps) *Service {
	return &Service{
		registry: deps.Registry,
		lookup:   deps.Lookup,
		logger:   deps.Logger,
	}
}

// Categories lists the registered category ids.
func (s *Service) Categories() []string {
	return s.registry.List()
}

// RankForCategory fetches a snapshot narrowed by the category's hint and ranks it.
func (s *Service) RankForCategory(ctx context.Context, categoryID string) ([]domain.FundRecord, error) {
	criteria, err := s.registry.Resolve(categoryID)
	if err != nil {
		return nil, err
	}
	if s.lookup == nil {
		return nil, domain.Unavailable("rank "+categoryID, fmt.Errorf("record lookup is not configured"))
	}

	records, err := s.lookup.GetAll(ctx, HintFor(criteria))
	if err != nil {
		return nil, domain.Unavailable("rank "+categoryID, err)
	}

	ranked, err := ranking.Rank(records, criteria)
	if err != nil {
		return nil, fmt.Errorf("rank %s: %w", categoryID, err)
	}

	s.debug("category ranked", "category", categoryID, "candidates", len(records), "ranked", len(ranked))
	return ranked, nil
}

// TopEditorialPicks merges the category's curated picks with live records.
func (s *Service) TopEditorialPicks(ctx context.Context, categoryID string) ([]domain.MergedEntry, error) {
	templates, err := s.registry.Picks(categoryID)
	if err != nil {
		return nil, err
	}

	entries, err := editorial.Merge(ctx, templates, s.lookup)
	if err != nil {
		return nil, fmt.Errorf("editorial picks %s: %w", categoryID, err)
	}

	missing := 0
	for _, entry := range entries {
		if !entry.HasLiveData {
			missing++
		}
	}
	if missing > 0 && s.logger != nil {
		s.logger.Warn("editorial picks without live data", "category", categoryID, "missing", missing, "total", len(entries))
	}
	return entries, nil
}

// Render builds the view for one category.
func (s *Service) Render(ctx context.Context, categoryID string) (CategoryView, error) {
	cat, err := s.registry.Category(categoryID)
	if err != nil {
		return CategoryView{}, err
	}

	ranked, err := s.RankForCategory(ctx, categoryID)
	if err != nil {
		return CategoryView{}, err
	}

	picks, err := s.TopEditorialPicks(ctx, categoryID)
	if err != nil {
		return CategoryView{}, err
	}

	return CategoryView{ID: cat.ID, Title: cat.Title, Ranked: ranked, Picks: picks}, nil
}

// RenderAll renders every registered category in id order. Categories are
// rendered concurrently, at most renderConcurrency at a time.
func (s *Service) RenderAll(ctx context.Context) ([]CategoryView, error) {
	ids := s.Categories()
	views := make([]CategoryView, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(renderConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			view, err := s.Render(gctx, id)
			if err != nil {
				return err
			}
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.debug("render done", "categories", len(views))
	return views, nil
}

// HintFor derives the coarse store predicate from a category's criteria.
func HintFor(criteria ranking.FilterCriteria) ports.Hint {
	return ports.Hint{
		Keywords:            append([]string(nil), criteria.IncludeKeywords...),
		ExcludeLeveraged:    criteria.ExcludeLeveraged,
		MinFundSizeMillions: criteria.MinFundSizeMillions,
		BrokerFree:          criteria.BrokerFreeOnly,
	}
}

func (s *Service) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
