package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ETFRanker/internal/domain"
)

// Hint is a coarse predicate a store may use to narrow a bulk fetch.
// Stores are free to ignore any part of it; the engine re-applies every filter.
type Hint struct {
	Keywords            []string
	ExcludeLeveraged    bool
	MinFundSizeMillions decimal.NullDecimal
	BrokerFree          string
}

// RecordLookup is the read side of the external ETF record store.
type RecordLookup interface {
	// GetByIDs returns whatever subset of ids exists; missing ids are not an error.
	GetByIDs(ctx context.Context, ids []string) ([]domain.FundRecord, error)
	GetAll(ctx context.Context, hint Hint) ([]domain.FundRecord, error)
}

// Invalidator is implemented by caching lookups that can drop their entries.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Scheduler controls when revalidation runs.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
