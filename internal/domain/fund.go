package domain

import (
	"github.com/shopspring/decimal"
)

// Period labels a return horizon ("1y", "ytd", ...).
type Period string

const (
	Period1M  Period = "1m"
	Period3M  Period = "3m"
	Period6M  Period = "6m"
	PeriodYTD Period = "ytd"
	Period1Y  Period = "1y"
	Period3Y  Period = "3y"
	Period5Y  Period = "5y"
)

// KnownPeriods lists every period label the store publishes.
var KnownPeriods = []Period{Period1M, Period3M, Period6M, PeriodYTD, Period1Y, Period3Y, Period5Y}

// Valid reports whether p is one of KnownPeriods.
func (p Period) Valid() bool {
	for _, known := range KnownPeriods {
		if p == known {
			return true
		}
	}
	return false
}

// Base is the currency basis a return is expressed in.
type Base string

const (
	BaseNative   Base = "native"
	BaseDomestic Base = "domestic"
	BaseUSD      Base = "usd"
)

// Valid reports whether b is a supported currency basis.
func (b Base) Valid() bool {
	switch b {
	case BaseNative, BaseDomestic, BaseUSD:
		return true
	default:
		return false
	}
}

// Returns maps currency basis and period to a percentage. Missing entries are unavailable.
type Returns map[Base]map[Period]decimal.NullDecimal

// Get returns the value for base/period, invalid when absent.
func (r Returns) Get(base Base, period Period) decimal.NullDecimal {
	if r == nil {
		return decimal.NullDecimal{}
	}
	byPeriod, ok := r[base]
	if !ok {
		return decimal.NullDecimal{}
	}
	return byPeriod[period]
}

// Clone copies the nested maps so callers can't alias store snapshots.
func (r Returns) Clone() Returns {
	if r == nil {
		return nil
	}
	out := make(Returns, len(r))
	for base, byPeriod := range r {
		inner := make(map[Period]decimal.NullDecimal, len(byPeriod))
		for period, v := range byPeriod {
			inner[period] = v
		}
		out[base] = inner
	}
	return out
}

// FundRecord is one tradable fund as published by the ingestion process.
type FundRecord struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	Provider          string              `json:"provider"`
	Index             string              `json:"index,omitempty"`
	ExpenseRatio      decimal.NullDecimal `json:"expenseRatio"`
	FundSizeMillions  decimal.NullDecimal `json:"fundSizeMillions"`
	Returns           Returns             `json:"returns,omitempty"`
	IsLeveraged       bool                `json:"isLeveraged"`
	DividendFrequency string              `json:"dividendFrequency,omitempty"`
	BrokerFree        map[string]bool     `json:"brokerFree,omitempty"`
}

// FreeAt reports whether the fund trades commission-free at broker.
func (f FundRecord) FreeAt(broker string) bool {
	if broker == "" || f.BrokerFree == nil {
		return false
	}
	return f.BrokerFree[broker]
}

// EditorialTemplate is a hand-curated pick; independent of store freshness.
type EditorialTemplate struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Commentary string `json:"commentary"`
	BrokerFree bool   `json:"brokerFree"`
}

// MergedEntry joins an editorial template with the live record of the same id.
// Numeric fields are invalid NullDecimals when HasLiveData is false.
type MergedEntry struct {
	Rank              int                 `json:"rank"`
	ID                string              `json:"id"`
	Commentary        string              `json:"commentary"`
	BrokerFree        bool                `json:"brokerFree"`
	HasLiveData       bool                `json:"hasLiveData"`
	Name              string              `json:"name"`
	Provider          string              `json:"provider,omitempty"`
	ExpenseRatio      decimal.NullDecimal `json:"expenseRatio"`
	FundSizeMillions  decimal.NullDecimal `json:"fundSizeMillions"`
	Returns           Returns             `json:"returns"`
	IsLeveraged       bool                `json:"isLeveraged"`
	DividendFrequency string              `json:"dividendFrequency,omitempty"`
}
