package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ETFRanker/internal/category"
	"ETFRanker/internal/domain"
	"ETFRanker/internal/ranking"
)

// CategoryConfig is the YAML form of a category definition.
type CategoryConfig struct {
	ID       string         `yaml:"id"`
	Title    string         `yaml:"title"`
	Criteria CriteriaConfig `yaml:"criteria"`
	Picks    []PickConfig   `yaml:"picks"`
}

// CriteriaConfig mirrors ranking.FilterCriteria with string-typed fields.
type CriteriaConfig struct {
	IncludeKeywords     []string `yaml:"includeKeywords"`
	ExcludeKeywords     []string `yaml:"excludeKeywords"`
	ExcludeLeveraged    bool     `yaml:"excludeLeveraged"`
	MinFundSizeMillions string   `yaml:"minFundSizeMillions"`
	BrokerFreeOnly      string   `yaml:"brokerFreeOnly"`
	SortField           string   `yaml:"sortField"`
	SortOrder           string   `yaml:"sortOrder"`
	Limit               int      `yaml:"limit"`
}

// PickConfig is one editorial template.
type PickConfig struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Commentary string `yaml:"commentary"`
	BrokerFree bool   `yaml:"brokerFree"`
}

// Build converts the YAML definition, failing with a ConfigurationError on malformed values.
func (c CategoryConfig) Build() (category.Category, error) {
	criteria, err := c.Criteria.Build(c.ID)
	if err != nil {
		return category.Category{}, err
	}

	picks := make([]domain.EditorialTemplate, 0, len(c.Picks))
	for _, p := range c.Picks {
		picks = append(picks, domain.EditorialTemplate{
			ID:         strings.TrimSpace(p.ID),
			Name:       p.Name,
			Commentary: p.Commentary,
			BrokerFree: p.BrokerFree,
		})
	}

	return category.Category{
		ID:       c.ID,
		Title:    c.Title,
		Criteria: criteria,
		Picks:    picks,
	}, nil
}

// Build parses sort field, order and minimum size.
func (c CriteriaConfig) Build(categoryID string) (ranking.FilterCriteria, error) {
	field, err := ranking.ParseSortField(c.SortField)
	if err != nil {
		return ranking.FilterCriteria{}, fmt.Errorf("category %s: %w", categoryID, err)
	}

	order := ranking.Asc
	if strings.TrimSpace(c.SortOrder) != "" {
		if order, err = ranking.ParseSortOrder(c.SortOrder); err != nil {
			return ranking.FilterCriteria{}, fmt.Errorf("category %s: %w", categoryID, err)
		}
	}

	var minSize decimal.NullDecimal
	if raw := strings.TrimSpace(c.MinFundSizeMillions); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return ranking.FilterCriteria{}, domain.NewConfigurationError(categoryID, "invalid minFundSizeMillions %q", raw)
		}
		minSize = decimal.NewNullDecimal(d)
	}

	return ranking.FilterCriteria{
		IncludeKeywords:     append([]string(nil), c.IncludeKeywords...),
		ExcludeKeywords:     append([]string(nil), c.ExcludeKeywords...),
		ExcludeLeveraged:    c.ExcludeLeveraged,
		MinFundSizeMillions: minSize,
		BrokerFreeOnly:      strings.TrimSpace(c.BrokerFreeOnly),
		SortField:           field,
		SortOrder:           order,
		Limit:               c.Limit,
	}, nil
}

// BuildCategories converts every configured category in declaration order.
func (c Config) BuildCategories() ([]category.Category, error) {
	out := make([]category.Category, 0, len(c.Categories))
	for _, cc := range c.Categories {
		cat, err := cc.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, nil
}

func defaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{
			ID:    "cheapest-world",
			Title: "Cheapest MSCI World ETFs",
			Criteria: CriteriaConfig{
				IncludeKeywords:     []string{"MSCI World"},
				ExcludeKeywords:     []string{"Momentum", "Value", "Quality"},
				ExcludeLeveraged:    true,
				MinFundSizeMillions: "100",
				SortField:           "expenseRatio",
				SortOrder:           "asc",
				Limit:               10,
			},
			Picks: []PickConfig{
				{ID: "IE00B4L5Y983", Name: "iShares Core MSCI World UCITS ETF", Commentary: "The largest MSCI World tracker; physical replication and tight spreads."},
				{ID: "LU0274208692", Name: "Xtrackers MSCI World Swap UCITS ETF", Commentary: "Swap-based replication keeps tracking difference low."},
				{ID: "IE00BK5BQT80", Name: "Vanguard FTSE All-World UCITS ETF (Acc)", Commentary: "Adds emerging markets for a single-fund portfolio."},
			},
		},
		{
			ID:    "largest",
			Title: "Largest ETFs by fund size",
			Criteria: CriteriaConfig{
				ExcludeLeveraged: true,
				SortField:        "fundSizeMillions",
				SortOrder:        "desc",
				Limit:            10,
			},
			Picks: []PickConfig{
				{ID: "IE00B5BMR087", Name: "iShares Core S&P 500 UCITS ETF", Commentary: "Deep liquidity and one of the lowest costs for US large caps."},
				{ID: "IE00B4L5Y983", Name: "iShares Core MSCI World UCITS ETF", Commentary: "Developed markets in one fund."},
				{ID: "IE00BKM4GZ66", Name: "iShares Core MSCI EM IMI UCITS ETF", Commentary: "Broad emerging markets exposure including small caps."},
			},
		},
		{
			ID:    "best-1y",
			Title: "Best performing ETFs over one year",
			Criteria: CriteriaConfig{
				ExcludeLeveraged:    true,
				MinFundSizeMillions: "50",
				SortField:           "returns.1y",
				SortOrder:           "desc",
				Limit:               10,
			},
			Picks: []PickConfig{
				{ID: "IE00B53SZB19", Name: "iShares Nasdaq 100 UCITS ETF", Commentary: "Concentrated technology exposure; expect higher volatility."},
				{ID: "IE00B5BMR087", Name: "iShares Core S&P 500 UCITS ETF", Commentary: "A steadier core holding."},
				{ID: "IE00BK5BQT80", Name: "Vanguard FTSE All-World UCITS ETF (Acc)", Commentary: "Global diversification across regions."},
			},
		},
		{
			ID:    "degiro-free",
			Title: "Commission-free ETFs at DEGIRO",
			Criteria: CriteriaConfig{
				ExcludeLeveraged: true,
				BrokerFreeOnly:   "degiro",
				SortField:        "expenseRatio",
				SortOrder:        "asc",
				Limit:            10,
			},
			Picks: []PickConfig{
				{ID: "IE00B3RBWM25", Name: "Vanguard FTSE All-World UCITS ETF (Dist)", Commentary: "Free to trade in the core selection.", BrokerFree: true},
				{ID: "IE00BKX55T58", Name: "Vanguard FTSE Developed World UCITS ETF", Commentary: "Developed markets without emerging exposure.", BrokerFree: true},
				{ID: "IE00B4L5Y983", Name: "iShares Core MSCI World UCITS ETF", Commentary: "Popular choice; check the current fee schedule.", BrokerFree: true},
			},
		},
		{
			ID:    "dividend",
			Title: "Largest dividend ETFs",
			Criteria: CriteriaConfig{
				IncludeKeywords:  []string{"Dividend", "Aristocrats"},
				ExcludeLeveraged: true,
				SortField:        "fundSizeMillions",
				SortOrder:        "desc",
				Limit:            10,
			},
			Picks: []PickConfig{
				{ID: "IE00B8GKDB10", Name: "Vanguard FTSE All-World High Dividend Yield UCITS ETF", Commentary: "Global high-yield stocks with quarterly distributions."},
				{ID: "IE00B9CQXS71", Name: "SPDR S&P Global Dividend Aristocrats UCITS ETF", Commentary: "Screens for stable dividend growth."},
				{ID: "NL0011683594", Name: "VanEck Morningstar Developed Markets Dividend Leaders UCITS ETF", Commentary: "Concentrated portfolio of the highest yielders."},
			},
		},
		{
			ID:    "sp500-cheapest",
			Title: "Cheapest S&P 500 ETFs",
			Criteria: CriteriaConfig{
				IncludeKeywords:     []string{"S&P 500"},
				ExcludeKeywords:     []string{"Equal Weight", "ESG", "Hedged"},
				ExcludeLeveraged:    true,
				MinFundSizeMillions: "100",
				SortField:           "expenseRatio",
				SortOrder:           "asc",
				Limit:               5,
			},
			Picks: []PickConfig{
				{ID: "IE00B5BMR087", Name: "iShares Core S&P 500 UCITS ETF", Commentary: "Largest S&P 500 UCITS fund."},
				{ID: "IE00BFMXXD54", Name: "Vanguard S&P 500 UCITS ETF (Acc)", Commentary: "Accumulating share class at the same low cost."},
				{ID: "IE000XZSV718", Name: "SPDR S&P 500 UCITS ETF (Acc)", Commentary: "Among the cheapest total expense ratios in the segment."},
			},
		},
	}
}
