package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"ETFRanker/internal/config"
	"ETFRanker/internal/domain"
	"ETFRanker/internal/infrastructure/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	return config.Config{
		Output: config.OutputConfig{Format: "json"},
		Categories: []config.CategoryConfig{
			{
				ID:    "cheapest-world",
				Title: "Cheapest MSCI World ETFs",
				Criteria: config.CriteriaConfig{
					IncludeKeywords: []string{"World"},
					SortField:       "expenseRatio",
					SortOrder:       "asc",
					Limit:           2,
				},
				Picks: []config.PickConfig{
					{ID: "IE00B4L5Y983", Commentary: "core"},
					{ID: "IE000GONE000", Name: "Merged Fund", Commentary: "closed"},
				},
			},
		},
	}
}

func TestRunRendersCategories(t *testing.T) {
	t.Parallel()

	repo := storage.NewSnapshotRepository([]domain.FundRecord{
		{ID: "IE00B4L5Y983", Name: "iShares Core MSCI World", ExpenseRatio: decimal.NewNullDecimal(decimal.RequireFromString("0.20"))},
		{ID: "LU0274208692", Name: "Xtrackers MSCI World Swap", ExpenseRatio: decimal.NewNullDecimal(decimal.RequireFromString("0.19"))},
		{ID: "IE00B5BMR087", Name: "iShares Core S&P 500", ExpenseRatio: decimal.NewNullDecimal(decimal.RequireFromString("0.07"))},
	})

	var out bytes.Buffer
	application, err := New(testConfig(), quietLogger(), WithLookup(repo), WithOutput(&out))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if err := application.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	var rendered []struct {
		ID     string `json:"id"`
		Ranked []struct {
			ID           string  `json:"id"`
			ExpenseRatio *string `json:"expenseRatio"`
		} `json:"ranked"`
		Picks []struct {
			Rank         int     `json:"rank"`
			ID           string  `json:"id"`
			Name         string  `json:"name"`
			HasLiveData  bool    `json:"hasLiveData"`
			ExpenseRatio *string `json:"expenseRatio"`
		} `json:"picks"`
	}
	if err := json.Unmarshal(out.Bytes(), &rendered); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}

	if len(rendered) != 1 || rendered[0].ID != "cheapest-world" {
		t.Fatalf("unexpected categories: %+v", rendered)
	}
	ranked := rendered[0].Ranked
	if len(ranked) != 2 || ranked[0].ID != "LU0274208692" || ranked[1].ID != "IE00B4L5Y983" {
		t.Fatalf("unexpected ranking: %+v", ranked)
	}

	picks := rendered[0].Picks
	if len(picks) != 2 || picks[0].Rank != 1 || picks[1].Rank != 2 {
		t.Fatalf("unexpected picks: %+v", picks)
	}
	if !picks[0].HasLiveData || picks[0].ExpenseRatio == nil || *picks[0].ExpenseRatio != "0.2" {
		t.Fatalf("live pick not merged: %+v", picks[0])
	}
	if picks[1].HasLiveData || picks[1].Name != "Merged Fund" || picks[1].ExpenseRatio != nil {
		t.Fatalf("missing pick should render unavailable values: %+v", picks[1])
	}
}

func TestNewRejectsMalformedCategory(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Categories[0].Criteria.SortField = "returns.10y"

	_, err := New(cfg, quietLogger(), WithLookup(storage.NewSnapshotRepository(nil)))
	if !domain.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewRejectsDuplicateCategory(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Categories = append(cfg.Categories, cfg.Categories[0])

	_, err := New(cfg, quietLogger(), WithLookup(storage.NewSnapshotRepository(nil)))
	if !domain.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewRejectsBadCronExpression(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.CronExpression = "whenever"

	if _, err := New(cfg, quietLogger(), WithLookup(storage.NewSnapshotRepository(nil))); err == nil {
		t.Fatalf("expected cron parse error")
	}
}
