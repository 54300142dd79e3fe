package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"ETFRanker/internal/domain"
	"ETFRanker/internal/ports"
)

const sampleSnapshot = `
funds:
  - id: IE00B4L5Y983
    name: iShares Core MSCI World
    provider: iShares
    index: MSCI World
    expenseRatio: 0.20
    fundSizeMillions: 90000
    dividendFrequency: accumulating
    returns:
      native:
        1y: 18.4
        3y: ~
      usd:
        1y: "21.1"
    brokerFree:
      degiro: true
  - id: LU0274208692
    name: Xtrackers MSCI World Swap
    provider: Xtrackers
    index: MSCI World
    expenseRatio: 0.19
`

func TestParseSnapshot(t *testing.T) {
	t.Parallel()

	records, err := ParseSnapshot([]byte(sampleSnapshot))
	if err != nil {
		t.Fatalf("ParseSnapshot error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if !first.ExpenseRatio.Valid || !first.ExpenseRatio.Decimal.Equal(decimal.RequireFromString("0.2")) {
		t.Fatalf("unexpected expense ratio: %+v", first.ExpenseRatio)
	}
	if v := first.Returns.Get(domain.BaseNative, domain.Period1Y); !v.Valid || v.Decimal.String() != "18.4" {
		t.Fatalf("unexpected 1y return: %+v", v)
	}
	if first.Returns.Get(domain.BaseNative, domain.Period3Y).Valid {
		t.Fatalf("null return should stay unavailable")
	}
	if !first.FreeAt("degiro") {
		t.Fatalf("broker flag lost")
	}

	if records[1].FundSizeMillions.Valid {
		t.Fatalf("missing fund size should be unavailable")
	}
}

func TestParseSnapshotRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing id":     "funds:\n  - name: nameless\n",
		"bad decimal":    "funds:\n  - id: X\n    expenseRatio: cheap\n",
		"unknown basis":  "funds:\n  - id: X\n    returns:\n      gbp:\n        1y: 1\n",
		"unknown period": "funds:\n  - id: X\n    returns:\n      native:\n        10y: 1\n",
	}

	for name, raw := range cases {
		name, raw := name, raw
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseSnapshot([]byte(raw)); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestLoadSnapshot(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	if err := os.WriteFile(path, []byte(sampleSnapshot), 0o600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	repo, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot error: %v", err)
	}

	all, err := repo.GetAll(context.Background(), ports.Hint{})
	if err != nil {
		t.Fatalf("GetAll error: %v", err)
	}
	if len(all) != 2 || all[0].ID != "IE00B4L5Y983" || all[1].ID != "LU0274208692" {
		t.Fatalf("unexpected records: %+v", all)
	}

	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSnapshotGetByIDs(t *testing.T) {
	t.Parallel()

	repo := NewSnapshotRepository([]domain.FundRecord{
		{ID: "A", Name: "Alpha"},
		{ID: "B", Name: "Beta"},
	})

	got, err := repo.GetByIDs(context.Background(), []string{"B", "missing", "B", "A"})
	if err != nil {
		t.Fatalf("GetByIDs error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "B" || got[1].ID != "A" {
		t.Fatalf("unexpected subset: %+v", got)
	}

	empty, err := repo.GetByIDs(context.Background(), nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result, got %v, %v", empty, err)
	}
}

func TestSnapshotReturnsCopies(t *testing.T) {
	t.Parallel()

	repo := NewSnapshotRepository([]domain.FundRecord{{
		ID:         "A",
		BrokerFree: map[string]bool{"degiro": true},
		Returns:    domain.Returns{domain.BaseNative: {domain.Period1Y: decimal.NewNullDecimal(decimal.NewFromInt(5))}},
	}})

	first, _ := repo.GetAll(context.Background(), ports.Hint{})
	first[0].BrokerFree["degiro"] = false
	first[0].Returns[domain.BaseNative][domain.Period1Y] = decimal.NullDecimal{}

	second, _ := repo.GetAll(context.Background(), ports.Hint{})
	if !second[0].FreeAt("degiro") || !second[0].Returns.Get(domain.BaseNative, domain.Period1Y).Valid {
		t.Fatalf("snapshot was mutated through a returned record")
	}
}

func TestSnapshotCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSnapshotRepository(nil).GetAll(ctx, ports.Hint{})
	if !domain.IsDataUnavailable(err) {
		t.Fatalf("expected data unavailable error, got %v", err)
	}
}

func TestBundledSampleSnapshot(t *testing.T) {
	t.Parallel()

	repo, err := LoadSnapshot(filepath.Join("..", "..", "..", "data", "snapshot.yaml"))
	if err != nil {
		t.Fatalf("bundled snapshot invalid: %v", err)
	}

	got, err := repo.GetByIDs(context.Background(), []string{"IE00BKM4GZ66", "DE000A0H08M3"})
	if err != nil {
		t.Fatalf("GetByIDs error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both sample funds, got %d", len(got))
	}
	if got[0].FundSizeMillions.Valid || !got[1].IsLeveraged {
		t.Fatalf("sample fixtures changed: %+v", got)
	}
}
