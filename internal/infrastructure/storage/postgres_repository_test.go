package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"ETFRanker/internal/domain"
	"ETFRanker/internal/ports"
)

func TestByIDsQuery(t *testing.T) {
	t.Parallel()

	query, args, err := byIDsQuery([]string{"IE00B4L5Y983", "LU0274208692"}).ToSql()
	if err != nil {
		t.Fatalf("ToSql error: %v", err)
	}

	if !strings.Contains(query, "FROM etf_records WHERE isin IN ($1,$2)") {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 2 || args[0] != "IE00B4L5Y983" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestAllQueryWithoutHint(t *testing.T) {
	t.Parallel()

	query, args, err := allQuery(ports.Hint{}).ToSql()
	if err != nil {
		t.Fatalf("ToSql error: %v", err)
	}
	if strings.Contains(query, "WHERE") {
		t.Fatalf("expected no predicates: %s", query)
	}
	if !strings.HasSuffix(query, "ORDER BY isin") {
		t.Fatalf("expected deterministic order: %s", query)
	}
	if len(args) != 0 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestAllQueryWithHint(t *testing.T) {
	t.Parallel()

	hint := ports.Hint{
		Keywords:            []string{"World", "100%_ESG"},
		ExcludeLeveraged:    true,
		MinFundSizeMillions: decimal.NewNullDecimal(decimal.NewFromInt(500)),
		BrokerFree:          "degiro",
	}

	query, args, err := allQuery(hint).ToSql()
	if err != nil {
		t.Fatalf("ToSql error: %v", err)
	}

	for _, fragment := range []string{
		"name ILIKE $1",
		"index_name ILIKE $2",
		"is_leveraged = $5",
		"fund_size_millions >= $6",
		"(broker_free ->> $7)::boolean IS TRUE",
	} {
		if !strings.Contains(query, fragment) {
			t.Fatalf("query %q missing %q", query, fragment)
		}
	}

	if len(args) != 7 {
		t.Fatalf("expected 7 args, got %d: %v", len(args), args)
	}
	if args[0] != "%World%" || args[2] != `%100\%\_ESG%` {
		t.Fatalf("unexpected like patterns: %v", args[:4])
	}
	if args[5] != "500" || args[6] != "degiro" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestAllQueryKeepsNonASCIIKeywordsInEngine(t *testing.T) {
	t.Parallel()

	hint := ports.Hint{
		Keywords:         []string{"World", "Übersee"},
		ExcludeLeveraged: true,
	}

	query, args, err := allQuery(hint).ToSql()
	if err != nil {
		t.Fatalf("ToSql error: %v", err)
	}
	if strings.Contains(query, "ILIKE") {
		t.Fatalf("non-ASCII keyword pushed into SQL: %s", query)
	}
	if !strings.Contains(query, "is_leveraged = $1") || len(args) != 1 {
		t.Fatalf("remaining predicates lost: %s %v", query, args)
	}
}

type fakeRow struct {
	values []any
}

func (f fakeRow) Scan(dest ...any) error {
	for i, d := range dest {
		switch target := d.(type) {
		case *string:
			*target = f.values[i].(string)
		case *bool:
			*target = f.values[i].(bool)
		case *[]byte:
			if f.values[i] != nil {
				*target = f.values[i].([]byte)
			}
		case interface{ Scan(any) error }:
			if err := target.Scan(f.values[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func TestScanFund(t *testing.T) {
	t.Parallel()

	row := fakeRow{values: []any{
		"IE00B4L5Y983",
		"iShares Core MSCI World",
		"iShares",
		"MSCI World",
		[]byte("0.20"),
		nil,
		false,
		"accumulating",
		[]byte(`{"native":{"1y":18.4,"3y":null,"10y":1},"usd":{"1y":"21.1"},"gbp":{"1y":3}}`),
		[]byte(`{"degiro":true,"scalable":false}`),
	}}

	record, err := scanFund(row)
	if err != nil {
		t.Fatalf("scanFund error: %v", err)
	}

	if record.ID != "IE00B4L5Y983" || record.Provider != "iShares" || record.Index != "MSCI World" {
		t.Fatalf("unexpected identity fields: %+v", record)
	}
	if !record.ExpenseRatio.Valid || !record.ExpenseRatio.Decimal.Equal(decimal.RequireFromString("0.2")) {
		t.Fatalf("unexpected expense ratio: %+v", record.ExpenseRatio)
	}
	if record.FundSizeMillions.Valid {
		t.Fatalf("null fund size should stay unavailable")
	}
	if v := record.Returns.Get(domain.BaseNative, domain.Period1Y); !v.Valid || !v.Decimal.Equal(decimal.RequireFromString("18.4")) {
		t.Fatalf("unexpected 1y return: %+v", v)
	}
	if record.Returns.Get(domain.BaseNative, domain.Period3Y).Valid {
		t.Fatalf("null 3y return should stay unavailable")
	}
	if v := record.Returns.Get(domain.BaseUSD, domain.Period1Y); !v.Valid {
		t.Fatalf("usd return missing")
	}
	if _, ok := record.Returns["gbp"]; ok {
		t.Fatalf("unknown basis should be dropped")
	}
	if !record.FreeAt("degiro") || record.FreeAt("scalable") {
		t.Fatalf("unexpected broker flags: %v", record.BrokerFree)
	}
}

func TestPostgresRepositoryWithoutDB(t *testing.T) {
	t.Parallel()

	repo := NewPostgresRepository(nil)

	got, err := repo.GetByIDs(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("empty id set should short-circuit, got %v, %v", got, err)
	}

	_, err = repo.GetAll(context.Background(), ports.Hint{})
	if !domain.IsDataUnavailable(err) {
		t.Fatalf("expected data unavailable error, got %v", err)
	}
}
