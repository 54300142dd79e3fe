package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"ETFRanker/internal/domain"
	"ETFRanker/internal/ports"
)

const fundTable = "etf_records"

var fundColumns = []string{
	"isin",
	"name",
	"provider",
	"index_name",
	"expense_ratio",
	"fund_size_millions",
	"is_leveraged",
	"dividend_frequency",
	"returns",
	"broker_free",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository reads ETF records maintained by the ingestion process.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.RecordLookup = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// OpenPostgres opens a lib/pq connection pool for dsn.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// GetByIDs fetches the subset of ids present in the table in one round trip.
func (r *PostgresRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.FundRecord, error) {
	if len(ids) == 0 {
		return []domain.FundRecord{}, nil
	}

	query, args, err := byIDsQuery(ids).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build by-ids query: %w", err)
	}
	return r.query(ctx, "get by ids", query, args)
}

// GetAll fetches every record matching the coarse hint.
func (r *PostgresRepository) GetAll(ctx context.Context, hint ports.Hint) ([]domain.FundRecord, error) {
	query, args, err := allQuery(hint).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build bulk query: %w", err)
	}
	return r.query(ctx, "get all", query, args)
}

func byIDsQuery(ids []string) sq.SelectBuilder {
	return psql.Select(fundColumns...).
		From(fundTable).
		Where(sq.Eq{"isin": ids})
}

// allQuery narrows the scan with predicates that can only drop rows the engine
// would drop anyway. Keywords are pushed down only when all of them are ASCII:
// ILIKE folds case by the database collation while the engine uses Unicode
// lowercasing, and the two agree only on ASCII.
func allQuery(hint ports.Hint) sq.SelectBuilder {
	builder := psql.Select(fundColumns...).From(fundTable)

	if len(hint.Keywords) > 0 && allASCII(hint.Keywords) {
		anyKeyword := sq.Or{}
		for _, kw := range hint.Keywords {
			pattern := "%" + escapeLike(kw) + "%"
			anyKeyword = append(anyKeyword,
				sq.ILike{"name": pattern},
				sq.ILike{"index_name": pattern},
			)
		}
		builder = builder.Where(anyKeyword)
	}
	if hint.ExcludeLeveraged {
		builder = builder.Where(sq.Eq{"is_leveraged": false})
	}
	if hint.MinFundSizeMillions.Valid {
		builder = builder.Where(sq.GtOrEq{"fund_size_millions": hint.MinFundSizeMillions.Decimal.String()})
	}
	if hint.BrokerFree != "" {
		builder = builder.Where("(broker_free ->> ?)::boolean IS TRUE", hint.BrokerFree)
	}

	return builder.OrderBy("isin")
}

func allASCII(keywords []string) bool {
	for _, kw := range keywords {
		for i := 0; i < len(kw); i++ {
			if kw[i] >= utf8.RuneSelf {
				return false
			}
		}
	}
	return true
}

func (r *PostgresRepository) query(ctx context.Context, op, query string, args []interface{}) ([]domain.FundRecord, error) {
	if r.db == nil {
		return nil, domain.Unavailable(op, fmt.Errorf("database is not configured"))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.Unavailable(op, fmt.Errorf("query funds: %w", err))
	}

	result := make([]domain.FundRecord, 0)
	for rows.Next() {
		record, err := scanFund(rows)
		if err != nil {
			_ = rows.Close()
			return nil, domain.Unavailable(op, err)
		}
		result = append(result, record)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, domain.Unavailable(op, fmt.Errorf("rows iteration: %w", rowsErr))
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, domain.Unavailable(op, fmt.Errorf("close rows: %w", closeErr))
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFund(row rowScanner) (domain.FundRecord, error) {
	var (
		record     domain.FundRecord
		provider   sql.NullString
		indexName  sql.NullString
		dividend   sql.NullString
		returns    []byte
		brokerFree []byte
	)

	err := row.Scan(
		&record.ID,
		&record.Name,
		&provider,
		&indexName,
		&record.ExpenseRatio,
		&record.FundSizeMillions,
		&record.IsLeveraged,
		&dividend,
		&returns,
		&brokerFree,
	)
	if err != nil {
		return domain.FundRecord{}, fmt.Errorf("scan fund: %w", err)
	}

	record.Provider = provider.String
	record.Index = indexName.String
	record.DividendFrequency = dividend.String

	if record.Returns, err = decodeReturns(returns); err != nil {
		return domain.FundRecord{}, fmt.Errorf("fund %s: %w", record.ID, err)
	}
	if len(brokerFree) > 0 {
		if err := json.Unmarshal(brokerFree, &record.BrokerFree); err != nil {
			return domain.FundRecord{}, fmt.Errorf("fund %s: decode broker_free: %w", record.ID, err)
		}
	}

	return record, nil
}

// decodeReturns reads the jsonb column {"native": {"1y": 12.3, "3y": null}, ...}.
// Unknown bases or periods are dropped rather than failing the row.
func decodeReturns(raw []byte) (domain.Returns, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var parsed map[string]map[string]decimal.NullDecimal
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode returns: %w", err)
	}

	out := domain.Returns{}
	for rawBase, byPeriod := range parsed {
		base := domain.Base(strings.ToLower(rawBase))
		if !base.Valid() {
			continue
		}
		inner := map[domain.Period]decimal.NullDecimal{}
		for rawPeriod, v := range byPeriod {
			period := domain.Period(strings.ToLower(rawPeriod))
			if !period.Valid() {
				continue
			}
			inner[period] = v
		}
		out[base] = inner
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
