package storage

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"ETFRanker/internal/domain"
	"ETFRanker/internal/ports"
)

// SnapshotRepository serves records from an in-memory snapshot, typically a YAML
// export of the ingestion table.
type SnapshotRepository struct {
	mu      sync.RWMutex
	records map[string]domain.FundRecord
}

var _ ports.RecordLookup = (*SnapshotRepository)(nil)

type snapshotFile struct {
	Funds []snapshotFund `yaml:"funds"`
}

type snapshotFund struct {
	ID                string                        `yaml:"id"`
	Name              string                        `yaml:"name"`
	Provider          string                        `yaml:"provider"`
	Index             string                        `yaml:"index"`
	ExpenseRatio      *string                       `yaml:"expenseRatio"`
	FundSizeMillions  *string                       `yaml:"fundSizeMillions"`
	Returns           map[string]map[string]*string `yaml:"returns"`
	IsLeveraged       bool                          `yaml:"isLeveraged"`
	DividendFrequency string                        `yaml:"dividendFrequency"`
	BrokerFree        map[string]bool               `yaml:"brokerFree"`
}

// NewSnapshotRepository indexes records by id. A later duplicate replaces an earlier one.
func NewSnapshotRepository(records []domain.FundRecord) *SnapshotRepository {
	repo := &SnapshotRepository{}
	repo.Replace(records)
	return repo
}

// LoadSnapshot reads a YAML snapshot file from disk.
func LoadSnapshot(path string) (*SnapshotRepository, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	records, err := ParseSnapshot(raw)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return NewSnapshotRepository(records), nil
}

// ParseSnapshot decodes the YAML snapshot format.
func ParseSnapshot(raw []byte) ([]domain.FundRecord, error) {
	var file snapshotFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	records := make([]domain.FundRecord, 0, len(file.Funds))
	for i, dto := range file.Funds {
		record, err := dto.toDomain()
		if err != nil {
			return nil, fmt.Errorf("fund #%d: %w", i+1, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (f snapshotFund) toDomain() (domain.FundRecord, error) {
	if strings.TrimSpace(f.ID) == "" {
		return domain.FundRecord{}, fmt.Errorf("missing id")
	}

	expense, err := parseNullable(f.ExpenseRatio)
	if err != nil {
		return domain.FundRecord{}, fmt.Errorf("fund %s expenseRatio: %w", f.ID, err)
	}
	size, err := parseNullable(f.FundSizeMillions)
	if err != nil {
		return domain.FundRecord{}, fmt.Errorf("fund %s fundSizeMillions: %w", f.ID, err)
	}

	var returns domain.Returns
	if len(f.Returns) > 0 {
		returns = domain.Returns{}
		for rawBase, byPeriod := range f.Returns {
			base := domain.Base(strings.ToLower(rawBase))
			if !base.Valid() {
				return domain.FundRecord{}, fmt.Errorf("fund %s: unknown return basis %q", f.ID, rawBase)
			}
			inner := map[domain.Period]decimal.NullDecimal{}
			for rawPeriod, v := range byPeriod {
				period := domain.Period(strings.ToLower(rawPeriod))
				if !period.Valid() {
					return domain.FundRecord{}, fmt.Errorf("fund %s: unknown return period %q", f.ID, rawPeriod)
				}
				value, err := parseNullable(v)
				if err != nil {
					return domain.FundRecord{}, fmt.Errorf("fund %s return %s/%s: %w", f.ID, base, period, err)
				}
				inner[period] = value
			}
			returns[base] = inner
		}
	}

	return domain.FundRecord{
		ID:                f.ID,
		Name:              f.Name,
		Provider:          f.Provider,
		Index:             f.Index,
		ExpenseRatio:      expense,
		FundSizeMillions:  size,
		Returns:           returns,
		IsLeveraged:       f.IsLeveraged,
		DividendFrequency: f.DividendFrequency,
		BrokerFree:        f.BrokerFree,
	}, nil
}

func parseNullable(raw *string) (decimal.NullDecimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// Replace swaps the whole snapshot atomically.
func (r *SnapshotRepository) Replace(records []domain.FundRecord) {
	indexed := make(map[string]domain.FundRecord, len(records))
	for _, record := range records {
		indexed[record.ID] = copyRecord(record)
	}

	r.mu.Lock()
	r.records = indexed
	r.mu.Unlock()
}

// GetByIDs returns the known subset of ids; unknown ids are skipped.
func (r *SnapshotRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.FundRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Unavailable("get by ids", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.FundRecord, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if record, ok := r.records[id]; ok {
			out = append(out, copyRecord(record))
		}
	}
	return out, nil
}

// GetAll returns every record in id order. The snapshot is small enough that
// the hint is not applied; the engine filters precisely.
func (r *SnapshotRepository) GetAll(ctx context.Context, _ ports.Hint) ([]domain.FundRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Unavailable("get all", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]domain.FundRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyRecord(r.records[id]))
	}
	return out, nil
}

func copyRecord(record domain.FundRecord) domain.FundRecord {
	record.Returns = record.Returns.Clone()
	if record.BrokerFree != nil {
		flags := make(map[string]bool, len(record.BrokerFree))
		for broker, free := range record.BrokerFree {
			flags[broker] = free
		}
		record.BrokerFree = flags
	}
	return record
}
