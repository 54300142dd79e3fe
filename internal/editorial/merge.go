package editorial

import (
	"context"
	"fmt"

	"ETFRanker/internal/domain"
	"ETFRanker/internal/ports"
)

// Merge joins editorial templates with live records fetched in a single batched
// lookup. Output order is template order; live numbers never reorder picks.
func Merge(ctx context.Context, templates []domain.EditorialTemplate, lookup ports.RecordLookup) ([]domain.MergedEntry, error) {
	if len(templates) == 0 {
		return []domain.MergedEntry{}, nil
	}
	if lookup == nil {
		return nil, domain.Unavailable("merge editorial picks", fmt.Errorf("record lookup is not configured"))
	}

	records, err := lookup.GetByIDs(ctx, uniqueIDs(templates))
	if err != nil {
		return nil, domain.Unavailable("merge editorial picks", err)
	}

	live := make(map[string]domain.FundRecord, len(records))
	for _, record := range records {
		if _, seen := live[record.ID]; !seen {
			live[record.ID] = record
		}
	}

	entries := make([]domain.MergedEntry, 0, len(templates))
	for i, tpl := range templates {
		entry := domain.MergedEntry{
			Rank:       i + 1,
			ID:         tpl.ID,
			Commentary: tpl.Commentary,
			BrokerFree: tpl.BrokerFree,
			Name:       tpl.Name,
		}

		if record, ok := live[tpl.ID]; ok {
			entry.HasLiveData = true
			entry.Name = record.Name
			entry.Provider = record.Provider
			entry.ExpenseRatio = record.ExpenseRatio
			entry.FundSizeMillions = record.FundSizeMillions
			entry.Returns = record.Returns.Clone()
			entry.IsLeveraged = record.IsLeveraged
			entry.DividendFrequency = record.DividendFrequency
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func uniqueIDs(templates []domain.EditorialTemplate) []string {
	ids := make([]string, 0, len(templates))
	seen := make(map[string]struct{}, len(templates))
	for _, tpl := range templates {
		if _, ok := seen[tpl.ID]; ok {
			continue
		}
		seen[tpl.ID] = struct{}{}
		ids = append(ids, tpl.ID)
	}
	return ids
}
