package ranking

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"ETFRanker/internal/domain"
)

// Rank filters, sorts and truncates records according to criteria.
// The input slice is not modified. Records with a null sort value go last
// whatever the order.
func Rank(records []domain.FundRecord, criteria FilterCriteria) ([]domain.FundRecord, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	matched := make([]domain.FundRecord, 0, len(records))
	for _, record := range records {
		if Matches(record, criteria) {
			matched = append(matched, record)
		}
	}

	slices.SortStableFunc(matched, func(a, b domain.FundRecord) int {
		return compare(a, b, criteria.SortField, criteria.SortOrder)
	})

	if limit := criteria.limit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Matches applies the filter pipeline in its fixed order:
// keywords, leverage, minimum size, broker.
func Matches(record domain.FundRecord, criteria FilterCriteria) bool {
	if !matchesKeywords(record, criteria.IncludeKeywords, criteria.ExcludeKeywords) {
		return false
	}
	if criteria.ExcludeLeveraged && record.IsLeveraged {
		return false
	}
	if criteria.MinFundSizeMillions.Valid {
		if !record.FundSizeMillions.Valid {
			return false
		}
		if record.FundSizeMillions.Decimal.LessThan(criteria.MinFundSizeMillions.Decimal) {
			return false
		}
	}
	if criteria.BrokerFreeOnly != "" && !record.FreeAt(criteria.BrokerFreeOnly) {
		return false
	}
	return true
}

func matchesKeywords(record domain.FundRecord, include, exclude []string) bool {
	haystack := strings.ToLower(record.Name + "\n" + record.Index)

	for _, kw := range exclude {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, kw := range include {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func compare(a, b domain.FundRecord, field SortField, order SortOrder) int {
	if field.Kind == FieldName {
		c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		if order == Desc {
			return -c
		}
		return c
	}

	av, bv := numericValue(a, field), numericValue(b, field)
	switch {
	case !av.Valid && !bv.Valid:
		return 0
	case !av.Valid:
		return 1
	case !bv.Valid:
		return -1
	}

	c := av.Decimal.Cmp(bv.Decimal)
	if order == Desc {
		return -c
	}
	return c
}

func numericValue(record domain.FundRecord, field SortField) decimal.NullDecimal {
	switch field.Kind {
	case FieldExpenseRatio:
		return record.ExpenseRatio
	case FieldFundSize:
		return record.FundSizeMillions
	case FieldReturn:
		return record.Returns.Get(field.Base, field.Period)
	default:
		return decimal.NullDecimal{}
	}
}
