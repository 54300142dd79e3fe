package ranking

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ETFRanker/internal/domain"
)

// SortOrder is the ranking direction.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// FieldKind enumerates the FundRecord attributes a list can be ranked by.
type FieldKind int

const (
	FieldUnknown FieldKind = iota
	FieldExpenseRatio
	FieldFundSize
	FieldName
	FieldReturn
)

// SortField identifies the ranking key. Return fields also carry a period and basis.
type SortField struct {
	Kind   FieldKind
	Period domain.Period
	Base   domain.Base
}

// ExpenseRatio, FundSize and Name are the non-return sort fields.
var (
	ExpenseRatio = SortField{Kind: FieldExpenseRatio}
	FundSize     = SortField{Kind: FieldFundSize}
	Name         = SortField{Kind: FieldName}
)

// Return builds a sort field over a return period in the given basis.
func Return(period domain.Period, base domain.Base) SortField {
	return SortField{Kind: FieldReturn, Period: period, Base: base}
}

// ParseSortField accepts "expenseRatio", "fundSizeMillions", "name",
// "returns.<period>" and "returns.<period>.<base>".
func ParseSortField(raw string) (SortField, error) {
	value := strings.TrimSpace(raw)
	switch value {
	case "expenseRatio":
		return ExpenseRatio, nil
	case "fundSizeMillions":
		return FundSize, nil
	case "name":
		return Name, nil
	}

	parts := strings.Split(value, ".")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "returns" {
		return SortField{}, domain.NewConfigurationError("sortField", "unknown sort field %q", raw)
	}

	field := Return(domain.Period(strings.ToLower(parts[1])), domain.BaseNative)
	if len(parts) == 3 {
		field.Base = domain.Base(strings.ToLower(parts[2]))
	}
	if err := field.Validate(); err != nil {
		return SortField{}, err
	}
	return field, nil
}

// Validate rejects unknown kinds, periods and bases.
func (f SortField) Validate() error {
	switch f.Kind {
	case FieldExpenseRatio, FieldFundSize, FieldName:
		return nil
	case FieldReturn:
		if !f.Period.Valid() {
			return domain.NewConfigurationError("sortField", "unknown return period %q", f.Period)
		}
		if !f.Base.Valid() {
			return domain.NewConfigurationError("sortField", "unknown return basis %q", f.Base)
		}
		return nil
	default:
		return domain.NewConfigurationError("sortField", "unknown sort field kind %d", f.Kind)
	}
}

func (f SortField) String() string {
	switch f.Kind {
	case FieldExpenseRatio:
		return "expenseRatio"
	case FieldFundSize:
		return "fundSizeMillions"
	case FieldName:
		return "name"
	case FieldReturn:
		if f.Base == domain.BaseNative || f.Base == "" {
			return fmt.Sprintf("returns.%s", f.Period)
		}
		return fmt.Sprintf("returns.%s.%s", f.Period, f.Base)
	default:
		return "unknown"
	}
}

// ParseSortOrder accepts "asc" and "desc" in any case.
func ParseSortOrder(raw string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(raw))) {
	case Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	default:
		return "", domain.NewConfigurationError("sortOrder", "unknown sort order %q", raw)
	}
}

// FilterCriteria is the declarative recipe behind a themed list.
type FilterCriteria struct {
	IncludeKeywords     []string
	ExcludeKeywords     []string
	ExcludeLeveraged    bool
	MinFundSizeMillions decimal.NullDecimal
	BrokerFreeOnly      string
	SortField           SortField
	SortOrder           SortOrder
	Limit               int
}

// Validate checks everything that would otherwise fail at render time.
// A non-positive Limit is not an error; Rank clamps it.
func (c FilterCriteria) Validate() error {
	if err := c.SortField.Validate(); err != nil {
		return err
	}
	if c.SortOrder != Asc && c.SortOrder != Desc {
		return domain.NewConfigurationError("sortOrder", "unknown sort order %q", c.SortOrder)
	}
	if c.MinFundSizeMillions.Valid && c.MinFundSizeMillions.Decimal.IsNegative() {
		return domain.NewConfigurationError("minFundSizeMillions", "must not be negative, got %s", c.MinFundSizeMillions.Decimal)
	}
	for _, kw := range append(append([]string{}, c.IncludeKeywords...), c.ExcludeKeywords...) {
		if strings.TrimSpace(kw) == "" {
			return domain.NewConfigurationError("keywords", "empty keyword")
		}
	}
	return nil
}

func (c FilterCriteria) limit() int {
	if c.Limit < 1 {
		return 1
	}
	return c.Limit
}

// Clone copies the keyword slices so the result shares no state with c.
func (c FilterCriteria) Clone() FilterCriteria {
	c.IncludeKeywords = append([]string(nil), c.IncludeKeywords...)
	c.ExcludeKeywords = append([]string(nil), c.ExcludeKeywords...)
	return c
}
