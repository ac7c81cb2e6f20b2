package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	nonNumeric    = regexp.MustCompile(`[^\d.]`)
	quoteFormat   = regexp.MustCompile(`^\d+\.\d{1,2}$`)
	decimalFormat = regexp.MustCompile(`^\d+\.\d+$`)
)

// Range is the plausible value range for a currency pair.
// Anything outside of it is treated as noise
type Range struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// DefaultRange returns the USD/PEN plausible range, [1.0, 10.0]
func DefaultRange() Range {
	return Range{
		Min: decimal.NewFromInt(1),
		Max: decimal.NewFromInt(10),
	}
}

// NewRange creates a plausible range from float bounds
func NewRange(minValue, maxValue float64) Range {
	return Range{
		Min: decimal.NewFromFloat(minValue),
		Max: decimal.NewFromFloat(maxValue),
	}
}

// Contains reports whether the value lies within the range, bounds included
func (r Range) Contains(v decimal.Decimal) bool {
	return v.GreaterThanOrEqual(r.Min) && v.LessThanOrEqual(r.Max)
}

// Validator accepts or rejects candidate quote strings
type Validator struct {
	r Range
}

// NewValidator creates a validator for the given plausible range
func NewValidator(r Range) Validator {
	return Validator{r: r}
}

// DefaultValidator creates a validator for the default USD/PEN range
func DefaultValidator() Validator {
	return NewValidator(DefaultRange())
}

// Range returns the validator's plausible range
func (v Validator) Range() Range {
	return v.r
}

// IsPlausible reports whether the text looks like a real quote: once
// stripped of everything but digits and dots, it must read as digits,
// a dot and one or two decimals, and its value must be within range
func (v Validator) IsPlausible(text string) bool {
	cleaned := Clean(text)
	if !quoteFormat.MatchString(cleaned) {
		return false
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return false
	}

	return v.r.Contains(value)
}

// Clean strips every character except digits and dots
func Clean(text string) string {
	return nonNumeric.ReplaceAllString(strings.TrimSpace(text), "")
}

// Normalize turns a raw quote text into a decimal value.
// Texts that don't reduce to a plain decimal number yield no value
func Normalize(text string) (decimal.Decimal, bool) {
	cleaned := Clean(text)
	if !decimalFormat.MatchString(cleaned) {
		return decimal.Decimal{}, false
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}

	return value, true
}
