package extract

import (
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sig-0/fxquotes/storage/types"
)

// BuySell is a two-sided reading. A missing side is left empty
type BuySell struct {
	Buy  string `json:"buy,omitempty"`
	Sell string `json:"sell,omitempty"`

	// Name of the row strategy that located the row
	Strategy string `json:"strategy,omitempty"`
}

// Complete reports whether both sides were recovered
func (b BuySell) Complete() bool {
	return b.Buy != "" && b.Sell != ""
}

// Partial reports whether exactly one side was recovered
func (b BuySell) Partial() bool {
	return (b.Buy != "") != (b.Sell != "")
}

// Empty reports whether no side was recovered
func (b BuySell) Empty() bool {
	return b.Buy == "" && b.Sell == ""
}

// RowStrategy is a single way of locating labeled table rows
type RowStrategy interface {
	// Name returns the strategy name, used in logs and results
	Name() string

	// Rows yields the rows that carry the label, in document order
	Rows(doc *goquery.Document, label string) iter.Seq[*goquery.Selection]
}

// TableRowStrategy looks for the label in the first cell of the rows
// of a known, structured table
type TableRowStrategy struct {
	table string
}

// TableRows creates a structured table strategy for the given table selector
func TableRows(table string) *TableRowStrategy {
	return &TableRowStrategy{
		table: table,
	}
}

func (s *TableRowStrategy) Name() string {
	return "table rows"
}

func (s *TableRowStrategy) Rows(doc *goquery.Document, label string) iter.Seq[*goquery.Selection] {
	return func(yield func(*goquery.Selection) bool) {
		doc.Find(s.table).Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			if !containsLabel(cells(row).First().Text(), label) {
				return true
			}

			return yield(row)
		})
	}
}

// LabelCellStrategy looks for any table cell carrying the label,
// and yields its row
type LabelCellStrategy struct{}

// LabelCells creates a label cell strategy
func LabelCells() *LabelCellStrategy {
	return &LabelCellStrategy{}
}

func (s *LabelCellStrategy) Name() string {
	return "label cells"
}

func (s *LabelCellStrategy) Rows(doc *goquery.Document, label string) iter.Seq[*goquery.Selection] {
	return func(yield func(*goquery.Selection) bool) {
		doc.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			if !containsLabel(cell.Text(), label) {
				return true
			}

			row := cell.Closest("tr")
			if row.Length() == 0 {
				return true
			}

			return yield(row)
		})
	}
}

// AnyRowStrategy yields every row whose text carries the label
type AnyRowStrategy struct{}

// AnyRow creates the catch-all row strategy
func AnyRow() *AnyRowStrategy {
	return &AnyRowStrategy{}
}

func (s *AnyRowStrategy) Name() string {
	return "any row"
}

func (s *AnyRowStrategy) Rows(doc *goquery.Document, label string) iter.Seq[*goquery.Selection] {
	return func(yield func(*goquery.Selection) bool) {
		doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			if !containsLabel(row.Text(), label) {
				return true
			}

			return yield(row)
		})
	}
}

// RowLookup reads two-sided quotes out of labeled table rows
type RowLookup struct {
	logger     *slog.Logger
	source     types.Source
	label      string
	validator  Validator
	strategies []RowStrategy

	// 1-based cell positions
	buyColumn  int
	sellColumn int
}

// NewRowLookup creates a row lookup for the given row label. The buy and
// sell columns are 1-based cell positions within the row, label cell included
func NewRowLookup(
	source types.Source,
	validator Validator,
	label string,
	buyColumn, sellColumn int,
	strategies []RowStrategy,
	opts ...Option,
) *RowLookup {
	return &RowLookup{
		logger:     applyOptions(opts).logger,
		source:     source,
		label:      label,
		validator:  validator,
		strategies: strategies,
		buyColumn:  buyColumn,
		sellColumn: sellColumn,
	}
}

// Lookup returns the best reading across all row strategies: the first
// complete row wins, otherwise the first partial row.
// A partial reading is returned together with a KindPartialQuote failure.
// Errors are always a *Failure
func (r *RowLookup) Lookup(doc *goquery.Document) (BuySell, error) {
	if doc == nil {
		return BuySell{}, &Failure{
			Kind:   KindNoQuoteFound,
			Source: r.source,
			Reason: "no document",
		}
	}

	var (
		label   = fold(r.label)
		rows    = 0
		partial BuySell
	)

	for _, strategy := range r.strategies {
		for row := range strategy.Rows(doc, label) {
			rows++

			reading := BuySell{
				Buy:      r.side(row, r.buyColumn),
				Sell:     r.side(row, r.sellColumn),
				Strategy: strategy.Name(),
			}

			r.logger.Debug(
				"labeled row found",
				"source", r.source,
				"strategy", strategy.Name(),
				"buy", reading.Buy,
				"sell", reading.Sell,
			)

			if reading.Complete() {
				return reading, nil
			}

			if reading.Partial() && partial.Empty() {
				partial = reading
			}
		}
	}

	switch {
	case !partial.Empty():
		missing := types.SideSELL
		if partial.Buy == "" {
			missing = types.SideBUY
		}

		return partial, &Failure{
			Kind:   KindPartialQuote,
			Source: r.source,
			Reason: fmt.Sprintf("%s side missing for %q", missing, r.label),
		}
	case rows == 0:
		return BuySell{}, &Failure{
			Kind:   KindNoQuoteFound,
			Source: r.source,
			Reason: fmt.Sprintf("no row labeled %q", r.label),
		}
	default:
		return BuySell{}, &Failure{
			Kind:   KindValidationRejected,
			Source: r.source,
			Reason: fmt.Sprintf("no plausible values in %d rows labeled %q", rows, r.label),
		}
	}
}

// side returns the validated cell text at the 1-based column,
// or an empty string
func (r *RowLookup) side(row *goquery.Selection, column int) string {
	if column < 1 {
		return ""
	}

	text := strings.TrimSpace(cells(row).Eq(column - 1).Text())
	if text == "" || !r.validator.IsPlausible(text) {
		return ""
	}

	return text
}

func cells(row *goquery.Selection) *goquery.Selection {
	return row.Children().Filter("td, th")
}

func containsLabel(text, foldedLabel string) bool {
	return foldedLabel != "" && strings.Contains(fold(text), foldedLabel)
}

// fold lowercases the text, strips diacritics and collapses whitespace
func fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}

	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
