package extract

import (
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"github.com/sig-0/fxquotes/storage/types"
)

// Match is the first accepted candidate of a chain run
type Match struct {
	// Raw candidate text, as found in the document
	Text string

	// Name of the strategy that produced the candidate
	Strategy string
}

// Chain runs an ordered list of strategies against a document,
// stopping at the first candidate the validator accepts
type Chain struct {
	logger     *slog.Logger
	source     types.Source
	validator  Validator
	strategies []Strategy
}

// NewChain creates a strategy chain for the given source.
// Strategies are tried in the given order
func NewChain(
	source types.Source,
	validator Validator,
	strategies []Strategy,
	opts ...Option,
) *Chain {
	return &Chain{
		logger:     applyOptions(opts).logger,
		source:     source,
		validator:  validator,
		strategies: strategies,
	}
}

// Extract returns the first plausible candidate of the highest priority
// strategy that produces one. Rejected candidates are skipped.
// The returned error is always a *Failure
func (c *Chain) Extract(doc *goquery.Document) (Match, error) {
	if doc == nil {
		return Match{}, &Failure{
			Kind:   KindNoQuoteFound,
			Source: c.source,
			Reason: "no document",
		}
	}

	seen := 0

	for _, strategy := range c.strategies {
		for candidate := range strategy.Candidates(doc) {
			seen++

			if !c.validator.IsPlausible(candidate) {
				c.logger.Debug(
					"candidate rejected",
					"source", c.source,
					"strategy", strategy.Name(),
					"candidate", candidate,
				)

				continue
			}

			c.logger.Debug(
				"candidate accepted",
				"source", c.source,
				"strategy", strategy.Name(),
				"candidate", candidate,
			)

			return Match{
				Text:     candidate,
				Strategy: strategy.Name(),
			}, nil
		}
	}

	if seen == 0 {
		return Match{}, &Failure{
			Kind:   KindNoQuoteFound,
			Source: c.source,
			Reason: fmt.Sprintf("no candidates across %d strategies", len(c.strategies)),
		}
	}

	return Match{}, &Failure{
		Kind:   KindValidationRejected,
		Source: c.source,
		Reason: fmt.Sprintf("all %d candidates rejected", seen),
	}
}
