package extract

import (
	"iter"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Strategy is a single way of producing candidate quote strings
// from a parsed document
type Strategy interface {
	// Name returns the strategy name, used in logs and matches
	Name() string

	// Candidates yields candidate strings in document order.
	// It stops as soon as the consumer stops pulling
	Candidates(doc *goquery.Document) iter.Seq[string]
}

// SelectorStrategy yields the text of every element matching
// any of the CSS selectors, in selector order
type SelectorStrategy struct {
	selectors []string
}

// Selectors creates a CSS selector strategy. Selectors should be
// listed most specific first
func Selectors(selectors ...string) *SelectorStrategy {
	return &SelectorStrategy{
		selectors: selectors,
	}
}

func (s *SelectorStrategy) Name() string {
	return "selectors"
}

func (s *SelectorStrategy) Candidates(doc *goquery.Document) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, selector := range s.selectors {
			stopped := false

			// goquery treats invalid selectors as matching nothing
			doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
				text := strings.TrimSpace(sel.Text())
				if text == "" {
					return true
				}

				if !yield(text) {
					stopped = true

					return false
				}

				return true
			})

			if stopped {
				return
			}
		}
	}
}

// ClassTokenStrategy yields the text of elements whose class attribute
// contains one of the given tokens, case-insensitively
type ClassTokenStrategy struct {
	tags   string
	tokens []string
}

// ClassTokens creates a class token strategy over the given tags
// (for example "div", "span")
func ClassTokens(tags []string, tokens ...string) *ClassTokenStrategy {
	lowered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		lowered = append(lowered, strings.ToLower(token))
	}

	return &ClassTokenStrategy{
		tags:   strings.Join(tags, ", "),
		tokens: lowered,
	}
}

func (s *ClassTokenStrategy) Name() string {
	return "class tokens"
}

func (s *ClassTokenStrategy) Candidates(doc *goquery.Document) iter.Seq[string] {
	return func(yield func(string) bool) {
		if s.tags == "" || len(s.tokens) == 0 {
			return
		}

		doc.Find(s.tags).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			class, ok := sel.Attr("class")
			if !ok || !s.matches(class) {
				return true
			}

			text := strings.TrimSpace(sel.Text())
			if text == "" {
				return true
			}

			return yield(text)
		})
	}
}

func (s *ClassTokenStrategy) matches(class string) bool {
	class = strings.ToLower(class)

	for _, token := range s.tokens {
		if strings.Contains(class, token) {
			return true
		}
	}

	return false
}

// TextScanStrategy walks every text node of the document and yields
// the standalone number tokens shaped like a quote (digits, a dot,
// one or two decimals)
type TextScanStrategy struct{}

// TextScan creates a free-text scan strategy
func TextScan() *TextScanStrategy {
	return &TextScanStrategy{}
}

func (s *TextScanStrategy) Name() string {
	return "text scan"
}

func (s *TextScanStrategy) Candidates(doc *goquery.Document) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, root := range doc.Nodes {
			if !scanNode(root, yield) {
				return
			}
		}
	}
}

// scanNode walks the node tree depth-first, returning false once
// the consumer has stopped
func scanNode(n *html.Node, yield func(string) bool) bool {
	switch n.Type {
	case html.TextNode:
		for _, token := range numberTokens(n.Data) {
			if !yield(token) {
				return false
			}
		}

		return true
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript":
			return true
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !scanNode(c, yield) {
			return false
		}
	}

	return true
}

// numberTokens splits the text into runs of digits and dots,
// keeping only the ones shaped like a quote
func numberTokens(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r != '.' && (r > unicode.MaxASCII || !unicode.IsDigit(r))
	})

	tokens := make([]string, 0, len(fields))

	for _, field := range fields {
		if quoteFormat.MatchString(field) {
			tokens = append(tokens, field)
		}
	}

	return tokens
}
