// Package chat implements the intent router and responder for coinchat
package chat

import (
	"regexp"
	"strconv"
)

// Intent is the classified purpose of a user's input.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentPriceLookup
	IntentTrendingLookup
	IntentStatsLookup
	IntentPortfolioAdd
	IntentPortfolioValuation
	IntentChart
)

// String returns the intent name for logging.
func (i Intent) String() string {
	switch i {
	case IntentPriceLookup:
		return "price_lookup"
	case IntentTrendingLookup:
		return "trending_lookup"
	case IntentStatsLookup:
		return "stats_lookup"
	case IntentPortfolioAdd:
		return "portfolio_add"
	case IntentPortfolioValuation:
		return "portfolio_valuation"
	case IntentChart:
		return "chart"
	default:
		return "unknown"
	}
}

// Classification is the result of matching user text against the rule list.
type Classification struct {
	Intent       Intent
	Coin         string  // matched coin identifier, original casing
	Quantity     float64 // parsed quantity for portfolio adds
	QuantityText string  // quantity exactly as typed
}

// rule pairs a name with a matcher. Matchers both detect the intent and
// extract its arguments.
type rule struct {
	name  string
	match func(text string) (Classification, bool)
}

var (
	rePriceOf   = regexp.MustCompile(`(?i)\bprice of (\w+)`)
	reTrading   = regexp.MustCompile(`(?i)what.*\b(\w+)\b.*trading`)
	reTrending  = regexp.MustCompile(`(?i)trending`)
	reStats     = regexp.MustCompile(`(?i)\b(?:stats|details)\b`)
	reHave      = regexp.MustCompile(`(?i)\bi have (\d+\.?\d*) (\w+)`)
	rePortfolio = regexp.MustCompile(`(?i)portfolio`)
	reChart     = regexp.MustCompile(`(?i)\bchart\b`)
	reToken     = regexp.MustCompile(`\w+`)
)

// rules is evaluated in fixed priority order; the first match wins. The
// patterns overlap, so this ordering is load-bearing: "I have 2 btc in my
// portfolio" must hit portfolio_add, not portfolio_valuation.
var rules = []rule{
	{name: "price_of", match: matchPriceOf},
	{name: "what_trading", match: matchWhatTrading},
	{name: "trending", match: matchTrending},
	{name: "stats", match: matchStats},
	{name: "portfolio_add", match: matchPortfolioAdd},
	{name: "portfolio_valuation", match: matchPortfolioValuation},
	{name: "chart", match: matchChart},
}

// Classify runs the ordered rule list over the text and returns the first
// match, or an Unknown classification when nothing matches.
func Classify(text string) Classification {
	for _, r := range rules {
		if c, ok := r.match(text); ok {
			return c
		}
	}
	return Classification{Intent: IntentUnknown}
}

func matchPriceOf(text string) (Classification, bool) {
	m := rePriceOf.FindStringSubmatch(text)
	if m == nil {
		return Classification{}, false
	}
	return Classification{Intent: IntentPriceLookup, Coin: m[1]}, true
}

// matchWhatTrading is a looser fallback for phrasing like "what's X trading
// at": it captures the last whole token that still has "trading" after it.
func matchWhatTrading(text string) (Classification, bool) {
	m := reTrading.FindStringSubmatch(text)
	if m == nil {
		return Classification{}, false
	}
	return Classification{Intent: IntentPriceLookup, Coin: m[1]}, true
}

func matchTrending(text string) (Classification, bool) {
	if !reTrending.MatchString(text) {
		return Classification{}, false
	}
	return Classification{Intent: IntentTrendingLookup}, true
}

// matchStats requires a token somewhere after the keyword and treats the
// final one as the coin identifier ("stats for bitcoin" -> "bitcoin").
func matchStats(text string) (Classification, bool) {
	coin, ok := tokenAfter(reStats, text)
	if !ok {
		return Classification{}, false
	}
	return Classification{Intent: IntentStatsLookup, Coin: coin}, true
}

func matchPortfolioAdd(text string) (Classification, bool) {
	m := reHave.FindStringSubmatch(text)
	if m == nil {
		return Classification{}, false
	}
	// The pattern only admits digit-and-optional-decimal sequences, so the
	// parse cannot fail.
	qty, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Classification{}, false
	}
	return Classification{
		Intent:       IntentPortfolioAdd,
		Coin:         m[2],
		Quantity:     qty,
		QuantityText: m[1],
	}, true
}

func matchPortfolioValuation(text string) (Classification, bool) {
	if !rePortfolio.MatchString(text) {
		return Classification{}, false
	}
	return Classification{Intent: IntentPortfolioValuation}, true
}

func matchChart(text string) (Classification, bool) {
	coin, ok := tokenAfter(reChart, text)
	if !ok {
		return Classification{}, false
	}
	return Classification{Intent: IntentChart, Coin: coin}, true
}

// tokenAfter returns the last alphanumeric token following the keyword
// matched by re. A keyword with nothing after it does not match.
func tokenAfter(re *regexp.Regexp, text string) (string, bool) {
	loc := re.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	tokens := reToken.FindAllString(text[loc[1]:], -1)
	if len(tokens) == 0 {
		return "", false
	}
	return tokens[len(tokens)-1], true
}
