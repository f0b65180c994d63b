// Package trigger resolves free-form chat text into council intents. The
// engine itself never parses text; it consumes only the resolved
// {symbol, intent} pair this package produces.
package trigger

import (
	"regexp"
	"strings"
)

// Kind is a resolved intent.
type Kind string

const (
	// KindRate starts a new council for a symbol.
	KindRate Kind = "rate"

	// KindConfirm confirms a pending council.
	KindConfirm Kind = "confirm"

	// KindNext advances the progressive stage pipeline.
	KindNext Kind = "next"

	// KindVerdict requests the final verdict of a completed council.
	KindVerdict Kind = "verdict"

	// KindNone means no council intent was detected.
	KindNone Kind = "none"
)

// Intent is the result of matching inbound text.
type Intent struct {
	Kind Kind `json:"kind"`

	// Symbol is the extracted uppercase ticker. Only set for rate intents.
	Symbol string `json:"symbol,omitempty"`
}

var (
	// ratePattern matches "rate BTC", "rate $doge", "can you rate SOL?".
	ratePattern = regexp.MustCompile(`(?i)\brate\s+\$?([a-z]{2,10})\b`)

	confirmPattern = regexp.MustCompile(`(?i)\b(confirm|yes|go ahead|do it|lfg)\b`)
	nextPattern    = regexp.MustCompile(`(?i)\b(next|continue|proceed|advance)\b`)
	verdictPattern = regexp.MustCompile(`(?i)\b(verdict|final|result|summary)\b`)
)

// Detect resolves inbound chat text to an intent. Matching order gives
// rate priority, since "rate X" messages often also contain filler words
// the other patterns would catch.
func Detect(text string) Intent {
	if m := ratePattern.FindStringSubmatch(text); m != nil {
		return Intent{Kind: KindRate, Symbol: strings.ToUpper(m[1])}
	}
	if confirmPattern.MatchString(text) {
		return Intent{Kind: KindConfirm}
	}
	if nextPattern.MatchString(text) {
		return Intent{Kind: KindNext}
	}
	if verdictPattern.MatchString(text) {
		return Intent{Kind: KindVerdict}
	}
	return Intent{Kind: KindNone}
}
