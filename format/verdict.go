// Package format renders structured verdict reports into channel-ready
// text. Formatting is a pure function of the report, so each output
// channel (Discord, Twitter, Telegram) can swap in its own renderer
// without touching the engine.
package format

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/moltenlabs/councilflow/council"
	"github.com/moltenlabs/councilflow/types"
)

// DefaultChunkSize is the paginated-mode chunk budget, sized for Discord's
// 2000-character message limit with headroom for the page marker.
const DefaultChunkSize = 1900

// Verdict renders the consolidated single-message report for a verdict.
func Verdict(r *types.VerdictReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🏛️ Council Verdict: %s\n\n", r.Crypto)
	fmt.Fprintf(&b, "Overall Rating: %.1f/%d\n", r.AvgRating, r.RatingScaleMax)
	fmt.Fprintf(&b, "Risk Level: %s\n\n", strings.ToUpper(string(r.RiskLevel)))

	b.WriteString("Panel Ratings:\n")
	for _, m := range r.Members {
		fmt.Fprintf(&b, "  %s (%s): %d/%d — %q\n",
			m.MemberName, m.Expertise, m.Score, r.RatingScaleMax, m.Comment)
	}

	fmt.Fprintf(&b, "\nTechnical: %d/100 | Fundamental: %d/100 | Meme Potential: %d/100\n\n",
		r.TechnicalScore, r.FundamentalScore, r.MemePotential)

	b.WriteString(r.Narrative)

	if r.TokenData != nil {
		fmt.Fprintf(&b, "\n\nMarket Snapshot: price $%.4f, 24h change %+.2f%%, market cap $%.0f",
			r.TokenData.Price, r.TokenData.PriceChange24h, r.TokenData.MarketCap)
	}

	return b.String()
}

// StageAdvance renders the per-stage message of a progressive advance. The
// advance that exhausts the pipeline gets the aggregate summary appended.
func StageAdvance(a *council.StageAdvance) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📋 Stage %d/%d — %s (%s)\n",
		a.StageIndex+1, council.StageCount, a.Stage.Name, a.Crypto)
	fmt.Fprintf(&b, "Score: %d/100\n%s", a.Stage.Score, a.Stage.Analysis)
	for _, kv := range detailLines(a.Stage.Details) {
		b.WriteString("\n  • " + kv)
	}

	if a.Final {
		fmt.Fprintf(&b, "\n\n✅ All stages complete. Average stage score: %.1f/100.", a.AverageScore)
	}
	return b.String()
}

// Paginate splits a report into ordered chunks of at most chunkSize runes,
// each suffixed with an "(i/n)" page marker. Splits happen on line
// boundaries where possible; an oversized line is split hard, but always
// on a rune boundary so multi-byte characters stay intact. A non-positive
// chunkSize uses DefaultChunkSize.
func Paginate(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	lines := strings.Split(text, "\n")
	var current strings.Builder
	currentRunes := 0

	flush := func() {
		chunks = append(chunks, current.String())
		current.Reset()
		currentRunes = 0
	}

	for _, line := range lines {
		lineRunes := utf8.RuneCountInString(line)
		for lineRunes > chunkSize {
			if currentRunes > 0 {
				flush()
			}
			runes := []rune(line)
			chunks = append(chunks, string(runes[:chunkSize]))
			line = string(runes[chunkSize:])
			lineRunes -= chunkSize
		}
		if currentRunes > 0 && currentRunes+lineRunes+1 > chunkSize {
			flush()
		}
		if currentRunes > 0 {
			current.WriteByte('\n')
			currentRunes++
		}
		current.WriteString(line)
		currentRunes += lineRunes
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	for i := range chunks {
		chunks[i] = fmt.Sprintf("%s\n(%d/%d)", chunks[i], i+1, len(chunks))
	}
	return chunks
}

// PaginatedVerdict renders the consolidated report and splits it into
// numbered chunks.
func PaginatedVerdict(r *types.VerdictReport, chunkSize int) []string {
	return Paginate(Verdict(r), chunkSize)
}

// detailLines flattens a stage detail payload into sorted "key: value"
// lines so output is stable across runs.
func detailLines(details map[string]string) []string {
	if len(details) == 0 {
		return nil
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+details[k])
	}
	return lines
}
