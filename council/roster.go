package council

import "github.com/moltenlabs/councilflow/types"

// PanelSize is the number of members drawn from the roster for each council.
const PanelSize = 3

// Roster returns the fixed set of personas from which every panel is drawn.
// The roster is defined once and never mutated; callers receive a fresh
// slice on each call.
func Roster() []types.Member {
	return []types.Member{
		{
			Name:        "Sage Nakamoto",
			Expertise:   "On-chain Analysis",
			Catchphrase: "The chain never lies.",
		},
		{
			Name:        "Luna Delacroix",
			Expertise:   "Social Sentiment",
			Catchphrase: "Vibes are a leading indicator.",
		},
		{
			Name:        "Maximilian Sterling",
			Expertise:   "Market Insights",
			Catchphrase: "Liquidity is king, timing is queen.",
		},
		{
			Name:        "Pixel Watanabe",
			Expertise:   "Design and Art",
			Catchphrase: "If it doesn't meme, it doesn't move.",
		},
		{
			Name:        "Dr. Ada Friedman",
			Expertise:   "Value Proposition",
			Catchphrase: "Utility outlives hype.",
		},
	}
}

// memberComments maps member names to the canned remark each persona
// attaches to an individual rating.
var memberComments = map[string]string{
	"Sage Nakamoto":       "On-chain flows look structurally sound to me.",
	"Luna Delacroix":      "The community energy around this one is real.",
	"Maximilian Sterling": "Order books are thin but the trend has legs.",
	"Pixel Watanabe":      "Strong visual identity, certified meme material.",
	"Dr. Ada Friedman":    "The value capture story holds up under scrutiny.",
}

// fallbackComment is used when a member name has no entry in the comment
// table. Kept deliberately generic.
const fallbackComment = "Looking bullish!"

// CommentFor returns the canned rating comment for a member, falling back
// to a generic remark for unrecognized names.
func CommentFor(memberName string) string {
	if c, ok := memberComments[memberName]; ok {
		return c
	}
	return fallbackComment
}
