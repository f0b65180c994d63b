package types

import "time"

// CouncilStatus is the lifecycle state of a council session.
// The state machine is strictly forward: pending → active → complete.
type CouncilStatus string

const (
	StatusPending  CouncilStatus = "pending"
	StatusActive   CouncilStatus = "active"
	StatusComplete CouncilStatus = "complete"
)

// Rank returns the ordinal position of the status in the lifecycle.
// Unknown statuses rank below pending.
func (s CouncilStatus) Rank() int {
	switch s {
	case StatusPending:
		return 1
	case StatusActive:
		return 2
	case StatusComplete:
		return 3
	default:
		return 0
	}
}

// RiskLevel classifies the downside exposure implied by the panel's ratings.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Sentiment is the narrative band selected for the final verdict.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentNeutral Sentiment = "neutral"
	SentimentBearish Sentiment = "bearish"
)

// Member is a single persona on the roster. Members are immutable and
// defined once at process start.
type Member struct {
	Name        string `json:"name"`
	Expertise   string `json:"expertise"`
	Catchphrase string `json:"catchphrase"`
}

// Stage is one named phase of the analysis pipeline. Its Details schema
// is determined by Name.
type Stage struct {
	Name      string            `json:"name"`
	Completed bool              `json:"completed"`
	Score     int               `json:"score"`
	Analysis  string            `json:"analysis"`
	Details   map[string]string `json:"details,omitempty"`
}

// Rating is one member's individual score and comment. MemberName always
// references a Member on the council's panel. Score is on the 1–10 quick
// scale or the 60–100 analysis scale depending on the rating mode; the two
// scales are never mixed within one council.
type Rating struct {
	MemberName string `json:"member_name"`
	Score      int    `json:"score"`
	Comment    string `json:"comment"`
}

// MarketSnapshot is a point-in-time copy of external market data, taken at
// council creation and never refreshed. All fields are non-negative except
// PriceChange24h, which is signed.
type MarketSnapshot struct {
	Price          float64 `json:"price"`
	Volume24h      float64 `json:"volume_24h"`
	MarketCap      float64 `json:"market_cap"`
	PriceChange24h float64 `json:"price_change_24h"`
	Holders        int64   `json:"holders"`
	LiquidityUSD   float64 `json:"liquidity_usd"`
}

// Council is one rating session for a crypto symbol: a 3-member panel plus
// a 5-stage analysis pipeline. Score and analysis fields are frozen once
// Status reaches complete.
type Council struct {
	ID           string            `json:"id"`
	Crypto       string            `json:"crypto"`
	Members      []Member          `json:"members"`
	Status       CouncilStatus     `json:"status"`
	Stages       []Stage           `json:"stages"`
	CurrentStage int               `json:"current_stage"`
	Ratings      map[string]Rating `json:"ratings,omitempty"`

	TechnicalScore   int       `json:"technical_score"`
	FundamentalScore int       `json:"fundamental_score"`
	MemePotential    int       `json:"meme_potential"`
	RiskLevel        RiskLevel `json:"risk_level,omitempty"`
	Analysis         string    `json:"analysis,omitempty"`

	TokenData *MarketSnapshot `json:"token_data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Clone returns a deep copy of the council, so callers cannot mutate
// store-owned state through a returned pointer.
func (c *Council) Clone() *Council {
	if c == nil {
		return nil
	}
	cp := *c

	if c.Members != nil {
		cp.Members = make([]Member, len(c.Members))
		copy(cp.Members, c.Members)
	}
	if c.Stages != nil {
		cp.Stages = make([]Stage, len(c.Stages))
		for i, st := range c.Stages {
			cp.Stages[i] = st
			if st.Details != nil {
				details := make(map[string]string, len(st.Details))
				for k, v := range st.Details {
					details[k] = v
				}
				cp.Stages[i].Details = details
			}
		}
	}
	if c.Ratings != nil {
		cp.Ratings = make(map[string]Rating, len(c.Ratings))
		for k, v := range c.Ratings {
			cp.Ratings[k] = v
		}
	}
	if c.TokenData != nil {
		td := *c.TokenData
		cp.TokenData = &td
	}
	return &cp
}

// MemberRating is one line of the per-member breakdown in a verdict.
type MemberRating struct {
	MemberName string `json:"member_name"`
	Expertise  string `json:"expertise"`
	Score      int    `json:"score"`
	Comment    string `json:"comment"`
}

// VerdictReport is the structured result of rating collection, from which
// channel-specific text is rendered. AvgRating is on the scale the rating
// phase used; the three axis scores are always 0–100.
type VerdictReport struct {
	CouncilID        string          `json:"council_id"`
	Crypto           string          `json:"crypto"`
	AvgRating        float64         `json:"avg_rating"`
	RatingScaleMax   int             `json:"rating_scale_max"`
	TechnicalScore   int             `json:"technical_score"`
	FundamentalScore int             `json:"fundamental_score"`
	MemePotential    int             `json:"meme_potential"`
	RiskLevel        RiskLevel       `json:"risk_level"`
	Sentiment        Sentiment       `json:"sentiment"`
	Narrative        string          `json:"narrative"`
	Members          []MemberRating  `json:"members"`
	TokenData        *MarketSnapshot `json:"token_data,omitempty"`
}
