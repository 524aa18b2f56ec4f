package models

// InvestorProfile is an investor archetype.
type InvestorProfile string

const (
	ProfileValue    InvestorProfile = "Value"
	ProfileGrowth   InvestorProfile = "Growth"
	ProfileMomentum InvestorProfile = "Momentum"
	ProfileQuality  InvestorProfile = "Quality"
	ProfileDividend InvestorProfile = "Dividend"
)

// Profiles lists the archetypes in their fixed evaluation order.
var Profiles = []InvestorProfile{ProfileValue, ProfileGrowth, ProfileMomentum, ProfileQuality, ProfileDividend}

// ProfileScore is the suitability of a symbol for one archetype.
type ProfileScore struct {
	Profile   InvestorProfile `json:"profile"`
	Score     float64         `json:"score"`
	Passed    int             `json:"passed"`
	Evaluated int             `json:"evaluated"`
	Criteria  int             `json:"criteria"`
	Rationale string          `json:"rationale"`
}

// InvestorRecommendation scores a symbol against every archetype.
type InvestorRecommendation struct {
	Symbol           string                           `json:"symbol"`
	PerProfile       map[InvestorProfile]ProfileScore `json:"per_profile"`
	BestProfile      InvestorProfile                  `json:"best_profile"`
	OverallCall      SignalLabel                      `json:"overall_call"`
	Rationale        string                           `json:"rationale"`
	InsufficientData bool                             `json:"insufficient_data"`
	FundamentalTier  RatingTier                       `json:"fundamental_tier,omitempty"`
	TechnicalLabel   SignalLabel                      `json:"technical_label,omitempty"`
}
