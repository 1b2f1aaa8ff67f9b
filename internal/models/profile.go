// internal/models/profile.go
package models

// AmountMode is how a user's amount relates to what a scheme offers.
type AmountMode string

const (
	AmountExact AmountMode = "exact"
	AmountAbove AmountMode = "above"
	AmountBelow AmountMode = "below"
	AmountRange AmountMode = "range"
)

// Requirement is a parsed monetary requirement in lakh.
type Requirement struct {
	Value float64    `json:"value"`
	Mode  AmountMode `json:"mode"`
}

// Registration keys used by the exclusion mapping.
const (
	RegUdyam             = "udyam"
	RegGSTIN             = "gstin"
	RegIEC               = "import_export_code"
	RegTradeLicense      = "trade_license"
	RegShopEstablishment = "shop_establishment"
	RegFSSAI             = "fssai"
	RegExistingBusiness  = "existing_business"
	RegRegistered        = "registered_business"
	RegMudraLoan         = "mudra_loan"
	RegStandUpIndia      = "stand_up_india"
	RegSkillTraining     = "skill_training"
)

// Registrations flags what the user already holds.
type Registrations struct {
	GSTIN             bool `json:"has_gstin"`
	Udyam             bool `json:"has_udyam"`
	IEC               bool `json:"has_iec"`
	FSSAI             bool `json:"has_fssai"`
	TradeLicense      bool `json:"has_trade_license"`
	ShopEstablishment bool `json:"has_shop_establishment"`
	MudraLoan         bool `json:"has_mudra_loan"`
	StandUpIndia      bool `json:"has_stand_up_india"`
	SkillTraining     bool `json:"has_skill_training"`
}

// UserProfile is derived from the free-text business profile on every turn.
type UserProfile struct {
	State          string   `json:"state,omitempty"`
	Constitution   string   `json:"constitution,omitempty"`
	Activities     []string `json:"activities,omitempty"`
	Products       []string `json:"products,omitempty"`
	BusinessName   string   `json:"business_name,omitempty"`
	Gender         string   `json:"gender,omitempty"`
	SocialCategory string   `json:"social_category,omitempty"`
	MSMECategory   string   `json:"msme_category,omitempty"`

	Registrations
	ExistingBusiness bool `json:"is_existing_business"`

	ExistingRegistrations []string `json:"existing_registrations"`
	ExcludedKeywords      []string `json:"excluded_keywords"`
	ExclusionReasons      []string `json:"exclusion_reasons"`
}

// IsZero reports whether nothing was extracted from the profile.
func (p UserProfile) IsZero() bool {
	return p.State == "" && p.Constitution == "" && len(p.Activities) == 0 &&
		p.Gender == "" && p.SocialCategory == "" && p.MSMECategory == "" &&
		p.Registrations == (Registrations{}) && !p.ExistingBusiness
}

// ProfileAnalysis is the exclusion part of a profile reported back to callers.
type ProfileAnalysis struct {
	ExistingRegistrations []string `json:"existing_registrations"`
	ExcludedSchemes       []string `json:"excluded_schemes"`
	ExclusionReasons      []string `json:"exclusion_reasons"`
}

// Persona is the coarse user type of a conversation.
type Persona string

const (
	PersonaFarmer  Persona = "farmer"
	PersonaMSME    Persona = "msme"
	PersonaUnclear Persona = "unclear"
)
