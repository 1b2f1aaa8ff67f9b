// pkg/registry/schema.go
package registry

// RuleRegistry is the versioned, declarative rule set behind scheme matching.
// Patterns are RE2 expressions compiled case-insensitively; keywords are
// matched as lower-case substrings unless a table says otherwise.
type RuleRegistry struct {
	Version     string `yaml:"version" json:"version"`
	LastUpdated string `yaml:"lastUpdated" json:"lastUpdated"`

	Amount                   AmountTable        `yaml:"amount" json:"amount"`
	Registrations            []RegistrationRule `yaml:"registrations" json:"registrations"`
	NewBusinessOnly          NewBusinessTable   `yaml:"newBusinessOnly" json:"newBusinessOnly"`
	Intents                  []IntentRule       `yaml:"intents" json:"intents"`
	SupportTypes             []KeywordGroup     `yaml:"supportTypes" json:"supportTypes"`
	Activities               []KeywordGroup     `yaml:"activities" json:"activities"`
	Constitutions            []PatternGroup     `yaml:"constitutions" json:"constitutions"`
	ConstitutionRestrictions []string           `yaml:"constitutionRestrictions" json:"constitutionRestrictions"`
	States                   []KeywordGroup     `yaml:"states" json:"states"`
	NationwideRegions        []string           `yaml:"nationwideRegions" json:"nationwideRegions"`
	CentralKeywords          []string           `yaml:"centralKeywords" json:"centralKeywords"`
	SchemeTypeFilters        SchemeTypeFilters  `yaml:"schemeTypeFilters" json:"schemeTypeFilters"`
	Gender                   []PatternGroup     `yaml:"gender" json:"gender"`
	SocialCategories         []PatternGroup     `yaml:"socialCategories" json:"socialCategories"`
	TargetGroups             TargetGroups       `yaml:"targetGroups" json:"targetGroups"`
	MSMEEligibility          []string           `yaml:"msmeEligibility" json:"msmeEligibility"`
	MSMESize                 []PatternGroup     `yaml:"msmeSize" json:"msmeSize"`
	Persona                  PersonaTable       `yaml:"persona" json:"persona"`
}

type AmountTable struct {
	Units         []AmountUnit `yaml:"units" json:"units"`
	AboveKeywords []string     `yaml:"aboveKeywords" json:"aboveKeywords"`
	BelowKeywords []string     `yaml:"belowKeywords" json:"belowKeywords"`
	RangeJoiners  []string     `yaml:"rangeJoiners" json:"rangeJoiners"`
}

// AmountUnit maps unit words to a multiplier relative to one lakh.
type AmountUnit struct {
	Name       string   `yaml:"name" json:"name"`
	Words      []string `yaml:"words" json:"words"`
	Multiplier float64  `yaml:"multiplier" json:"multiplier"`
}

// RegistrationRule detects something the user already holds and lists the
// scheme keywords that become irrelevant once they do.
type RegistrationRule struct {
	Key        string   `yaml:"key" json:"key"`
	Reason     string   `yaml:"reason" json:"reason"`
	Patterns   []string `yaml:"patterns" json:"patterns"`
	Exclusions []string `yaml:"exclusions" json:"exclusions"`
}

type NewBusinessTable struct {
	Filter  []string `yaml:"filter" json:"filter"`
	Scoring []string `yaml:"scoring" json:"scoring"`
}

type IntentRule struct {
	Name   string   `yaml:"name" json:"name"`
	Query  []string `yaml:"query" json:"query"`
	Scheme []string `yaml:"scheme" json:"scheme"`
}

type KeywordGroup struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

type PatternGroup struct {
	Name     string   `yaml:"name" json:"name"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

type SchemeTypeFilters struct {
	Central []string `yaml:"central" json:"central"`
	State   []string `yaml:"state" json:"state"`
}

type TargetGroups struct {
	Women          []string `yaml:"women" json:"women"`
	SocialCategory []string `yaml:"socialCategory" json:"socialCategory"`
}

type PersonaTable struct {
	Farmer []string `yaml:"farmer" json:"farmer"`
	MSME   []string `yaml:"msme" json:"msme"`
}
