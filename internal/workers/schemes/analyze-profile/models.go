// internal/workers/schemes/analyze-profile/models.go
package analyzeprofile

import "scheme-matcher/internal/models"

type Input struct {
	// Message is the latest user turn, used for persona detection.
	Message      string `json:"message"`
	Profile      string `json:"businessProfile"`
	CropType     string `json:"cropType,omitempty"`
	BusinessType string `json:"businessType,omitempty"`
}

type Output struct {
	Persona           models.Persona     `json:"persona"`
	PersonaConfidence string             `json:"personaConfidence"`
	PersonaReasoning  string             `json:"personaReasoning"`
	HasProfile        bool               `json:"hasProfile"`
	Profile           models.UserProfile `json:"profileSignals"`

	ExistingRegistrations []string `json:"existingRegistrations"`
	ExcludedKeywords      []string `json:"excludedKeywords"`
	ExclusionReasons      []string `json:"exclusionReasons"`
	IsExistingBusiness    bool     `json:"isExistingBusiness"`
	MSMECategory          string   `json:"msmeCategory,omitempty"`
	State                 string   `json:"state,omitempty"`
}
