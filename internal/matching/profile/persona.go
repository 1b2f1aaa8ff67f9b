// internal/matching/profile/persona.go
package profile

import (
	"fmt"

	"scheme-matcher/internal/matching/textnorm"
	"scheme-matcher/internal/models"
)

// contextBoost is added when the caller already knows a crop or business type.
const contextBoost = 2

type PersonaResult struct {
	Persona    models.Persona `json:"persona"`
	Confidence string         `json:"confidence"`
	Score      int            `json:"score"`
	Reasoning  string         `json:"reasoning"`
}

// ClassifyPersona decides whether a message comes from a farmer or a business
// owner by counting keyword hits. Ties, including zero, are unclear.
func (a *Analyzer) ClassifyPersona(message, cropType, businessType string) PersonaResult {
	text := textnorm.Normalize(message)

	farmer := textnorm.CountAny(text, a.tables.FarmerKeywords)
	msme := textnorm.CountAny(text, a.tables.MSMEKeywords)
	if cropType != "" {
		farmer += contextBoost
	}
	if businessType != "" {
		msme += contextBoost
	}

	switch {
	case farmer > msme:
		return PersonaResult{
			Persona:    models.PersonaFarmer,
			Confidence: confidence(farmer),
			Score:      farmer,
			Reasoning:  fmt.Sprintf("Found %d farmer-related keywords", farmer),
		}
	case msme > farmer:
		return PersonaResult{
			Persona:    models.PersonaMSME,
			Confidence: confidence(msme),
			Score:      msme,
			Reasoning:  fmt.Sprintf("Found %d business-related keywords", msme),
		}
	}
	return PersonaResult{
		Persona:    models.PersonaUnclear,
		Confidence: "low",
		Reasoning:  "Could not determine persona from message",
	}
}

func confidence(score int) string {
	if score >= 2 {
		return "high"
	}
	return "medium"
}
