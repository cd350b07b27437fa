package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// ComparisonResult is the scored contrast between the AI analysis and the
// auditor's analysis. Risk is computed upstream and treated as opaque.
type ComparisonResult struct {
	Summary                  string  `json:"summary" yaml:"summary"`
	Effectiveness            string  `json:"effectiveness" yaml:"effectiveness"`
	Impact                   float64 `json:"impact" yaml:"impact"`
	Probability              float64 `json:"probability" yaml:"probability"`
	Risk                     float64 `json:"risk" yaml:"risk"`
	Level                    string  `json:"level" yaml:"level"`
	EffectivenessExplanation string  `json:"effectiveness_explanation,omitempty" yaml:"effectiveness_explanation,omitempty"`
	RiskExplanation          string  `json:"risk_explanation,omitempty" yaml:"risk_explanation,omitempty"`
}

// ComparisonRecord is a successful comparison kept in the session history.
// AIAnalysis is the AI text the result was computed against, which may be an
// edited draft; SourceAnalysis is the session's AI analysis at that time.
type ComparisonRecord struct {
	ID             string           `json:"id"`
	SessionID      string           `json:"session_id"`
	SourceAnalysis string           `json:"source_analysis"`
	AIAnalysis     string           `json:"ai_analysis"`
	UserAnalysis   string           `json:"user_analysis"`
	Result         ComparisonResult `json:"result"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Risk levels by impact × probability.
const (
	RiskHigh   = "Alto"
	RiskMedium = "Medio"
	RiskLow    = "Bajo"
)

// RiskLevel maps a risk score (impact × probability, each 1-5) to its level.
func RiskLevel(risk float64) string {
	switch {
	case risk >= 12:
		return RiskHigh
	case risk >= 6:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Risk scores range from 1 to 5.
const (
	MinRiskScore = 1
	MaxRiskScore = 5
)

// RiskAssessment is a standalone risk evaluation from impact and probability.
type RiskAssessment struct {
	Impact      int    `json:"impacto" yaml:"impacto"`
	Probability int    `json:"probabilidad" yaml:"probabilidad"`
	Risk        int    `json:"riesgo" yaml:"riesgo"`
	Level       string `json:"nivel" yaml:"nivel"`
}

// AssessRisk computes risk as impact × probability and classifies it.
func AssessRisk(impact, probability int) (RiskAssessment, error) {
	if impact < MinRiskScore || impact > MaxRiskScore {
		return RiskAssessment{}, eris.Errorf("model: impact %d out of range %d-%d", impact, MinRiskScore, MaxRiskScore)
	}
	if probability < MinRiskScore || probability > MaxRiskScore {
		return RiskAssessment{}, eris.Errorf("model: probability %d out of range %d-%d", probability, MinRiskScore, MaxRiskScore)
	}
	risk := impact * probability
	return RiskAssessment{
		Impact:      impact,
		Probability: probability,
		Risk:        risk,
		Level:       RiskLevel(float64(risk)),
	}, nil
}
