// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// AdverseEventAnswer is the yes/no classification of a symptom.
type AdverseEventAnswer string

const (
	AdverseEventYes AdverseEventAnswer = "yes"
	AdverseEventNo  AdverseEventAnswer = "no"
)

// SymptomVerdict is the causality judgment for a single symptom.
type SymptomVerdict struct {
	// SymptomName names the symptom being judged.
	SymptomName string `json:"symptomName" yaml:"symptom_name"`

	// IsAdverseEvent is "yes" when the symptom plausibly stems from the drug.
	IsAdverseEvent AdverseEventAnswer `json:"isAdverseEvent" yaml:"is_adverse_event"`

	// Reason is the supporting rationale.
	Reason string `json:"reason" yaml:"reason"`
}

// CausalityVerdict holds one entry per symptom. The count is not enforced.
type CausalityVerdict []SymptomVerdict
