// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the adverse-events pipeline:
// extracted clinical entities, literature records, causality verdicts and the
// per-run progress snapshot handed to renderers.
package types

// ExtractedEntities holds the clinical fields pulled out of an uploaded
// document. Any field may be empty; renderers treat an empty field as
// nothing to show.
type ExtractedEntities struct {
	// Symptoms lists the reported symptoms or side effects.
	Symptoms []string `json:"symptoms" yaml:"symptoms"`

	// DiseasesOrMedications lists diagnosed conditions and concomitant medications.
	DiseasesOrMedications []string `json:"diseases_or_medications" yaml:"diseases_or_medications"`

	// SubjectiveAssessments lists clinician or patient impressions.
	SubjectiveAssessments []string `json:"subjective_assessments" yaml:"subjective_assessments"`

	// DrugUsed lists the suspect drugs taken by the patient.
	DrugUsed []string `json:"drug_used" yaml:"drug_used"`
}

// IsEmpty reports whether no field carries a value.
func (e ExtractedEntities) IsEmpty() bool {
	return len(e.Symptoms) == 0 && len(e.DiseasesOrMedications) == 0 &&
		len(e.SubjectiveAssessments) == 0 && len(e.DrugUsed) == 0
}

// Clone returns a deep copy so snapshots never alias run state.
func (e ExtractedEntities) Clone() ExtractedEntities {
	return ExtractedEntities{
		Symptoms:              cloneStrings(e.Symptoms),
		DiseasesOrMedications: cloneStrings(e.DiseasesOrMedications),
		SubjectiveAssessments: cloneStrings(e.SubjectiveAssessments),
		DrugUsed:              cloneStrings(e.DrugUsed),
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// SearchQuery is the literature search derived from extracted entities.
type SearchQuery struct {
	// Term uses PubMed boolean syntax with + for spaces, e.g.
	// "(ibuprofen)+AND+(nausea+OR+rash)".
	Term string `json:"term" yaml:"term"`

	// URL is the esearch request built from Term.
	URL string `json:"url" yaml:"url"`
}
