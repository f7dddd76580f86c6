// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render writes run results for the terminal: plain text sections,
// JSON or YAML reports, progress lines and the error banner.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.yaml.in/yaml/v3"

	"github.com/krishna-gramener/adverse-events/pkg/types"
)

// Format selects the report encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", eris.Errorf("unknown format %q (want text, json or yaml)", s)
	}
}

// Report is the serialized form of a finished run.
type Report struct {
	File       string                   `json:"file" yaml:"file"`
	State      types.RunState           `json:"state" yaml:"state"`
	Entities   types.ExtractedEntities  `json:"entities" yaml:"entities"`
	SearchTerm string                   `json:"search_term,omitempty" yaml:"search_term,omitempty"`
	Literature []types.LiteratureRecord `json:"literature" yaml:"literature"`
	Verdict    types.CausalityVerdict   `json:"verdict" yaml:"verdict"`
	Steps      []types.StepStatus       `json:"steps" yaml:"steps"`
	Error      string                   `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewReport builds a Report from a snapshot.
func NewReport(snap types.RunSnapshot) Report {
	r := Report{
		File:       snap.File,
		State:      snap.State,
		Entities:   snap.Entities,
		SearchTerm: snap.Query.Term,
		Literature: snap.Literature,
		Verdict:    snap.Verdict,
		Steps:      snap.Steps,
		Error:      snap.Error,
	}
	if r.Literature == nil {
		r.Literature = []types.LiteratureRecord{}
	}
	if r.Verdict == nil {
		r.Verdict = types.CausalityVerdict{}
	}
	return r
}

// Write renders snap to w in format f.
func Write(w io.Writer, snap types.RunSnapshot, f Format) error {
	switch f {
	case FormatJSON:
		return FormatReportJSON(NewReport(snap), w)
	case FormatYAML:
		return FormatReportYAML(NewReport(snap), w)
	default:
		Entities(w, snap.Entities)
		Literature(w, snap.Literature)
		Verdict(w, snap.Verdict)
		return nil
	}
}

// WriteLiterature renders records alone, for the literature command.
func WriteLiterature(w io.Writer, records []types.LiteratureRecord, f Format) error {
	if records == nil {
		records = []types.LiteratureRecord{}
	}
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	default:
		Literature(w, records)
		return nil
	}
}

// FormatReportJSON writes r as indented JSON.
func FormatReportJSON(r Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// FormatReportYAML writes r as YAML.
func FormatReportYAML(r Report, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// Entities writes the extracted fields. Empty fields are omitted.
func Entities(w io.Writer, e types.ExtractedEntities) {
	fmt.Fprintln(w, "Extracted information")
	fmt.Fprintln(w, strings.Repeat("=", 21))
	if e.IsEmpty() {
		fmt.Fprintln(w, "Nothing extracted.")
		fmt.Fprintln(w)
		return
	}
	list(w, "Drugs Used", e.DrugUsed)
	list(w, "Symptoms", e.Symptoms)
	list(w, "Diseases", e.DiseasesOrMedications)
	list(w, "Subjective Assessments", e.SubjectiveAssessments)
}

func list(w io.Writer, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", heading)
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
	fmt.Fprintln(w)
}

// Literature writes the numbered article list.
func Literature(w io.Writer, records []types.LiteratureRecord) {
	fmt.Fprintln(w, "Related articles")
	fmt.Fprintln(w, strings.Repeat("=", 16))
	if len(records) == 0 {
		fmt.Fprintln(w, "No related articles found.")
		fmt.Fprintln(w)
		return
	}
	for i, r := range records {
		fmt.Fprintf(w, "%d. %s\n", i+1, r.Title)
		fmt.Fprintf(w, "   Authors: %s\n", orNotAvailable(r.Authors))
		journal := orNotAvailable(r.Journal)
		if r.PublicationDate != "" {
			journal += " (" + r.PublicationDate + ")"
		}
		fmt.Fprintf(w, "   Journal: %s\n", journal)
		fmt.Fprintf(w, "   %s\n", r.URL)
	}
	fmt.Fprintln(w)
}

// Verdict writes the per-symptom table.
func Verdict(w io.Writer, v types.CausalityVerdict) {
	fmt.Fprintln(w, "Causality assessment")
	fmt.Fprintln(w, strings.Repeat("=", 20))
	if len(v) == 0 {
		fmt.Fprintln(w, "No verdicts returned.")
		return
	}
	fmt.Fprintf(w, "%-30s  %-14s  %s\n", "Symptom", "Adverse event", "Reason")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, sv := range v {
		fmt.Fprintf(w, "%-30s  %-14s  %s\n", truncate(sv.SymptomName, 30), sv.IsAdverseEvent, sv.Reason)
	}
}

// Banner writes a failure message.
func Banner(w io.Writer, msg string) {
	line := strings.Repeat("!", 60)
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "Error: %s\n", msg)
	fmt.Fprintln(w, line)
}

func orNotAvailable(s string) string {
	if s == "" {
		return "Not available"
	}
	return s
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
