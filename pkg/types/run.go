// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// StepStatus is the visual state of one pipeline step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in-progress"
	StepComplete   StepStatus = "complete"
)

// RunState is the lifecycle of a pipeline run.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunSucceeded RunState = "succeeded"
	RunFailed    RunState = "failed"
)

// RunSnapshot is a read-only copy of a pipeline run handed to renderers.
type RunSnapshot struct {
	// ID is the run token. Empty when no run has started.
	ID string `json:"id" yaml:"id"`

	// File is the name of the uploaded document.
	File string `json:"file" yaml:"file"`

	State RunState `json:"state" yaml:"state"`

	Entities   ExtractedEntities  `json:"entities" yaml:"entities"`
	Query      SearchQuery        `json:"query" yaml:"query"`
	Literature []LiteratureRecord `json:"literature" yaml:"literature"`
	Verdict    CausalityVerdict   `json:"verdict" yaml:"verdict"`

	// CurrentStep is the 1-based step last entered, 0 before the first.
	CurrentStep int          `json:"current_step" yaml:"current_step"`
	Steps       []StepStatus `json:"steps" yaml:"steps"`

	// Error is the message of the failure that stopped the run.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}
