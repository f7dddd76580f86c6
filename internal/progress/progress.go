// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress tracks the five pipeline steps and describes each status
// change as a list of render instructions for an attached observer.
//
// Steps are numbered from 1. Observers only receive; nothing they do flows
// back into the tracker.
package progress

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/krishna-gramener/adverse-events/pkg/types"
)

// Pipeline steps in execution order.
const (
	StepExtract = iota + 1
	StepParse
	StepQuery
	StepRetrieve
	StepCausality
)

// StepCount is the number of pipeline steps.
const StepCount = 5

var labels = [StepCount]string{
	"Processing document for text",
	"Deconstructing text to identify drugs, diseases and other details",
	"Identifying related and known adverse events",
	"Identifying related articles which indicate causality",
	"Synthesizing and generating final summary",
}

// Label returns the display label of step n, or "" when n is out of range.
func Label(n int) string {
	if n < 1 || n > StepCount {
		return ""
	}
	return labels[n-1]
}

// Op is a render operation.
type Op string

const (
	// OpResetNode clears a node's completed mark.
	OpResetNode Op = "reset-node"
	// OpActivateNode shows a node as running.
	OpActivateNode Op = "activate-node"
	// OpCompleteNode marks a node completed.
	OpCompleteNode Op = "complete-node"
	// OpRetractLink collapses the link leaving a node.
	OpRetractLink Op = "retract-link"
	// OpExtendLink draws the link from a node to the next one.
	OpExtendLink Op = "extend-link"
)

// Instruction is one render operation. Node is the affected node; for link
// operations the link runs from Node to Target.
type Instruction struct {
	Op     Op  `json:"op" yaml:"op"`
	Node   int `json:"node" yaml:"node"`
	Target int `json:"target,omitempty" yaml:"target,omitempty"`
}

func (i Instruction) String() string {
	if i.Target != 0 {
		return fmt.Sprintf("%s %d->%d", i.Op, i.Node, i.Target)
	}
	return fmt.Sprintf("%s %d", i.Op, i.Node)
}

// Instructions returns what a renderer must do when step moves to status
// in a pipeline of total steps.
//
// Entering a step (in-progress) resets the step and every later node,
// retracts every link leaving them, then activates the step. Completing a
// step marks it and extends its outgoing link when one exists. Pending
// resets exactly like in-progress without activating. Out-of-range steps
// yield nil.
func Instructions(step int, status types.StepStatus, total int) []Instruction {
	if step < 1 || step > total {
		return nil
	}

	switch status {
	case types.StepPending, types.StepInProgress:
		var out []Instruction
		for n := step; n <= total; n++ {
			out = append(out, Instruction{Op: OpResetNode, Node: n})
		}
		for n := step; n < total; n++ {
			out = append(out, Instruction{Op: OpRetractLink, Node: n, Target: n + 1})
		}
		if status == types.StepInProgress {
			out = append(out, Instruction{Op: OpActivateNode, Node: step})
		}
		return out
	case types.StepComplete:
		out := []Instruction{{Op: OpCompleteNode, Node: step}}
		if step < total {
			out = append(out, Instruction{Op: OpExtendLink, Node: step, Target: step + 1})
		}
		return out
	default:
		return nil
	}
}

// Observer receives every status change with its render instructions.
type Observer interface {
	Observe(step int, status types.StepStatus, ins []Instruction)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(step int, status types.StepStatus, ins []Instruction)

// Observe calls f.
func (f ObserverFunc) Observe(step int, status types.StepStatus, ins []Instruction) {
	f(step, status, ins)
}

// Tracker holds the status of each step. It is not safe for concurrent use;
// the pipeline orchestrator serializes access.
type Tracker struct {
	steps    [StepCount]types.StepStatus
	current  int
	observer Observer
}

// NewTracker returns a Tracker with every step pending. obs may be nil.
func NewTracker(obs Observer) *Tracker {
	t := &Tracker{observer: obs}
	for i := range t.steps {
		t.steps[i] = types.StepPending
	}
	return t
}

// SetObserver replaces the observer. nil detaches it.
func (t *Tracker) SetObserver(obs Observer) {
	t.observer = obs
}

// Reset sets every step pending.
func (t *Tracker) Reset() {
	for i := range t.steps {
		t.steps[i] = types.StepPending
	}
	t.current = 0
	t.emit(1, types.StepPending)
}

// Begin marks step n in-progress and every later step pending.
func (t *Tracker) Begin(n int) error {
	if err := checkStep(n); err != nil {
		return err
	}
	t.steps[n-1] = types.StepInProgress
	for i := n; i < StepCount; i++ {
		t.steps[i] = types.StepPending
	}
	t.current = n
	t.emit(n, types.StepInProgress)
	return nil
}

// Complete marks step n complete.
func (t *Tracker) Complete(n int) error {
	if err := checkStep(n); err != nil {
		return err
	}
	t.steps[n-1] = types.StepComplete
	t.emit(n, types.StepComplete)
	return nil
}

// Current returns the step last begun, or 0.
func (t *Tracker) Current() int {
	return t.current
}

// Status returns the status of step n.
func (t *Tracker) Status(n int) types.StepStatus {
	if checkStep(n) != nil {
		return ""
	}
	return t.steps[n-1]
}

// Steps returns a copy of every step status in order.
func (t *Tracker) Steps() []types.StepStatus {
	out := make([]types.StepStatus, StepCount)
	copy(out, t.steps[:])
	return out
}

func (t *Tracker) emit(step int, status types.StepStatus) {
	if t.observer == nil {
		return
	}
	t.observer.Observe(step, status, Instructions(step, status, StepCount))
}

func checkStep(n int) error {
	if n < 1 || n > StepCount {
		return eris.Errorf("step %d out of range 1..%d", n, StepCount)
	}
	return nil
}
