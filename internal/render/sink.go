// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/krishna-gramener/adverse-events/internal/progress"
	"github.com/krishna-gramener/adverse-events/pkg/types"
)

// Sink prints results as the pipeline produces them. In text format each
// section is written to Out when it arrives; structured formats are left to
// Write at the end of the run. Errors always go to Err as a banner.
type Sink struct {
	Out    io.Writer
	Err    io.Writer
	Format Format

	mu sync.Mutex
}

func (s *Sink) streaming() bool {
	return s.Format == FormatText || s.Format == ""
}

// Entities prints the entity section.
func (s *Sink) Entities(e types.ExtractedEntities) {
	if !s.streaming() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	Entities(s.Out, e)
}

// Literature prints the article section.
func (s *Sink) Literature(records []types.LiteratureRecord) {
	if !s.streaming() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	Literature(s.Out, records)
}

// Verdict prints the verdict section.
func (s *Sink) Verdict(v types.CausalityVerdict) {
	if !s.streaming() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	Verdict(s.Out, v)
}

// Error prints the banner.
func (s *Sink) Error(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	Banner(s.Err, msg)
}

// ProgressPrinter writes one line per step status change. With Verbose set
// the render instructions are listed too.
type ProgressPrinter struct {
	W       io.Writer
	Verbose bool
}

// Observe implements progress.Observer.
func (p *ProgressPrinter) Observe(step int, status types.StepStatus, ins []progress.Instruction) {
	switch status {
	case types.StepInProgress:
		fmt.Fprintf(p.W, "[%d/%d] %s ...\n", step, progress.StepCount, progress.Label(step))
	case types.StepComplete:
		fmt.Fprintf(p.W, "[%d/%d] %s: done\n", step, progress.StepCount, progress.Label(step))
	}
	if p.Verbose {
		for _, i := range ins {
			fmt.Fprintf(p.W, "      %s\n", i)
		}
	}
}
