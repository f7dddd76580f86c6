// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishna-gramener/adverse-events/internal/apperr"
	"github.com/krishna-gramener/adverse-events/internal/extract"
	"github.com/krishna-gramener/adverse-events/internal/progress"
	"github.com/krishna-gramener/adverse-events/pkg/types"
)

const (
	P = types.StepPending
	I = types.StepInProgress
	C = types.StepComplete
)

const entitiesReply = "```json\n{\"symptoms\":[\"nausea\",\"rash\"],\"drug_used\":[\"ibuprofen\"]}\n```"

// --- fake stages ---

type fakeExtractor struct {
	reply string
	err   error
	calls int
}

func (f *fakeExtractor) Request(ctx context.Context, doc extract.Document) (string, error) {
	f.calls++
	return f.reply, f.err
}

type fakeQuery struct {
	err   error
	calls int
}

func (f *fakeQuery) Synthesize(ctx context.Context, e types.ExtractedEntities) (types.SearchQuery, error) {
	f.calls++
	if f.err != nil {
		return types.SearchQuery{}, f.err
	}
	return types.SearchQuery{Term: "ibuprofen+AND+(nausea+OR+rash)", URL: "https://eutils.example/esearch.fcgi?db=pubmed&term=ibuprofen"}, nil
}

type fakeRetriever struct {
	err   error
	calls int
	url   string
}

func (f *fakeRetriever) Retrieve(ctx context.Context, searchURL string) ([]types.LiteratureRecord, error) {
	f.calls++
	f.url = searchURL
	if f.err != nil {
		return nil, f.err
	}
	return []types.LiteratureRecord{{ID: "111", Title: "Ibuprofen and rash"}}, nil
}

type fakeCausality struct {
	err   error
	calls int
}

func (f *fakeCausality) Assess(ctx context.Context, e types.ExtractedEntities, lit []types.LiteratureRecord) (types.CausalityVerdict, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return types.CausalityVerdict{{SymptomName: "rash", IsAdverseEvent: types.AdverseEventYes, Reason: "case reports"}}, nil
}

type recordingSink struct {
	mu         sync.Mutex
	entities   []types.ExtractedEntities
	literature [][]types.LiteratureRecord
	verdicts   []types.CausalityVerdict
	errors     []string
}

func (s *recordingSink) Entities(e types.ExtractedEntities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = append(s.entities, e)
}

func (s *recordingSink) Literature(l []types.LiteratureRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.literature = append(s.literature, l)
}

func (s *recordingSink) Verdict(v types.CausalityVerdict) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdicts = append(s.verdicts, v)
}

func (s *recordingSink) Error(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, msg)
}

type fixture struct {
	ext  *fakeExtractor
	qry  *fakeQuery
	lit  *fakeRetriever
	cau  *fakeCausality
	sink *recordingSink
	orch *Orchestrator
}

func newFixture() *fixture {
	f := &fixture{
		ext:  &fakeExtractor{reply: entitiesReply},
		qry:  &fakeQuery{},
		lit:  &fakeRetriever{},
		cau:  &fakeCausality{},
		sink: &recordingSink{},
	}
	f.orch = New(Stages{Extractor: f.ext, Query: f.qry, Literature: f.lit, Causality: f.cau}, WithSink(f.sink))
	return f
}

func pdf() extract.Document {
	return extract.FromBytes("case.pdf", extract.PDFMIMEType, []byte("%PDF-1.4"))
}

func TestRunSuccess(t *testing.T) {
	f := newFixture()
	var observed []types.StepStatus
	WithObserver(progress.ObserverFunc(func(step int, status types.StepStatus, ins []progress.Instruction) {
		observed = append(observed, status)
	}))(f.orch)

	snap, err := f.orch.Run(context.Background(), pdf())
	require.NoError(t, err)

	assert.Equal(t, types.RunSucceeded, snap.State)
	assert.Equal(t, []types.StepStatus{C, C, C, C, C}, snap.Steps)
	assert.Equal(t, progress.StepCausality, snap.CurrentStep)
	assert.Equal(t, "case.pdf", snap.File)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, []string{"nausea", "rash"}, snap.Entities.Symptoms)
	assert.Equal(t, "https://eutils.example/esearch.fcgi?db=pubmed&term=ibuprofen", f.lit.url)
	assert.Len(t, snap.Literature, 1)
	assert.Len(t, snap.Verdict, 1)
	assert.Empty(t, snap.Error)

	assert.Len(t, f.sink.entities, 1)
	assert.Len(t, f.sink.literature, 1)
	assert.Len(t, f.sink.verdicts, 1)
	assert.Empty(t, f.sink.errors)

	// reset, then begin/complete for each of the five steps
	assert.Len(t, observed, 11)
	assert.Equal(t, P, observed[0])
}

func TestRunFailureFreezesFailingStep(t *testing.T) {
	boom := apperr.API(500, "upstream exploded")

	tests := []struct {
		name   string
		setup  func(f *fixture)
		step   int
		steps  []types.StepStatus
		prefix string
	}{
		{
			name:  "extraction request",
			setup: func(f *fixture) { f.ext.err = boom },
			step:  1,
			steps: []types.StepStatus{I, P, P, P, P},
		},
		{
			name:   "entity parse",
			setup:  func(f *fixture) { f.ext.reply = "no fenced block here" },
			step:   2,
			steps:  []types.StepStatus{C, I, P, P, P},
			prefix: "entity extraction failed: no JSON block found",
		},
		{
			name:  "query synthesis",
			setup: func(f *fixture) { f.qry.err = boom },
			step:  3,
			steps: []types.StepStatus{C, C, I, P, P},
		},
		{
			name:  "literature retrieval",
			setup: func(f *fixture) { f.lit.err = boom },
			step:  4,
			steps: []types.StepStatus{C, C, C, I, P},
		},
		{
			name:  "causality",
			setup: func(f *fixture) { f.cau.err = boom },
			step:  5,
			steps: []types.StepStatus{C, C, C, C, I},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			snap, err := f.orch.Run(context.Background(), pdf())
			require.Error(t, err)

			assert.Equal(t, types.RunFailed, snap.State)
			assert.Equal(t, tt.steps, snap.Steps)
			assert.Equal(t, tt.step, snap.CurrentStep)
			assert.Equal(t, err.Error(), snap.Error)
			assert.Equal(t, []string{err.Error()}, f.sink.errors, "message surfaces verbatim")
			if tt.prefix != "" {
				assert.True(t, strings.HasPrefix(err.Error(), tt.prefix), err.Error())
			}

			calls := []int{f.ext.calls, f.qry.calls, f.lit.calls, f.cau.calls}
			stageOfStep := []int{0, 0, 1, 2, 3}
			for i, c := range calls {
				if i <= stageOfStep[tt.step-1] {
					assert.Equal(t, 1, c, "stage %d", i)
				} else {
					assert.Zero(t, c, "stage %d must not run", i)
				}
			}
		})
	}
}

func TestRunRejectsNonPDF(t *testing.T) {
	f := newFixture()

	snap, err := f.orch.Run(context.Background(), extract.FromBytes("scan.png", "image/png", []byte("png")))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindFileType))
	assert.Equal(t, types.RunIdle, snap.State)
	assert.Zero(t, f.ext.calls)
	assert.Zero(t, f.qry.calls)
	assert.Len(t, f.sink.errors, 1)
}

func TestAcceptRejectionKeepsCurrentRun(t *testing.T) {
	f := newFixture()
	_, err := f.orch.Run(context.Background(), pdf())
	require.NoError(t, err)
	before := f.orch.Snapshot()

	_, err = f.orch.Accept(extract.FromBytes("notes.txt", "text/plain", nil))
	require.Error(t, err)
	assert.Equal(t, before, f.orch.Snapshot())
}

func TestAcceptStartsFreshRun(t *testing.T) {
	f := newFixture()
	_, err := f.orch.Run(context.Background(), pdf())
	require.NoError(t, err)
	first := f.orch.Snapshot().ID

	token, err := f.orch.Accept(pdf())
	require.NoError(t, err)
	assert.NotEqual(t, first, token)

	snap := f.orch.Snapshot()
	assert.Equal(t, token, snap.ID)
	assert.Equal(t, types.RunRunning, snap.State)
	assert.True(t, snap.Entities.IsEmpty())
	assert.Equal(t, []types.StepStatus{P, P, P, P, P}, snap.Steps)
}

func TestResetClearsRun(t *testing.T) {
	for _, fail := range []bool{false, true} {
		f := newFixture()
		if fail {
			f.lit.err = errors.New("network down")
		}
		_, _ = f.orch.Run(context.Background(), pdf())

		f.orch.Reset()
		snap := f.orch.Snapshot()
		assert.Equal(t, types.RunIdle, snap.State)
		assert.Empty(t, snap.ID)
		assert.True(t, snap.Entities.IsEmpty())
		assert.Empty(t, snap.Literature)
		assert.Empty(t, snap.Verdict)
		assert.Empty(t, snap.Error)
		assert.Zero(t, snap.CurrentStep)
		assert.Equal(t, []types.StepStatus{P, P, P, P, P}, snap.Steps)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	f := newFixture()
	snap, err := f.orch.Run(context.Background(), pdf())
	require.NoError(t, err)

	snap.Entities.Symptoms[0] = "mutated"
	snap.Literature[0].Title = "mutated"
	snap.Steps[0] = P

	again := f.orch.Snapshot()
	assert.Equal(t, "nausea", again.Entities.Symptoms[0])
	assert.Equal(t, "Ibuprofen and rash", again.Literature[0].Title)
	assert.Equal(t, C, again.Steps[0])
}

// blockingExtractor blocks the first call until its context is cancelled.
type blockingExtractor struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
}

func (b *blockingExtractor) Request(ctx context.Context, doc extract.Document) (string, error) {
	b.mu.Lock()
	b.calls++
	first := b.calls == 1
	b.mu.Unlock()

	if first {
		close(b.started)
		<-ctx.Done()
		return "", ctx.Err()
	}
	return entitiesReply, nil
}

func TestNewDocumentSupersedesRunInFlight(t *testing.T) {
	ext := &blockingExtractor{started: make(chan struct{})}
	sink := &recordingSink{}
	orch := New(Stages{Extractor: ext, Query: &fakeQuery{}, Literature: &fakeRetriever{}, Causality: &fakeCausality{}}, WithSink(sink))

	type result struct {
		snap types.RunSnapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		snap, err := orch.Run(context.Background(), extract.FromBytes("first.pdf", extract.PDFMIMEType, nil))
		done <- result{snap, err}
	}()

	select {
	case <-ext.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never reached the extractor")
	}

	snap, err := orch.Run(context.Background(), extract.FromBytes("second.pdf", extract.PDFMIMEType, nil))
	require.NoError(t, err)
	assert.Equal(t, "second.pdf", snap.File)

	var first result
	select {
	case first = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first run was not cancelled")
	}
	assert.ErrorIs(t, first.err, ErrSuperseded)

	final := orch.Snapshot()
	assert.Equal(t, "second.pdf", final.File)
	assert.Equal(t, types.RunSucceeded, final.State)
	assert.Empty(t, sink.errors, "a superseded run reports nothing")
}

func TestResetDuringRunDiscardsResults(t *testing.T) {
	ext := &blockingExtractor{started: make(chan struct{})}
	sink := &recordingSink{}
	orch := New(Stages{Extractor: ext, Query: &fakeQuery{}, Literature: &fakeRetriever{}, Causality: &fakeCausality{}}, WithSink(sink))

	done := make(chan error, 1)
	go func() {
		_, err := orch.Run(context.Background(), pdf())
		done <- err
	}()
	<-ext.started
	orch.Reset()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("run was not cancelled by reset")
	}
	assert.Equal(t, types.RunIdle, orch.Snapshot().State)
	assert.Empty(t, sink.errors)
}

// lockCheckingSink records whether the orchestrator lock was free when each
// section arrived.
type lockCheckingSink struct {
	recordingSink
	orch     *Orchestrator
	unlocked []string
}

func (s *lockCheckingSink) checkLock(section string) {
	if s.orch.mu.TryLock() {
		s.orch.mu.Unlock()
		s.unlocked = append(s.unlocked, section)
	}
}

func (s *lockCheckingSink) Entities(e types.ExtractedEntities) {
	s.checkLock("entities")
	s.recordingSink.Entities(e)
}

func (s *lockCheckingSink) Literature(l []types.LiteratureRecord) {
	s.checkLock("literature")
	s.recordingSink.Literature(l)
}

func (s *lockCheckingSink) Verdict(v types.CausalityVerdict) {
	s.checkLock("verdict")
	s.recordingSink.Verdict(v)
}

func (s *lockCheckingSink) Error(msg string) {
	s.checkLock("error")
	s.recordingSink.Error(msg)
}

func TestSinkCalledUnderRunLock(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		sink := &lockCheckingSink{}
		orch := New(Stages{Extractor: &fakeExtractor{reply: entitiesReply}, Query: &fakeQuery{}, Literature: &fakeRetriever{}, Causality: &fakeCausality{}}, WithSink(sink))
		sink.orch = orch

		_, err := orch.Run(context.Background(), pdf())
		require.NoError(t, err)
		assert.Len(t, sink.entities, 1)
		assert.Len(t, sink.verdicts, 1)
		assert.Empty(t, sink.unlocked, "no section may be written outside the token check")
	})

	t.Run("failure", func(t *testing.T) {
		sink := &lockCheckingSink{}
		orch := New(Stages{Extractor: &fakeExtractor{reply: "no fenced block here"}, Query: &fakeQuery{}, Literature: &fakeRetriever{}, Causality: &fakeCausality{}}, WithSink(sink))
		sink.orch = orch

		_, err := orch.Run(context.Background(), pdf())
		require.Error(t, err)
		assert.Len(t, sink.errors, 1)
		assert.Empty(t, sink.unlocked)
	})
}
