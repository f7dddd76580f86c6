// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the assessment stages for one document at a
// time and owns the current run record.
//
// Stage order: extraction request (step 1), entity parse (step 2), query
// synthesis (step 3), literature retrieval (step 4), causality (step 5).
// The first failure stops the run with the failing step left in-progress.
// A new document supersedes the run in flight: its context is cancelled and
// any result it still produces is discarded.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/krishna-gramener/adverse-events/internal/extract"
	"github.com/krishna-gramener/adverse-events/internal/progress"
	"github.com/krishna-gramener/adverse-events/pkg/types"
)

// ErrSuperseded is returned by Run when a newer run replaced it.
var ErrSuperseded = errors.New("run superseded by a newer document")

// Extractor performs the extraction request; the reply is parsed by the
// orchestrator as a separate step.
type Extractor interface {
	Request(ctx context.Context, doc extract.Document) (string, error)
}

// QuerySynthesizer builds the literature search.
type QuerySynthesizer interface {
	Synthesize(ctx context.Context, entities types.ExtractedEntities) (types.SearchQuery, error)
}

// LiteratureRetriever fetches the records for a search URL.
type LiteratureRetriever interface {
	Retrieve(ctx context.Context, searchURL string) ([]types.LiteratureRecord, error)
}

// CausalitySynthesizer produces the final verdict.
type CausalitySynthesizer interface {
	Assess(ctx context.Context, entities types.ExtractedEntities, literature []types.LiteratureRecord) (types.CausalityVerdict, error)
}

// Stages holds one implementation per stage.
type Stages struct {
	Extractor  Extractor
	Query      QuerySynthesizer
	Literature LiteratureRetriever
	Causality  CausalitySynthesizer
}

// Sink displays results as they become available. Result calls are made
// from the goroutine running the pipeline with the orchestrator lock held,
// so a Sink must not call back into the Orchestrator.
type Sink interface {
	Entities(types.ExtractedEntities)
	Literature([]types.LiteratureRecord)
	Verdict(types.CausalityVerdict)
	Error(message string)
}

type run struct {
	id         string
	file       string
	state      types.RunState
	entities   types.ExtractedEntities
	query      types.SearchQuery
	literature []types.LiteratureRecord
	verdict    types.CausalityVerdict
	err        string
}

// Orchestrator runs the pipeline. It is safe for concurrent use; only the
// most recently accepted run may change state.
type Orchestrator struct {
	stages Stages
	sink   Sink
	log    *zap.Logger

	mu      sync.Mutex
	run     run
	tracker *progress.Tracker
	cancel  context.CancelFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSink sets the result sink.
func WithSink(s Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithObserver attaches a progress observer.
func WithObserver(obs progress.Observer) Option {
	return func(o *Orchestrator) { o.tracker.SetObserver(obs) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// New returns an idle Orchestrator.
func New(stages Stages, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stages:  stages,
		log:     zap.NewNop(),
		tracker: progress.NewTracker(nil),
		run:     run{state: types.RunIdle},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Accept validates doc and makes it the current run, superseding any run
// in flight. A rejected document leaves the current run untouched and
// makes no network call. It returns the new run token.
func (o *Orchestrator) Accept(doc extract.Document) (string, error) {
	_, token, err := o.accept(context.Background(), doc)
	return token, err
}

func (o *Orchestrator) accept(parent context.Context, doc extract.Document) (context.Context, string, error) {
	if err := extract.ValidateDocument(doc); err != nil {
		o.log.Warn("document rejected", zap.String("file", doc.Name), zap.String("mime_type", doc.MIMEType))
		o.emitError(err.Error())
		return nil, "", err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.log.Info("superseding run", zap.String("run", o.run.id))
		o.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	o.cancel = cancel

	token := uuid.NewString()
	o.run = run{id: token, file: doc.Name, state: types.RunRunning}
	o.tracker.Reset()

	o.log.Info("run accepted", zap.String("run", token), zap.String("file", doc.Name))
	return ctx, token, nil
}

// Run accepts doc and executes every stage in order. It returns the final
// snapshot; on failure the snapshot is in the failed state and err is the
// stage error, already reported to the sink. A run replaced by a newer one
// returns ErrSuperseded and reports nothing further.
func (o *Orchestrator) Run(ctx context.Context, doc extract.Document) (types.RunSnapshot, error) {
	runCtx, token, err := o.accept(ctx, doc)
	if err != nil {
		return o.Snapshot(), err
	}

	s := &session{o: o, ctx: runCtx, token: token}
	return s.execute(doc)
}

// Reset discards the current run, cancelling it if still in flight.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.run = run{state: types.RunIdle}
	o.tracker.Reset()
}

// Snapshot returns a deep copy of the current run.
func (o *Orchestrator) Snapshot() types.RunSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() types.RunSnapshot {
	snap := types.RunSnapshot{
		ID:          o.run.id,
		File:        o.run.file,
		State:       o.run.state,
		Entities:    o.run.entities.Clone(),
		Query:       o.run.query,
		CurrentStep: o.tracker.Current(),
		Steps:       o.tracker.Steps(),
		Error:       o.run.err,
	}
	if o.run.literature != nil {
		snap.Literature = append([]types.LiteratureRecord(nil), o.run.literature...)
	}
	if o.run.verdict != nil {
		snap.Verdict = append(types.CausalityVerdict(nil), o.run.verdict...)
	}
	return snap
}

func (o *Orchestrator) emitError(msg string) {
	if o.sink != nil {
		o.sink.Error(msg)
	}
}
