// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/krishna-gramener/adverse-events/internal/extract"
	"github.com/krishna-gramener/adverse-events/internal/progress"
	"github.com/krishna-gramener/adverse-events/pkg/types"
)

// session is one execution of the stages for an accepted run token.
type session struct {
	o     *Orchestrator
	ctx   context.Context
	token string
}

func (s *session) execute(doc extract.Document) (types.RunSnapshot, error) {
	o := s.o

	// Step 1: extraction request.
	var reply string
	if err := s.step(progress.StepExtract, func() error {
		var err error
		reply, err = o.stages.Extractor.Request(s.ctx, doc)
		return err
	}, nil); err != nil {
		return s.finish(err)
	}

	// Step 2: entity parse.
	var entities types.ExtractedEntities
	if err := s.step(progress.StepParse, func() error {
		var err error
		entities, err = extract.ParseEntities(reply)
		return err
	}, func(r *run) { r.entities = entities }); err != nil {
		return s.finish(err)
	}
	s.emit(func(sink Sink) { sink.Entities(entities.Clone()) })

	// Step 3: query synthesis.
	var query types.SearchQuery
	if err := s.step(progress.StepQuery, func() error {
		var err error
		query, err = o.stages.Query.Synthesize(s.ctx, entities)
		return err
	}, func(r *run) { r.query = query }); err != nil {
		return s.finish(err)
	}

	// Step 4: literature retrieval.
	var literature []types.LiteratureRecord
	if err := s.step(progress.StepRetrieve, func() error {
		var err error
		literature, err = o.stages.Literature.Retrieve(s.ctx, query.URL)
		return err
	}, func(r *run) { r.literature = literature }); err != nil {
		return s.finish(err)
	}
	s.emit(func(sink Sink) { sink.Literature(append([]types.LiteratureRecord(nil), literature...)) })

	// Step 5: causality.
	var verdict types.CausalityVerdict
	if err := s.step(progress.StepCausality, func() error {
		var err error
		verdict, err = o.stages.Causality.Assess(s.ctx, entities, literature)
		return err
	}, func(r *run) { r.verdict = verdict }); err != nil {
		return s.finish(err)
	}
	s.emit(func(sink Sink) { sink.Verdict(append(types.CausalityVerdict(nil), verdict...)) })

	return s.finish(nil)
}

// step begins n, runs fn, and on success stores the result and completes n,
// all under the lock and only while the token is current. Errors from fn are
// returned as-is; ErrSuperseded is returned when a newer run took over.
func (s *session) step(n int, fn func() error, store func(*run)) error {
	if err := s.locked(func() { s.o.tracker.Begin(n) }); err != nil {
		return err
	}

	s.o.log.Debug("step started", zap.String("run", s.token), zap.Int("step", n), zap.String("label", progress.Label(n)))
	err := fn()

	if lockErr := s.locked(func() {
		if err != nil {
			return
		}
		if store != nil {
			store(&s.o.run)
		}
		s.o.tracker.Complete(n)
	}); lockErr != nil {
		return lockErr
	}
	return err
}

// emit hands a result to the sink if the run is still current. The lock is
// held across the call so a concurrent Accept or Reset cannot slip in
// between the token check and the output.
func (s *session) emit(fn func(Sink)) {
	if s.o.sink == nil {
		return
	}
	_ = s.locked(func() { fn(s.o.sink) })
}

// locked runs fn under the orchestrator lock if the token is still current.
func (s *session) locked(fn func()) error {
	s.o.mu.Lock()
	defer s.o.mu.Unlock()
	if s.o.run.id != s.token {
		return ErrSuperseded
	}
	fn()
	return nil
}

func (s *session) finish(err error) (types.RunSnapshot, error) {
	o := s.o

	if errors.Is(err, ErrSuperseded) {
		o.log.Info("discarding superseded run", zap.String("run", s.token))
		return o.Snapshot(), ErrSuperseded
	}

	var snap types.RunSnapshot
	if lockErr := s.locked(func() {
		if err != nil {
			o.run.state = types.RunFailed
			o.run.err = err.Error()
			o.emitError(err.Error())
		} else {
			o.run.state = types.RunSucceeded
		}
		if o.cancel != nil {
			o.cancel()
			o.cancel = nil
		}
		snap = o.snapshotLocked()
	}); lockErr != nil {
		o.log.Info("discarding superseded run", zap.String("run", s.token))
		return o.Snapshot(), ErrSuperseded
	}

	if err != nil {
		o.log.Error("run failed",
			zap.String("run", s.token),
			zap.Int("step", snap.CurrentStep),
			zap.Error(err),
		)
		return snap, err
	}

	o.log.Info("run succeeded", zap.String("run", s.token), zap.Int("articles", len(snap.Literature)))
	return snap, nil
}
