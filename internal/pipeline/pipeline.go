// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline implements the analysis pipeline: it turns a
// context snapshot and a significance decision into a committed
// Insight, orchestrating the significance engine, the LLM client, and
// the insight store on every lifecycle-controller tick.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/heytcass/jasper/internal/contextmodel"
	"github.com/heytcass/jasper/internal/contextsource"
	"github.com/heytcass/jasper/internal/insight"
	"github.com/heytcass/jasper/internal/jasperr"
	"github.com/heytcass/jasper/internal/llmclient"
	"github.com/heytcass/jasper/internal/significance"
	"github.com/heytcass/jasper/lib/clock"
)

// Notifier is the pipeline's outbound collaborator: once an Insight
// commits, the pipeline instructs it to push InsightUpdated to
// connected frontends and optionally raise a desktop notification.
// The IPC service and notification dispatcher each implement this.
type Notifier interface {
	InsightUpdated(context.Context, insight.Insight)
}

// Config holds the pipeline's tunables, sourced from the daemon's
// loaded Config document.
type Config struct {
	PlanningHorizon time.Duration
	Significance    significance.Config
	Model           string
	Temperature     float64
	MaxOutputTokens int
	MaxPromptItems  int
	RequestTimeout  time.Duration
	MaxRetries      int
	CanonOpts       contextmodel.CanonicalizeOptions
	Retention       insight.RetentionPolicy
	MaxPerDay       int
}

// Outcome tags what a single Tick did, mirroring the
// run(snapshot, decision) → Insight | Skipped | PipelineError contract.
type Outcome int

const (
	// Committed means a new Insight was appended to the store.
	Committed Outcome = iota
	// Skipped means the decision did not trigger the pipeline.
	Skipped
	// Failed means the pipeline triggered but a step failed; no
	// Insight was committed and the baseline snapshot was not
	// advanced.
	Failed
)

// Result is returned by Tick.
type Result struct {
	Outcome  Outcome
	Insight  *insight.Insight
	Decision significance.Decision
	Err      error
}

// Pipeline owns the mutable per-tick state: the previous snapshot
// baseline and the significance engine's rate-limit trigger. Tick
// serializes access with a mutex since the lifecycle controller may
// invoke it from both its periodic timer and a forced-refresh request.
type Pipeline struct {
	aggregator *contextsource.Aggregator
	store      *insight.Store
	provider   llmclient.Provider
	notifier   Notifier
	clock      clock.Clock
	cfg        Config

	mu       sync.Mutex
	baseline *contextmodel.Snapshot
	trigger  significance.Trigger
}

// New creates a Pipeline. provider should already be wrapped in
// llmclient.NewRetryingProvider by the caller so retry policy stays a
// concern of the LLM client, not the pipeline.
func New(aggregator *contextsource.Aggregator, store *insight.Store, provider llmclient.Provider, notifier Notifier, c clock.Clock, cfg Config) *Pipeline {
	return &Pipeline{
		aggregator: aggregator,
		store:      store,
		provider:   provider,
		notifier:   notifier,
		clock:      c,
		cfg:        cfg,
	}
}

// Reconfigure replaces the pipeline's tunables and, if non-nil, the
// aggregator, then invalidates the baseline so the next tick runs a
// fresh analysis rather than diffing against a snapshot gathered under
// the old horizon, source set, or privacy settings. Called by the
// lifecycle controller after a config reload commits.
func (p *Pipeline) Reconfigure(cfg Config, aggregator *contextsource.Aggregator) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
	if aggregator != nil {
		p.aggregator = aggregator
	}
	p.baseline = nil
}

// Tick builds a fresh snapshot, evaluates significance against the
// stored baseline, and runs the analysis pipeline if the decision
// triggers. now is passed explicitly so callers can drive it from an
// injected Clock.
func (p *Pipeline) Tick(ctx context.Context, now time.Time, forceRequested bool) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	horizonEnd := now.Add(p.cfg.PlanningHorizon)
	snapshot := p.aggregator.Build(ctx, now, horizonEnd, p.cfg.CanonOpts)

	if p.aggregator.SourceCount() > 0 && len(snapshot.Failures) == p.aggregator.SourceCount() {
		return Result{Outcome: Failed, Err: jasperr.New(jasperr.AggregationFailed, "all context sources failed")}
	}

	decision, trigger := significance.Evaluate(p.baseline, snapshot, p.cfg.Significance, forceRequested, now, p.trigger)
	p.trigger = trigger

	if !decision.Triggers() {
		// Rule 3 (Unchanged) and non-floor Minor decisions never move
		// the baseline forward implicitly — the baseline already
		// equals snapshot when fingerprints match, and a Minor
		// decision leaves prior context as the reference point for the
		// next tick's diff.
		if decision.Kind == significance.Unchanged {
			p.baseline = &snapshot
		}
		return Result{Outcome: Skipped, Decision: decision}
	}

	if decision.Kind != significance.Forced && p.cfg.MaxPerDay > 0 {
		generated, err := p.store.CountSince(ctx, now.AddDate(0, 0, -1))
		if err != nil {
			return Result{Outcome: Failed, Decision: decision, Err: fmt.Errorf("checking daily insight cap: %w", err)}
		}
		if generated >= p.cfg.MaxPerDay {
			return Result{Outcome: Skipped, Decision: significance.Decision{Kind: significance.Minor, Reasons: []string{"daily-cap-reached"}}}
		}
	}

	committed, err := p.run(ctx, snapshot)
	if err != nil {
		return Result{Outcome: Failed, Decision: decision, Err: err}
	}

	// Step 6: the baseline advances to next only when commit succeeds.
	p.baseline = &snapshot
	if p.cfg.Retention.RetainLastN > 0 {
		if _, err := p.store.Retain(ctx, p.cfg.Retention); err != nil {
			// Retention is best-effort housekeeping, not part of the
			// commit's success criteria: a failure here never rolls
			// back the insight just appended.
			return Result{Outcome: Committed, Insight: committed, Decision: decision, Err: fmt.Errorf("retaining insights: %w", err)}
		}
	}
	if p.notifier != nil {
		p.notifier.InsightUpdated(ctx, *committed)
	}
	return Result{Outcome: Committed, Insight: committed, Decision: decision}
}

// run executes steps 1-5 of the analysis algorithm for a triggering
// decision: build the prompt, call the LLM, parse and validate the
// reply, and commit it to the store.
func (p *Pipeline) run(ctx context.Context, snapshot contextmodel.Snapshot) (*insight.Insight, error) {
	requestCtx := ctx
	var cancel context.CancelFunc
	if p.cfg.RequestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
	}

	bundle := buildPromptBundle(snapshot, p.cfg.MaxPromptItems)

	response, err := p.provider.Complete(requestCtx, llmclient.Request{
		Model:        p.cfg.Model,
		SystemPrompt: systemPrompt,
		UserPrompt:   bundle,
		MaxTokens:    p.cfg.MaxOutputTokens,
		Temperature:  p.cfg.Temperature,
	})
	if err != nil {
		return nil, err
	}

	if err := validateResponse(response); err != nil {
		return nil, err
	}

	tokenCost := response.InputTokens + response.OutputTokens
	draft := insight.Draft{
		ContextFingerprint: snapshot.Fingerprint,
		Emoji:              response.Emoji,
		Preview:            response.Preview,
		Body:               response.Body,
		Urgency:            response.Urgency,
		SourceModel:        response.Model,
		TokenCost:          &tokenCost,
	}

	committed, err := p.store.Append(ctx, draft)
	if err != nil {
		return nil, err
	}
	return &committed, nil
}

func validateResponse(r *llmclient.Response) error {
	if r.Emoji == "" || r.Preview == "" || r.Body == "" {
		return jasperr.New(jasperr.ResponseMalformed, "llm response missing required fields")
	}
	if r.Urgency < 0 || r.Urgency > 10 {
		return jasperr.New(jasperr.ResponseMalformed, fmt.Sprintf("urgency %d out of range [0,10]", r.Urgency))
	}
	return nil
}
