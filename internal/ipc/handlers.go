// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"

	"github.com/heytcass/jasper/internal/codec"
	"github.com/heytcass/jasper/internal/frontend"
	"github.com/heytcass/jasper/internal/insight"
)

type insightView struct {
	ID        int64  `cbor:"id"`
	CreatedAt string `cbor:"created_at"`
	Emoji     string `cbor:"emoji"`
	Preview   string `cbor:"preview"`
	Body      string `cbor:"body"`
	Urgency   int    `cbor:"urgency"`
}

func toInsightView(i insight.Insight) insightView {
	return insightView{
		ID:        i.ID,
		CreatedAt: i.CreatedAt.Format(rfc3339Milli),
		Emoji:     i.Emoji,
		Preview:   i.Preview,
		Body:      i.Body,
		Urgency:   i.Urgency,
	}
}

const rfc3339Milli = "2006-01-02T15:04:05.000Z07:00"

func (s *Service) handleGetLatestInsight(ctx context.Context, raw []byte) (any, error) {
	current, ok, err := s.store.GetCurrent(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return insightView{}, nil
	}
	return toInsightView(current), nil
}

type getInsightByIDRequest struct {
	ID int64 `cbor:"id"`
}

func (s *Service) handleGetInsightByID(ctx context.Context, raw []byte) (any, error) {
	var req getInsightByIDRequest
	if err := codec.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	i, err := s.store.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return toInsightView(i), nil
}

type registerFrontendRequest struct {
	FrontendID       string `cbor:"frontend_id"`
	PID              int    `cbor:"pid"`
	NotifyPreference string `cbor:"notify_preference,omitempty"`
}

type registerFrontendResponse struct {
	Accepted   bool   `cbor:"accepted"`
	FrontendID string `cbor:"frontend_id"`
}

type acceptedResponse struct {
	Accepted bool `cbor:"accepted"`
}

// handleRegisterFrontend registers req.FrontendID, or assigns a fresh
// one when the caller doesn't supply one (a CLI invocation with no
// persisted identity of its own, typically). Either way the ID actually
// registered comes back in the response so the caller can use it in
// later Heartbeat/UnregisterFrontend calls.
func (s *Service) handleRegisterFrontend(ctx context.Context, raw []byte) (any, error) {
	var req registerFrontendRequest
	if err := codec.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	preference := frontend.NotifyAll
	if req.NotifyPreference != "" {
		preference = frontend.NotifyPreference(req.NotifyPreference)
	}
	frontendID := req.FrontendID
	if frontendID == "" {
		frontendID = frontend.NewID()
	}
	accepted := s.registry.Register(frontendID, req.PID, preference)
	return registerFrontendResponse{Accepted: accepted, FrontendID: frontendID}, nil
}

type frontendIDRequest struct {
	FrontendID string `cbor:"frontend_id"`
}

func (s *Service) handleUnregisterFrontend(ctx context.Context, raw []byte) (any, error) {
	var req frontendIDRequest
	if err := codec.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	s.registry.Unregister(req.FrontendID)
	return acceptedResponse{Accepted: true}, nil
}

func (s *Service) handleHeartbeat(ctx context.Context, raw []byte) (any, error) {
	var req frontendIDRequest
	if err := codec.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	accepted := s.registry.Heartbeat(req.FrontendID)
	return acceptedResponse{Accepted: accepted}, nil
}

// handleForceRefresh enqueues an out-of-band analysis request and
// returns immediately; it does not wait for the resulting tick to
// finish, since a caller polls GetLatestInsight (or subscribes to
// InsightUpdated) for the outcome.
func (s *Service) handleForceRefresh(ctx context.Context, raw []byte) (any, error) {
	select {
	case s.forceRefresh <- struct{}{}:
	default:
	}
	return acceptedResponse{Accepted: true}, nil
}

type statusResponse struct {
	Online        bool  `cbor:"online"`
	FrontendCount int   `cbor:"frontend_count"`
	LastInsightID int64 `cbor:"last_insight_id"`
}

func (s *Service) handleGetStatus(ctx context.Context, raw []byte) (any, error) {
	status := statusResponse{
		Online:        s.online.Load(),
		FrontendCount: len(s.registry.ListActive()),
	}
	if current, ok, err := s.store.GetCurrent(ctx); err == nil && ok {
		status.LastInsightID = current.ID
	}
	return status, nil
}
