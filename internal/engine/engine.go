// Package engine implements the per-session honeypot conversation state
// machine: detect once on the first inbound message, extract indicators on
// every turn, keep the persona reply flow going, and finalize exactly once.
package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Amita-5/honeypot-scam-detector/internal/session"
	"github.com/Amita-5/honeypot-scam-detector/pkg/types"
)

// ErrSessionClosed is returned for inbound messages on a finalized session.
var ErrSessionClosed = errors.New("session closed")

// Finalizer receives the intelligence report exactly once per session.
// Submission is best-effort; implementations must not block the engine.
type Finalizer interface {
	Finalize(report types.IntelligenceReport)
}

// Config tunes engagement behavior.
type Config struct {
	// TurnThreshold finalizes the session once the inbound turn counter
	// reaches it. Zero means the default of 4.
	TurnThreshold int

	// PoliteReply is sent while no scam has been detected, and whenever an
	// internal failure must degrade to a persona-preserving answer.
	PoliteReply string
}

const defaultTurnThreshold = 4

const defaultPoliteReply = "Thanks for reaching out. Could you tell me a bit more about what this is regarding?"

// Engine drives one session per inbound message. All session mutation runs
// inside store.Mutate, so turns for the same session are serialized while
// different sessions proceed in parallel.
type Engine struct {
	store     session.Store
	selector  *Selector
	detector  *Detector
	refiner   *Refiner
	finalizer Finalizer
	cfg       Config
	logger    *zap.Logger
}

func New(store session.Store, selector *Selector, detector *Detector, refiner *Refiner, finalizer Finalizer, cfg Config, logger *zap.Logger) *Engine {
	if cfg.TurnThreshold <= 0 {
		cfg.TurnThreshold = defaultTurnThreshold
	}
	if cfg.PoliteReply == "" {
		cfg.PoliteReply = defaultPoliteReply
	}
	if selector == nil {
		selector = NewSelector(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:     store,
		selector:  selector,
		detector:  detector,
		refiner:   refiner,
		finalizer: finalizer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Inbound is one counterpart message plus envelope metadata.
type Inbound struct {
	SessionID string
	Text      string
	Channel   string
	Language  string
	Locale    string
}

// Result is what the gateway returns to the caller.
type Result struct {
	SessionID    string
	Reply        string
	ScamDetected bool
	Finalized    bool
}

// Handle processes one inbound message: append + count the turn, extract
// indicators, run one-shot detection on the first message, pick the reply,
// and trigger finalization when the turn threshold is reached.
func (e *Engine) Handle(ctx context.Context, in Inbound) (Result, error) {
	var reply string

	sess, err := e.store.Mutate(ctx, in.SessionID, func(s *session.Session) error {
		if s.Finalized {
			return ErrSessionClosed
		}

		if s.Channel == "" {
			s.Channel = in.Channel
		}
		if s.Language == "" {
			s.Language = in.Language
		}
		if s.Locale == "" {
			s.Locale = in.Locale
		}

		s.Append(session.SenderCounterpart, in.Text)
		s.Turns++

		indicators, requested := Extract(in.Text)
		s.AddIndicators(indicators, requested)

		reply = ""
		if s.Turns == 1 && !s.ScamDetected {
			det := e.detector.Detect(ctx, in.Text)
			if det.IsScam {
				s.ScamDetected = true
				s.ScamType = det.ScamType
				reply = det.Reply
				e.logger.Info("scam detected",
					zap.String("session", s.ID),
					zap.String("scam_type", det.ScamType))
			}
		}

		if reply == "" {
			if s.ScamDetected {
				reply = e.refiner.Refine(ctx, e.selector.Baseline(s.Turns), in.Text)
			} else {
				reply = e.cfg.PoliteReply
			}
		}

		s.Append(session.SenderAgent, reply)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{SessionID: sess.ID, Reply: reply, ScamDetected: sess.ScamDetected}

	if sess.Turns >= e.cfg.TurnThreshold {
		fired, err := e.finalize(ctx, in.SessionID)
		if err != nil {
			// The conversation result is already committed; log and move on.
			e.logger.Error("finalize after threshold failed", zap.String("session", in.SessionID), zap.Error(err))
		}
		res.Finalized = fired
	}

	return res, nil
}

// End finalizes a session on an explicit end-engagement request. Ending an
// already finalized session is a no-op. Unknown sessions return
// session.ErrNotFound.
func (e *Engine) End(ctx context.Context, sessionID string) (bool, error) {
	if _, err := e.store.Get(ctx, sessionID); err != nil {
		return false, err
	}
	return e.finalize(ctx, sessionID)
}

// finalize flips the one-way finalized flag and hands the report to the
// finalizer. The flag check and flip happen under the store's per-session
// lock, so at most one report is ever produced per session.
func (e *Engine) finalize(ctx context.Context, sessionID string) (bool, error) {
	var (
		fired  bool
		report types.IntelligenceReport
	)

	_, err := e.store.Mutate(ctx, sessionID, func(s *session.Session) error {
		// The store may re-run this closure after a conflicting concurrent
		// write; only the committed run's outcome may survive.
		fired = false
		report = types.IntelligenceReport{}

		if s.Finalized {
			return nil
		}
		s.Finalized = true
		fired = true
		report = buildReport(s)
		return nil
	})
	if err != nil {
		return false, err
	}

	if fired && e.finalizer != nil {
		e.finalizer.Finalize(report)
	}
	return fired, nil
}

func buildReport(s *session.Session) types.IntelligenceReport {
	return types.IntelligenceReport{
		SessionID:              s.ID,
		ScamDetected:           s.ScamDetected,
		ScamType:               s.ScamType,
		ScamIndicators:         append([]string(nil), s.ScamIndicators...),
		RequestedSensitiveData: append([]string(nil), s.RequestedData...),
		Channel:                s.Channel,
		Language:               s.Language,
		Locale:                 s.Locale,
		TotalTurns:             s.Turns,
	}
}
