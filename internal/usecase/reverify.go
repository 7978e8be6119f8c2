package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	dservice "SignalPull/internal/domain/service"
	"SignalPull/pkg/logger"
	"SignalPull/pkg/queue"
)

// ReverifyMessageType is the queue message type of re-verification jobs.
const ReverifyMessageType = "signal.reverify"

// ReverifyPayload is the queued request.
type ReverifyPayload struct {
	SignalID string `json:"signal_id"`
}

// ReverifyOutcome describes what re-verification did to the stored signal.
type ReverifyOutcome string

const (
	OutcomeConfirmed ReverifyOutcome = "confirmed"
	OutcomeCorrected ReverifyOutcome = "corrected"
	OutcomeDeleted   ReverifyOutcome = "deleted"
)

// ReverifyResult is returned by Reverifier.Reverify.
type ReverifyResult struct {
	SignalID     string              `json:"signal_id"`
	Outcome      ReverifyOutcome     `json:"outcome"`
	Verification models.Verification `json:"verification"`
}

// Reverifier asks the classifier to re-check a stored signal and applies the verdict.
type Reverifier struct {
	signals    drepo.SignalStore
	classifier dservice.Classifier
	metrics    drepo.Metrics
	lgr        *logger.Logger
	now        func() time.Time
}

func NewReverifier(signals drepo.SignalStore, classifier dservice.Classifier, metrics drepo.Metrics, lgr *logger.Logger) *Reverifier {
	return &Reverifier{signals: signals, classifier: classifier, metrics: metrics, lgr: lgr, now: time.Now}
}

// Reverify re-classifies the signal text with its current sentiment as context.
// INCORRECT with a directional correction rewrites the row; INCORRECT with anything else
// deletes it.
func (r *Reverifier) Reverify(ctx context.Context, id string) (*ReverifyResult, error) {
	sig, err := r.signals.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := r.classifier.Verify(ctx, sig.OriginalText, sig.Sentiment)
	if err != nil {
		r.metrics.RecordError("verify")
		return nil, fmt.Errorf("verify %s: %w", id, err)
	}

	res := &ReverifyResult{SignalID: id, Verification: *v, Outcome: OutcomeConfirmed}
	switch {
	case v.IsCorrect():
	case v.CorrectSentiment.IsDirectional():
		sig.Sentiment = v.CorrectSentiment
		sig.Confidence = v.Confidence
		sig.UpdatedAt = r.now().UTC()
		if _, err := r.signals.Upsert(ctx, sig); err != nil {
			return nil, fmt.Errorf("update %s: %w", id, err)
		}
		res.Outcome = OutcomeCorrected
	default:
		if err := r.signals.Delete(ctx, id); err != nil && !errors.Is(err, drepo.ErrNotFound) {
			return nil, fmt.Errorf("delete %s: %w", id, err)
		}
		res.Outcome = OutcomeDeleted
	}

	r.lgr.Info("signal re-verified",
		logger.String("id", id),
		logger.String("outcome", string(res.Outcome)),
		logger.String("verdict", v.Verification),
		logger.String("correct_sentiment", string(v.CorrectSentiment)),
		logger.Int("confidence", v.Confidence),
	)
	return res, nil
}

// ReverifyJob runs Reverify from the queue.
type ReverifyJob struct {
	r *Reverifier
}

var _ queue.Job = (*ReverifyJob)(nil)

func NewReverifyJob(r *Reverifier) *ReverifyJob { return &ReverifyJob{r: r} }

func (j *ReverifyJob) Name() string { return "reverify-signal" }
func (j *ReverifyJob) Type() string { return ReverifyMessageType }

func (j *ReverifyJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[ReverifyPayload](payload)
	if err != nil {
		return err
	}
	_, err = j.r.Reverify(ctx, p.SignalID)
	if errors.Is(err, drepo.ErrNotFound) {
		// deleted since it was queued
		return nil
	}
	return err
}
