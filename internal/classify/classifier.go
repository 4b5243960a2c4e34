// Package classify turns clause text into normalized labels by way of a
// completion service.
package classify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/clausecheck/internal/completion"
)

// Recorder receives one observation per classification call.
type Recorder interface {
	ObserveClassification(policy string, failed bool, d time.Duration)
}

// Classifier runs policies against a completion service. It never returns a
// Go error: service failures become Results with Err set.
type Classifier struct {
	completer completion.Completer
	model     string
	log       *slog.Logger
	recorder  Recorder
}

func NewClassifier(c completion.Completer, model string, log *slog.Logger, recorder Recorder) *Classifier {
	return &Classifier{
		completer: c,
		model:     model,
		log:       log,
		recorder:  recorder,
	}
}

// Classify sends text under policy p and normalizes the response.
func (c *Classifier) Classify(ctx context.Context, p Policy, text string) Result {
	start := time.Now()
	raw, err := c.completer.Complete(ctx, completion.Request{
		System:      p.System,
		User:        p.UserMessage(text),
		Model:       c.model,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	})
	elapsed := time.Since(start)
	if c.recorder != nil {
		c.recorder.ObserveClassification(p.Name, err != nil, elapsed)
	}

	if err != nil {
		c.log.Error("classification failed", "policy", p.Name, "duration_ms", elapsed.Milliseconds(), "error", err)
		return Result{Policy: p.Name, Label: p.FailureLabel, Err: err}
	}

	trimmed := strings.TrimSpace(raw)
	normalize := p.Normalize
	if normalize == nil {
		normalize = Verbatim
	}
	label := normalize(trimmed)
	c.log.Debug("classified", "policy", p.Name, "label", string(label), "duration_ms", elapsed.Milliseconds())
	return Result{Policy: p.Name, Label: label, Raw: trimmed}
}
