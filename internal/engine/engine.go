// Package engine produces the final Decision for a profile. Deterministic
// hard filters run first; only profiles that survive them are sent to the
// reasoning strategy. Every failure path degrades to Pass — uncertainty never
// produces an affirmative action.
package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"matchbot/internal/config"
	"matchbot/internal/types"
)

// Strategy is the pluggable reasoning step. Implementations wrap an LLM or
// any other judgment source; alternative strategies swap in at construction.
type Strategy interface {
	Judge(ctx context.Context, rec *types.ProfileRecord, criteria config.Criteria) (types.Decision, error)
}

// Engine applies matching criteria plus the strategy's judgment.
type Engine struct {
	strategy   Strategy
	retryDelay time.Duration
}

// New creates an engine. retryDelay is the backoff before the single retry of
// a failed strategy call.
func New(strategy Strategy, retryDelay time.Duration) *Engine {
	return &Engine{strategy: strategy, retryDelay: retryDelay}
}

// Decide produces exactly one decision for the record. It never returns an
// error: strategy failures are retried once with backoff and then fall back
// to Pass, logged rather than raised.
func (e *Engine) Decide(ctx context.Context, rec *types.ProfileRecord, criteria config.Criteria) types.Decision {
	if d, rejected := e.hardFilter(rec, criteria); rejected {
		return d
	}

	d, err := e.strategy.Judge(ctx, rec, criteria)
	if err != nil {
		log.Printf("Strategy call failed, retrying in %v: %v", e.retryDelay, err)
		if !sleepCtx(ctx, e.retryDelay) {
			return e.fallback("session stopped during strategy retry")
		}
		d, err = e.strategy.Judge(ctx, rec, criteria)
	}
	if err != nil {
		log.Printf("Strategy retry failed, falling back to pass: %v", err)
		return e.fallback("decision adapter unavailable")
	}

	return e.sanitize(d)
}

// hardFilter applies the deterministic short-circuits: deal-breaker keywords
// and a parsed age strictly outside the configured bounds. An unparseable age
// (zero) is unknown, not a rejection.
func (e *Engine) hardFilter(rec *types.ProfileRecord, criteria config.Criteria) (types.Decision, bool) {
	text := strings.ToLower(rec.AllText())

	for _, breaker := range criteria.DealBreakers {
		kw := strings.ToLower(strings.TrimSpace(breaker))
		if kw != "" && strings.Contains(text, kw) {
			return types.Decision{
				ID:         uuid.NewString(),
				Action:     types.ActionPass,
				Confidence: 1.0,
				Rationale:  fmt.Sprintf("deal-breaker %q present", breaker),
			}, true
		}
	}

	if rec.Age != 0 && (rec.Age < criteria.MinAge || rec.Age > criteria.MaxAge) {
		return types.Decision{
			ID:         uuid.NewString(),
			Action:     types.ActionPass,
			Confidence: 1.0,
			Rationale:  fmt.Sprintf("age %d outside range [%d, %d]", rec.Age, criteria.MinAge, criteria.MaxAge),
		}, true
	}

	return types.Decision{}, false
}

// sanitize enforces the decision contract on whatever the strategy returned.
func (e *Engine) sanitize(d types.Decision) types.Decision {
	d.ID = uuid.NewString()

	if !d.Action.Valid() {
		log.Printf("Strategy returned invalid action %q, falling back to pass", d.Action)
		return types.Decision{
			ID:         d.ID,
			Action:     types.ActionPass,
			Confidence: 0,
			Rationale:  fmt.Sprintf("adapter returned invalid action %q", d.Action),
		}
	}

	if d.Action == types.ActionComment && strings.TrimSpace(d.Comment) == "" {
		// Never open a composer with nothing to send.
		log.Printf("Strategy chose comment with empty text, downgrading to like")
		d.Action = types.ActionLike
		d.Comment = ""
		d.Rationale = strings.TrimSpace(d.Rationale + " (downgraded: empty comment)")
	}

	if d.Confidence < 0 {
		d.Confidence = 0
	} else if d.Confidence > 1 {
		d.Confidence = 1
	}

	return d
}

func (e *Engine) fallback(reason string) types.Decision {
	return types.Decision{
		ID:         uuid.NewString(),
		Action:     types.ActionPass,
		Confidence: 0,
		Rationale:  reason,
	}
}

// sleepCtx sleeps for d unless the context ends first. Returns false if the
// context ended.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
