// Package loop is the orchestrator: a strictly sequential state machine that
// carries one profile at a time from capture through action. All session
// counters live here and are mutated by the loop only.
package loop

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"matchbot/internal/config"
	"matchbot/internal/perception"
	"matchbot/internal/types"
)

// Phase is the loop's current position in the state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCapturing
	PhaseClassifying
	PhaseExtracting
	PhaseDeciding
	PhaseActing
	PhaseCooling
	PhaseHalted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCapturing:
		return "capturing"
	case PhaseClassifying:
		return "classifying"
	case PhaseExtracting:
		return "extracting"
	case PhaseDeciding:
		return "deciding"
	case PhaseActing:
		return "acting"
	case PhaseCooling:
		return "cooling"
	case PhaseHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// State is the session's counters. Owned exclusively by the loop while Run is
// in progress; read it after Run returns.
type State struct {
	Phase             Phase
	ProfilesProcessed int
	ConsecutiveErrors int
	Liked             int
	Passed            int
	Commented         int
	Abandoned         int
	ExecutionFailures int
	LastAction        types.Action
	HaltReason        string
}

// Device is the input/capture surface the loop drives directly (scrolling and
// dialog dismissal; decision taps go through the Actor).
type Device interface {
	ScreenSize() (width, height int)
	Screencap(ctx context.Context) ([]byte, error)
	Tap(ctx context.Context, x, y int) error
	Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error
	KeyEvent(ctx context.Context, keycode string) error
}

// Screens classifies captures.
type Screens interface {
	Classify(ctx context.Context, capture *types.Capture) (types.ScreenState, *perception.Classification)
}

// Reader extracts profile text from a capture.
type Reader interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// Profiles consolidates captures into profile records.
type Profiles interface {
	Begin() *types.ProfileRecord
	Ingest(rec *types.ProfileRecord, capture *types.Capture, text string, cls *perception.Classification)
	IsComplete(rec *types.ProfileRecord) bool
}

// Decider produces the verdict for a completed record. Never blocks the loop
// indefinitely; fallback policy lives behind this interface.
type Decider interface {
	Decide(ctx context.Context, rec *types.ProfileRecord, criteria config.Criteria) types.Decision
}

// Actor performs a decision on the device.
type Actor interface {
	Execute(ctx context.Context, decision types.Decision, cls *perception.Classification) types.ExecutionResult
}

// Sink receives each (record, decision, result) tuple for audit. May be nil.
type Sink interface {
	Record(rec *types.ProfileRecord, decision types.Decision, result types.ExecutionResult)
}

// Loop runs the session state machine.
type Loop struct {
	device   Device
	screens  Screens
	reader   Reader
	profiles Profiles
	decider  Decider
	actor    Actor
	sink     Sink
	cfg      *config.Config

	state State

	// in-flight profile, valid between phases
	capture          *types.Capture
	screen           types.ScreenState
	cls              *perception.Classification
	record           *types.ProfileRecord
	profileCls       *perception.Classification
	decision         types.Decision
	classifyAttempts int
	dismissing       bool
	extendedBackoff  bool
}

// New wires a loop. sink may be nil.
func New(device Device, screens Screens, reader Reader, profiles Profiles, decider Decider, actor Actor, sink Sink, cfg *config.Config) *Loop {
	return &Loop{
		device:   device,
		screens:  screens,
		reader:   reader,
		profiles: profiles,
		decider:  decider,
		actor:    actor,
		sink:     sink,
		cfg:      cfg,
	}
}

// State returns a copy of the session counters.
func (l *Loop) State() State {
	return l.state
}

// Run drives the state machine until a halt. A clean halt (profile cap, or a
// cancelled context) returns nil; the consecutive-error cap returns an error
// wrapping ErrHalted. The stop signal is checked between transitions only, so
// an in-progress tap sequence always completes or definitively fails first.
func (l *Loop) Run(ctx context.Context) error {
	l.state.Phase = PhaseIdle

	for {
		if ctx.Err() != nil {
			l.halt("stopped by operator")
			return nil
		}

		switch l.state.Phase {
		case PhaseIdle:
			l.transition(PhaseCapturing)
		case PhaseCapturing:
			l.runCapturing(ctx)
		case PhaseClassifying:
			l.runClassifying(ctx)
		case PhaseExtracting:
			l.runExtracting(ctx)
		case PhaseDeciding:
			l.runDeciding(ctx)
		case PhaseActing:
			l.runActing(ctx)
		case PhaseCooling:
			if err := l.runCooling(ctx); err != nil {
				return err
			}
		case PhaseHalted:
			log.Printf("Session halted: %s", l.state.HaltReason)
			return nil
		}
	}
}

func (l *Loop) transition(next Phase) {
	log.Printf("[loop] %s -> %s (profile %d, errors %d)",
		l.state.Phase, next, l.state.ProfilesProcessed, l.state.ConsecutiveErrors)
	l.state.Phase = next
}

func (l *Loop) halt(reason string) {
	l.state.HaltReason = reason
	l.transition(PhaseHalted)
}

// runCapturing takes a screenshot with bounded retries and increasing backoff.
// Exhaustion is a session-level error: count it and cool down harder.
func (l *Loop) runCapturing(ctx context.Context) {
	capture, err := l.captureWithRetries(ctx)
	if err != nil {
		log.Printf("Capture failed after %d attempts: %v", l.cfg.Session.CaptureRetries, err)
		l.state.ConsecutiveErrors++
		l.extendedBackoff = true
		l.transition(PhaseCooling)
		return
	}

	l.capture = capture
	l.transition(PhaseClassifying)
}

func (l *Loop) captureWithRetries(ctx context.Context) (*types.Capture, error) {
	retryDelay := time.Duration(l.cfg.Timing.AdapterRetryDelaySec) * time.Second

	var lastErr error
	for attempt := 1; attempt <= l.cfg.Session.CaptureRetries; attempt++ {
		if attempt > 1 {
			if !sleepCtx(ctx, retryDelay*time.Duration(attempt-1)) {
				return nil, ctx.Err()
			}
		}

		img, err := l.device.Screencap(ctx)
		if err != nil {
			lastErr = err
			log.Printf("Capture attempt %d/%d failed: %v", attempt, l.cfg.Session.CaptureRetries, err)
			continue
		}

		return &types.Capture{
			ID:      uuid.NewString(),
			Serial:  l.cfg.Device.Serial,
			Image:   img,
			TakenAt: time.Now(),
		}, nil
	}
	return nil, fmt.Errorf("%w: %v", types.ErrCapture, lastErr)
}

// runClassifying decides what to do with the current capture: a profile view
// starts extraction, a leftover dialog goes straight to the dismissal path,
// and Unknown retries the capture a bounded number of times.
func (l *Loop) runClassifying(ctx context.Context) {
	l.screen, l.cls = l.screens.Classify(ctx, l.capture)
	log.Printf("Capture %s classified as %s", l.capture.ID, l.screen)

	switch {
	case l.screen == types.ScreenProfile:
		l.classifyAttempts = 0
		l.record = l.profiles.Begin()
		l.profileCls = l.cls
		l.transition(PhaseExtracting)

	case l.screen.IsDialog():
		l.classifyAttempts = 0
		l.dismissing = true
		l.transition(PhaseActing)

	default: // ScreenUnknown
		l.classifyAttempts++
		if l.classifyAttempts <= l.cfg.Session.ClassifyRetries {
			log.Printf("Screen unknown, recapturing (attempt %d/%d)", l.classifyAttempts, l.cfg.Session.ClassifyRetries)
			l.transition(PhaseCapturing)
			return
		}
		log.Printf("Screen stayed unknown after %d attempts, cooling down", l.cfg.Session.ClassifyRetries)
		l.classifyAttempts = 0
		l.state.ConsecutiveErrors++
		l.extendedBackoff = true
		l.transition(PhaseCooling)
	}
}

// runExtracting is the scroll-and-capture sub-loop. It stays in this phase
// until the record is stable or capped, then moves to Deciding. Screen drift
// mid-scroll abandons the partial record.
func (l *Loop) runExtracting(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		text, err := l.reader.ExtractText(ctx, l.capture.Image)
		if err != nil {
			log.Printf("Text extraction failed for capture %s: %v", l.capture.ID, err)
			text = ""
		}
		l.profiles.Ingest(l.record, l.capture, text, l.cls)

		if l.profiles.IsComplete(l.record) {
			log.Printf("Profile record complete: %q, age %d, %d fragments over %d frames",
				l.record.Name, l.record.Age, len(l.record.Fragments), l.record.Frames)
			l.transition(PhaseDeciding)
			return
		}

		if err := l.scroll(ctx); err != nil {
			log.Printf("Scroll failed: %v", err)
			l.abandon(ctx, "scroll failed")
			return
		}
		if !sleepCtx(ctx, time.Duration(l.cfg.Timing.ScrollSettleMs)*time.Millisecond) {
			return
		}

		capture, err := l.captureWithRetries(ctx)
		if err != nil {
			log.Printf("Capture during extraction failed: %v", err)
			l.state.ConsecutiveErrors++
			l.abandon(ctx, "capture failed mid-extraction")
			return
		}
		l.capture = capture

		state, cls := l.screens.Classify(ctx, l.capture)
		if state != types.ScreenProfile {
			log.Printf("Screen drifted to %s mid-extraction: %v", state, types.ErrDrift)
			l.abandon(ctx, "screen drifted")
			return
		}
		l.cls = cls
	}
}

// abandon discards the current profile without acting on it and advances to
// the next one.
func (l *Loop) abandon(ctx context.Context, reason string) {
	log.Printf("Abandoning profile: %s", reason)
	l.record = nil
	l.profileCls = nil
	l.state.Abandoned++
	if err := l.swipeNext(ctx); err != nil {
		log.Printf("Swipe to next profile failed: %v", err)
	}
	l.transition(PhaseCooling)
}

func (l *Loop) runDeciding(ctx context.Context) {
	l.decision = l.decider.Decide(ctx, l.record, l.cfg.Criteria)
	log.Printf("Decision for %q: %s (confidence %.2f): %s",
		l.record.Name, l.decision.Action, l.decision.Confidence, l.decision.Rationale)
	l.transition(PhaseActing)
}

// runActing either dismisses a leftover dialog or executes the decision.
func (l *Loop) runActing(ctx context.Context) {
	if l.dismissing {
		l.dismissDialog(ctx)
		l.dismissing = false
		l.transition(PhaseCooling)
		return
	}

	result := l.actor.Execute(ctx, l.decision, l.profileCls)
	l.state.ProfilesProcessed++

	if result.Status == types.ExecutionSuccess {
		l.state.ConsecutiveErrors = 0
		l.state.LastAction = l.decision.Action
		switch l.decision.Action {
		case types.ActionLike:
			l.state.Liked++
		case types.ActionPass:
			l.state.Passed++
		case types.ActionComment:
			l.state.Commented++
		}
		log.Printf("Executed %s for %q", l.decision.Action, l.record.Name)
	} else {
		// Irreversible-action safety: never retry the sequence itself.
		log.Printf("Execution of %s failed for %q: %s", l.decision.Action, l.record.Name, result.Reason)
		l.state.ExecutionFailures++
		l.state.Abandoned++
		if err := l.swipeNext(ctx); err != nil {
			log.Printf("Swipe to next profile failed: %v", err)
		}
	}

	if l.sink != nil {
		l.sink.Record(l.record, l.decision, result)
	}
	l.record = nil
	l.profileCls = nil
	l.transition(PhaseCooling)
}

// dismissDialog taps the dialog's dismiss element when one was detected, and
// falls back to the hardware back key.
func (l *Loop) dismissDialog(ctx context.Context) {
	log.Printf("Dismissing leftover %s dialog", l.screen)
	if l.cls != nil {
		if el, ok := l.cls.Element(perception.RoleDismissButton); ok {
			x, y := el.Box.Center()
			if err := l.device.Tap(ctx, x, y); err == nil {
				return
			}
			log.Printf("Dismiss tap failed, falling back to back key")
		}
	}
	if err := l.device.KeyEvent(ctx, "KEYCODE_BACK"); err != nil {
		log.Printf("Back key failed: %v", err)
	}
}

// runCooling enforces the session caps and waits out the inter-profile delay.
// Returns an error only for the error halt.
func (l *Loop) runCooling(ctx context.Context) error {
	if l.state.ConsecutiveErrors >= l.cfg.Session.MaxConsecutiveErrors {
		l.halt(fmt.Sprintf("%d consecutive errors", l.state.ConsecutiveErrors))
		return fmt.Errorf("%w: %d consecutive errors", types.ErrHalted, l.state.ConsecutiveErrors)
	}
	if l.state.ProfilesProcessed >= l.cfg.Session.MaxProfiles {
		l.halt(fmt.Sprintf("profile cap of %d reached", l.cfg.Session.MaxProfiles))
		return nil
	}

	delay := time.Duration(l.cfg.Timing.InterProfileDelaySec) * time.Second
	if l.extendedBackoff {
		delay *= time.Duration(l.state.ConsecutiveErrors + 1)
		l.extendedBackoff = false
	}
	sleepCtx(ctx, delay)

	l.transition(PhaseIdle)
	return nil
}

// scroll drags the profile view up to reveal the next slice of content.
func (l *Loop) scroll(ctx context.Context) error {
	w, h := l.device.ScreenSize()
	return l.device.Swipe(ctx, w/2, h*7/10, w/2, h*3/10, 300)
}

// swipeNext advances past the current profile without acting on it, then
// waits out the swipe settle delay.
func (l *Loop) swipeNext(ctx context.Context) error {
	w, h := l.device.ScreenSize()
	if err := l.device.Swipe(ctx, w*8/10, h/2, w*2/10, h/2, 300); err != nil {
		return err
	}
	sleepCtx(ctx, time.Duration(l.cfg.Timing.SwipeDelayMs)*time.Millisecond)
	return nil
}

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
