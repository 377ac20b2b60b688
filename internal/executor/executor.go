// Package executor turns decisions into tap sequences on the device and
// verifies that each sequence actually landed by re-capturing the screen.
package executor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"matchbot/internal/perception"
	"matchbot/internal/types"
)

// Device is the surface the executor drives.
type Device interface {
	ScreenSize() (width, height int)
	Screencap(ctx context.Context) ([]byte, error)
	Tap(ctx context.Context, x, y int) error
	TypeText(ctx context.Context, text string) error
}

// Screens classifies captures for post-action verification.
type Screens interface {
	Classify(ctx context.Context, capture *types.Capture) (types.ScreenState, *perception.Classification)
}

// fallbackFractions are screen-relative tap positions used when the
// classification did not locate an element. They match the app's stable
// button layout: like bottom-right, pass bottom-left, composer controls
// center-bottom.
var fallbackFractions = map[string][2]float64{
	perception.RoleLikeButton:    {0.8, 0.9},
	perception.RolePassButton:    {0.2, 0.9},
	perception.RoleCommentButton: {0.5, 0.9},
	perception.RoleTextInput:     {0.5, 0.55},
	perception.RoleSendButton:    {0.85, 0.9},
	perception.RoleDismissButton: {0.5, 0.9},
}

// Executor performs decisions on the device. It remembers which decision IDs
// already succeeded so a retried loop iteration can never double-send.
type Executor struct {
	device        Device
	screens       Screens
	verifyRetries int
	tapDelay      time.Duration
	textDelay     time.Duration

	done map[string]types.ExecutionResult
}

// New creates an executor. verifyRetries is how many extra captures to take
// when post-action verification sees an unexpected screen; tapDelay is the
// settle time after each tap before the next interaction.
func New(device Device, screens Screens, verifyRetries int, tapDelay, textDelay time.Duration) *Executor {
	return &Executor{
		device:        device,
		screens:       screens,
		verifyRetries: verifyRetries,
		tapDelay:      tapDelay,
		textDelay:     textDelay,
		done:          make(map[string]types.ExecutionResult),
	}
}

// Execute performs the decision's tap sequence. cls is the classification of
// the profile screen the decision was made on; its element boxes take
// precedence over the fallback positions. A decision ID that already
// succeeded returns its recorded result without touching the device.
func (e *Executor) Execute(ctx context.Context, decision types.Decision, cls *perception.Classification) types.ExecutionResult {
	if prior, ok := e.done[decision.ID]; ok && prior.Status == types.ExecutionSuccess {
		log.Printf("Decision %s already executed, skipping", decision.ID)
		return prior
	}

	var result types.ExecutionResult
	switch decision.Action {
	case types.ActionLike:
		result = e.executeLike(ctx, cls)
	case types.ActionPass:
		result = e.executePass(ctx, cls)
	case types.ActionComment:
		result = e.executeComment(ctx, decision.Comment, cls)
	default:
		result = types.ExecutionResult{
			Status: types.ExecutionFailed,
			Reason: fmt.Sprintf("unknown action %q", decision.Action),
		}
	}

	e.done[decision.ID] = result
	return result
}

func (e *Executor) executeLike(ctx context.Context, cls *perception.Classification) types.ExecutionResult {
	if err := e.tapRole(ctx, perception.RoleLikeButton, cls); err != nil {
		return failure("like tap failed: %v", err)
	}
	// Success is either the app's confirmation overlay or the next profile.
	return e.verify(ctx, "like", types.ScreenLikeConfirmation, types.ScreenProfile)
}

func (e *Executor) executePass(ctx context.Context, cls *perception.Classification) types.ExecutionResult {
	if err := e.tapRole(ctx, perception.RolePassButton, cls); err != nil {
		return failure("pass tap failed: %v", err)
	}
	return e.verify(ctx, "pass", types.ScreenPassConfirmation, types.ScreenProfile)
}

func (e *Executor) executeComment(ctx context.Context, comment string, cls *perception.Classification) types.ExecutionResult {
	if err := e.tapRole(ctx, perception.RoleCommentButton, cls); err != nil {
		return failure("comment tap failed: %v", err)
	}

	// The composer must be open before we type anything.
	composer, result := e.awaitState(ctx, "comment composer", types.ScreenCommentComposer)
	if result.Status != types.ExecutionSuccess {
		return result
	}

	if err := e.tapRole(ctx, perception.RoleTextInput, composer); err != nil {
		return failure("text input tap failed: %v", err)
	}
	if !sleepCtx(ctx, e.textDelay) {
		return failure("cancelled before typing")
	}
	if err := e.device.TypeText(ctx, comment); err != nil {
		return failure("typing comment failed: %v", err)
	}
	if !sleepCtx(ctx, e.textDelay) {
		return failure("cancelled before send")
	}
	if err := e.tapRole(ctx, perception.RoleSendButton, composer); err != nil {
		return failure("send tap failed: %v", err)
	}

	// Leaving the composer means the send landed.
	return e.verify(ctx, "comment", types.ScreenProfile, types.ScreenLikeConfirmation)
}

// tapRole taps the element's detected box center, or its fallback position
// when the classification did not locate it.
func (e *Executor) tapRole(ctx context.Context, role string, cls *perception.Classification) error {
	x, y := e.position(role, cls)
	if err := e.device.Tap(ctx, x, y); err != nil {
		return err
	}
	if !sleepCtx(ctx, e.tapDelay) {
		return ctx.Err()
	}
	return nil
}

func (e *Executor) position(role string, cls *perception.Classification) (int, int) {
	if cls != nil {
		if el, ok := cls.Element(role); ok {
			return el.Box.Center()
		}
	}

	w, h := e.device.ScreenSize()
	f, ok := fallbackFractions[role]
	if !ok {
		return w / 2, h / 2
	}
	log.Printf("No detected %s element, using fallback position", role)
	return int(f[0] * float64(w)), int(f[1] * float64(h))
}

// verify re-captures and classifies until one of the expected states appears,
// retrying up to verifyRetries times. Unknown classifications count as misses.
func (e *Executor) verify(ctx context.Context, action string, expected ...types.ScreenState) types.ExecutionResult {
	state, _, err := e.observe(ctx, expected...)
	if err != nil {
		return failure("%s verification failed: %v", action, err)
	}
	log.Printf("Verified %s: screen is %s", action, state)
	return types.ExecutionResult{Status: types.ExecutionSuccess}
}

// awaitState is verify for mid-sequence checkpoints that also need the
// classification, e.g. the composer's element boxes.
func (e *Executor) awaitState(ctx context.Context, what string, expected types.ScreenState) (*perception.Classification, types.ExecutionResult) {
	state, cls, err := e.observe(ctx, expected)
	if err != nil {
		return nil, failure("%s did not appear: %v", what, err)
	}
	log.Printf("Reached %s (%s)", what, state)
	return cls, types.ExecutionResult{Status: types.ExecutionSuccess}
}

func (e *Executor) observe(ctx context.Context, expected ...types.ScreenState) (types.ScreenState, *perception.Classification, error) {
	var last types.ScreenState
	for attempt := 0; attempt <= e.verifyRetries; attempt++ {
		if attempt > 0 {
			if !sleepCtx(ctx, e.tapDelay) {
				return last, nil, ctx.Err()
			}
		}

		img, err := e.device.Screencap(ctx)
		if err != nil {
			log.Printf("Verification capture failed (attempt %d/%d): %v", attempt+1, e.verifyRetries+1, err)
			continue
		}
		capture := &types.Capture{ID: uuid.NewString(), Image: img, TakenAt: time.Now()}

		state, cls := e.screens.Classify(ctx, capture)
		last = state
		for _, want := range expected {
			if state == want {
				return state, cls, nil
			}
		}
		log.Printf("Verification saw %s, wanted one of %v (attempt %d/%d)", state, expected, attempt+1, e.verifyRetries+1)
	}

	return last, nil, fmt.Errorf("%w: screen stayed %s", types.ErrVerification, last)
}

func failure(format string, args ...any) types.ExecutionResult {
	return types.ExecutionResult{
		Status: types.ExecutionFailed,
		Reason: fmt.Sprintf(format, args...),
	}
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
