package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbot/internal/perception"
	"matchbot/internal/types"
)

type fakeDevice struct {
	width, height int
	taps          []string
	typed         []string
	captureErr    error
}

func (d *fakeDevice) ScreenSize() (int, int) { return d.width, d.height }

func (d *fakeDevice) Screencap(ctx context.Context) ([]byte, error) {
	if d.captureErr != nil {
		return nil, d.captureErr
	}
	return []byte("png"), nil
}

func (d *fakeDevice) Tap(ctx context.Context, x, y int) error {
	d.taps = append(d.taps, fmt.Sprintf("%d,%d", x, y))
	return nil
}

func (d *fakeDevice) TypeText(ctx context.Context, text string) error {
	d.typed = append(d.typed, text)
	return nil
}

// fakeScreens returns the scripted observation for each Classify call, then
// repeats the last one.
type fakeScreens struct {
	script []observation
	calls  int
}

type observation struct {
	state types.ScreenState
	cls   *perception.Classification
}

func (s *fakeScreens) Classify(ctx context.Context, capture *types.Capture) (types.ScreenState, *perception.Classification) {
	i := s.calls
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	s.calls++
	return s.script[i].state, s.script[i].cls
}

func profileCls(elements ...perception.Element) *perception.Classification {
	return &perception.Classification{Label: perception.LabelProfile, Confidence: 0.9, Elements: elements}
}

func TestLikeTapsDetectedElement(t *testing.T) {
	dev := &fakeDevice{width: 1080, height: 1920}
	screens := &fakeScreens{script: []observation{{state: types.ScreenLikeConfirmation}}}
	ex := New(dev, screens, 2, 0, 0)

	cls := profileCls(perception.Element{
		Role: perception.RoleLikeButton,
		Box:  perception.Rect{X: 800, Y: 1700, W: 120, H: 120},
	})
	result := ex.Execute(context.Background(), types.Decision{ID: "d1", Action: types.ActionLike}, cls)

	assert.Equal(t, types.ExecutionSuccess, result.Status)
	require.Len(t, dev.taps, 1)
	assert.Equal(t, "860,1760", dev.taps[0])
}

func TestLikeFallsBackToFractionalPosition(t *testing.T) {
	dev := &fakeDevice{width: 1000, height: 2000}
	screens := &fakeScreens{script: []observation{{state: types.ScreenProfile}}}
	ex := New(dev, screens, 2, 0, 0)

	result := ex.Execute(context.Background(), types.Decision{ID: "d1", Action: types.ActionLike}, profileCls())

	assert.Equal(t, types.ExecutionSuccess, result.Status)
	require.Len(t, dev.taps, 1)
	assert.Equal(t, "800,1800", dev.taps[0])
}

func TestPassFallbackPosition(t *testing.T) {
	dev := &fakeDevice{width: 1000, height: 2000}
	screens := &fakeScreens{script: []observation{{state: types.ScreenProfile}}}
	ex := New(dev, screens, 2, 0, 0)

	result := ex.Execute(context.Background(), types.Decision{ID: "d1", Action: types.ActionPass}, nil)

	assert.Equal(t, types.ExecutionSuccess, result.Status)
	require.Len(t, dev.taps, 1)
	assert.Equal(t, "200,1800", dev.taps[0])
}

func TestVerificationRetriesThenFails(t *testing.T) {
	dev := &fakeDevice{width: 1080, height: 1920}
	// The screen never leaves unknown, so every verification attempt misses.
	screens := &fakeScreens{script: []observation{{state: types.ScreenUnknown}}}
	ex := New(dev, screens, 2, 0, 0)

	result := ex.Execute(context.Background(), types.Decision{ID: "d1", Action: types.ActionLike}, nil)

	assert.Equal(t, types.ExecutionFailed, result.Status)
	assert.Equal(t, 3, screens.calls, "initial attempt plus two retries")
}

func TestCommentFlow(t *testing.T) {
	dev := &fakeDevice{width: 1000, height: 2000}
	composer := &perception.Classification{
		Label:      perception.LabelCommentComposer,
		Confidence: 0.95,
		Elements: []perception.Element{
			{Role: perception.RoleTextInput, Box: perception.Rect{X: 100, Y: 1000, W: 800, H: 100}},
			{Role: perception.RoleSendButton, Box: perception.Rect{X: 850, Y: 1150, W: 100, H: 80}},
		},
	}
	screens := &fakeScreens{script: []observation{
		{state: types.ScreenCommentComposer, cls: composer},
		{state: types.ScreenLikeConfirmation},
	}}
	ex := New(dev, screens, 2, 0, 0)

	decision := types.Decision{ID: "d1", Action: types.ActionComment, Comment: "Love the hiking photos!"}
	result := ex.Execute(context.Background(), decision, profileCls())

	assert.Equal(t, types.ExecutionSuccess, result.Status)
	// comment button (fallback), text input, send button
	require.Len(t, dev.taps, 3)
	assert.Equal(t, "500,1800", dev.taps[0])
	assert.Equal(t, "500,1050", dev.taps[1])
	assert.Equal(t, "900,1190", dev.taps[2])
	assert.Equal(t, []string{"Love the hiking photos!"}, dev.typed)
}

func TestCommentAbortsWhenComposerNeverOpens(t *testing.T) {
	dev := &fakeDevice{width: 1000, height: 2000}
	screens := &fakeScreens{script: []observation{{state: types.ScreenProfile}}}
	ex := New(dev, screens, 1, 0, 0)

	decision := types.Decision{ID: "d1", Action: types.ActionComment, Comment: "hi"}
	result := ex.Execute(context.Background(), decision, nil)

	assert.Equal(t, types.ExecutionFailed, result.Status)
	assert.Empty(t, dev.typed, "must not type into an unopened composer")
	require.Len(t, dev.taps, 1, "only the comment button tap")
}

func TestSuccessfulDecisionNeverResent(t *testing.T) {
	dev := &fakeDevice{width: 1080, height: 1920}
	screens := &fakeScreens{script: []observation{{state: types.ScreenLikeConfirmation}}}
	ex := New(dev, screens, 2, 0, 0)

	decision := types.Decision{ID: "d1", Action: types.ActionLike}
	first := ex.Execute(context.Background(), decision, nil)
	require.Equal(t, types.ExecutionSuccess, first.Status)
	tapsAfterFirst := len(dev.taps)

	second := ex.Execute(context.Background(), decision, nil)
	assert.Equal(t, types.ExecutionSuccess, second.Status)
	assert.Equal(t, tapsAfterFirst, len(dev.taps), "duplicate execution must not touch the device")
}

func TestFailedDecisionMayRetry(t *testing.T) {
	dev := &fakeDevice{width: 1080, height: 1920}
	screens := &fakeScreens{script: []observation{
		{state: types.ScreenUnknown},
		{state: types.ScreenUnknown},
		{state: types.ScreenLikeConfirmation},
	}}
	ex := New(dev, screens, 1, 0, 0)

	decision := types.Decision{ID: "d1", Action: types.ActionLike}
	first := ex.Execute(context.Background(), decision, nil)
	require.Equal(t, types.ExecutionFailed, first.Status)

	second := ex.Execute(context.Background(), decision, nil)
	assert.Equal(t, types.ExecutionSuccess, second.Status)
}

func TestUnknownActionFails(t *testing.T) {
	dev := &fakeDevice{width: 1080, height: 1920}
	ex := New(dev, &fakeScreens{script: []observation{{state: types.ScreenProfile}}}, 1, 0, 0)

	result := ex.Execute(context.Background(), types.Decision{ID: "d1", Action: "wave"}, nil)
	assert.Equal(t, types.ExecutionFailed, result.Status)
	assert.Empty(t, dev.taps)
}
