// Package classifier turns perception output into a ScreenState. It is the
// only place that decides what screen the app is on; everything downstream
// trusts its verdict or treats Unknown as "do nothing".
package classifier

import (
	"context"
	"log"

	"matchbot/internal/perception"
	"matchbot/internal/types"
)

var labelStates = map[string]types.ScreenState{
	perception.LabelProfile:          types.ScreenProfile,
	perception.LabelLikeConfirmation: types.ScreenLikeConfirmation,
	perception.LabelCommentComposer:  types.ScreenCommentComposer,
	perception.LabelPassConfirmation: types.ScreenPassConfirmation,
	perception.LabelErrorOverlay:     types.ScreenErrorOverlay,
}

// Classifier maps captures to screen states via the perception adapter.
type Classifier struct {
	provider  perception.Provider
	threshold float64
}

// New creates a classifier. Classifications below threshold confidence are
// reported as Unknown.
func New(provider perception.Provider, threshold float64) *Classifier {
	return &Classifier{provider: provider, threshold: threshold}
}

// Classify determines the screen state of one capture. Adapter failures, low
// confidence, and unrecognized labels all map to ScreenUnknown; errors never
// escape this boundary. The returned classification carries element boxes and
// is non-nil only for a confidently recognized screen.
func (c *Classifier) Classify(ctx context.Context, capture *types.Capture) (types.ScreenState, *perception.Classification) {
	cls, err := c.provider.ClassifyScreen(ctx, capture.Image)
	if err != nil {
		log.Printf("Classification of capture %s failed: %v", capture.ID, err)
		return types.ScreenUnknown, nil
	}

	if cls.Confidence < c.threshold {
		log.Printf("Capture %s: %v: %s at %.2f (threshold %.2f)",
			capture.ID, types.ErrAmbiguous, cls.Label, cls.Confidence, c.threshold)
		return types.ScreenUnknown, nil
	}

	state, ok := labelStates[cls.Label]
	if !ok {
		log.Printf("Classification of capture %s returned unrecognized label %q", capture.ID, cls.Label)
		return types.ScreenUnknown, nil
	}

	return state, cls
}
