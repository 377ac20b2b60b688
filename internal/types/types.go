package types

import (
	"errors"
	"time"
)

// ScreenState is the classified UI context of a single capture.
type ScreenState int

const (
	ScreenUnknown ScreenState = iota
	ScreenProfile
	ScreenLikeConfirmation
	ScreenCommentComposer
	ScreenPassConfirmation
	ScreenErrorOverlay
)

func (s ScreenState) String() string {
	switch s {
	case ScreenProfile:
		return "profile"
	case ScreenLikeConfirmation:
		return "like_confirmation"
	case ScreenCommentComposer:
		return "comment_composer"
	case ScreenPassConfirmation:
		return "pass_confirmation"
	case ScreenErrorOverlay:
		return "error_overlay"
	default:
		return "unknown"
	}
}

// IsDialog reports whether the state is a leftover dialog that must be
// dismissed before the normal profile flow can resume.
func (s ScreenState) IsDialog() bool {
	switch s {
	case ScreenLikeConfirmation, ScreenPassConfirmation, ScreenCommentComposer, ScreenErrorOverlay:
		return true
	default:
		return false
	}
}

// Action is what we do with a profile.
type Action string

const (
	ActionLike    Action = "like"
	ActionPass    Action = "pass"
	ActionComment Action = "comment"
)

// Valid reports whether the action is one the executor knows how to perform.
func (a Action) Valid() bool {
	return a == ActionLike || a == ActionPass || a == ActionComment
}

// Capture is one screenshot taken from the device.
type Capture struct {
	ID      string    `json:"id"`
	Serial  string    `json:"serial"`
	Image   []byte    `json:"-"`
	TakenAt time.Time `json:"taken_at"`
}

// Decision is the final verdict for one profile.
type Decision struct {
	ID         string  `json:"id"`
	Action     Action  `json:"action"`
	Comment    string  `json:"comment,omitempty"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// ExecutionStatus is the outcome of executing a decision on the device.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
)

// ExecutionResult reports whether the tap sequence for a decision landed.
type ExecutionResult struct {
	Status ExecutionStatus `json:"status"`
	Reason string          `json:"reason,omitempty"`
}

// Error kinds for the failure taxonomy. Wrapped errors are checked with
// errors.Is at the loop level to pick the right recovery path.
var (
	ErrCapture      = errors.New("capture failed")
	ErrAdapter      = errors.New("adapter failed")
	ErrAmbiguous    = errors.New("classification ambiguous")
	ErrDrift        = errors.New("extraction aborted: screen drifted")
	ErrVerification = errors.New("execution verification failed")
	ErrHalted       = errors.New("session halted")
)
