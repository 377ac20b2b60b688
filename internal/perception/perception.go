// Package perception wraps the OCR and vision-classification services behind
// a single Provider interface. Everything past this boundary sees plain text
// and structural classifications, never raw model responses.
package perception

import (
	"context"
	"strings"
)

// Screen labels a provider may return. Anything else maps to unknown.
const (
	LabelProfile          = "profile"
	LabelLikeConfirmation = "like_confirmation"
	LabelCommentComposer  = "comment_composer"
	LabelPassConfirmation = "pass_confirmation"
	LabelErrorOverlay     = "error_overlay"
	LabelUnknown          = "unknown"
)

// Element roles the executor can tap.
const (
	RoleLikeButton    = "like_button"
	RolePassButton    = "pass_button"
	RoleCommentButton = "comment_button"
	RoleSendButton    = "send_button"
	RoleTextInput     = "text_input"
	RoleDismissButton = "dismiss_button"
	RolePhoto         = "photo"
)

// Rect is a pixel-space bounding box.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Center returns the midpoint of the box.
func (r Rect) Center() (int, int) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Element is a detected UI element with its role and location.
type Element struct {
	Role string `json:"role"`
	Box  Rect   `json:"box"`
}

// Classification is the structural reading of one screenshot.
type Classification struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Elements   []Element `json:"elements"`
}

// Element returns the first element with the given role.
func (c *Classification) Element(role string) (Element, bool) {
	for _, e := range c.Elements {
		if e.Role == role {
			return e, true
		}
	}
	return Element{}, false
}

// Provider is the perception adapter: OCR plus screen classification.
// Both calls may be remote and metered; callers own retry policy.
type Provider interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
	ClassifyScreen(ctx context.Context, image []byte) (*Classification, error)
}

// Compose returns a Provider that classifies with one backend and extracts
// text with another, e.g. vision classification plus local tesseract OCR.
func Compose(classifier, extractor Provider) Provider {
	return &composite{classifier: classifier, extractor: extractor}
}

type composite struct {
	classifier Provider
	extractor  Provider
}

func (c *composite) ExtractText(ctx context.Context, image []byte) (string, error) {
	return c.extractor.ExtractText(ctx, image)
}

func (c *composite) ClassifyScreen(ctx context.Context, image []byte) (*Classification, error) {
	return c.classifier.ClassifyScreen(ctx, image)
}

// CleanText normalizes OCR output: trims each line, collapses runs of
// whitespace, and drops blank lines.
func CleanText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
