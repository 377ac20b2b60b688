package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"matchbot/internal/config"
	"matchbot/internal/types"
)

// countingStrategy scripts Judge results and counts invocations.
type countingStrategy struct {
	calls    int
	decision types.Decision
	errs     []error // error per call, nil past the end
}

func (s *countingStrategy) Judge(ctx context.Context, rec *types.ProfileRecord, criteria config.Criteria) (types.Decision, error) {
	s.calls++
	if s.calls <= len(s.errs) && s.errs[s.calls-1] != nil {
		return types.Decision{}, s.errs[s.calls-1]
	}
	return s.decision, nil
}

func record(lines ...string) *types.ProfileRecord {
	rec := types.NewProfileRecord()
	for _, l := range lines {
		rec.AddFragment(l)
	}
	return rec
}

func criteria() config.Criteria {
	return config.Criteria{
		MinAge:             21,
		MaxAge:             35,
		PreferredInterests: []string{"technology", "travel"},
		DealBreakers:       []string{"smoking", "drugs"},
	}
}

func TestDealBreakerShortCircuits(t *testing.T) {
	s := &countingStrategy{}
	e := New(s, 0)

	rec := record("Emma, 28", "Occasional SMOKING on weekends")
	d := e.Decide(context.Background(), rec, criteria())

	assert.Equal(t, types.ActionPass, d.Action)
	assert.Equal(t, 1.0, d.Confidence)
	assert.Equal(t, 0, s.calls, "deal-breaker rejection must not invoke the strategy")
}

func TestAgeOutsideBounds(t *testing.T) {
	tests := []struct {
		name string
		age  int
		pass bool
	}{
		{"below min", 19, true},
		{"above max", 40, true},
		{"at min", 21, false},
		{"at max", 35, false},
		{"unknown age does not reject", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &countingStrategy{decision: types.Decision{Action: types.ActionLike, Confidence: 0.8}}
			e := New(s, 0)

			rec := record("Emma", "Loves travel")
			rec.Age = tt.age
			d := e.Decide(context.Background(), rec, criteria())

			if tt.pass {
				assert.Equal(t, types.ActionPass, d.Action)
				assert.Equal(t, 1.0, d.Confidence)
				assert.Equal(t, 0, s.calls)
			} else {
				assert.Equal(t, types.ActionLike, d.Action)
				assert.Equal(t, 1, s.calls)
			}
		})
	}
}

func TestAdapterFailureRetriesOnceThenPasses(t *testing.T) {
	s := &countingStrategy{errs: []error{errors.New("timeout"), errors.New("timeout")}}
	e := New(s, 0)

	d := e.Decide(context.Background(), record("Emma, 28"), criteria())

	assert.Equal(t, types.ActionPass, d.Action)
	assert.Equal(t, 2, s.calls, "exactly one retry before the pass fallback")
}

func TestAdapterRecoversOnRetry(t *testing.T) {
	s := &countingStrategy{
		errs:     []error{errors.New("timeout")},
		decision: types.Decision{Action: types.ActionLike, Confidence: 0.9},
	}
	e := New(s, 0)

	d := e.Decide(context.Background(), record("Emma, 28"), criteria())
	assert.Equal(t, types.ActionLike, d.Action)
	assert.Equal(t, 2, s.calls)
}

func TestInvalidActionBecomesPass(t *testing.T) {
	s := &countingStrategy{decision: types.Decision{Action: "superlike", Confidence: 0.9}}
	e := New(s, 0)

	d := e.Decide(context.Background(), record("Emma, 28"), criteria())
	assert.Equal(t, types.ActionPass, d.Action)
}

func TestEmptyCommentDowngradesToLike(t *testing.T) {
	s := &countingStrategy{decision: types.Decision{Action: types.ActionComment, Comment: "   ", Confidence: 0.7}}
	e := New(s, 0)

	d := e.Decide(context.Background(), record("Emma, 28"), criteria())
	assert.Equal(t, types.ActionLike, d.Action)
	assert.Empty(t, d.Comment)
}

func TestCommentWithTextSurvives(t *testing.T) {
	s := &countingStrategy{decision: types.Decision{
		Action:     types.ActionComment,
		Comment:    "Your travel photos look amazing!",
		Confidence: 0.8,
	}}
	e := New(s, 0)

	d := e.Decide(context.Background(), record("Emma, 28", "Loves travel"), criteria())
	assert.Equal(t, types.ActionComment, d.Action)
	assert.Equal(t, "Your travel photos look amazing!", d.Comment)
}

func TestDecisionsGetUniqueIDs(t *testing.T) {
	s := &countingStrategy{decision: types.Decision{Action: types.ActionLike, Confidence: 0.8}}
	e := New(s, 0)

	d1 := e.Decide(context.Background(), record("Emma, 28"), criteria())
	d2 := e.Decide(context.Background(), record("Olivia, 30"), criteria())
	assert.NotEmpty(t, d1.ID)
	assert.NotEqual(t, d1.ID, d2.ID)
}

func TestConfidenceClamped(t *testing.T) {
	s := &countingStrategy{decision: types.Decision{Action: types.ActionLike, Confidence: 1.7}}
	e := New(s, 0)

	d := e.Decide(context.Background(), record("Emma, 28"), criteria())
	assert.Equal(t, 1.0, d.Confidence)
}
