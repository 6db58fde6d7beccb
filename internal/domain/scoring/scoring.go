// Package scoring computes tool-overlap compatibility between queue entries
// and classifies it against a strictness policy.
package scoring

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Default scoring configuration constants.
const (
	defaultPartialMinimum = 2
	defaultToolWeight     = 1.0
)

// Policy is the strictness a requester demands of tool overlap.
type Policy string

// Strictness policies.
const (
	// PolicyExact requires full alignment, see ExactMode.
	PolicyExact Policy = "exact"
	// PolicyPartial requires a configurable minimum overlap.
	PolicyPartial Policy = "partial"
	// PolicyAny requires at least one shared tool.
	PolicyAny Policy = "any"
	// PolicyIgnore does not look at tools at all. It is the only policy a
	// participant without tools can pass.
	PolicyIgnore Policy = "ignore"
)

// ParsePolicy converts user input into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyExact, PolicyPartial, PolicyAny, PolicyIgnore:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// ExactMode selects how PolicyExact is read.
type ExactMode string

// Exact modes.
const (
	// ExactSubset passes when every tool of the smaller set is in the larger one.
	ExactSubset ExactMode = "subset"
	// ExactEqual passes only when both sets are identical.
	ExactEqual ExactMode = "equal"
)

// ParseExactMode converts configuration input into an ExactMode.
func ParseExactMode(s string) (ExactMode, error) {
	switch m := ExactMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ExactSubset, ExactEqual:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownExactMode, s)
	}
}

// Option applies a configuration option to the ToolScorer.
type Option func(*ToolScorer)

// WithPartialMinimum sets the overlap PolicyPartial needs.
func WithPartialMinimum(n int) Option {
	return func(s *ToolScorer) {
		if n > 0 {
			s.partialMinimum = n
		}
	}
}

// WithExactMode sets how PolicyExact is read.
func WithExactMode(m ExactMode) Option {
	return func(s *ToolScorer) {
		if m == ExactSubset || m == ExactEqual {
			s.exactMode = m
		}
	}
}

// WithToolWeightsFromConfig sets per-tool ranking weights from a configuration map.
// Weights only change Score; policies always count tools.
func WithToolWeightsFromConfig(weights map[string]float64, defaultWeight float64) Option {
	return func(s *ToolScorer) {
		s.toolWeights = make(map[string]float64, len(weights))
		for tool, weight := range weights {
			if weight > 0 {
				s.toolWeights[strings.ToLower(strings.TrimSpace(tool))] = weight
			}
		}
		if defaultWeight > 0 {
			s.defaultWeight = defaultWeight
		}
	}
}

// Compatibility is the derived overlap between two tool sets.
type Compatibility struct {
	MatchedTools []string
	Overlap      int
	Score        float64
}

// Scorer computes compatibility and checks it against a policy.
type Scorer interface {
	// Score computes the overlap of two normalized tool sets.
	Score(a, b []string) Compatibility
	// Passes reports whether c, computed from a and b, satisfies policy.
	Passes(c Compatibility, a, b []string, policy Policy) bool
	// Evaluate is Score followed by Passes.
	Evaluate(a, b []string, policy Policy) (Compatibility, bool)
}

// ToolScorer implements Scorer with set intersection and optional weights.
type ToolScorer struct {
	partialMinimum int
	exactMode      ExactMode
	toolWeights    map[string]float64
	defaultWeight  float64
}

// NewToolScorer creates a scorer with unweighted overlap, subset-exact
// semantics and a partial minimum of two.
func NewToolScorer(opts ...Option) *ToolScorer {
	s := &ToolScorer{
		partialMinimum: defaultPartialMinimum,
		exactMode:      ExactSubset,
		toolWeights:    make(map[string]float64),
		defaultWeight:  defaultToolWeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PartialMinimum returns the overlap PolicyPartial needs.
func (s *ToolScorer) PartialMinimum() int { return s.partialMinimum }

// Score computes the intersection of a and b. Both must be normalized
// (lower-case, de-duplicated, sorted).
func (s *ToolScorer) Score(a, b []string) Compatibility {
	var c Compatibility
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch strings.Compare(a[i], b[j]) {
		case 0:
			c.MatchedTools = append(c.MatchedTools, a[i])
			c.Score += s.weight(a[i])
			i++
			j++
		case -1:
			i++
		default:
			j++
		}
	}
	c.Overlap = len(c.MatchedTools)
	return c
}

// Passes reports whether c satisfies policy.
func (s *ToolScorer) Passes(c Compatibility, a, b []string, policy Policy) bool {
	if policy == PolicyIgnore {
		return true
	}
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	switch policy {
	case PolicyExact:
		if s.exactMode == ExactEqual {
			return c.Overlap == len(a) && c.Overlap == len(b)
		}
		return c.Overlap == min(len(a), len(b))
	case PolicyPartial:
		return c.Overlap >= s.partialMinimum
	case PolicyAny:
		return c.Overlap >= 1
	case PolicyIgnore:
		return true
	default:
		return false
	}
}

// Evaluate scores a against b and checks policy in one call.
func (s *ToolScorer) Evaluate(a, b []string, policy Policy) (Compatibility, bool) {
	c := s.Score(a, b)
	return c, s.Passes(c, a, b, policy)
}

func (s *ToolScorer) weight(tool string) float64 {
	if w, ok := s.toolWeights[tool]; ok {
		return w
	}
	return s.defaultWeight
}

// Ranked is a candidate entry with its compatibility against a requester.
type Ranked struct {
	EntryID   string
	CreatedAt time.Time
	Seq       uint64
	Compatibility
}

// Compare orders better candidates first: higher score, then higher overlap,
// then earlier createdAt, then earlier insertion.
func Compare(a, b Ranked) int { //nolint:gocritic // value arguments for slices.SortFunc
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Overlap, a.Overlap); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.Seq, b.Seq)
}

// Rank sorts candidates best first.
func Rank(candidates []Ranked) {
	slices.SortFunc(candidates, Compare)
}
