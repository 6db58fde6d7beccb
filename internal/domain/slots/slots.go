// Package slots builds read-only availability views over the pending queue.
package slots

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/okian/pairup/internal/domain/model"
	"github.com/okian/pairup/internal/domain/scoring"
	"github.com/okian/pairup/internal/domain/timezone"
	"github.com/okian/pairup/pkg/metrics"
)

// ErrInvalidQuery is returned for queries without a valid requester role.
var ErrInvalidQuery = errors.New("invalid slot query")

// Store is the read side of the queue store.
type Store interface {
	FindCandidates(ctx context.Context, f model.CandidateFilter) ([]model.QueueEntry, error)
}

// Query describes what a requester wants to see. Role is the requester's
// own role; the view lists the opposite one.
type Query struct {
	Role       model.Role
	Profession string
	Language   string
	// DateLocal limits the view to one calendar day in Zone.
	DateLocal string
	Zone      string
	// Tools are the requester's tools. Nil means none were supplied and no
	// compatibility is computed.
	Tools      []string
	Strictness scoring.Policy
	// ExcludeUserID hides the requester's own entries.
	ExcludeUserID string
}

// Slot is one aggregated slot, with Local set when the query named a zone.
type Slot struct {
	model.SlotAggregate
	Local string
}

// Aggregator is safe for concurrent use and never mutates the store.
type Aggregator struct {
	store  Store
	scorer scoring.Scorer
	tz     *timezone.Normalizer
}

// NewAggregator constructs an Aggregator.
func NewAggregator(store Store, scorer scoring.Scorer, tz *timezone.Normalizer) *Aggregator {
	return &Aggregator{store: store, scorer: scorer, tz: tz}
}

// List groups pending opposite-role entries by slot, ascending by time.
// With requester tools each slot carries its best compatibility, and a
// strictness policy drops entries that fail it from the counts.
func (a *Aggregator) List(ctx context.Context, q Query) ([]Slot, error) { //nolint:gocritic // query is a value
	if !q.Role.Valid() {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidQuery, q.Role)
	}
	metrics.RecordSlotQuery()

	f := model.CandidateFilter{
		Role:          q.Role.Opposite(),
		Profession:    q.Profession,
		Language:      q.Language,
		ExcludeUserID: q.ExcludeUserID,
	}
	if q.DateLocal != "" {
		from, to, err := a.tz.DayRange(q.DateLocal, q.Zone)
		if err != nil {
			return nil, err
		}
		f.From, f.To = from, to
	} else if q.Zone != "" {
		if _, err := a.tz.Location(q.Zone); err != nil {
			return nil, err
		}
	}

	entries, err := a.store.FindCandidates(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	withTools := q.Tools != nil
	requester := model.NormalizeTools(q.Tools)
	bySlot := make(map[int64]*Slot)
	for i := range entries {
		e := &entries[i]
		var c scoring.Compatibility
		if withTools {
			ok := true
			if q.Strictness == "" {
				c = a.scorer.Score(requester, e.Tools)
			} else {
				c, ok = a.scorer.Evaluate(requester, e.Tools, q.Strictness)
			}
			if !ok {
				continue
			}
		}
		key := e.SlotUTC.Unix()
		s, ok := bySlot[key]
		if !ok {
			s = &Slot{SlotAggregate: model.SlotAggregate{Time: e.SlotUTC}}
			bySlot[key] = s
		}
		s.Count++
		if withTools && better(c, s.SlotAggregate) {
			s.MatchedTools = c.MatchedTools
			s.MatchScore = c.Score
			s.Overlap = c.Overlap
		}
	}

	out := make([]Slot, 0, len(bySlot))
	for _, s := range bySlot {
		if q.Zone != "" {
			local, err := a.tz.FormatLocal(s.Time, q.Zone)
			if err != nil {
				return nil, err
			}
			s.Local = local
		}
		out = append(out, *s)
	}
	slices.SortFunc(out, func(x, y Slot) int { return x.Time.Compare(y.Time) })
	return out, nil
}

func better(c scoring.Compatibility, cur model.SlotAggregate) bool { //nolint:gocritic // small structs
	if d := cmp.Compare(c.Score, cur.MatchScore); d != 0 {
		return d > 0
	}
	return c.Overlap > cur.Overlap
}
