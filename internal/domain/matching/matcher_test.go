package matching_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/pairup/internal/adapters/repository"
	"github.com/okian/pairup/internal/domain/matching"
	"github.com/okian/pairup/internal/domain/model"
	"github.com/okian/pairup/internal/domain/scoring"
	"github.com/okian/pairup/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

var slot = time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)

type fixture struct {
	ctx      context.Context
	queue    *repository.MemoryQueueStore
	sessions *repository.MemorySessionStore
	creator  *session.Creator
	rooms    atomic.Int64
	failRoom atomic.Bool
}

func newFixture() *fixture {
	f := &fixture{ctx: context.Background()}
	ctx, cancel := context.WithCancel(f.ctx)
	var n atomic.Int64
	f.queue = repository.NewMemoryQueueStore(ctx, repository.WithClock(func() time.Time {
		return slot.Add(-24 * time.Hour).Add(time.Duration(n.Add(1)) * time.Second)
	}))
	f.sessions = repository.NewMemorySessionStore()
	f.creator = session.NewCreator(f.sessions, f.queue, session.ProvisionerFunc(func(_ context.Context, c model.Claim) (string, error) {
		if f.failRoom.Load() {
			return "", errors.New("provider down")
		}
		f.rooms.Add(1)
		return "room-" + c.ID, nil
	}))
	Reset(func() {
		cancel()
		_ = f.queue.Close()
	})
	return f
}

func (f *fixture) matcher(store matching.Store, opts ...matching.Option) *matching.Matcher {
	if store == nil {
		store = f.queue
	}
	return matching.New(store, f.creator, f.sessions, opts...)
}

func (f *fixture) join(user string, role model.Role, tools ...string) model.QueueEntry {
	e, err := f.queue.Insert(f.ctx, model.QueueEntry{
		UserID: user, Role: role, Profession: "frontend", Language: "ru", SlotUTC: slot, Tools: tools,
	})
	So(err, ShouldBeNil)
	return e
}

func (f *fixture) status(id string) model.Status {
	e, err := f.queue.Get(f.ctx, id)
	So(err, ShouldBeNil)
	return e.Status
}

func TestMatcher_Scenarios(t *testing.T) {
	Convey("Scenario A: one candidate and one compatible interviewer", t, func() {
		f := newFixture()
		cand := f.join("cand", model.RoleCandidate, "react")
		intv := f.join("int", model.RoleInterviewer, "react", "vue")

		for _, side := range []model.QueueEntry{cand, intv} {
			Convey(fmt.Sprintf("When the %s asks for a match", side.Role), func() {
				res, err := f.matcher(nil).Match(f.ctx, side.ID, scoring.PolicyAny)

				Convey("Then a session pairs exactly these two and both entries are matched", func() {
					So(err, ShouldBeNil)
					So(res.Outcome, ShouldEqual, matching.OutcomeMatched)
					So(res.Session.Participants.CandidateEntryID, ShouldEqual, cand.ID)
					So(res.Session.Participants.InterviewerEntryID, ShouldEqual, intv.ID)
					So(res.Session.RoomRef, ShouldNotBeEmpty)
					So(res.Session.MatchedTools, ShouldResemble, []string{"react"})
					So(f.status(cand.ID), ShouldEqual, model.StatusMatched)
					So(f.status(intv.ID), ShouldEqual, model.StatusMatched)
				})

				Convey("And asking again is refused as not eligible", func() {
					_, err := f.matcher(nil).Match(f.ctx, cand.ID, scoring.PolicyAny)
					So(errors.Is(err, matching.ErrEntryNotEligible), ShouldBeTrue)
				})
			})
		}
	})

	Convey("Scenario B: two candidates, one interviewer", t, func() {
		f := newFixture()
		first := f.join("c1", model.RoleCandidate, "go")
		second := f.join("c2", model.RoleCandidate, "go")
		intv := f.join("int", model.RoleInterviewer, "go")
		m := f.matcher(nil)

		Convey("When the interviewer matches and then the late candidate asks", func() {
			res, err := m.Match(f.ctx, intv.ID, "")
			So(err, ShouldBeNil)
			late, lateErr := m.Match(f.ctx, second.ID, "")

			Convey("Then the earlier candidate wins and the other keeps waiting", func() {
				So(res.Outcome, ShouldEqual, matching.OutcomeMatched)
				So(res.Session.Participants.CandidateEntryID, ShouldEqual, first.ID)
				So(lateErr, ShouldBeNil)
				So(late.Outcome, ShouldEqual, matching.OutcomeNoMatch)
				So(f.status(second.ID), ShouldEqual, model.StatusPending)
			})
		})
	})

	Convey("Scenario C: the best candidate withdraws right before the claim", t, func() {
		f := newFixture()
		cand := f.join("cand", model.RoleCandidate, "go", "sql")
		leaving := f.join("leaving", model.RoleInterviewer, "go", "sql")

		store := &hookStore{Store: f.queue, beforeReturn: func() {
			_, err := f.queue.Withdraw(f.ctx, leaving.ID)
			So(err, ShouldBeNil)
		}}

		Convey("When it was the only candidate", func() {
			res, err := f.matcher(store).Match(f.ctx, cand.ID, scoring.PolicyAny)

			Convey("Then the attempt ends with no match and the withdrawal stands", func() {
				So(err, ShouldBeNil)
				So(res.Outcome, ShouldEqual, matching.OutcomeNoMatch)
				So(res.Conflicts, ShouldEqual, 1)
				So(f.status(leaving.ID), ShouldEqual, model.StatusWithdrawn)
				So(f.status(cand.ID), ShouldEqual, model.StatusPending)
			})
		})

		Convey("When a weaker candidate remains", func() {
			weaker := f.join("weaker", model.RoleInterviewer, "go")
			res, err := f.matcher(store).Match(f.ctx, cand.ID, scoring.PolicyAny)

			Convey("Then the attempt falls back to it", func() {
				So(err, ShouldBeNil)
				So(res.Outcome, ShouldEqual, matching.OutcomeMatched)
				So(res.Session.Participants.InterviewerEntryID, ShouldEqual, weaker.ID)
				So(f.status(leaving.ID), ShouldEqual, model.StatusWithdrawn)
			})
		})
	})
}

func TestMatcher_Selection(t *testing.T) {
	Convey("Given candidates with different overlap", t, func() {
		f := newFixture()
		req := f.join("req", model.RoleCandidate, "go", "k8s", "sql")
		early := f.join("early", model.RoleInterviewer, "go")
		strong := f.join("strong", model.RoleInterviewer, "go", "k8s")

		Convey("When matching under any", func() {
			res, err := f.matcher(nil).Match(f.ctx, req.ID, scoring.PolicyAny)

			Convey("Then higher overlap beats earlier arrival", func() {
				So(err, ShouldBeNil)
				So(res.Session.Participants.InterviewerEntryID, ShouldEqual, strong.ID)
				So(f.status(early.ID), ShouldEqual, model.StatusPending)
			})
		})
	})

	Convey("Given two equally scoring candidates", t, func() {
		f := newFixture()
		first := f.join("first", model.RoleInterviewer, "go", "k8s")
		f.join("second", model.RoleInterviewer, "go", "k8s")
		req := f.join("req", model.RoleCandidate, "go", "k8s")

		res, err := f.matcher(nil).Match(f.ctx, req.ID, scoring.PolicyPartial)
		So(err, ShouldBeNil)
		So(res.Session.Participants.InterviewerEntryID, ShouldEqual, first.ID)
	})

	Convey("Given a strictness the candidates cannot meet", t, func() {
		f := newFixture()
		req := f.join("req", model.RoleCandidate, "node", "react")
		f.join("super", model.RoleInterviewer, "node", "react", "sql")

		Convey("When exact means set equality", func() {
			m := f.matcher(nil, matching.WithScorer(scoring.NewToolScorer(scoring.WithExactMode(scoring.ExactEqual))))
			res, err := m.Match(f.ctx, req.ID, scoring.PolicyExact)
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, matching.OutcomeNoMatch)
		})

		Convey("When exact means subset of the smaller set", func() {
			res, err := f.matcher(nil).Match(f.ctx, req.ID, scoring.PolicyExact)
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, matching.OutcomeMatched)
		})
	})

	Convey("Given a participant without tools", t, func() {
		f := newFixture()
		req := f.join("req", model.RoleCandidate)
		f.join("int", model.RoleInterviewer, "go")

		Convey("Then only the ignore policy pairs them", func() {
			res, err := f.matcher(nil).Match(f.ctx, req.ID, scoring.PolicyAny)
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, matching.OutcomeNoMatch)

			res, err = f.matcher(nil).Match(f.ctx, req.ID, scoring.PolicyIgnore)
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, matching.OutcomeMatched)
		})
	})

	Convey("Given a user queued in both roles for one slot", t, func() {
		f := newFixture()
		req := f.join("same", model.RoleCandidate, "go")
		f.join("same", model.RoleInterviewer, "go")

		Convey("Then they are never paired with themselves", func() {
			res, err := f.matcher(nil).Match(f.ctx, req.ID, scoring.PolicyAny)
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, matching.OutcomeNoMatch)
		})
	})

	Convey("Given an unknown entry", t, func() {
		f := newFixture()
		_, err := f.matcher(nil).Match(f.ctx, "ghost", scoring.PolicyAny)
		So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
	})
}

func TestMatcher_ProvisioningFailure(t *testing.T) {
	Convey("Given a pair and a failing room provider", t, func() {
		f := newFixture()
		cand := f.join("cand", model.RoleCandidate, "go")
		intv := f.join("int", model.RoleInterviewer, "go")
		f.failRoom.Store(true)

		Convey("When a match is attempted", func() {
			res, err := f.matcher(nil).Match(f.ctx, cand.ID, scoring.PolicyAny)

			Convey("Then the error is retryable and both entries are pending again", func() {
				So(errors.Is(err, session.ErrRoomProvisioning), ShouldBeTrue)
				So(string(res.Outcome), ShouldEqual, "")
				So(f.status(cand.ID), ShouldEqual, model.StatusPending)
				So(f.status(intv.ID), ShouldEqual, model.StatusPending)
				So(f.sessions.Count(f.ctx), ShouldEqual, 0)
			})

			Convey("And a retry after recovery matches the same pair", func() {
				f.failRoom.Store(false)
				res, err := f.matcher(nil).Match(f.ctx, cand.ID, scoring.PolicyAny)
				So(err, ShouldBeNil)
				So(res.Session.Participants.InterviewerEntryID, ShouldEqual, intv.ID)
			})
		})
	})
}

func TestMatcher_OwnEntryRace(t *testing.T) {
	Convey("Given a requester that another matcher pairs mid-attempt", t, func() {
		f := newFixture()
		req := f.join("req", model.RoleCandidate, "go")
		target := f.join("target", model.RoleInterviewer, "go")
		other := f.join("other", model.RoleInterviewer, "go")

		var stolen model.Session
		store := &hookStore{Store: f.queue, beforeReturn: func() {
			claim, err := f.queue.ClaimPair(f.ctx, other.ID, req.ID)
			So(err, ShouldBeNil)
			stolen, err = f.creator.CreateFromClaim(f.ctx, claim)
			So(err, ShouldBeNil)
		}}

		res, err := f.matcher(store).Match(f.ctx, req.ID, scoring.PolicyAny)

		Convey("Then the attempt returns the session that already holds the requester", func() {
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, matching.OutcomeMatched)
			So(res.Session.ID, ShouldEqual, stolen.ID)
			So(f.status(target.ID), ShouldEqual, model.StatusPending)
		})
	})
}

func TestMatcher_AtMostOneMatch(t *testing.T) {
	Convey("Given many candidates and interviewers matching concurrently", t, func() {
		f := newFixture()
		m := f.matcher(nil)
		var ids []string
		for i := 0; i < 40; i++ {
			ids = append(ids, f.join(fmt.Sprintf("c%d", i), model.RoleCandidate, "go").ID)
			ids = append(ids, f.join(fmt.Sprintf("i%d", i), model.RoleInterviewer, "go").ID)
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		var sessions []model.Session
		for round := 0; round < 3; round++ {
			for _, id := range ids {
				wg.Add(1)
				go func(id string) {
					defer wg.Done()
					res, err := m.Match(f.ctx, id, scoring.PolicyAny)
					if err == nil && res.Outcome == matching.OutcomeMatched {
						mu.Lock()
						sessions = append(sessions, res.Session)
						mu.Unlock()
					}
				}(id)
			}
		}
		wg.Wait()

		Convey("Then no entry appears in two sessions", func() {
			owner := map[string]string{}
			distinct := map[string]struct{}{}
			for _, s := range sessions {
				distinct[s.ID] = struct{}{}
				for _, id := range []string{s.Participants.CandidateEntryID, s.Participants.InterviewerEntryID} {
					if prev, ok := owner[id]; ok {
						So(prev, ShouldEqual, s.ID)
					}
					owner[id] = s.ID
				}
			}
			So(len(distinct), ShouldEqual, f.sessions.Count(f.ctx))
			So(int(f.rooms.Load()), ShouldEqual, f.sessions.Count(f.ctx))

			matched := 0
			for _, id := range ids {
				if f.status(id) == model.StatusMatched {
					matched++
				}
			}
			So(matched, ShouldEqual, 2*f.sessions.Count(f.ctx))
			So(f.sessions.Count(f.ctx), ShouldBeGreaterThan, 0)
		})
	})
}

// hookStore runs beforeReturn once, after candidates were read and before
// the matcher tries to claim any of them.
type hookStore struct {
	matching.Store
	once         sync.Once
	beforeReturn func()
}

func (h *hookStore) FindCandidates(ctx context.Context, f model.CandidateFilter) ([]model.QueueEntry, error) {
	out, err := h.Store.FindCandidates(ctx, f)
	h.once.Do(h.beforeReturn)
	return out, err
}
