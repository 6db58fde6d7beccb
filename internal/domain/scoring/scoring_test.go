package scoring_test

import (
	"errors"
	"testing"
	"time"

	scoring "github.com/okian/pairup/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestToolScorer_Score(t *testing.T) {
	Convey("Given a default tool scorer", t, func() {
		scorer := scoring.NewToolScorer()

		Convey("When scoring overlapping tool sets", func() {
			c := scorer.Score([]string{"node", "react"}, []string{"node", "react", "sql"})

			Convey("Then the overlap is the intersection", func() {
				So(c.MatchedTools, ShouldResemble, []string{"node", "react"})
				So(c.Overlap, ShouldEqual, 2)
				So(c.Score, ShouldEqual, 2.0)
			})
		})

		Convey("When the sets are disjoint", func() {
			c := scorer.Score([]string{"go"}, []string{"java", "kotlin"})

			Convey("Then nothing matches", func() {
				So(c.MatchedTools, ShouldBeEmpty)
				So(c.Overlap, ShouldEqual, 0)
				So(c.Score, ShouldEqual, 0.0)
			})
		})

		Convey("When one side has no tools", func() {
			c := scorer.Score(nil, []string{"react"})
			So(c.Overlap, ShouldEqual, 0)
		})
	})

	Convey("Given a scorer with tool weights", t, func() {
		scorer := scoring.NewToolScorer(
			scoring.WithToolWeightsFromConfig(map[string]float64{
				"Kubernetes": 3,
				"git":        0.5,
				"broken":     -1,
			}, 1),
		)

		Convey("When matched tools carry different weights", func() {
			c := scorer.Score([]string{"git", "kubernetes"}, []string{"git", "kubernetes"})

			Convey("Then score sums the weights but overlap still counts tools", func() {
				So(c.Score, ShouldEqual, 3.5)
				So(c.Overlap, ShouldEqual, 2)
			})
		})

		Convey("When a weight is not positive", func() {
			c := scorer.Score([]string{"broken"}, []string{"broken"})

			Convey("Then the default weight applies", func() {
				So(c.Score, ShouldEqual, 1.0)
			})
		})
	})
}

func TestToolScorer_Passes(t *testing.T) {
	requester := []string{"node", "react"}
	candidate := []string{"node", "react", "sql"}

	Convey("Given requester {react, node} and candidate {react, node, sql}", t, func() {
		Convey("When exact means subset of the smaller set", func() {
			scorer := scoring.NewToolScorer(scoring.WithExactMode(scoring.ExactSubset))
			c := scorer.Score(requester, candidate)

			Convey("Then exact, partial and any pass", func() {
				So(scorer.Passes(c, requester, candidate, scoring.PolicyExact), ShouldBeTrue)
				So(scorer.Passes(c, requester, candidate, scoring.PolicyPartial), ShouldBeTrue)
				So(scorer.Passes(c, requester, candidate, scoring.PolicyAny), ShouldBeTrue)
			})
		})

		Convey("When exact means set equality", func() {
			scorer := scoring.NewToolScorer(scoring.WithExactMode(scoring.ExactEqual))
			c := scorer.Score(requester, candidate)

			Convey("Then exact fails because the candidate is a superset", func() {
				So(scorer.Passes(c, requester, candidate, scoring.PolicyExact), ShouldBeFalse)
				So(scorer.Passes(c, requester, candidate, scoring.PolicyPartial), ShouldBeTrue)
				So(scorer.Passes(c, requester, candidate, scoring.PolicyAny), ShouldBeTrue)
			})

			Convey("And identical sets still pass exact", func() {
				same := []string{"node", "react"}
				So(scorer.Passes(scorer.Score(requester, same), requester, same, scoring.PolicyExact), ShouldBeTrue)
			})
		})
	})

	Convey("Given a single shared tool", t, func() {
		scorer := scoring.NewToolScorer()
		a := []string{"react"}
		b := []string{"react", "vue"}
		c := scorer.Score(a, b)

		Convey("Then any passes and partial needs the configured minimum", func() {
			So(scorer.Passes(c, a, b, scoring.PolicyAny), ShouldBeTrue)
			So(scorer.Passes(c, a, b, scoring.PolicyPartial), ShouldBeFalse)

			lenient := scoring.NewToolScorer(scoring.WithPartialMinimum(1))
			So(lenient.Passes(c, a, b, scoring.PolicyPartial), ShouldBeTrue)
			So(lenient.PartialMinimum(), ShouldEqual, 1)
		})
	})

	Convey("Given a participant with zero tools", t, func() {
		scorer := scoring.NewToolScorer()
		var none []string
		other := []string{"react"}
		c := scorer.Score(none, other)

		Convey("Then every policy except ignore fails", func() {
			So(scorer.Passes(c, none, other, scoring.PolicyExact), ShouldBeFalse)
			So(scorer.Passes(c, none, other, scoring.PolicyPartial), ShouldBeFalse)
			So(scorer.Passes(c, none, other, scoring.PolicyAny), ShouldBeFalse)
			So(scorer.Passes(c, none, other, scoring.PolicyIgnore), ShouldBeTrue)
			So(scorer.Passes(c, none, none, scoring.PolicyExact), ShouldBeFalse)
		})
	})

	Convey("Given a scorer used through the Scorer interface", t, func() {
		var scorer scoring.Scorer = scoring.NewToolScorer()
		a, b := []string{"node", "react"}, []string{"node", "react", "sql"}

		Convey("Then Evaluate agrees with Score and Passes for every policy", func() {
			for _, p := range []scoring.Policy{scoring.PolicyExact, scoring.PolicyPartial, scoring.PolicyAny, scoring.PolicyIgnore} {
				c, ok := scorer.Evaluate(a, b, p)
				So(c, ShouldResemble, scorer.Score(a, b))
				So(ok, ShouldEqual, scorer.Passes(c, a, b, p))
			}
		})
	})

	Convey("Given an unknown policy value", t, func() {
		scorer := scoring.NewToolScorer()
		c, ok := scorer.Evaluate([]string{"go"}, []string{"go"}, scoring.Policy("strict"))

		Convey("Then it never passes", func() {
			So(c.Overlap, ShouldEqual, 1)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestParse(t *testing.T) {
	Convey("Given policy strings", t, func() {
		p, err := scoring.ParsePolicy(" Partial ")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, scoring.PolicyPartial)

		_, err = scoring.ParsePolicy("strict")
		So(errors.Is(err, scoring.ErrUnknownPolicy), ShouldBeTrue)
	})

	Convey("Given exact mode strings", t, func() {
		m, err := scoring.ParseExactMode("equal")
		So(err, ShouldBeNil)
		So(m, ShouldEqual, scoring.ExactEqual)

		_, err = scoring.ParseExactMode("superset")
		So(errors.Is(err, scoring.ErrUnknownExactMode), ShouldBeTrue)
	})
}

func TestRank(t *testing.T) {
	Convey("Given candidates with scores and arrival times", t, func() {
		base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
		candidates := []scoring.Ranked{
			{EntryID: "late-strong", CreatedAt: base.Add(2 * time.Minute), Seq: 3, Compatibility: scoring.Compatibility{Overlap: 2, Score: 2}},
			{EntryID: "late-weak", CreatedAt: base.Add(time.Minute), Seq: 2, Compatibility: scoring.Compatibility{Overlap: 1, Score: 1}},
			{EntryID: "early-strong", CreatedAt: base, Seq: 1, Compatibility: scoring.Compatibility{Overlap: 2, Score: 2}},
			{EntryID: "same-time", CreatedAt: base, Seq: 4, Compatibility: scoring.Compatibility{Overlap: 2, Score: 2}},
		}

		Convey("When ranking", func() {
			scoring.Rank(candidates)

			Convey("Then higher overlap wins and ties go to the earliest arrival", func() {
				ids := make([]string, 0, len(candidates))
				for _, c := range candidates {
					ids = append(ids, c.EntryID)
				}
				So(ids, ShouldResemble, []string{"early-strong", "same-time", "late-strong", "late-weak"})
			})
		})
	})
}
