package slots_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/pairup/internal/adapters/repository"
	"github.com/okian/pairup/internal/domain/model"
	"github.com/okian/pairup/internal/domain/scoring"
	"github.com/okian/pairup/internal/domain/slots"
	"github.com/okian/pairup/internal/domain/timezone"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAggregator_List(t *testing.T) {
	Convey("Given interviewers spread over two days", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		store := repository.NewMemoryQueueStore(ctx)
		Reset(func() {
			cancel()
			_ = store.Close()
		})
		tz := timezone.NewNormalizer()
		agg := slots.NewAggregator(store, scoring.NewToolScorer(), tz)

		// 14:00 and 16:00 Moscow on 2030-01-10 are 11:00Z and 13:00Z.
		at11 := time.Date(2030, 1, 10, 11, 0, 0, 0, time.UTC)
		at13 := time.Date(2030, 1, 10, 13, 0, 0, 0, time.UTC)
		nextDay := time.Date(2030, 1, 11, 11, 0, 0, 0, time.UTC)
		add := func(user string, role model.Role, slot time.Time, tools ...string) {
			_, err := store.Insert(ctx, model.QueueEntry{UserID: user, Role: role, Profession: "frontend", Language: "ru", SlotUTC: slot, Tools: tools})
			So(err, ShouldBeNil)
		}
		add("i1", model.RoleInterviewer, at13, "react")
		add("i2", model.RoleInterviewer, at11, "react", "vue")
		add("i3", model.RoleInterviewer, at11, "go")
		add("i4", model.RoleInterviewer, nextDay, "react")
		add("c1", model.RoleCandidate, at11, "react")

		Convey("When a candidate lists one local day without tools", func() {
			got, err := agg.List(ctx, slots.Query{Role: model.RoleCandidate, Profession: "frontend", Language: "ru", DateLocal: "2030-01-10", Zone: "Europe/Moscow"})

			Convey("Then interviewer slots of that day come back ascending with local times", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].Time, ShouldEqual, at11)
				So(got[0].Count, ShouldEqual, 2)
				So(got[0].Local, ShouldEqual, "2030-01-10T14:00")
				So(got[1].Time, ShouldEqual, at13)
				So(got[1].Count, ShouldEqual, 1)
				So(got[0].MatchedTools, ShouldBeEmpty)
			})
		})

		Convey("When the candidate supplies tools", func() {
			got, err := agg.List(ctx, slots.Query{Role: model.RoleCandidate, Tools: []string{"React", "vue"}})

			Convey("Then each slot carries its best compatibility", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 3)
				So(got[0].Count, ShouldEqual, 2)
				So(got[0].MatchedTools, ShouldResemble, []string{"react", "vue"})
				So(got[0].Overlap, ShouldEqual, 2)
				So(got[0].MatchScore, ShouldEqual, 2.0)
				So(got[2].Time, ShouldEqual, nextDay)
			})
		})

		Convey("When a strictness is requested with tools", func() {
			got, err := agg.List(ctx, slots.Query{Role: model.RoleCandidate, Tools: []string{"react", "vue"}, Strictness: scoring.PolicyPartial})

			Convey("Then only entries passing it are counted", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
				So(got[0].Time, ShouldEqual, at11)
				So(got[0].Count, ShouldEqual, 1)
			})
		})

		Convey("When an interviewer lists slots", func() {
			got, err := agg.List(ctx, slots.Query{Role: model.RoleInterviewer})

			Convey("Then they see candidates only", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
				So(got[0].Count, ShouldEqual, 1)
			})
		})

		Convey("When the listing is read", func() {
			before := store.PendingCount(ctx)
			_, _ = agg.List(ctx, slots.Query{Role: model.RoleCandidate, Tools: []string{"react"}})

			Convey("Then the queue is unchanged", func() {
				So(store.PendingCount(ctx), ShouldEqual, before)
			})
		})

		Convey("When the query is invalid", func() {
			_, errRole := agg.List(ctx, slots.Query{})
			_, errZone := agg.List(ctx, slots.Query{Role: model.RoleCandidate, DateLocal: "2030-01-10", Zone: "Nowhere/City"})
			_, errDate := agg.List(ctx, slots.Query{Role: model.RoleCandidate, DateLocal: "10/01/2030", Zone: "UTC"})

			Convey("Then typed errors come back", func() {
				So(errors.Is(errRole, slots.ErrInvalidQuery), ShouldBeTrue)
				So(errors.Is(errZone, timezone.ErrInvalidZone), ShouldBeTrue)
				So(errors.Is(errDate, timezone.ErrInvalidDate), ShouldBeTrue)
			})
		})
	})
}
