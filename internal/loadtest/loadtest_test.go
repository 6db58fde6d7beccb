package loadtest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/pairup/internal/adapters/http/api"
	service "github.com/okian/pairup/internal/app"
	"github.com/okian/pairup/internal/domain/types"
	"github.com/okian/pairup/internal/loadtest"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRun(t *testing.T) {
	Convey("Given a pairup server", t, func() {
		svc := service.New(service.WithMatchSweep(false))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		cfg := &loadtest.Config{
			BaseURL:    srv.URL,
			Users:      20,
			Slots:      3,
			Workers:    16,
			Timeout:    5 * time.Second,
			Profession: "backend",
			Language:   "en",
			Tools:      []string{"go"},
		}

		Convey("When the load test runs", func() {
			report, err := loadtest.Run(context.Background(), cfg, nil)

			Convey("Then every request succeeds and no guarantee is broken", func() {
				So(err, ShouldBeNil)
				So(report.Violations, ShouldBeEmpty)
				So(report.Stats.Joined, ShouldEqual, 40)
				So(report.Stats.MatchFailed, ShouldEqual, 0)
				So(report.Stats.Matched+report.Stats.NoMatch, ShouldEqual, 40)
				So(report.Stats.Sessions, ShouldBeGreaterThan, 0)
				So(report.Stats.Sessions, ShouldBeLessThanOrEqualTo, 20)
			})
		})

		Convey("When the configuration is invalid", func() {
			cfg.Users = 0
			_, err := loadtest.Run(context.Background(), cfg, nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestVerify(t *testing.T) {
	slot := time.Date(2030, 6, 1, 14, 0, 0, 0, time.UTC)
	s1 := types.Session{
		SessionID: "s1", RoomRef: "r1", SlotUTC: slot,
		CandidateUserID: "c1", CandidateEntryID: "ce1",
		InterviewerUserID: "i1", InterviewerEntryID: "ie1",
	}

	Convey("Given consistent bookings", t, func() {
		bookings := map[string]types.BookingsResponse{
			"c1": {Sessions: []types.Session{s1}},
			"i1": {Sessions: []types.Session{s1}},
		}

		Convey("Then there are no violations", func() {
			sessions, violations := loadtest.Verify(bookings)
			So(sessions, ShouldHaveLength, 1)
			So(violations, ShouldBeEmpty)
		})
	})

	Convey("Given an entry used by two sessions", t, func() {
		s2 := s1
		s2.SessionID, s2.RoomRef = "s2", "r2"
		s2.InterviewerUserID, s2.InterviewerEntryID = "i2", "ie2"
		bookings := map[string]types.BookingsResponse{
			"c1": {Sessions: []types.Session{s1, s2}},
			"i1": {Sessions: []types.Session{s1}},
			"i2": {Sessions: []types.Session{s2}},
		}

		Convey("Then the reuse and the double booking are reported", func() {
			_, violations := loadtest.Verify(bookings)
			kinds := map[string]bool{}
			for _, v := range violations {
				kinds[v.Kind] = true
			}
			So(kinds["entry_reused"], ShouldBeTrue)
			So(kinds["double_booking"], ShouldBeTrue)
		})
	})

	Convey("Given a participant missing the session", t, func() {
		bookings := map[string]types.BookingsResponse{
			"c1": {Sessions: []types.Session{s1}},
			"i1": {},
		}

		Convey("Then it is reported", func() {
			_, violations := loadtest.Verify(bookings)
			So(violations, ShouldHaveLength, 1)
			So(violations[0].Kind, ShouldEqual, "missing_session")
			So(violations[0].Subject, ShouldEqual, "i1")
		})
	})
}

func TestRun_Unhealthy(t *testing.T) {
	Convey("Given a server whose health check fails", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := loadtest.Run(context.Background(), &loadtest.Config{
			BaseURL: srv.URL, Users: 1, Slots: 1, Workers: 1, Timeout: time.Second,
			Profession: "backend", Language: "en",
		}, nil)

		Convey("Then the run stops before any request", func() {
			So(err, ShouldNotBeNil)
			So(errors.Is(err, loadtest.ErrViolations), ShouldBeFalse)
		})
	})
}
