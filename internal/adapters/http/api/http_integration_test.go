package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/okian/pairup/internal/adapters/http/api"
	service "github.com/okian/pairup/internal/app"
	"github.com/okian/pairup/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAPI_EndToEnd(t *testing.T) {
	Convey("Given the API over a running service", t, func() {
		now := time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)
		svc := service.New(
			service.WithMatchSweep(false),
			service.WithClock(func() time.Time { return now }),
		)
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(context.Background(), mux)

		w := do(mux, http.MethodPost, "/queue/join",
			`{"userId":"cand","role":"candidate","profession":"backend","language":"en","slotLocal":"2030-06-01T17:00","zone":"Europe/Moscow","tools":["go","sql"]}`)
		So(w.Code, ShouldEqual, http.StatusCreated)
		var joined types.JoinResponse
		So(json.Unmarshal(w.Body.Bytes(), &joined), ShouldBeNil)
		So(joined.SlotUTC, ShouldEqual, time.Date(2030, 6, 1, 14, 0, 0, 0, time.UTC))
		So(joined.Position, ShouldEqual, 1)

		Convey("When the interviewer lists slots with tools", func() {
			w := do(mux, http.MethodGet, "/slots?role=interviewer&profession=backend&language=en&tools=go", "")

			Convey("Then the candidate slot is shown with its score", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp types.SlotsResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Slots, ShouldHaveLength, 1)
				So(resp.Slots[0].Count, ShouldEqual, 1)
				So(resp.Slots[0].MatchedTools, ShouldResemble, []string{"go"})
			})
		})

		Convey("When the interviewer requests a match", func() {
			w := do(mux, http.MethodPost, "/match",
				`{"userId":"intv","role":"interviewer","profession":"backend","language":"en","slotsUtc":["2030-06-01T14:00:00Z"],"tools":["go"]}`)

			Convey("Then a session is returned and shows up in bookings", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp types.MatchResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Status, ShouldEqual, types.MatchStatusMatched)
				So(resp.Session.CandidateEntryID, ShouldEqual, joined.EntryID)

				w = do(mux, http.MethodGet, "/bookings/cand", "")
				var b types.BookingsResponse
				So(json.Unmarshal(w.Body.Bytes(), &b), ShouldBeNil)
				So(b.Queues, ShouldBeEmpty)
				So(b.Sessions, ShouldHaveLength, 1)
				So(b.Sessions[0].SessionID, ShouldEqual, resp.Session.SessionID)
			})

			Convey("And matching the candidate entry again conflicts", func() {
				w := do(mux, http.MethodPost, "/match/"+joined.EntryID, "")
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decodeError(w).Code, ShouldEqual, api.CodeNotEligible)
			})
		})

		Convey("When the candidate joins the same slot again", func() {
			w := do(mux, http.MethodPost, "/queue/join",
				`{"userId":"cand","role":"candidate","profession":"backend","language":"en","slotUtc":"2030-06-01T14:00:00Z"}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decodeError(w).EntryID, ShouldEqual, joined.EntryID)
		})

		Convey("When someone else withdraws the entry", func() {
			So(do(mux, http.MethodDelete, "/queue/"+joined.EntryID+"?userId=intv", "").Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("When the owner withdraws twice", func() {
			So(do(mux, http.MethodDelete, "/queue/"+joined.EntryID+"?userId=cand", "").Code, ShouldEqual, http.StatusOK)
			w := do(mux, http.MethodDelete, "/queue/"+joined.EntryID+"?userId=cand", "")

			Convey("Then the second call warns without failing", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp types.WithdrawResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Warning, ShouldNotBeEmpty)
			})
		})

		Convey("When the zone is unknown", func() {
			w := do(mux, http.MethodPost, "/queue/join",
				`{"userId":"x","role":"candidate","profession":"backend","language":"en","slotLocal":"2030-06-01T17:00","zone":"Mars/Olympus"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Code, ShouldEqual, api.CodeInvalidZone)
		})
	})
}
