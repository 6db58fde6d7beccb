package timezone_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/pairup/internal/domain/timezone"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Given a normalizer without rounding", t, func() {
		z := timezone.NewNormalizer()

		Convey("When normalizing a Moscow wall-clock time", func() {
			got, err := z.Normalize("2025-01-10T13:00", "Europe/Moscow")

			Convey("Then it yields the UTC instant", func() {
				So(err, ShouldBeNil)
				So(got.Equal(time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)), ShouldBeTrue)
				So(got.Location(), ShouldEqual, time.UTC)
			})
		})

		Convey("When the input carries seconds", func() {
			got, err := z.Normalize("2025-01-10T13:00:59", "UTC")

			Convey("Then seconds are truncated", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, time.Date(2025, 1, 10, 13, 0, 0, 0, time.UTC))
			})
		})

		Convey("When the zone is unknown or empty", func() {
			_, err1 := z.Normalize("2025-01-10T13:00", "Mars/Olympus_Mons")
			_, err2 := z.Normalize("2025-01-10T13:00", "")
			_, err3 := z.Normalize("2025-01-10T13:00", "Local")

			Convey("Then InvalidZone is signalled", func() {
				So(errors.Is(err1, timezone.ErrInvalidZone), ShouldBeTrue)
				So(errors.Is(err2, timezone.ErrInvalidZone), ShouldBeTrue)
				So(errors.Is(err3, timezone.ErrInvalidZone), ShouldBeTrue)
			})
		})

		Convey("When the local time does not parse", func() {
			_, err := z.Normalize("10/01/2025 1pm", "UTC")

			Convey("Then InvalidLocalTime is signalled", func() {
				So(errors.Is(err, timezone.ErrInvalidLocalTime), ShouldBeTrue)
			})
		})

		Convey("When the local time falls into a DST gap", func() {
			_, err := z.Normalize("2025-03-30T02:30", "Europe/Berlin")

			Convey("Then it is rejected instead of silently shifted", func() {
				So(errors.Is(err, timezone.ErrInvalidLocalTime), ShouldBeTrue)
			})
		})
	})

	Convey("Given a normalizer with a 10-minute grid", t, func() {
		z := timezone.NewNormalizer(timezone.WithGranularityMinutes(10))

		Convey("When two nearby local times are normalized", func() {
			a, errA := z.Normalize("2025-01-10T14:01", "Asia/Kolkata")
			b, errB := z.Normalize("2025-01-10T14:09", "Asia/Kolkata")

			Convey("Then they collide into the same slot key", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a, ShouldEqual, b)
				// Kolkata is UTC+5:30, so 14:00 local is 08:30Z
				So(a, ShouldEqual, time.Date(2025, 1, 10, 8, 30, 0, 0, time.UTC))
				So(z.Granularity(), ShouldEqual, 10*time.Minute)
			})
		})

		Convey("When parsing a client-supplied UTC instant", func() {
			got, err := z.ParseInstant("2025-01-10T10:07:30+02:00")

			Convey("Then it is moved onto the grid in UTC", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC))
			})
		})

		Convey("When the instant is malformed", func() {
			_, err := z.ParseInstant("tomorrow")
			So(errors.Is(err, timezone.ErrInvalidInstant), ShouldBeTrue)
		})
	})
}

func TestRoundTrip(t *testing.T) {
	Convey("Given local times sampled across a year in several zones", t, func() {
		z := timezone.NewNormalizer()
		zones := []string{"Europe/Berlin", "America/New_York", "Asia/Kolkata", "Australia/Lord_Howe", "UTC"}
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

		mismatches := 0
		checked := 0
		for _, zone := range zones {
			for wall := start; wall.Year() == 2025; wall = wall.Add(97 * time.Minute) {
				local := wall.Format(timezone.LocalLayout)
				utc, err := z.Normalize(local, zone)
				if errors.Is(err, timezone.ErrInvalidLocalTime) {
					continue // DST gap
				}
				if err != nil {
					mismatches++
					continue
				}
				back, err := z.FormatLocal(utc, zone)
				checked++
				if err != nil || back != local {
					mismatches++
				}
			}
		}

		Convey("Then toLocal(normalize(t, z), z) == t for every accepted input", func() {
			So(checked, ShouldBeGreaterThan, 20000)
			So(mismatches, ShouldEqual, 0)
		})
	})
}

func TestDayRange(t *testing.T) {
	Convey("Given a normalizer", t, func() {
		z := timezone.NewNormalizer()

		Convey("When asking for a spring-forward day in Berlin", func() {
			from, to, err := z.DayRange("2025-03-30", "Europe/Berlin")

			Convey("Then the day is 23 hours long and starts at local midnight", func() {
				So(err, ShouldBeNil)
				So(from, ShouldEqual, time.Date(2025, 3, 29, 23, 0, 0, 0, time.UTC))
				So(to.Sub(from), ShouldEqual, 23*time.Hour)
			})
		})

		Convey("When the date is malformed", func() {
			_, _, err := z.DayRange("30.03.2025", "Europe/Berlin")
			So(errors.Is(err, timezone.ErrInvalidDate), ShouldBeTrue)
		})

		Convey("When rendering back to local time", func() {
			local, err := z.ToLocal(time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC), "Europe/Moscow")
			So(err, ShouldBeNil)
			So(local.Hour(), ShouldEqual, 13)
		})
	})
}
