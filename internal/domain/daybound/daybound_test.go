package daybound_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/recall/internal/domain/daybound"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNew(t *testing.T) {
	Convey("Given clock settings", t, func() {
		Convey("When the timezone is empty", func() {
			c, err := daybound.New("", 4)

			Convey("Then UTC is used", func() {
				So(err, ShouldBeNil)
				So(c.Location(), ShouldEqual, time.UTC)
				So(c.RolloverHour(), ShouldEqual, 4)
			})
		})

		Convey("When the rollover hour is out of range", func() {
			_, errLow := daybound.New("UTC", -1)
			_, errHigh := daybound.New("UTC", 24)

			Convey("Then it is rejected", func() {
				So(errors.Is(errLow, daybound.ErrInvalidRolloverHour), ShouldBeTrue)
				So(errors.Is(errHigh, daybound.ErrInvalidRolloverHour), ShouldBeTrue)
			})
		})

		Convey("When the timezone is unknown", func() {
			_, err := daybound.New("Mars/Olympus", 4)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, daybound.ErrInvalidTimezone), ShouldBeTrue)
			})
		})
	})
}

func TestNextDayStart(t *testing.T) {
	Convey("Given a UTC clock rolling over at 04:00", t, func() {
		c, err := daybound.New("UTC", 4)
		So(err, ShouldBeNil)

		Convey("When it is before the rollover", func() {
			now := time.Date(2024, 3, 10, 2, 30, 0, 0, time.UTC)

			Convey("Then the next start is later the same day", func() {
				So(c.NextDayStart(now), ShouldEqual, time.Date(2024, 3, 10, 4, 0, 0, 0, time.UTC).Unix())
			})
		})

		Convey("When it is after the rollover", func() {
			now := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

			Convey("Then the next start is tomorrow", func() {
				So(c.NextDayStart(now), ShouldEqual, time.Date(2024, 3, 11, 4, 0, 0, 0, time.UTC).Unix())
			})
		})

		Convey("When it is exactly the rollover", func() {
			now := time.Date(2024, 3, 10, 4, 0, 0, 0, time.UTC)

			Convey("Then the next start is tomorrow", func() {
				So(c.NextDayStart(now), ShouldEqual, time.Date(2024, 3, 11, 4, 0, 0, 0, time.UTC).Unix())
			})
		})

		Convey("When it is the last day of the year", func() {
			now := time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)

			Convey("Then the next start rolls into January", func() {
				So(c.NextDayStart(now), ShouldEqual, time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC).Unix())
			})
		})
	})

	Convey("Given a clock in a fixed offset zone", t, func() {
		c, err := daybound.New("Asia/Tokyo", 0)
		So(err, ShouldBeNil)

		Convey("When UTC is still on the previous calendar day", func() {
			now := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC) // 05:00 on May 2 in Tokyo

			Convey("Then the boundary is local midnight", func() {
				tokyo := c.Location()
				So(c.NextDayStart(now), ShouldEqual, time.Date(2024, 5, 3, 0, 0, 0, 0, tokyo).Unix())
			})
		})
	})
}
