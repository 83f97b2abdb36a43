package model_test

import (
	"encoding/json"
	"errors"
	"testing"

	model "github.com/okian/recall/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestEventKind(t *testing.T) {
	convey.Convey("Given the known event kinds", t, func() {
		convey.Convey("When formatting them", func() {
			convey.Convey("Then each has a stable lower-case name", func() {
				convey.So(model.KindLearning.String(), convey.ShouldEqual, "learning")
				convey.So(model.KindReview.String(), convey.ShouldEqual, "review")
				convey.So(model.KindRelearning.String(), convey.ShouldEqual, "relearning")
				convey.So(model.KindFiltered.String(), convey.ShouldEqual, "filtered")
				convey.So(model.KindManual.String(), convey.ShouldEqual, "manual")
			})
		})

		convey.Convey("When listing them", func() {
			kinds := model.Kinds()

			convey.Convey("Then all five are valid and in encoding order", func() {
				convey.So(len(kinds), convey.ShouldEqual, 5)
				for i, k := range kinds {
					convey.So(k.IsValid(), convey.ShouldBeTrue)
					convey.So(int(k), convey.ShouldEqual, i)
				}
			})
		})

		convey.Convey("When formatting an unknown value", func() {
			k := model.EventKind(9)

			convey.Convey("Then it is invalid and renders its number", func() {
				convey.So(k.IsValid(), convey.ShouldBeFalse)
				convey.So(k.String(), convey.ShouldEqual, "EventKind(9)")
			})
		})
	})
}

func TestParseKind(t *testing.T) {
	convey.Convey("Given kind names", t, func() {
		convey.Convey("When parsing mixed case with spaces", func() {
			k, err := model.ParseKind("  Relearning ")

			convey.Convey("Then it resolves the kind", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(k, convey.ShouldEqual, model.KindRelearning)
			})
		})

		convey.Convey("When parsing an unknown name", func() {
			_, err := model.ParseKind("cram")

			convey.Convey("Then it returns ErrInvalidKind", func() {
				convey.So(errors.Is(err, model.ErrInvalidKind), convey.ShouldBeTrue)
			})
		})
	})
}

func TestEventKindJSON(t *testing.T) {
	convey.Convey("Given a struct carrying an event kind", t, func() {
		type payload struct {
			Kind model.EventKind `json:"kind"`
		}

		convey.Convey("When marshalling a valid kind", func() {
			data, err := json.Marshal(payload{Kind: model.KindReview})

			convey.Convey("Then it is written as a string", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(data), convey.ShouldEqual, `{"kind":"review"}`)
			})
		})

		convey.Convey("When marshalling an unknown kind", func() {
			_, err := json.Marshal(payload{Kind: model.EventKind(42)})

			convey.Convey("Then it fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When unmarshalling a valid name", func() {
			var p payload
			err := json.Unmarshal([]byte(`{"kind":"manual"}`), &p)

			convey.Convey("Then the kind is decoded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.Kind, convey.ShouldEqual, model.KindManual)
			})
		})

		convey.Convey("When unmarshalling a number", func() {
			var p payload
			err := json.Unmarshal([]byte(`{"kind":1}`), &p)

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(err, model.ErrInvalidKind), convey.ShouldBeTrue)
			})
		})
	})
}

func TestStudyEvent(t *testing.T) {
	convey.Convey("Given a study event with a sub-day interval", t, func() {
		e := model.StudyEvent{
			EventID:      "ev-1",
			CardID:       7,
			Timestamp:    999_500,
			Kind:         model.KindLearning,
			LastInterval: -60,
			Button:       1,
		}

		convey.Convey("Then the interval keeps its seconds encoding", func() {
			convey.So(e.LastInterval, convey.ShouldEqual, -60)
			convey.So(e.Kind.IsValid(), convey.ShouldBeTrue)
		})
	})
}
