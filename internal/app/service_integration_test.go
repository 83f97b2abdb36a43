package service_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	service "github.com/okian/recall/internal/app"
	"github.com/okian/recall/internal/adapters/repository"
	"github.com/okian/recall/internal/domain/model"
	"github.com/okian/recall/internal/domain/retention"
	. "github.com/smartystreets/goconvey/convey"
)

const nds = 1000 * retention.Day

func sampleLog() []model.StudyEvent {
	return []model.StudyEvent{
		// today, young passed
		{EventID: "e-1", CardID: 1, Timestamp: nds - 100, Kind: model.KindReview, LastInterval: 3, Button: 3},
		// today, mature failed
		{EventID: "e-2", CardID: 2, Timestamp: nds - 200, Kind: model.KindReview, LastInterval: 30, Button: 1},
		// yesterday, relearning with a full-day step
		{EventID: "e-3", CardID: 3, Timestamp: nds - retention.Day - 5, Kind: model.KindRelearning, LastInterval: 2, Button: 2},
		// last month, sub-day learning step is excluded
		{EventID: "e-4", CardID: 4, Timestamp: nds - 20*retention.Day, Kind: model.KindLearning, LastInterval: -600, Button: 3},
		// filtered deck review is excluded
		{EventID: "e-5", CardID: 5, Timestamp: nds - 50, Kind: model.KindFiltered, LastInterval: 10, Button: 3},
	}
}

func waitForStored(svc *service.Service, n int) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if svc.GetStats()["storedEvents"] == n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a running service", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(1000),
			service.WithDedupeSize(500),
			service.WithAggregateShards(3),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a review log is ingested", func() {
			events := sampleLog()
			for _, e := range events {
				So(svc.SeenAndRecord(ctx, e.EventID), ShouldBeFalse)
				So(svc.Enqueue(ctx, e), ShouldBeTrue)
			}
			So(waitForStored(svc, len(events)), ShouldBeTrue)

			got, err := svc.RetentionAt(ctx, nds)

			Convey("Then the report matches a direct calculation", func() {
				So(err, ShouldBeNil)
				So(got.Report, ShouldResemble, retention.Calculate(events, nds))
				So(got.Windows, ShouldResemble, retention.NewTable(nds))
			})

			Convey("And the counts land in their windows", func() {
				today := got.Report.Bucket(retention.Today)
				So(today.YoungPassed, ShouldEqual, 1)
				So(today.MatureFailed, ShouldEqual, 1)

				yesterday := got.Report.Bucket(retention.Yesterday)
				So(yesterday.YoungPassed, ShouldEqual, 1)

				all := got.Report.Bucket(retention.AllTime)
				So(all.Total(), ShouldEqual, 3)
			})

			Convey("And diagnostics explain the exclusions", func() {
				So(got.Diagnostics.Counted, ShouldEqual, 3)
				So(got.Diagnostics.SubDayStep, ShouldEqual, 1)
				So(got.Diagnostics.FilteredKind, ShouldEqual, 1)
			})
		})

		Convey("When the same event id is submitted twice", func() {
			e := sampleLog()[0]
			first := svc.SeenAndRecord(ctx, e.EventID)
			second := svc.SeenAndRecord(ctx, e.EventID)

			Convey("Then only the first is accepted", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
			})
		})

		Convey("When many events are ingested", func() {
			const total = 300
			for i := 0; i < total; i++ {
				e := model.StudyEvent{
					EventID:      fmt.Sprintf("bulk-%d", i),
					CardID:       int64(i % 17),
					Timestamp:    nds - int64(i)*3600,
					Kind:         model.KindReview,
					LastInterval: int32(i % 40),
					Button:       int32(i%4) + 1,
				}
				So(svc.Enqueue(ctx, e), ShouldBeTrue)
			}

			Convey("Then every event is stored", func() {
				So(waitForStored(svc, total), ShouldBeTrue)
			})
		})
	})
}

type failingStore struct {
	repository.Store
}

func (failingStore) Append(context.Context, model.StudyEvent) error {
	return errors.New("disk full")
}

func TestServiceStoreFailure(t *testing.T) {
	Convey("Given a service whose store rejects writes", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithStore(failingStore{Store: repository.NewMemoryStore(ctx)}),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When an event fails to persist", func() {
			So(svc.SeenAndRecord(ctx, "lost"), ShouldBeFalse)
			So(svc.Enqueue(ctx, model.StudyEvent{EventID: "lost", Kind: model.KindReview, Button: 3}), ShouldBeTrue)

			Convey("Then its id is forgotten so a retry is accepted", func() {
				deadline := time.Now().Add(2 * time.Second)
				for svc.Size() != 0 && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				So(svc.SeenAndRecord(ctx, "lost"), ShouldBeFalse)
			})
		})
	})
}

func TestServiceSQLite(t *testing.T) {
	Convey("Given a service backed by SQLite", t, func() {
		path := filepath.Join(t.TempDir(), "revlog.db")
		ctx := context.Background()
		events := sampleLog()

		svc := service.New(service.WithWorkerCount(2), service.WithSQLite(path))
		So(svc.Start(ctx), ShouldBeNil)
		for _, e := range events {
			So(svc.Enqueue(ctx, e), ShouldBeTrue)
		}
		// Stop drains the queue into the database.
		svc.Stop()

		Convey("When the service is restarted on the same file", func() {
			reopened := service.New(service.WithSQLite(path))
			So(reopened.Start(ctx), ShouldBeNil)
			defer reopened.Stop()

			got, err := reopened.RetentionAt(ctx, nds)

			Convey("Then the persisted log produces the same report", func() {
				So(err, ShouldBeNil)
				So(got.Report, ShouldResemble, retention.Calculate(events, nds))
				So(reopened.GetStats()["storedEvents"], ShouldEqual, len(events))
			})
		})
	})
}
