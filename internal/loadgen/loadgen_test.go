package loadgen_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/recall/internal/adapters/http/api"
	service "github.com/okian/recall/internal/app"
	"github.com/okian/recall/internal/domain/model"
	"github.com/okian/recall/internal/domain/retention"
	"github.com/okian/recall/internal/loadgen"
	"github.com/okian/recall/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const nds = 20_000 * retention.Day

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a generated review log", t, func() {
		events, err := loadgen.Generate(2000, 50, 400, nds, 7)
		So(err, ShouldBeNil)
		So(events, ShouldHaveLength, 2000)

		Convey("Then the same seed gives the same log", func() {
			again, err := loadgen.Generate(2000, 50, 400, nds, 7)
			So(err, ShouldBeNil)
			So(again, ShouldResemble, events)

			other, err := loadgen.Generate(2000, 50, 400, nds, 8)
			So(err, ShouldBeNil)
			So(other, ShouldNotResemble, events)
		})

		Convey("Then every entry is storable", func() {
			ids := make(map[string]bool, len(events))
			for _, e := range events {
				So(e.Kind.IsValid(), ShouldBeTrue)
				So(e.CardID, ShouldBeBetweenOrEqual, 1, 50)
				So(e.Timestamp, ShouldBeGreaterThanOrEqualTo, nds-400*retention.Day)
				So(e.Timestamp, ShouldBeLessThan, nds+retention.Day)
				So(ids[e.EventID], ShouldBeFalse)
				ids[e.EventID] = true
			}
		})

		Convey("Then the log exercises every outcome", func() {
			report, diag := retention.CalculateWithDiagnostics(events, nds)
			all := report.Bucket(retention.AllTime)
			for _, l := range retention.Labels() {
				So(all.Count(l), ShouldBeGreaterThan, 0)
			}
			So(diag.SubDayStep, ShouldBeGreaterThan, 0)
			So(diag.FilteredKind, ShouldBeGreaterThan, 0)
			So(diag.ManualKind, ShouldBeGreaterThan, 0)
			So(diag.OutOfRange, ShouldBeGreaterThan, 0)
		})
	})
}

func TestDiff(t *testing.T) {
	Convey("Given two reports", t, func() {
		var want, got retention.Report
		want[retention.Week].MaturePassed = 3
		got[retention.Week].MaturePassed = 2

		Convey("Then each differing counter is listed", func() {
			So(loadgen.Diff(want, got), ShouldResemble, []string{"week.mature_passed: want 3, got 2"})
			So(loadgen.Diff(want, want), ShouldBeEmpty)
		})
	})
}

func TestConfigValidate(t *testing.T) {
	Convey("Given a load configuration", t, func() {
		cfg := validConfig("http://localhost:9080")

		Convey("Then a complete one passes", func() {
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("Then missing values are rejected", func() {
			for _, mutate := range []func(c *loadgen.Config){
				func(c *loadgen.Config) { c.BaseURL = "" },
				func(c *loadgen.Config) { c.NumEvents = 0 },
				func(c *loadgen.Config) { c.Cards = 0 },
				func(c *loadgen.Config) { c.Days = 0 },
				func(c *loadgen.Config) { c.DuplicatePct = 1.5 },
				func(c *loadgen.Config) { c.Workers = 0 },
				func(c *loadgen.Config) { c.NextDayStart = 0 },
			} {
				c := *cfg
				mutate(&c)
				So(errors.Is(c.Validate(), loadgen.ErrConfig), ShouldBeTrue)
			}
		})
	})
}

func validConfig(url string) *loadgen.Config {
	return &loadgen.Config{
		BaseURL:      url,
		NumEvents:    300,
		Cards:        20,
		Days:         60,
		DuplicatePct: 0.2,
		Workers:      4,
		Timeout:      5 * time.Second,
		Settle:       5 * time.Second,
		Seed:         42,
		NextDayStart: nds,
	}
}

func newServer(svc *service.Service) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestRun(t *testing.T) {
	Convey("Given a running recall server", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(64))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		srv := newServer(svc)
		defer srv.Close()

		Convey("When a load run is executed", func() {
			stats, err := loadgen.Run(ctx, validConfig(srv.URL))

			Convey("Then the server report matches the local one", func() {
				So(err, ShouldBeNil)
				So(stats.Mismatches, ShouldBeEmpty)
				So(stats.EventsGenerated, ShouldEqual, 300)
				So(stats.EventsSubmitted, ShouldEqual, 360)
				So(stats.EventsAccepted, ShouldEqual, 300)
				So(stats.EventsDuplicate, ShouldEqual, 60)
				So(stats.EventsFailed, ShouldEqual, 0)
				So(stats.ServerRetention.NextDayStart, ShouldEqual, nds)
			})
		})

		Convey("When the server already holds other reviews", func() {
			So(svc.Enqueue(ctx, model.StudyEvent{
				EventID: "stray", CardID: 1, Timestamp: nds - 10, Kind: model.KindReview, LastInterval: 3, Button: 3,
			}), ShouldBeTrue)

			cfg := validConfig(srv.URL)
			cfg.Settle = 200 * time.Millisecond
			stats, err := loadgen.Run(ctx, cfg)

			Convey("Then the mismatch is reported", func() {
				So(errors.Is(err, loadgen.ErrMismatch), ShouldBeTrue)
				So(stats.Mismatches, ShouldNotBeEmpty)
			})
		})
	})
}

func TestClient(t *testing.T) {
	Convey("Given a server that rejects everything", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()
		client := loadgen.NewClient(srv.URL, time.Second)

		Convey("Then submissions fail with the status", func() {
			_, err := client.Submit(context.Background(), model.StudyEvent{CardID: 1, Kind: model.KindReview})
			So(errors.Is(err, loadgen.ErrStatus), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "boom")
		})

		Convey("Then reports fail with the status", func() {
			_, err := client.Retention(context.Background(), nds)
			So(errors.Is(err, loadgen.ErrStatus), ShouldBeTrue)
		})
	})
}
