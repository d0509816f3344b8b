package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging at info level", func() {
			Get().Info(ctx, "run started", String("run", "abc"), Int("workers", 4))

			Convey("Then the message and fields are rendered", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "run started")
				So(out, ShouldContainSubstring, "run=abc")
				So(out, ShouldContainSubstring, "workers=4")
				So(out, ShouldContainSubstring, "source=")
			})
		})

		Convey("When debug is below the configured level", func() {
			So(SetLevelString("info"), ShouldBeNil)
			Get().Debug(ctx, "hidden")

			Convey("Then nothing is written", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
			})
		})

		Convey("When the level is lowered to debug", func() {
			So(SetLevelString("DEBUG"), ShouldBeNil)
			defer func() { _ = SetLevelString("info") }()
			Get().Debug(ctx, "visible")

			Convey("Then debug records are written", func() {
				So(buf.String(), ShouldContainSubstring, "visible")
			})
		})

		Convey("When using named and With loggers", func() {
			Named("pipeline").With(String("run", "r1")).Warn(ctx, "bin has no triggers", Int("bin", 2))

			Convey("Then the group and carried fields appear", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "pipeline.bin=2")
				So(out, ShouldContainSubstring, "run=r1")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(SetLevelString("warn"), ShouldBeNil)
		So(SetLevelString("warning"), ShouldBeNil)
		So(SetLevelString("error"), ShouldBeNil)
		So(SetLevelString(""), ShouldBeNil)
		So(SetLevelString("verbose"), ShouldNotBeNil)
	})
}

func TestInitWithNilWriter(t *testing.T) {
	Convey("Given a nil writer", t, func() {
		So(InitWithWriter(nil), ShouldNotBeNil)
	})
}

func TestParseLevel(t *testing.T) {
	Convey("Given level strings", t, func() {
		l, err := ParseLevel(" Warning ")
		So(err, ShouldBeNil)
		So(l, ShouldEqual, slog.LevelWarn)

		_, err = ParseLevel("trace")
		So(err, ShouldNotBeNil)
	})
}
