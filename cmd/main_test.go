package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	app "github.com/okian/azicorr/internal/app"
	"github.com/okian/azicorr/internal/config"
	"github.com/okian/azicorr/internal/domain/centrality"
	"github.com/okian/azicorr/internal/domain/correlation"
	"github.com/okian/azicorr/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
	"github.com/spf13/pflag"
)

func clearEnv() {
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, config.EnvPrefix) {
			_ = os.Unsetenv(name)
		}
	}
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	convey.Convey("Given the run command over synthetic events", t, func() {
		clearEnv()
		defer clearEnv()
		path := filepath.Join(t.TempDir(), "out", "azicorr.yoda")

		stdout, err := execute("run", "--synthetic", "300", "--seed", "3", "-w", "2", "-o", path, "--log-level", "warn")

		convey.Convey("Then the run succeeds and prints the bin summary", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(stdout, convey.ShouldContainSubstring, "CENTRALITY")
			convey.So(stdout, convey.ShouldContainSubstring, "events read 300")
			convey.So(stdout, convey.ShouldContainSubstring, "vetoed not_calibrated")
			convey.So(stdout, convey.ShouldContainSubstring, "distributions written")
		})

		convey.Convey("Then the YODA file holds the distributions", func() {
			data, readErr := os.ReadFile(path)
			convey.So(readErr, convey.ShouldBeNil)
			convey.So(string(data), convey.ShouldContainSubstring, "BEGIN YODA")
			convey.So(string(data), convey.ShouldContainSubstring, "AZICORR/yield/c00")
		})
	})

	convey.Convey("Given the run command without a source", t, func() {
		clearEnv()
		defer clearEnv()

		_, err := execute("run")

		convey.Convey("Then it fails validation", func() {
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a missing HepMC input", t, func() {
		clearEnv()
		defer clearEnv()

		_, err := execute("run", "-i", filepath.Join(t.TempDir(), "missing.hepmc"))

		convey.Convey("Then the run reports the open failure", func() {
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestValidateCommand(t *testing.T) {
	convey.Convey("Given the validate command", t, func() {
		clearEnv()
		defer clearEnv()

		convey.Convey("When a YAML file configures the analysis", func() {
			cfgPath := filepath.Join(t.TempDir(), "azicorr.yaml")
			yaml := "synthetic_events: 10\ncentrality_bins:\n  - {low: 0, high: 50}\n"
			convey.So(os.WriteFile(cfgPath, []byte(yaml), 0o600), convey.ShouldBeNil)

			stdout, err := execute("validate", "--config", cfgPath)

			convey.So(err, convey.ShouldBeNil)
			convey.So(stdout, convey.ShouldContainSubstring, "configuration ok: 1 centrality bins, 5 trigger bands")
			convey.So(stdout, convey.ShouldContainSubstring, "synthetic(10 events, seed 1)")
		})

		convey.Convey("When flags choose HepMC inputs", func() {
			stdout, err := execute("validate", "-i", "a.hepmc", "-i", "b.hepmc")

			convey.So(err, convey.ShouldBeNil)
			convey.So(stdout, convey.ShouldContainSubstring, "hepmc(a.hepmc, b.hepmc)")
		})

		convey.Convey("When the log level is unknown", func() {
			_, err := execute("validate", "--synthetic", "5", "--log-level", "chatty")

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestRunFlags_Apply(t *testing.T) {
	convey.Convey("Given a config selecting synthetic events", t, func() {
		cfg := config.New()
		cfg.SyntheticEvents = 100

		f := &runFlags{}
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		f.register(fs)

		convey.Convey("When inputs are passed on the command line", func() {
			convey.So(fs.Parse([]string{"-i", "x.hepmc", "--addr", ":9999"}), convey.ShouldBeNil)
			f.apply(fs, cfg)

			convey.Convey("Then the inputs replace the synthetic source", func() {
				convey.So(cfg.Inputs, convey.ShouldResemble, []string{"x.hepmc"})
				convey.So(cfg.SyntheticEvents, convey.ShouldEqual, 0)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9999")
			})
		})

		convey.Convey("When no flag is set", func() {
			convey.So(fs.Parse(nil), convey.ShouldBeNil)
			f.apply(fs, cfg)

			convey.Convey("Then the config is untouched", func() {
				convey.So(cfg, convey.ShouldResemble, func() *config.Config {
					c := config.New()
					c.SyntheticEvents = 100
					return c
				}())
			})
		})
	})
}

func TestPrintSummary(t *testing.T) {
	convey.Convey("Given a report with an empty bin", t, func() {
		rep := correlation.Report{
			Accepted: 12,
			Vetoes:   map[string]uint64{"no_bin": 3, "duplicate": 1},
			Bins: []correlation.BinReport{
				{Bin: centrality.Bin{Index: 0, Range: centrality.Range{Low: 0, High: 20}}, Triggers: 4, Pairs: 40, Valid: true},
				{Bin: centrality.Bin{Index: 1, Range: centrality.Range{Low: 20, High: 40}}},
			},
		}

		var buf bytes.Buffer
		err := printSummary(&buf, rep, map[string]any{"eventsRead": uint64(16), "sourceErrors": uint64(0)})

		convey.Convey("Then every bin and veto reason is listed", func() {
			convey.So(err, convey.ShouldBeNil)
			out := buf.String()
			convey.So(out, convey.ShouldContainSubstring, "no triggers, not normalized")
			convey.So(out, convey.ShouldContainSubstring, "events read 16, accepted 12")
			convey.So(strings.Index(out, "duplicate"), convey.ShouldBeLessThan, strings.Index(out, "no_bin"))
			convey.So(out, convey.ShouldContainSubstring, "0 distributions written")
		})
	})
}

func TestHTTPServer(t *testing.T) {
	convey.Convey("Given the HTTP server of a service", t, func() {
		convey.So(logger.InitWithWriter(&bytes.Buffer{}), convey.ShouldBeNil)
		svc := app.New()
		srv := newHTTPServer(context.Background(), ":0", svc)

		convey.Convey("Then it serves stats and results", func() {
			for _, path := range []string{"/stats", "/results", "/healthz"} {
				rec := httptest.NewRecorder()
				srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}
