package source

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/okian/azicorr/internal/domain/model"
	"github.com/okian/azicorr/pkg/logger"
	"go-hep.org/x/hep/hepmc"
	"go-hep.org/x/hep/heppdt"
)

const (
	// statusFinal is the HepMC status code of stable final-state particles.
	statusFinal = 1

	maxLineSize = 1 << 20
)

var errTruncated = errors.New("truncated event")

// HepMC reads events from one or more HepMC2 ASCII files, in order. Files
// ending in .gz are decompressed on the fly. Each event is decoded on its
// own, so a malformed event is reported once and the next one is read
// normally.
type HepMC struct {
	paths  []string
	logger logger.Logger

	idx     int
	file    *os.File
	gz      *gzip.Reader
	lines   *bufio.Scanner
	listing string // start-of-listing line of the current file
	next    string // "E" line opening the next event
	count   int
	closed  bool
}

// HepMCOption configures a HepMC source.
type HepMCOption func(*HepMC)

// WithHepMCLogger sets the logger used for file transitions.
func WithHepMCLogger(l logger.Logger) HepMCOption {
	return func(h *HepMC) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHepMC returns a source over paths. Files are opened lazily.
func NewHepMC(paths []string, opts ...HepMCOption) (*HepMC, error) {
	if len(paths) == 0 {
		return nil, ErrNoInputs
	}
	h := &HepMC{paths: append([]string(nil), paths...)}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("source")
	}
	return h, nil
}

// Next implements Source.
func (h *HepMC) Next(ctx context.Context) (model.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return model.Event{}, err
		}
		if h.closed {
			return model.Event{}, ErrClosed
		}
		if h.lines == nil {
			if h.idx >= len(h.paths) {
				return model.Event{}, io.EOF
			}
			if err := h.open(ctx, h.paths[h.idx]); err != nil {
				return model.Event{}, err
			}
		}

		block, err := h.nextBlock()
		if err != nil {
			return model.Event{}, fmt.Errorf("read %s: %w", h.paths[h.idx], err)
		}
		if block == "" {
			h.logger.Info(ctx, "input exhausted",
				logger.String("path", h.paths[h.idx]),
				logger.Int("events", h.count),
			)
			if err := h.closeFile(); err != nil {
				return model.Event{}, err
			}
			h.idx++
			continue
		}

		h.count++
		evt, err := decodeBlock(h.listing, block)
		if err != nil {
			return model.Event{}, fmt.Errorf("%w: %s event %d: %w", ErrDecode, h.paths[h.idx], h.count, err)
		}
		return convert(filepath.Base(h.paths[h.idx]), evt), nil
	}
}

// nextBlock returns the lines of the next event, from its "E" line up to
// the following one. Stray lines before an "E" line form a block of their
// own. It returns "" at the end of the file.
func (h *HepMC) nextBlock() (string, error) {
	var b strings.Builder
	if h.next != "" {
		b.WriteString(h.next)
		b.WriteByte('\n')
		h.next = ""
	}
	for h.lines.Scan() {
		line := strings.TrimSpace(h.lines.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "HepMC::"):
			if strings.HasSuffix(line, "START_EVENT_LISTING") {
				h.listing = line
			}
			continue
		case line[0] == 'E' && b.Len() > 0:
			h.next = line
			return b.String(), nil
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String(), h.lines.Err()
}

// decodeBlock decodes one event block. Lines left over after the event are
// an error too. The decoder is read to the end of the block so its reader
// goroutine exits.
func decodeBlock(listing, block string) (*hepmc.Event, error) {
	if listing == "" {
		return nil, errors.New("event outside an event listing")
	}
	dec := hepmc.NewDecoder(strings.NewReader(listing + "\n" + block))
	var evt hepmc.Event
	err := dec.Decode(&evt)
	for drained := err; !endOfBlock(drained); {
		drained = dec.Decode(&hepmc.Event{})
		if err == nil && !endOfBlock(drained) {
			err = fmt.Errorf("trailing lines after event %d", evt.EventNumber)
		}
	}
	if endOfBlock(err) {
		// never wrap io.EOF: callers read it as the end of the stream
		err = errTruncated
	}
	if err != nil {
		return nil, err
	}
	return &evt, nil
}

func endOfBlock(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func (h *HepMC) open(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("open %s: %w", path, err)
		}
		h.gz = gz
		r = gz
	}
	h.file = f
	h.lines = bufio.NewScanner(r)
	h.lines.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	h.listing, h.next = "", ""
	h.count = 0
	h.logger.Info(ctx, "reading input", logger.String("path", path))
	return nil
}

func (h *HepMC) closeFile() error {
	var errs []error
	if h.gz != nil {
		errs = append(errs, h.gz.Close())
	}
	if h.file != nil {
		errs = append(errs, h.file.Close())
	}
	h.gz, h.file, h.lines = nil, nil, nil
	return errors.Join(errs...)
}

// Close implements Source.
func (h *HepMC) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.closeFile()
}

// convert keeps the final-state particles of evt, ordered by barcode so the
// result does not depend on map iteration.
func convert(file string, evt *hepmc.Event) model.Event {
	ev := model.Event{
		ID:              fmt.Sprintf("%s#%d", file, evt.EventNumber),
		Number:          evt.EventNumber,
		ImpactParameter: math.NaN(),
	}
	if evt.HeavyIon != nil {
		ev.ImpactParameter = float64(evt.HeavyIon.ImpactParameter)
	}

	barcodes := make([]int, 0, len(evt.Particles))
	for bc, p := range evt.Particles {
		if p != nil && p.Status == statusFinal {
			barcodes = append(barcodes, bc)
		}
	}
	sort.Ints(barcodes)

	ev.Particles = make([]model.Particle, 0, len(barcodes))
	for _, bc := range barcodes {
		p := evt.Particles[bc]
		pid := int(p.PdgID)
		ev.Particles = append(ev.Particles, model.FromP4(pid, charge(pid), &p.Momentum))
	}
	return ev
}

// charge looks up the PDG charge. Antiparticles missing from the table
// take the opposite charge of their partner; unknown codes are neutral.
func charge(pid int) float64 {
	if p := heppdt.ParticleByID(heppdt.PID(pid)); p != nil {
		return p.Charge
	}
	if p := heppdt.ParticleByID(heppdt.PID(-pid)); p != nil {
		return -p.Charge
	}
	return 0
}
