package correlation

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/okian/azicorr/internal/domain/centrality"
	"github.com/okian/azicorr/internal/domain/observable"
	"github.com/okian/azicorr/internal/domain/selection"
)

// Axes holds the binning of each observable kind.
type Axes struct {
	DPhi observable.Axis // yield vs Δφ
	IAA  observable.Axis // yield vs associated pt
	IAAz observable.Axis // yield vs zT
}

func (a Axes) forKind(k observable.Kind) observable.Axis {
	switch k {
	case observable.KindIAA:
		return a.IAA
	case observable.KindIAAz:
		return a.IAAz
	default:
		return a.DPhi
	}
}

var titles = map[observable.Kind]string{
	observable.KindYield: "per-trigger yield vs delta phi",
	observable.KindIAA:   "per-trigger yield vs associated pT",
	observable.KindIAAz:  "per-trigger yield vs zT",
}

// binState is the accumulation state owned by one centrality bin. Sub-index
// 0 holds the distributions of all triggers; sub-index i+1 those of
// trigger band i.
type binState struct {
	bin          centrality.Bin
	triggers     uint64
	pairs        uint64
	bandTriggers []uint64
	dists        map[observable.Key]*observable.Distribution
	keys         []observable.Key
}

// divisor is the trigger count a sub-index is normalized by: all triggers
// for 0, the band's own triggers otherwise.
func (st *binState) divisor(sub int) uint64 {
	if sub == 0 {
		return st.triggers
	}
	return st.bandTriggers[sub-1]
}

func (st *binState) fill(sub int, dep Deposit) {
	for _, kind := range observable.Kinds {
		d := st.dists[observable.Key{Bin: st.bin.Index, Kind: kind, Sub: sub}]
		switch kind {
		case observable.KindYield:
			d.Fill(dep.DPhi, 1)
		case observable.KindIAA:
			d.Fill(dep.AssocPt, 1)
		case observable.KindIAAz:
			d.Fill(dep.ZT, 1)
		}
	}
}

// Accumulator owns every bin's trigger counter and distributions. Apply is
// safe for concurrent use; contributions are serialized by a mutex.
type Accumulator struct {
	mu        sync.Mutex
	bins      map[int]*binState
	bands     []selection.Band
	accepted  uint64
	vetoes    map[Veto]uint64
	finalized bool
	report    Report
}

// NewAccumulator books the distributions of every bin in binning: one set
// for all triggers and one per trigger band.
func NewAccumulator(binning *centrality.Binning, axes Axes, bands []selection.Band) (*Accumulator, error) {
	if binning == nil || binning.Len() == 0 {
		return nil, fmt.Errorf("%w: empty binning", ErrUnknownBin)
	}
	a := &Accumulator{
		bins:   make(map[int]*binState, binning.Len()),
		bands:  append([]selection.Band(nil), bands...),
		vetoes: make(map[Veto]uint64),
	}
	for _, bin := range binning.Bins() {
		st := &binState{
			bin:          bin,
			bandTriggers: make([]uint64, len(bands)),
			dists:        make(map[observable.Key]*observable.Distribution, (len(bands)+1)*len(observable.Kinds)),
		}
		for sub := 0; sub <= len(bands); sub++ {
			for _, kind := range observable.Kinds {
				key := observable.Key{Bin: bin.Index, Kind: kind, Sub: sub}
				title := fmt.Sprintf("%s, centrality %s", titles[kind], bin.Range)
				if sub > 0 {
					title += ", trigger " + bands[sub-1].String()
				}
				d, err := observable.New(key, axes.forKind(kind), title)
				if err != nil {
					return nil, fmt.Errorf("book %s: %w", key, err)
				}
				st.dists[key] = d
				st.keys = append(st.keys, key)
			}
		}
		a.bins[bin.Index] = st
	}
	return a, nil
}

// Apply adds one event's contribution to its bin. The contribution is
// validated before any state changes, so a rejected contribution leaves the
// accumulator untouched.
func (a *Accumulator) Apply(c Contribution) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return ErrFinalized
	}
	st, ok := a.bins[c.Bin]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBin, c.Bin)
	}
	if len(c.BandTriggers) > len(st.bandTriggers) {
		return fmt.Errorf("%w: contribution has %d bands, accumulator %d", ErrUnknownBand, len(c.BandTriggers), len(st.bandTriggers))
	}
	for _, dep := range c.Deposits {
		if dep.Band < NoBand || dep.Band >= len(a.bands) {
			return fmt.Errorf("%w: deposit band %d", ErrUnknownBand, dep.Band)
		}
	}

	a.accepted++
	st.triggers += uint64(c.Triggers)
	for i, n := range c.BandTriggers {
		st.bandTriggers[i] += uint64(n)
	}
	for _, dep := range c.Deposits {
		st.fill(0, dep)
		if dep.Band != NoBand {
			st.fill(dep.Band+1, dep)
		}
	}
	st.pairs += uint64(len(c.Deposits))
	return nil
}

// RecordVeto counts a vetoed event. Accumulation state is not touched.
func (a *Accumulator) RecordVeto(v Veto) {
	if v == VetoNone {
		return
	}
	a.mu.Lock()
	a.vetoes[v]++
	a.mu.Unlock()
}

// Finalize normalizes every distribution by the triggers it was filled
// from. Bins without triggers are reported invalid and left unscaled, as
// are band sets whose band saw no trigger. It runs once; later calls return
// ErrAlreadyFinalized and leave the distributions as they are.
func (a *Accumulator) Finalize() (Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return a.report, ErrAlreadyFinalized
	}
	a.finalized = true

	rep := Report{Accepted: a.accepted, Vetoes: a.vetoCounts()}
	for _, st := range a.sortedBins() {
		br := BinReport{
			Bin:          st.bin,
			Triggers:     st.triggers,
			Pairs:        st.pairs,
			BandTriggers: append([]uint64(nil), st.bandTriggers...),
			Valid:        st.triggers > 0,
		}
		if st.triggers == 0 {
			br.Err = fmt.Errorf("%w: bin %d %s", ErrZeroTriggers, st.bin.Index, st.bin.Range)
		}

		valid := make(map[int]bool, len(a.bands)+1)
		for sub := 0; sub <= len(a.bands); sub++ {
			valid[sub] = st.divisor(sub) > 0
		}
		for _, key := range st.keys {
			if !valid[key.Sub] {
				continue
			}
			if err := st.dists[key].Scale(1 / float64(st.divisor(key.Sub))); err != nil {
				valid[key.Sub] = false
				if key.Sub == 0 {
					br.Valid = false
					br.Err = err
				}
			}
		}
		rep.Bins = append(rep.Bins, br)

		for _, key := range st.keys {
			n := st.divisor(key.Sub)
			d := st.dists[key]
			d.Annotate("centrality", st.bin.Range.String())
			d.Annotate("triggers", strconv.FormatUint(n, 10))
			d.Annotate("valid", strconv.FormatBool(valid[key.Sub]))
			if key.Sub > 0 {
				d.Annotate("band", a.bands[key.Sub-1].String())
			}
			rep.Results = append(rep.Results, Result{
				Key:      key,
				Bin:      st.bin,
				Triggers: n,
				Valid:    valid[key.Sub],
				Dist:     d,
			})
		}
	}
	a.report = rep
	return rep, nil
}

// Stats returns a snapshot of the counters.
func (a *Accumulator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Stats{Accepted: a.accepted, Vetoes: a.vetoCounts(), Finalized: a.finalized}
	for _, st := range a.sortedBins() {
		s.Bins = append(s.Bins, BinStats{
			Index:    st.bin.Index,
			Low:      st.bin.Low,
			High:     st.bin.High,
			Triggers: st.triggers,
			Pairs:    st.pairs,
		})
	}
	return s
}

// Distribution returns the distribution for key.
func (a *Accumulator) Distribution(key observable.Key) (*observable.Distribution, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.bins[key.Bin]
	if !ok {
		return nil, false
	}
	d, ok := st.dists[key]
	return d, ok
}

func (a *Accumulator) sortedBins() []*binState {
	out := make([]*binState, 0, len(a.bins))
	for _, st := range a.bins {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].bin.Index < out[j].bin.Index })
	return out
}

func (a *Accumulator) vetoCounts() map[string]uint64 {
	out := make(map[string]uint64, len(Vetoes))
	for _, v := range Vetoes {
		out[v.String()] = a.vetoes[v]
	}
	return out
}
