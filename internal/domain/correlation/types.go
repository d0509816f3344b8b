package correlation

import (
	"github.com/okian/azicorr/internal/domain/centrality"
	"github.com/okian/azicorr/internal/domain/observable"
)

// NoBand marks a deposit whose trigger matched no configured band.
const NoBand = -1

// Deposit is one trigger/associated pair.
type Deposit struct {
	DPhi    float64 // wrapped azimuthal difference
	AssocPt float64 // associated pt
	ZT      float64 // associated pt over trigger pt
	Band    int     // trigger band index, or NoBand
}

// Contribution is everything one accepted event adds to its bin.
type Contribution struct {
	EventID      string
	Bin          int
	Triggers     int
	BandTriggers []int
	Deposits     []Deposit
}

// Outcome summarizes how ProcessEvent handled an event.
type Outcome struct {
	Veto       Veto
	Centrality float64
	Bin        int
	Triggers   int
	Pairs      int
}

// Accepted reports whether the event reached the accumulator.
func (o Outcome) Accepted() bool { return o.Veto == VetoNone }

// BinReport is the finalize outcome of one bin.
type BinReport struct {
	Bin          centrality.Bin
	Triggers     uint64
	Pairs        uint64
	BandTriggers []uint64
	Valid        bool
	Err          error
}

// Result is a finished distribution ready for a sink.
type Result struct {
	Key      observable.Key
	Bin      centrality.Bin
	Triggers uint64
	Valid    bool
	Dist     *observable.Distribution
}

// Report is returned by Finalize.
type Report struct {
	Accepted uint64
	Vetoes   map[string]uint64
	Bins     []BinReport
	Results  []Result
}

// InvalidBins returns the reports of bins left unnormalized.
func (r Report) InvalidBins() []BinReport {
	var out []BinReport
	for _, b := range r.Bins {
		if !b.Valid {
			out = append(out, b)
		}
	}
	return out
}

// BinStats is a live view of one bin's counters.
type BinStats struct {
	Index    int     `json:"index"`
	Low      float64 `json:"low"`
	High     float64 `json:"high"`
	Triggers uint64  `json:"triggers"`
	Pairs    uint64  `json:"pairs"`
}

// Stats is a live view of the accumulator.
type Stats struct {
	Accepted  uint64            `json:"accepted"`
	Vetoes    map[string]uint64 `json:"vetoes"`
	Bins      []BinStats        `json:"bins"`
	Finalized bool              `json:"finalized"`
}
