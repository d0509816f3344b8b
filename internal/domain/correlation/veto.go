package correlation

import "github.com/okian/azicorr/pkg/metrics"

// Veto is the reason an event was discarded before accumulation.
type Veto int

// Veto reasons. VetoNone means the event was accepted.
const (
	VetoNone Veto = iota
	VetoNotCalibrated
	VetoOutOfRange
	VetoNoBin
	VetoDuplicate
)

// Vetoes lists every real veto reason.
var Vetoes = []Veto{VetoNotCalibrated, VetoOutOfRange, VetoNoBin, VetoDuplicate}

func (v Veto) String() string {
	switch v {
	case VetoNone:
		return "none"
	case VetoNotCalibrated:
		return metrics.VetoNotCalibrated
	case VetoOutOfRange:
		return metrics.VetoOutOfRange
	case VetoNoBin:
		return metrics.VetoNoBin
	case VetoDuplicate:
		return metrics.VetoDuplicate
	default:
		return "unknown"
	}
}
