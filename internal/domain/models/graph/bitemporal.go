package graph

import (
	"math"
	"time"
)

// OpenEnd is the sentinel marking a bitemporal interval as still open.
// A reserved max value is used instead of null so that range predicates
// like `n.tt_end < $threshold` never need an IS NULL branch.
const OpenEnd int64 = math.MaxInt64

// Bitemporal carries the two time dimensions every graph node records:
// valid time (when the fact holds in reality) and transaction time (when
// the system recorded it). All values are epoch milliseconds.
//
// Invariants: VTStart <= VTEnd and TTStart <= TTEnd. Nodes are immutable
// once transaction-closed; corrections close the old interval and insert a
// new node, never mutate historical facts in place.
type Bitemporal struct {
	VTStart int64 `json:"vt_start"`
	VTEnd   int64 `json:"vt_end"`
	TTStart int64 `json:"tt_start"`
	TTEnd   int64 `json:"tt_end"`
}

// NewOpenInterval returns a bitemporal envelope that starts now on both
// axes and is open-ended on both.
func NewOpenInterval(now time.Time) Bitemporal {
	ms := now.UnixMilli()
	return Bitemporal{
		VTStart: ms,
		VTEnd:   OpenEnd,
		TTStart: ms,
		TTEnd:   OpenEnd,
	}
}

// Props returns the envelope as query parameters.
func (b Bitemporal) Props() map[string]any {
	return map[string]any{
		"vt_start": b.VTStart,
		"vt_end":   b.VTEnd,
		"tt_start": b.TTStart,
		"tt_end":   b.TTEnd,
	}
}

// NowMillis returns the current time in epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
