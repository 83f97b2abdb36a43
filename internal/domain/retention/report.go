package retention

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Bucket holds the four outcome counters of one window.
type Bucket struct {
	YoungPassed  uint32 `json:"young_passed"`
	YoungFailed  uint32 `json:"young_failed"`
	MaturePassed uint32 `json:"mature_passed"`
	MatureFailed uint32 `json:"mature_failed"`
}

func (b *Bucket) inc(l Label) {
	switch l {
	case YoungPassed:
		b.YoungPassed++
	case YoungFailed:
		b.YoungFailed++
	case MaturePassed:
		b.MaturePassed++
	case MatureFailed:
		b.MatureFailed++
	}
}

// Count returns the counter for l.
func (b Bucket) Count(l Label) uint32 {
	switch l {
	case YoungPassed:
		return b.YoungPassed
	case YoungFailed:
		return b.YoungFailed
	case MaturePassed:
		return b.MaturePassed
	case MatureFailed:
		return b.MatureFailed
	default:
		return 0
	}
}

// Add returns the element-wise sum of b and o.
func (b Bucket) Add(o Bucket) Bucket {
	return Bucket{
		YoungPassed:  b.YoungPassed + o.YoungPassed,
		YoungFailed:  b.YoungFailed + o.YoungFailed,
		MaturePassed: b.MaturePassed + o.MaturePassed,
		MatureFailed: b.MatureFailed + o.MatureFailed,
	}
}

// Total is the number of counted reviews in the bucket.
func (b Bucket) Total() uint32 {
	return b.YoungPassed + b.YoungFailed + b.MaturePassed + b.MatureFailed
}

// Report holds one bucket per window, indexed by Window.
type Report [windowCount]Bucket

// Bucket returns the counters of w.
func (r *Report) Bucket(w Window) Bucket {
	return r[w]
}

// Add returns the window-wise sum of r and o. Shard reports merge this way.
func (r Report) Add(o Report) Report {
	var out Report
	for i := range out {
		out[i] = r[i].Add(o[i])
	}
	return out
}

// MarshalJSON writes the six windows as an object in output order.
func (r Report) MarshalJSON() ([]byte, error) {
	return marshalWindows(func(w Window) any { return r[w] })
}

// UnmarshalJSON reads a report object. Missing windows stay zero; unknown
// window names are rejected.
func (r *Report) UnmarshalJSON(data []byte) error {
	var raw map[string]Bucket
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Report
	for name, b := range raw {
		w, err := ParseWindow(name)
		if err != nil {
			return err
		}
		out[w] = b
	}
	*r = out
	return nil
}

// marshalWindows writes {"today":v(Today),...,"all_time":v(AllTime)}.
func marshalWindows(v func(Window) any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, w := range Windows() {
		if w > 0 {
			buf.WriteByte(',')
		}
		b, err := json.Marshal(v(w))
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "%q:", windowNames[w])
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Diagnostics counts the events of a calculation by outcome. Events that fall
// in no window are only counted in OutOfRange.
type Diagnostics struct {
	Counted       uint64 `json:"counted"`
	FilteredKind  uint64 `json:"filtered_kind"`
	ManualKind    uint64 `json:"manual_kind"`
	UnknownKind   uint64 `json:"unknown_kind"`
	SubDayStep    uint64 `json:"sub_day_step"`
	InvalidButton uint64 `json:"invalid_button"`
	OutOfRange    uint64 `json:"out_of_range"`
}

func (d *Diagnostics) record(x Exclusion) {
	switch x {
	case Included:
		d.Counted++
	case ExcludedFiltered:
		d.FilteredKind++
	case ExcludedManual:
		d.ManualKind++
	case ExcludedUnknownKind:
		d.UnknownKind++
	case ExcludedSubDay:
		d.SubDayStep++
	case ExcludedInvalidButton:
		d.InvalidButton++
	}
}

// Excluded returns the number of in-range events that were not counted.
func (d Diagnostics) Excluded() uint64 {
	return d.FilteredKind + d.ManualKind + d.UnknownKind + d.SubDayStep + d.InvalidButton
}

// Add returns the field-wise sum of d and o.
func (d Diagnostics) Add(o Diagnostics) Diagnostics {
	return Diagnostics{
		Counted:       d.Counted + o.Counted,
		FilteredKind:  d.FilteredKind + o.FilteredKind,
		ManualKind:    d.ManualKind + o.ManualKind,
		UnknownKind:   d.UnknownKind + o.UnknownKind,
		SubDayStep:    d.SubDayStep + o.SubDayStep,
		InvalidButton: d.InvalidButton + o.InvalidButton,
		OutOfRange:    d.OutOfRange + o.OutOfRange,
	}
}
