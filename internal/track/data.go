// Package track accumulates status measurements between persisted merges.
//
// A Data value is either a running total (stored as rule internal data) or
// a diff buffered by an Accumulator. Diffs are folded into totals with
// Merge; Combine concatenates two diffs so that merging the combination
// equals merging them one after the other.
package track

import (
	"fmt"

	"github.com/roach88/warden/internal/ir"
)

// OrgasmEvent snapshots the last countable event.
type OrgasmEvent struct {
	Source   int64
	Target   int64
	Activity string
	Zone     string
	Item     string
	At       int64
}

// Data is a bag of counters. Durations are milliseconds.
type Data struct {
	ActiveTime    int64
	EdgedTime     int64
	OrgasmCount   int64
	RuinedCount   int64
	NoActiveTime  int64
	NoEdgedTime   int64
	NoRuinedCount int64
	// LastArousal is the last observed arousal progress, -1 if none.
	LastArousal int64
	LastOrgasm  *OrgasmEvent
}

// Zero returns an empty total or diff.
func Zero() Data {
	return Data{LastArousal: -1}
}

const (
	keyActiveTime    = "active_time"
	keyEdgedTime     = "edged_time"
	keyOrgasmCount   = "orgasm_count"
	keyRuinedCount   = "ruined_count"
	keyNoActiveTime  = "no_active_time"
	keyNoEdgedTime   = "no_edged_time"
	keyNoRuinedCount = "no_ruined_count"
	keyLastArousal   = "last_arousal"
	keyLastOrgasm    = "last_orgasm_data"
)

// Counters returns the numeric fields keyed by their stored names.
func (d Data) Counters() map[string]int64 {
	return map[string]int64{
		keyActiveTime:    d.ActiveTime,
		keyEdgedTime:     d.EdgedTime,
		keyOrgasmCount:   d.OrgasmCount,
		keyRuinedCount:   d.RuinedCount,
		keyNoActiveTime:  d.NoActiveTime,
		keyNoEdgedTime:   d.NoEdgedTime,
		keyNoRuinedCount: d.NoRuinedCount,
		keyLastArousal:   d.LastArousal,
	}
}

func (d Data) countable() bool {
	return d.OrgasmCount > 0 && d.LastOrgasm != nil
}

// Merge folds diff into total and returns the new total.
func Merge(total, diff Data) Data {
	out := total
	out.ActiveTime += diff.ActiveTime
	out.EdgedTime += diff.EdgedTime
	out.OrgasmCount += diff.OrgasmCount
	out.RuinedCount += diff.RuinedCount
	if diff.OrgasmCount > 0 {
		out.NoActiveTime = diff.NoActiveTime
		out.NoEdgedTime = diff.NoEdgedTime
		out.NoRuinedCount = diff.NoRuinedCount
	} else {
		out.NoActiveTime += diff.NoActiveTime
		out.NoEdgedTime += diff.NoEdgedTime
		out.NoRuinedCount += diff.NoRuinedCount
	}
	if diff.countable() {
		ev := *diff.LastOrgasm
		out.LastOrgasm = &ev
	}
	if diff.LastArousal >= 0 {
		out.LastArousal = diff.LastArousal
	}
	return out
}

// Combine concatenates diff d1 followed by diff d2.
func Combine(d1, d2 Data) Data {
	out := Merge(d1, d2)
	switch {
	case d2.countable():
	case d1.countable():
		ev := *d1.LastOrgasm
		out.LastOrgasm = &ev
	default:
		out.LastOrgasm = nil
	}
	return out
}

// Value encodes d in its stored shape.
func (d Data) Value() ir.Object {
	obj := make(ir.Object, 9)
	for k, v := range d.Counters() {
		obj[k] = ir.Int(v)
	}
	if d.LastOrgasm != nil {
		obj[keyLastOrgasm] = ir.Object{
			"source":   ir.Int(d.LastOrgasm.Source),
			"target":   ir.Int(d.LastOrgasm.Target),
			"activity": ir.String(d.LastOrgasm.Activity),
			"zone":     ir.String(d.LastOrgasm.Zone),
			"item":     ir.String(d.LastOrgasm.Item),
			"time":     ir.Int(d.LastOrgasm.At),
		}
	}
	return obj
}

// Decode parses a stored total. Missing counters default to zero and a
// missing last_arousal to -1; present fields must have the right type.
func Decode(v ir.Value) (Data, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return Data{}, fmt.Errorf("track data must be an object, got %s", ir.Kind(v))
	}
	d := Zero()
	fields := map[string]*int64{
		keyActiveTime:    &d.ActiveTime,
		keyEdgedTime:     &d.EdgedTime,
		keyOrgasmCount:   &d.OrgasmCount,
		keyRuinedCount:   &d.RuinedCount,
		keyNoActiveTime:  &d.NoActiveTime,
		keyNoEdgedTime:   &d.NoEdgedTime,
		keyNoRuinedCount: &d.NoRuinedCount,
		keyLastArousal:   &d.LastArousal,
	}
	for key, dst := range fields {
		raw, present := obj[key]
		if !present {
			continue
		}
		n, ok := raw.(ir.Int)
		if !ok {
			return Data{}, fmt.Errorf("track data %s must be an integer", key)
		}
		if n < 0 && key != keyLastArousal {
			return Data{}, fmt.Errorf("track data %s must not be negative", key)
		}
		*dst = int64(n)
	}

	if raw, present := obj[keyLastOrgasm]; present {
		if _, isNull := raw.(ir.Null); !isNull {
			ev, ok := raw.(ir.Object)
			if !ok {
				return Data{}, fmt.Errorf("track data %s must be an object", keyLastOrgasm)
			}
			src, _ := ev.Int("source")
			dst, _ := ev.Int("target")
			activity, _ := ev.String("activity")
			zone, _ := ev.String("zone")
			item, _ := ev.String("item")
			at, _ := ev.Int("time")
			d.LastOrgasm = &OrgasmEvent{Source: src, Target: dst, Activity: activity, Zone: zone, Item: item, At: at}
		}
	}
	return d, nil
}
