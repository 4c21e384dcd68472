package vm

import (
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
	godsutils "github.com/emirpasic/gods/utils"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

const (
	// RangeCheckLimit is the exclusive bound of checked values
	RangeCheckLimit = uint64(1) << 16
	// maxBridgeStep is the largest gap between consecutive table values
	maxBridgeStep = 2187
)

// RangeChecker is the 16-bit range-check chiplet. It keeps a multiplicity
// per checked value and emits one table row per distinct value. Bridge rows
// with multiplicity zero keep every gap a power of three no larger than
// 3^7, and the table always runs from 0 to 65535.
type RangeChecker struct {
	lookups  *treemap.Map // value -> multiplicity
	requests []uint64
}

// NewRangeChecker creates an empty range checker
func NewRangeChecker() *RangeChecker {
	return &RangeChecker{lookups: treemap.NewWith(godsutils.UInt64Comparator)}
}

// Check records a lookup of value, which must be below 2^16
func (rc *RangeChecker) Check(value uint64) error {
	if value >= RangeCheckLimit {
		return fmt.Errorf("value %d is not a 16-bit value", value)
	}
	rc.requests = append(rc.requests, value)
	n, ok := rc.lookups.Get(value)
	if !ok {
		n = uint64(0)
	}
	rc.lookups.Put(value, n.(uint64)+1)
	return nil
}

// AddRangeChecks records several lookups
func (rc *RangeChecker) AddRangeChecks(values ...uint64) error {
	for _, v := range values {
		if err := rc.Check(v); err != nil {
			return err
		}
	}
	return nil
}

// Requests returns every checked value in lookup order
func (rc *RangeChecker) Requests() []uint64 {
	return append([]uint64(nil), rc.requests...)
}

// Multiplicity returns how often value was checked
func (rc *RangeChecker) Multiplicity(value uint64) uint64 {
	n, ok := rc.lookups.Get(value)
	if !ok {
		return 0
	}
	return n.(uint64)
}

type rangeRow struct {
	value        uint64
	multiplicity uint64
}

// rows builds the table from 0 to 65535 including bridge rows
func (rc *RangeChecker) rows() []rangeRow {
	values := make([]uint64, 0, rc.lookups.Size()+1)
	for _, k := range rc.lookups.Keys() {
		if v := k.(uint64); v > 0 {
			values = append(values, v)
		}
	}
	if len(values) == 0 || values[len(values)-1] != RangeCheckLimit-1 {
		values = append(values, RangeCheckLimit-1)
	}

	rows := []rangeRow{{value: 0, multiplicity: rc.Multiplicity(0)}}
	prev := uint64(0)
	for _, v := range values {
		for prev < v {
			prev += largestPowerOfThree(v - prev)
			if prev == v {
				rows = append(rows, rangeRow{value: v, multiplicity: rc.Multiplicity(v)})
			} else {
				rows = append(rows, rangeRow{value: prev})
			}
		}
	}
	return rows
}

// TraceLen returns the number of table rows, bridges included
func (rc *RangeChecker) TraceLen() int {
	return len(rc.rows())
}

// fillTrace writes the table at the bottom of the range columns, leaving
// (0, 0) padding rows above it.
func (rc *RangeChecker) fillTrace(dst [][]field.Element) {
	rows := rc.rows()
	mult, value := dst[RangeMultColIdx], dst[RangeValueColIdx]
	pad := len(mult) - len(rows)
	for i := 0; i < pad; i++ {
		mult[i] = field.Zero
		value[i] = field.Zero
	}
	for i, r := range rows {
		mult[pad+i] = field.New(r.multiplicity)
		value[pad+i] = field.New(r.value)
	}
}

// largestPowerOfThree returns the largest power of three that is at most
// gap and at most 3^7.
func largestPowerOfThree(gap uint64) uint64 {
	step := uint64(1)
	for step*3 <= gap && step*3 <= maxBridgeStep {
		step *= 3
	}
	return step
}

// rangeBalanced checks the log-derivative identity between the lookups and
// the range columns of a trace: Σ 1/(α - v) over lookups equals
// Σ m/(α - v) over rows.
func rangeBalanced(requests []uint64, mult, value []field.Element, alpha field.Element) bool {
	lhs := field.Zero
	for _, v := range requests {
		d := alpha.Sub(field.New(v))
		if d.IsZero() {
			return false
		}
		lhs = lhs.Add(d.Inverse())
	}
	rhs := field.Zero
	for i := range mult {
		if mult[i].IsZero() {
			continue
		}
		d := alpha.Sub(value[i])
		if d.IsZero() {
			return false
		}
		rhs = rhs.Add(mult[i].Mul(d.Inverse()))
	}
	return lhs.Equal(rhs)
}
