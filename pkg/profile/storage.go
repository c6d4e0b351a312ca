package profile

import (
	"math"

	"github.com/TFMV/scour/pkg/core"
)

// offsetWidth is the per-value offset overhead of variable width storage.
const offsetWidth = 4

func (p *Profiler) storage(cp *ColumnProfile, col *core.Column, present []int, counts map[string]int, typ core.LogicalType) {
	cp.EstimatedBytes = EstimateBytes(cp.Storage, col, counts)
	cp.OptimalStorage = cp.Storage
	cp.OptimalBytes = cp.EstimatedBytes

	if cp.InvalidCount > 0 || cp.SentinelCount > 0 || len(present) == 0 {
		return
	}

	var candidate core.Storage
	switch typ {
	case core.TypeNumeric:
		candidate = p.numericStorage(col, present)
	case core.TypeDatetime:
		if cp.NoncanonicalCount == 0 {
			candidate = core.StorageTimestamp
		}
	case core.TypeBoolean:
		if cp.NoncanonicalCount == 0 {
			candidate = core.StorageBool
		}
	case core.TypeCategorical:
		if ratio(cp.UniqueCount, cp.RowCount) < p.cfg.CategoricalRatio {
			candidate = core.StorageDictionary
		}
	case core.TypeText:
		if cp.Storage == core.StorageDictionary {
			candidate = core.StorageString
		}
	}
	if candidate == "" || candidate == cp.Storage {
		return
	}
	if bytes := EstimateBytes(candidate, col, counts); bytes < cp.EstimatedBytes {
		cp.OptimalStorage = candidate
		cp.OptimalBytes = bytes
	}
}

// numericStorage picks the narrowest integer class holding every value, then
// float32 when every value round-trips, then float64.
func (p *Profiler) numericStorage(col *core.Column, present []int) core.Storage {
	lo, hi := math.Inf(1), math.Inf(-1)
	integral, fits32 := true, true
	for _, i := range present {
		f, ok := p.ParseNumber(col.Values[i].Str)
		if !ok {
			return ""
		}
		lo, hi = math.Min(lo, f), math.Max(hi, f)
		if !core.IsIntegral(f) {
			integral = false
		}
		if float64(float32(f)) != f {
			fits32 = false
		}
	}
	if integral {
		return IntegerStorage(lo, hi)
	}
	if fits32 {
		return core.StorageFloat32
	}
	return core.StorageFloat64
}

// IntegerStorage returns the narrowest integer class for the range [lo, hi].
func IntegerStorage(lo, hi float64) core.Storage {
	switch {
	case lo >= 0 && hi <= math.MaxUint8:
		return core.StorageUint8
	case lo >= math.MinInt8 && hi <= math.MaxInt8:
		return core.StorageInt8
	case lo >= 0 && hi <= math.MaxUint16:
		return core.StorageUint16
	case lo >= math.MinInt16 && hi <= math.MaxInt16:
		return core.StorageInt16
	case lo >= 0 && hi <= math.MaxUint32:
		return core.StorageUint32
	case lo >= math.MinInt32 && hi <= math.MaxInt32:
		return core.StorageInt32
	}
	return core.StorageInt64
}

// EstimateBytes approximates the in-memory size of a column stored as s.
func EstimateBytes(s core.Storage, col *core.Column, counts map[string]int) int64 {
	rows := int64(col.Len())
	if w := s.Width(); w > 0 {
		if s == core.StorageBool {
			return (rows + 7) / 8
		}
		return rows * int64(w)
	}
	if s == core.StorageDictionary {
		var dict int64
		for v := range counts {
			dict += int64(len(v)) + offsetWidth
		}
		return rows*4 + dict
	}
	var total int64
	for _, v := range col.Values {
		if !v.Null {
			total += int64(len(v.Str))
		}
	}
	return total + rows*offsetWidth
}
