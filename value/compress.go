package value

import (
	"github.com/wippyai/pvdata/bitset"
	"github.com/wippyai/pvdata/pvtype"
)

// Compress rewrites bits over d's offsets so that an aggregate whose
// members are all selected is represented by its own bit alone, and clears
// the descendants of any aggregate whose bit is already set. It reports
// whether the root is selected afterwards.
func Compress(d *pvtype.Descriptor, bits *bitset.BitSet) bool {
	return compress(d, 0, bits)
}

func compress(d *pvtype.Descriptor, base int, bits *bitset.BitSet) bool {
	if d.Kind() != pvtype.KindAggregate {
		return bits.Get(base)
	}
	if bits.Get(base) {
		clearRange(bits, base+1, base+d.NumberFields())
		return true
	}
	if d.NumMembers() == 0 {
		return false
	}
	all := true
	for i := 0; i < d.NumMembers(); i++ {
		if !compress(d.Member(i), base+d.MemberOffset(i), bits) {
			all = false
		}
	}
	if all {
		clearRange(bits, base+1, base+d.NumberFields())
		bits.Set(base)
	}
	return all
}

// Expand is the inverse of Compress: every set aggregate bit also sets all
// of its descendants.
func Expand(d *pvtype.Descriptor, bits *bitset.BitSet) {
	for i := bits.NextSetBit(0); i >= 0 && i < d.NumberFields(); i = bits.NextSetBit(i + 1) {
		sub, _, ok := d.AtOffset(i)
		if !ok || sub.Kind() != pvtype.KindAggregate {
			continue
		}
		for j := i + 1; j < i+sub.NumberFields(); j++ {
			bits.Set(j)
		}
	}
}

func clearRange(bits *bitset.BitSet, from, to int) {
	for i := bits.NextSetBit(from); i >= 0 && i < to; i = bits.NextSetBit(i + 1) {
		bits.Clear(i)
	}
}
