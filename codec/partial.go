package codec

import (
	"go.uber.org/zap"

	"github.com/wippyai/pvdata/bitset"
	"github.com/wippyai/pvdata/errors"
	"github.com/wippyai/pvdata/pvtype"
	"github.com/wippyai/pvdata/value"
)

// staged is one decoded partial entry waiting to be copied into the target.
type staged struct {
	tree   *value.Tree
	offset int
}

type partialSection struct {
	written *bitset.BitSet
	entries []staged
}

// readPartial parses a partial value section for desc without touching any
// target tree.
func (d *Decoder) readPartial(desc *pvtype.Descriptor) (*partialSection, error) {
	total := desc.NumberFields()
	count, err := d.readSize("partial entry count", 1)
	if err != nil {
		return nil, err
	}
	if count > total {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "more partial entries than offsets")
	}

	p := &partialSection{written: bitset.New(total)}
	prev, coverEnd := -1, 0
	for i := 0; i < count; i++ {
		delta, err := d.r.ReadSize()
		if err != nil {
			return nil, err
		}
		off := prev + 1 + delta
		if off >= total {
			return nil, errors.OffsetOutOfRange(errors.PhaseDecode, off, total)
		}
		prev = off
		p.written.Set(off)
		if off < coverEnd {
			continue
		}

		sub, _, _ := desc.AtOffset(off)
		t, err := value.Bind(sub)
		if err != nil {
			return nil, err
		}
		if err := d.readValue(t.Root(), 0); err != nil {
			return nil, err
		}
		p.entries = append(p.entries, staged{tree: t, offset: off})
		if sub.Kind() == pvtype.KindAggregate {
			coverEnd = off + sub.NumberFields()
		}
	}

	Logger().Debug("partial section decoded",
		zap.String("type", desc.TypeName()),
		zap.Int("entries", count),
		zap.Int("payloads", len(p.entries)))
	return p, nil
}

// apply copies every staged entry into t. Entries address nodes of t's own
// descriptor, so the copies cannot fail on shape.
func (p *partialSection) apply(t *value.Tree) error {
	for _, e := range p.entries {
		n, err := t.NodeAt(e.offset)
		if err != nil {
			return err
		}
		if err := n.CopyFrom(e.tree.Root()); err != nil {
			return err
		}
	}
	return nil
}
