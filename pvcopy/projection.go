package pvcopy

import (
	"go.uber.org/zap"

	"github.com/wippyai/pvdata/bitset"
	"github.com/wippyai/pvdata/errors"
	"github.com/wippyai/pvdata/pvtype"
	"github.com/wippyai/pvdata/value"
)

// Projection maps between a master descriptor and a view holding a subset
// of its members. It owns only the offset mapping, never master data.
//
// Every view offset has a master image. A view aggregate is complete when
// it carries every member of its master aggregate; otherwise it is partial
// and its own bit stands for just the selected parts below it.
type Projection struct {
	master    *pvtype.Descriptor
	view      *pvtype.Descriptor
	selection Selection
	toMaster  []int
	toView    []int
	viewAt    []*pvtype.Descriptor
	complete  []bool
}

// Project builds the view of master that keeps sel. The view descriptor is
// created in reg and keeps the master's member order and type IDs.
func Project(reg *pvtype.Registry, master *pvtype.Descriptor, sel Selection) (*Projection, error) {
	if reg == nil {
		return nil, errors.NilPointer(errors.PhaseProject, "registry")
	}
	if master == nil {
		return nil, errors.NilPointer(errors.PhaseProject, "master descriptor")
	}
	t, err := sel.resolve(master)
	if err != nil {
		return nil, err
	}
	view, err := buildView(reg, master, t)
	if err != nil {
		return nil, err
	}

	p := &Projection{
		master:    master,
		view:      view,
		selection: sel,
		toMaster:  make([]int, view.NumberFields()),
		toView:    make([]int, master.NumberFields()),
		viewAt:    make([]*pvtype.Descriptor, view.NumberFields()),
		complete:  make([]bool, view.NumberFields()),
	}
	for i := range p.toView {
		p.toView[i] = -1
	}
	p.link(master, 0, view, 0)

	Logger().Debug("projection built",
		zap.String("master", master.TypeName()),
		zap.Stringer("selection", sel),
		zap.Int("master_fields", master.NumberFields()),
		zap.Int("view_fields", view.NumberFields()))
	return p, nil
}

func buildView(reg *pvtype.Registry, master *pvtype.Descriptor, t *trie) (*pvtype.Descriptor, error) {
	if t.whole || master.Kind() != pvtype.KindAggregate {
		return master, nil
	}
	var members []pvtype.Member
	for i := 0; i < master.NumMembers(); i++ {
		name := master.MemberName(i)
		child, ok := t.children[name]
		if !ok {
			continue
		}
		d, err := buildView(reg, master.Member(i), child)
		if err != nil {
			return nil, err
		}
		members = append(members, pvtype.M(name, d))
	}
	d, err := reg.AggregateWithID(master.ID(), members...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseProject, errors.KindInvalidDescriptor, err, "view descriptor")
	}
	return d, nil
}

// link walks view and master in step and records the offset mapping.
func (p *Projection) link(md *pvtype.Descriptor, mOff int, vd *pvtype.Descriptor, vOff int) {
	p.toMaster[vOff] = mOff
	p.toView[mOff] = vOff
	p.viewAt[vOff] = vd
	p.complete[vOff] = vd.NumberFields() == md.NumberFields()
	if vd.Kind() != pvtype.KindAggregate {
		return
	}
	for i := 0; i < vd.NumMembers(); i++ {
		mi := md.MemberIndex(vd.MemberName(i))
		p.link(md.Member(mi), mOff+md.MemberOffset(mi), vd.Member(i), vOff+vd.MemberOffset(i))
	}
}

// Master returns the descriptor the view was projected from.
func (p *Projection) Master() *pvtype.Descriptor {
	return p.master
}

// View returns the projected descriptor.
func (p *Projection) View() *pvtype.Descriptor {
	return p.view
}

// Selection returns the selection the view was built from.
func (p *Projection) Selection() Selection {
	return p.selection
}

// Bind creates a zero valued tree shaped by the view descriptor.
func (p *Projection) Bind() (*value.Tree, error) {
	return value.Bind(p.view)
}

// ViewOffset returns the view offset of a master offset, if it has one.
func (p *Projection) ViewOffset(master int) (int, bool) {
	if master < 0 || master >= len(p.toView) || p.toView[master] < 0 {
		return 0, false
	}
	return p.toView[master], true
}

// MasterOffset returns the master offset of a view offset.
func (p *Projection) MasterOffset(view int) (int, bool) {
	if view < 0 || view >= len(p.toMaster) {
		return 0, false
	}
	return p.toMaster[view], true
}

// ToViewBitSet maps master offsets to view offsets. Offsets outside the
// selection are dropped.
func (p *Projection) ToViewBitSet(masterBits *bitset.BitSet) *bitset.BitSet {
	out := bitset.New(len(p.toMaster))
	if masterBits == nil {
		return out
	}
	for m := masterBits.NextSetBit(0); m >= 0 && m < len(p.toView); m = masterBits.NextSetBit(m + 1) {
		if v := p.toView[m]; v >= 0 {
			out.Set(v)
		}
	}
	return out
}

// ToMasterBitSet maps view offsets to master offsets, one for one. A
// partial view aggregate maps to its own master offset.
func (p *Projection) ToMasterBitSet(viewBits *bitset.BitSet) *bitset.BitSet {
	out := bitset.New(len(p.toView))
	if viewBits == nil {
		return out
	}
	for v := viewBits.NextSetBit(0); v >= 0 && v < len(p.toMaster); v = viewBits.NextSetBit(v + 1) {
		out.Set(p.toMaster[v])
	}
	return out
}

// expand calls fn for v when complete, otherwise for the complete nodes
// below the partial aggregate v.
func (p *Projection) expand(v int, fn func(v int)) {
	if p.complete[v] {
		fn(v)
		return
	}
	vd := p.viewAt[v]
	for i := 0; i < vd.NumMembers(); i++ {
		p.expand(v+vd.MemberOffset(i), fn)
	}
}

// PushUpdate copies the master values selected by masterBits into view and
// returns the changed view offsets.
func (p *Projection) PushUpdate(master *value.Tree, masterBits *bitset.BitSet, view *value.Tree) (*bitset.BitSet, error) {
	if err := p.check(master, view); err != nil {
		return nil, err
	}
	viewBits := p.ToViewBitSet(masterBits)
	err := p.copySelected(viewBits, func(v int) error {
		dst, err := view.NodeAt(v)
		if err != nil {
			return err
		}
		src, err := master.NodeAt(p.toMaster[v])
		if err != nil {
			return err
		}
		return dst.CopyFrom(src)
	})
	if err != nil {
		return nil, err
	}
	return viewBits, nil
}

// PullUpdate copies the view values selected by viewBits back into master
// and returns the master offsets that were written. A partial view
// aggregate reports the complete nodes below it, since the rest of its
// master image is left alone.
func (p *Projection) PullUpdate(view *value.Tree, viewBits *bitset.BitSet, master *value.Tree) (*bitset.BitSet, error) {
	if err := p.check(master, view); err != nil {
		return nil, err
	}
	changed := bitset.New(len(p.toView))
	err := p.copySelected(viewBits, func(v int) error {
		dst, err := master.NodeAt(p.toMaster[v])
		if err != nil {
			return err
		}
		src, err := view.NodeAt(v)
		if err != nil {
			return err
		}
		if err := dst.CopyFrom(src); err != nil {
			return err
		}
		changed.Set(p.toMaster[v])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

func (p *Projection) copySelected(viewBits *bitset.BitSet, copyNode func(v int) error) error {
	if viewBits == nil {
		return nil
	}
	bits := viewBits.Clone().Restrict(len(p.toMaster))
	value.Compress(p.view, bits)
	var firstErr error
	for v := bits.NextSetBit(0); v >= 0 && firstErr == nil; v = bits.NextSetBit(v + 1) {
		p.expand(v, func(v int) {
			if firstErr == nil {
				firstErr = copyNode(v)
			}
		})
	}
	return firstErr
}

func (p *Projection) check(master, view *value.Tree) error {
	if master == nil || view == nil {
		return errors.NilPointer(errors.PhaseProject, "tree")
	}
	if !master.Descriptor().Equal(p.master) {
		return errors.ShapeMismatch(errors.PhaseProject, nil, p.master.TypeName(), master.Descriptor().TypeName())
	}
	if !view.Descriptor().Equal(p.view) {
		return errors.ShapeMismatch(errors.PhaseProject, nil, p.view.TypeName(), view.Descriptor().TypeName())
	}
	return nil
}
