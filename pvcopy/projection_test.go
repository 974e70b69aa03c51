package pvcopy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/pvdata/bitset"
	pverrors "github.com/wippyai/pvdata/errors"
	"github.com/wippyai/pvdata/pvtype"
	"github.com/wippyai/pvdata/value"
)

// master offsets:
//
//	0 root, 1 value, 2 alarm, 3 severity, 4 status, 5 message,
//	6 timeStamp, 7 secondsPastEpoch, 8 nanoseconds, 9 userTag
func newMaster(t *testing.T) (*pvtype.Registry, *pvtype.Descriptor) {
	t.Helper()
	reg := pvtype.NewRegistry()
	d, err := reg.ScalarRecord(pvtype.Float64, "alarm,timeStamp")
	require.NoError(t, err)
	require.Equal(t, 10, d.NumberFields())
	return reg, d
}

func TestProject_ViewShape(t *testing.T) {
	reg, master := newMaster(t)

	p, err := Project(reg, master, Paths("timeStamp", "alarm.severity"))
	require.NoError(t, err)

	view := p.View()
	require.Equal(t, master.ID(), view.ID())
	require.Equal(t, []string{"alarm", "timeStamp"}, view.Names(), "master member order is kept")
	alarm, ok := view.MemberByName("alarm")
	require.True(t, ok)
	require.Equal(t, []string{"severity"}, alarm.Names())
	require.Equal(t, pvtype.AlarmID, alarm.ID())
	ts, _ := view.MemberByName("timeStamp")
	require.Same(t, reg.TimeStamp(), ts)

	// view: 0 root, 1 alarm, 2 severity, 3 timeStamp, 4..6
	require.Equal(t, 7, view.NumberFields())
	for v, m := range []int{0, 2, 3, 6, 7, 8, 9} {
		got, ok := p.MasterOffset(v)
		require.True(t, ok)
		require.Equal(t, m, got, "view offset %d", v)
		back, ok := p.ViewOffset(m)
		require.True(t, ok)
		require.Equal(t, v, back)
	}
	for _, m := range []int{1, 4, 5} {
		_, ok := p.ViewOffset(m)
		require.False(t, ok, "master offset %d is outside the selection", m)
	}
	_, ok = p.MasterOffset(7)
	require.False(t, ok)
}

func TestProject_All(t *testing.T) {
	reg, master := newMaster(t)
	p, err := Project(reg, master, All())
	require.NoError(t, err)
	require.Same(t, master, p.View())

	bits := bitset.Of(0, 3, 9)
	require.True(t, p.ToViewBitSet(bits).Equal(bits))
	require.True(t, p.ToMasterBitSet(bits).Equal(bits))
}

func TestProject_Errors(t *testing.T) {
	reg, master := newMaster(t)

	_, err := Project(reg, master, Paths("alarm.nope"))
	require.ErrorIs(t, err, &pverrors.Error{Kind: pverrors.KindNotFound})

	_, err = Project(reg, master, Paths("value.x"))
	require.ErrorIs(t, err, pverrors.ErrShapeMismatch)

	_, err = Project(reg, master, Paths())
	require.Error(t, err)

	_, err = Project(nil, master, All())
	require.Error(t, err)
}

func TestBitSetTranslation(t *testing.T) {
	reg, master := newMaster(t)
	p, err := Project(reg, master, Paths("value", "alarm.severity", "timeStamp"))
	require.NoError(t, err)
	// view: 0 root, 1 value, 2 alarm, 3 severity, 4 timeStamp, 5..7

	tests := []struct {
		name   string
		master *bitset.BitSet
		view   *bitset.BitSet
	}{
		{"leaves", bitset.Of(1, 3, 8), bitset.Of(1, 3, 6)},
		{"outside dropped", bitset.Of(4, 5), bitset.New(0)},
		{"complete aggregate", bitset.Of(6), bitset.Of(4)},
		{"partial aggregate", bitset.Of(2), bitset.Of(2)},
		{"root", bitset.Of(0), bitset.Of(0)},
		{"past the end", bitset.Of(1, 40), bitset.Of(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.ToViewBitSet(tt.master)
			require.True(t, got.Equal(tt.view), "ToViewBitSet = %v, want %v", got, tt.view)
		})
	}

	// a partial aggregate bit maps back to its own master offset
	require.True(t, p.ToMasterBitSet(bitset.Of(2)).Equal(bitset.Of(2)))
	require.True(t, p.ToMasterBitSet(bitset.Of(2, 3)).Equal(bitset.Of(2, 3)))
	require.True(t, p.ToMasterBitSet(bitset.Of(0)).Equal(bitset.Of(0)))
	require.True(t, p.ToMasterBitSet(bitset.Of(1, 40)).Equal(bitset.Of(1)))
	require.True(t, p.ToMasterBitSet(nil).IsEmpty())
}

func TestBitSetTranslation_Idempotent(t *testing.T) {
	reg, master := newMaster(t)
	p, err := Project(reg, master, Paths("value", "alarm.severity", "timeStamp.userTag", "timeStamp.nanoseconds"))
	require.NoError(t, err)

	// master offsets with a view image, partial aggregates included
	inside := bitset.Of(0, 1, 2, 3, 6, 8, 9)
	for mask := 0; mask < 1<<10; mask++ {
		bits := bitset.New(10)
		for i := 0; i < 10; i++ {
			if mask&(1<<i) != 0 {
				bits.Set(i)
			}
		}
		want := bits.Clone().And(inside)
		got := p.ToMasterBitSet(p.ToViewBitSet(bits))
		require.True(t, got.Equal(want), "bits %v: got %v, want %v", bits, got, want)
	}
}

func TestPushAndPullUpdate(t *testing.T) {
	reg, master := newMaster(t)
	p, err := Project(reg, master, Paths("value", "alarm.severity"))
	require.NoError(t, err)

	m, err := value.Bind(master)
	require.NoError(t, err)
	v, err := p.Bind()
	require.NoError(t, err)

	require.NoError(t, m.SetScalar("value", 3.14))
	require.NoError(t, m.SetScalar("alarm.severity", 2))
	require.NoError(t, m.SetScalar("alarm.message", "HIGH"))

	viewBits, err := p.PushUpdate(m, m.TouchedSince(0), v)
	require.NoError(t, err)
	require.True(t, viewBits.Equal(bitset.Of(1, 3)))
	got, _ := v.Scalar("value")
	require.Equal(t, 3.14, got)
	got, _ = v.Scalar("alarm.severity")
	require.Equal(t, int32(2), got)
	require.True(t, v.TouchedSince(0).Equal(viewBits), "push stamps the view")

	// whole master root pushes every selected value
	w := v.Clock()
	require.NoError(t, m.SetScalar("value", 1.0))
	_, err = p.PushUpdate(m, bitset.Of(0), v)
	require.NoError(t, err)
	require.True(t, v.TouchedSince(w).Equal(bitset.Of(1, 3)))
	got, _ = v.Scalar("value")
	require.Equal(t, 1.0, got)

	require.NoError(t, v.SetScalar("alarm.severity", 5))
	masterBits, err := p.PullUpdate(v, bitset.Of(3), m)
	require.NoError(t, err)
	require.True(t, masterBits.Equal(bitset.Of(3)))
	got, _ = m.Scalar("alarm.severity")
	require.Equal(t, int32(5), got)
	msg, _ := m.Scalar("alarm.message")
	require.Equal(t, "HIGH", msg, "pull leaves unselected master values alone")

	// a partial view root pulls and reports only the selected leaves
	masterBits, err = p.PullUpdate(v, bitset.Of(0), m)
	require.NoError(t, err)
	require.True(t, masterBits.Equal(bitset.Of(1, 3)), "got %v", masterBits)
}

func TestPushUpdate_ShapeChecks(t *testing.T) {
	reg, master := newMaster(t)
	p, err := Project(reg, master, Paths("value"))
	require.NoError(t, err)

	m, _ := value.Bind(master)
	wrong, _ := value.Bind(reg.Alarm())
	_, err = p.PushUpdate(m, bitset.Of(1), wrong)
	require.ErrorIs(t, err, pverrors.ErrShapeMismatch)
	_, err = p.PullUpdate(m, bitset.Of(1), m)
	require.ErrorIs(t, err, pverrors.ErrShapeMismatch)
	_, err = p.PushUpdate(nil, bitset.Of(1), wrong)
	require.Error(t, err)
}
