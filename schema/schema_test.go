package schema

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pverrors "github.com/wippyai/pvdata/errors"
	"github.com/wippyai/pvdata/pvtype"
)

const sensorSchema = `
types:
  limits_t:
    low: double
    high: double
  choice:
    $union: true
    $id: choice_t
    i: int
    s: string(16)
record:
  $id: sensor_t
  value: double
  alarm: alarm_t
  limits: limits_t
  history: limits_t[]
  picks: choice[]
  samples: double[]
  labels: string(8)[]
  extra: any
  loose:
    $union: true
    $discriminated: false
    a: long
    b: boolean
  points:
    $array: true
    x: float
    y: float
`

func TestParse_Sensor(t *testing.T) {
	reg := pvtype.NewRegistry()
	s, err := Parse(reg, []byte(sensorSchema))
	require.NoError(t, err)
	require.NotNil(t, s.Record)

	rec := s.Record
	require.Equal(t, "sensor_t", rec.ID())
	require.Equal(t,
		[]string{"value", "alarm", "limits", "history", "picks", "samples", "labels", "extra", "loose", "points"},
		rec.Names())

	limits, err := reg.AggregateWithID("", pvtype.M("low", must(reg.Scalar(pvtype.Float64))), pvtype.M("high", must(reg.Scalar(pvtype.Float64))))
	require.NoError(t, err)
	require.Same(t, limits, s.Types["limits_t"])

	alarm, _ := rec.MemberByName("alarm")
	require.Same(t, reg.Alarm(), alarm)

	history, _ := rec.MemberByName("history")
	require.Equal(t, pvtype.KindAggregateArray, history.Kind())
	require.Same(t, limits, history.Element())

	picks, _ := rec.MemberByName("picks")
	require.Equal(t, pvtype.KindUnionArray, picks.Kind())
	require.Equal(t, "choice_t", picks.Element().ID())
	require.True(t, picks.Element().Discriminated())

	labels, _ := rec.MemberByName("labels")
	require.Equal(t, pvtype.KindArray, labels.Kind())
	require.Equal(t, 8, labels.Element().MaxLength())

	extra, _ := rec.MemberByName("extra")
	require.True(t, extra.IsVariant())

	loose, _ := rec.MemberByName("loose")
	require.Equal(t, pvtype.KindUnion, loose.Kind())
	require.False(t, loose.Discriminated())

	points, _ := rec.MemberByName("points")
	require.Equal(t, pvtype.KindAggregateArray, points.Kind())
	require.Equal(t, []string{"x", "y"}, points.Element().Names())

	// value, alarm (4), limits (3), then seven leaves
	require.Equal(t, 1+1+4+3+7, rec.NumberFields())
}

func TestParse_TypesOnly(t *testing.T) {
	reg := pvtype.NewRegistry()
	s, err := Parse(reg, []byte("types:\n  p:\n    x: int\n  q: p[]\n"))
	require.NoError(t, err)
	require.Nil(t, s.Record)
	require.Len(t, s.Types, 2)
	require.Same(t, s.Types["p"], s.Types["q"].Element())
}

func TestParse_ForwardReference(t *testing.T) {
	reg := pvtype.NewRegistry()
	s, err := Parse(reg, []byte("types:\n  outer:\n    in: inner\n  inner:\n    v: ulong\n"))
	require.NoError(t, err)
	in, _ := s.Types["outer"].MemberByName("in")
	require.Same(t, s.Types["inner"], in)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind pverrors.Kind
	}{
		{"not yaml", "record: [unclosed", pverrors.KindInvalidData},
		{"empty", "", pverrors.KindInvalidData},
		{"not a mapping", "- a\n- b\n", pverrors.KindInvalidData},
		{"unknown key", "records:\n  v: int\n", pverrors.KindInvalidData},
		{"unknown type", "record:\n  v: quad\n", pverrors.KindInvalidData},
		{"bad bound", "record:\n  v: string(x)\n", pverrors.KindInvalidData},
		{"zero bound", "record:\n  v: string(0)\n", pverrors.KindInvalidDescriptor},
		{"unknown attribute", "record:\n  $kind: x\n  v: int\n", pverrors.KindInvalidData},
		{"bad attribute value", "record:\n  $union: maybe\n  v: int\n", pverrors.KindInvalidData},
		{"cycle", "types:\n  a:\n    b: b\n  b:\n    a: a\n", pverrors.KindInvalidData},
		{"duplicate type", "types:\n  a: int\n  a: long\n", pverrors.KindInvalidData},
		{"shadows builtin", "types:\n  alarm_t: int\n", pverrors.KindInvalidData},
		{"sequence type", "record:\n  v: [int]\n", pverrors.KindInvalidData},
		{"array of array", "record:\n  v: int[][]\n", pverrors.KindInvalidData},
		{"duplicate member", "record:\n  v: int\n  v: long\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(pvtype.NewRegistry(), []byte(tt.doc))
			require.Error(t, err)
			var pe *pverrors.Error
			require.True(t, stderrors.As(err, &pe))
			require.Equal(t, pverrors.PhaseParse, pe.Phase)
			if tt.kind != "" {
				require.Equal(t, tt.kind, pe.Kind, "error: %v", err)
			}
		})
	}
}

func TestParse_ErrorCarriesPath(t *testing.T) {
	_, err := Parse(pvtype.NewRegistry(), []byte("record:\n  inner:\n    v: quad\n"))
	require.Error(t, err)
	var pe *pverrors.Error
	require.True(t, stderrors.As(err, &pe))
	require.Equal(t, []string{"record", "inner", "v"}, pe.Path)
	require.Contains(t, pe.Detail, "line 3")
}

func TestFormat_RoundTrip(t *testing.T) {
	reg := pvtype.NewRegistry()
	s, err := Parse(reg, []byte(sensorSchema))
	require.NoError(t, err)

	out, err := Format(s.Record)
	require.NoError(t, err)

	back, err := Parse(reg, out)
	require.NoError(t, err)
	require.Same(t, s.Record, back.Record, "formatted schema:\n%s", out)

	other, err := Parse(pvtype.NewRegistry(), out)
	require.NoError(t, err)
	require.True(t, s.Record.Equal(other.Record))
}

func TestFormat_StandardRecord(t *testing.T) {
	reg := pvtype.NewRegistry()
	d, err := reg.ScalarRecord(pvtype.Int32, "alarm,timeStamp,display,control,valueAlarm")
	require.NoError(t, err)

	out, err := Format(d)
	require.NoError(t, err)
	require.Contains(t, string(out), "$id: "+pvtype.AlarmID)

	back, err := Parse(reg, out)
	require.NoError(t, err)
	require.Same(t, d, back.Record)
}

func TestFormat_Errors(t *testing.T) {
	_, err := Format(nil)
	require.ErrorIs(t, err, &pverrors.Error{Kind: pverrors.KindNilPointer})

	reg := pvtype.NewRegistry()
	d, err := reg.Aggregate(pvtype.M("$v", must(reg.Scalar(pvtype.Int32))))
	require.NoError(t, err)
	_, err = Format(d)
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sensorSchema), 0o600))

	s, err := LoadFile(pvtype.NewRegistry(), path)
	require.NoError(t, err)
	require.Equal(t, "sensor_t", s.Record.ID())

	_, err = LoadFile(pvtype.NewRegistry(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func must(d *pvtype.Descriptor, err error) *pvtype.Descriptor {
	if err != nil {
		panic(err)
	}
	return d
}
