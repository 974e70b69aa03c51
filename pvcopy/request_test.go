package pvcopy

import (
	"testing"

	"github.com/stretchr/testify/require"

	pverrors "github.com/wippyai/pvdata/errors"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		request string
		want    []string
	}{
		{"empty", "", nil},
		{"bare list", "alarm,timeStamp,power.value", []string{"alarm", "power.value", "timeStamp"}},
		{"field", "field(value,alarm.severity)", []string{"alarm.severity", "value"}},
		{"empty field", "record[]field()getField()putField()", nil},
		{"record options", "record[process=true]field(alarm,timeStamp,power.value)", []string{"alarm", "power.value", "timeStamp"}},
		{"nested", "field(a.b{c.d})", []string{"a.b.c.d"}},
		{"nested with options", "field(a.b[x=y]{c.d[x=y]})", []string{"a.b.c.d"}},
		{"deep", "a{b{c{d}}}", []string{"a.b.c.d"}},
		{"sections with commas", "record[a=b,x=y]field(a) putField(a),getField(a)", []string{"a"}},
		{"spaces", " field( value , alarm ) ", []string{"alarm", "value"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest(tt.request)
			require.NoError(t, err)
			sel := req.Selection()
			if tt.want == nil {
				require.True(t, sel.IsAll())
				return
			}
			require.Equal(t, tt.want, sel.List())
		})
	}
}

func TestParseRequest_Options(t *testing.T) {
	req, err := ParseRequest("record[process=true,int=2]field(alarm,timeStamp[algorithm=onChange,causeMonitor=false],power{value,alarm})")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"process": "true", "int": "2"}, req.Record)
	require.Len(t, req.Fields, 3)
	require.Equal(t, "timeStamp", req.Fields[1].Path)
	require.Equal(t, map[string]string{"algorithm": "onChange", "causeMonitor": "false"}, req.Fields[1].Options)
	require.Len(t, req.Fields[2].Sub, 2)
	require.Equal(t, []string{"alarm", "power.alarm", "power.value", "timeStamp"}, req.Selection().List())
}

func TestParseRequest_Errors(t *testing.T) {
	for _, bad := range []string{
		"record[process=true,power.value",
		":field(record[process=false]power.value)",
		"field(a",
		"field(a..b)",
		"a,",
		"a{}",
		"a)",
		"record[novalue]",
		"bogus(a)",
	} {
		t.Run(bad, func(t *testing.T) {
			_, err := ParseRequest(bad)
			require.Error(t, err)
			var pe *pverrors.Error
			require.ErrorAs(t, err, &pe)
			require.Equal(t, pverrors.PhaseParse, pe.Phase)
		})
	}
}

func TestRequestDrivesProjection(t *testing.T) {
	reg, master := newMaster(t)
	req, err := ParseRequest("field(value,alarm{severity,status})")
	require.NoError(t, err)
	p, err := Project(reg, master, req.Selection())
	require.NoError(t, err)
	require.Equal(t, 5, p.View().NumberFields())
	require.Equal(t, []string{"alarm.severity", "alarm.status", "value"}, req.Selection().List())
}
