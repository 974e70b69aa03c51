package pvtype

import (
	"strings"

	"github.com/wippyai/pvdata/errors"
)

// Type IDs of the standard property aggregates.
const (
	AlarmID      = "alarm_t"
	TimeStampID  = "time_t"
	DisplayID    = "display_t"
	ControlID    = "control_t"
	EnumeratedID = "enum_t"
	ValueAlarmID = "valueAlarm_t"
	ScalarID     = "epics:nt/NTScalar:1.0"
)

// Alarm returns alarm_t {int severity, int status, string message}.
func (r *Registry) Alarm() *Descriptor {
	return r.mustAggregate(AlarmID,
		r.scalarMember("severity", Int32),
		r.scalarMember("status", Int32),
		r.scalarMember("message", String))
}

// TimeStamp returns time_t {long secondsPastEpoch, int nanoseconds, int userTag}.
func (r *Registry) TimeStamp() *Descriptor {
	return r.mustAggregate(TimeStampID,
		r.scalarMember("secondsPastEpoch", Int64),
		r.scalarMember("nanoseconds", Int32),
		r.scalarMember("userTag", Int32))
}

// Display returns display_t: limits, description, format and units.
func (r *Registry) Display() *Descriptor {
	return r.mustAggregate(DisplayID,
		r.scalarMember("limitLow", Float64),
		r.scalarMember("limitHigh", Float64),
		r.scalarMember("description", String),
		r.scalarMember("format", String),
		r.scalarMember("units", String))
}

// Control returns control_t: limits and the minimum step.
func (r *Registry) Control() *Descriptor {
	return r.mustAggregate(ControlID,
		r.scalarMember("limitLow", Float64),
		r.scalarMember("limitHigh", Float64),
		r.scalarMember("minStep", Float64))
}

// Enumerated returns enum_t {int index, string[] choices}.
func (r *Registry) Enumerated() *Descriptor {
	choices, _ := r.Array(String)
	return r.mustAggregate(EnumeratedID,
		r.scalarMember("index", Int32),
		M("choices", choices))
}

// ValueAlarm returns the alarm limit aggregate for a numeric value kind.
func (r *Registry) ValueAlarm(kind ScalarKind) (*Descriptor, error) {
	if !kind.IsInteger() && !kind.IsFloat() {
		return nil, errors.InvalidDescriptor([]string{"valueAlarm"}, "value kind %s is not numeric", kind)
	}
	return r.AggregateWithID(ValueAlarmID,
		r.scalarMember("active", Bool),
		r.scalarMember("lowAlarmLimit", kind),
		r.scalarMember("lowWarningLimit", kind),
		r.scalarMember("highWarningLimit", kind),
		r.scalarMember("highAlarmLimit", kind),
		r.scalarMember("lowAlarmSeverity", Int32),
		r.scalarMember("lowWarningSeverity", Int32),
		r.scalarMember("highWarningSeverity", Int32),
		r.scalarMember("highAlarmSeverity", Int32),
		r.scalarMember("hysteresis", kind))
}

// ScalarRecord returns a record with a scalar "value" member followed by
// the standard properties named in the comma separated props list, in
// the fixed order alarm, timeStamp, display, control, valueAlarm.
func (r *Registry) ScalarRecord(kind ScalarKind, props string) (*Descriptor, error) {
	value, err := r.Scalar(kind)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool)
	for _, p := range strings.Split(props, ",") {
		if p = strings.TrimSpace(p); p != "" {
			want[p] = true
		}
	}
	members := []Member{M("value", value)}
	if want["alarm"] {
		members = append(members, M("alarm", r.Alarm()))
	}
	if want["timeStamp"] {
		members = append(members, M("timeStamp", r.TimeStamp()))
	}
	if want["display"] {
		members = append(members, M("display", r.Display()))
	}
	if want["control"] {
		members = append(members, M("control", r.Control()))
	}
	if want["valueAlarm"] {
		va, err := r.ValueAlarm(kind)
		if err != nil {
			return nil, err
		}
		members = append(members, M("valueAlarm", va))
	}
	return r.AggregateWithID(ScalarID, members...)
}

func (r *Registry) scalarMember(name string, kind ScalarKind) Member {
	d, _ := r.Scalar(kind)
	return M(name, d)
}

// mustAggregate builds an aggregate from members that are known valid.
func (r *Registry) mustAggregate(id string, members ...Member) *Descriptor {
	d, err := r.AggregateWithID(id, members...)
	if err != nil {
		panic("pvtype: standard descriptor " + id + ": " + err.Error())
	}
	return d
}
