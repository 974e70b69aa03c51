// Package pvtype describes the shape of structured process-variable data.
//
// A Descriptor is an immutable tree of kinds: scalars, bounded strings,
// scalar arrays, aggregates of named members, unions of named variants,
// and arrays of aggregates or unions. Descriptors are created through a
// Registry, which interns every shape so that structural equality and
// pointer equality coincide within one registry.
//
// Every descriptor numbers its nodes in depth-first pre-order. An
// aggregate occupies one offset for itself followed by the offsets of its
// members; every other kind is a single leaf offset. NumberFields gives the
// size of that numbering and Lookup and AtOffset translate between dotted
// member paths and offsets.
//
//	reg := pvtype.NewRegistry()
//	value, _ := reg.Scalar(pvtype.Float64)
//	rec, _ := reg.Aggregate(pvtype.M("value", value), pvtype.M("alarm", reg.Alarm()))
//	off, _, _ := rec.Lookup("alarm.severity") // 3
package pvtype
