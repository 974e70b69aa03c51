// Package pvcopy builds views that keep a subset of a master descriptor and
// translates offsets, BitSets and values between master and view trees.
//
// A view is described by a Selection, either All or a list of dotted member
// paths, usually obtained from a request string:
//
//	req, _ := pvcopy.ParseRequest("field(value,alarm.severity)")
//	p, _ := pvcopy.Project(reg, master, req.Selection())
//	view, _ := p.Bind()
//	changed, _ := p.PushUpdate(masterTree, masterTree.TouchedSince(w), view)
package pvcopy
