// Package pvjson prints value trees as JSON and assigns JSON documents into
// existing trees.
//
// Aggregates map to objects in member order, scalar arrays and composite
// arrays to JSON arrays (a null element is null), and a union to an object
// holding its single active variant, or null when none is active. A variant
// union prints its active value directly. Non-finite floats print as the
// strings "NaN", "Infinity" and "-Infinity" and are accepted back in that
// form.
//
// Input may carry comments and trailing commas:
//
//	bits, err := pvjson.ParseInto(tree, []byte(`{
//		"value": 3.5, // reading
//		"alarm": {"severity": 2},
//	}`))
//
// ParseInto only touches the members present in the document and returns
// the offsets it assigned.
package pvjson
