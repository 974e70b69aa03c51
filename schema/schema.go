// Package schema reads and writes descriptor definitions in YAML.
//
// A schema document has an optional types section of named definitions and
// a record, the descriptor the document describes:
//
//	types:
//	  limits_t:
//	    low: double
//	    high: double
//	  choice:
//	    $union: true
//	    i: int
//	    s: string(16)
//	record:
//	  $id: sensor_t
//	  value: double
//	  alarm: alarm_t
//	  limits: limits_t
//	  history: limits_t[]
//	  samples: double[]
//	  extra: any
//
// A type is either a name or a mapping. Names are scalar kinds (boolean,
// byte, short, int, long, ubyte, ushort, uint, ulong, float, double,
// string), string(N) for a bounded string, any for a variant union, the
// standard aggregates alarm_t, time_t, display_t, control_t and enum_t, or
// a name from the types section. A trailing [] makes an array of the named
// type. A mapping is an aggregate whose members keep the mapping's order;
// keys starting with $ set its attributes: $id, $union, $discriminated
// (default true) and $array.
package schema

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/pvdata/errors"
	"github.com/wippyai/pvdata/pvtype"
)

// Schema is a parsed schema document.
type Schema struct {
	Types  map[string]*pvtype.Descriptor
	Record *pvtype.Descriptor
}

// LoadFile parses the schema file at path.
func LoadFile(reg *pvtype.Registry, path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ParseFailed("schema file "+path, err)
	}
	return Parse(reg, data)
}

// Parse builds every descriptor of a schema document in reg.
func Parse(reg *pvtype.Registry, data []byte) (*Schema, error) {
	if reg == nil {
		return nil, errors.NilPointer(errors.PhaseParse, "registry")
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.ParseFailed("schema", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.InvalidData(errors.PhaseParse, nil, "empty schema document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nodeError(root, nil, "schema document must be a mapping")
	}

	p := &parser{
		reg:       reg,
		defs:      make(map[string]*yaml.Node),
		types:     make(map[string]*pvtype.Descriptor),
		resolving: make(map[string]bool),
	}
	var order []string
	var record *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "types":
			if val.Kind != yaml.MappingNode {
				return nil, nodeError(val, []string{"types"}, "types must be a mapping")
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				name := val.Content[j].Value
				if _, dup := p.defs[name]; dup {
					return nil, nodeError(val.Content[j], []string{"types", name}, "duplicate type name")
				}
				if _, builtin := p.builtin(name); builtin {
					return nil, nodeError(val.Content[j], []string{"types", name}, "type name shadows a built-in type")
				}
				p.defs[name] = val.Content[j+1]
				order = append(order, name)
			}
		case "record":
			record = val
		default:
			return nil, nodeError(key, nil, fmt.Sprintf("unknown schema key %q", key.Value))
		}
	}

	s := &Schema{Types: p.types}
	for _, name := range order {
		if _, err := p.resolve(name, p.defs[name]); err != nil {
			return nil, err
		}
	}
	if record != nil {
		d, err := p.typeOf(record, []string{"record"})
		if err != nil {
			return nil, err
		}
		s.Record = d
	}
	return s, nil
}

type parser struct {
	reg       *pvtype.Registry
	defs      map[string]*yaml.Node
	types     map[string]*pvtype.Descriptor
	resolving map[string]bool
}

func nodeError(n *yaml.Node, path []string, detail string) error {
	return errors.New(errors.PhaseParse, errors.KindInvalidData).
		Path(path...).
		Detail("line %d: %s", n.Line, detail).
		Build()
}

func descriptorError(n *yaml.Node, path []string, err error) error {
	return errors.New(errors.PhaseParse, errors.KindInvalidDescriptor).
		Path(path...).
		Detail("line %d", n.Line).
		Cause(err).
		Build()
}

func (p *parser) resolve(name string, n *yaml.Node) (*pvtype.Descriptor, error) {
	if d, ok := p.types[name]; ok {
		return d, nil
	}
	if p.resolving[name] {
		return nil, nodeError(n, []string{"types", name}, "type refers to itself")
	}
	p.resolving[name] = true
	defer delete(p.resolving, name)

	d, err := p.typeOf(n, []string{"types", name})
	if err != nil {
		return nil, err
	}
	p.types[name] = d
	return d, nil
}

func (p *parser) typeOf(n *yaml.Node, path []string) (*pvtype.Descriptor, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return p.named(n, strings.TrimSpace(n.Value), path)
	case yaml.MappingNode:
		return p.composite(n, path)
	default:
		return nil, nodeError(n, path, "type must be a name or a mapping")
	}
}

func (p *parser) builtin(name string) (*pvtype.Descriptor, bool) {
	switch name {
	case "any":
		return p.reg.VariantUnion(), true
	case pvtype.AlarmID:
		return p.reg.Alarm(), true
	case pvtype.TimeStampID:
		return p.reg.TimeStamp(), true
	case pvtype.DisplayID:
		return p.reg.Display(), true
	case pvtype.ControlID:
		return p.reg.Control(), true
	case pvtype.EnumeratedID:
		return p.reg.Enumerated(), true
	}
	if k, ok := pvtype.ParseScalarKind(name); ok {
		d, _ := p.reg.Scalar(k)
		return d, true
	}
	return nil, false
}

func (p *parser) named(n *yaml.Node, expr string, path []string) (*pvtype.Descriptor, error) {
	if base, ok := strings.CutSuffix(expr, "[]"); ok {
		elem, err := p.named(n, base, path)
		if err != nil {
			return nil, err
		}
		return p.arrayOf(n, elem, path)
	}
	if d, ok := p.builtin(expr); ok {
		return d, nil
	}
	if arg, ok := strings.CutPrefix(expr, "string("); ok && strings.HasSuffix(arg, ")") {
		bound, err := strconv.Atoi(strings.TrimSuffix(arg, ")"))
		if err != nil {
			return nil, nodeError(n, path, fmt.Sprintf("bad string bound in %q", expr))
		}
		d, err := p.reg.BoundedString(bound)
		if err != nil {
			return nil, descriptorError(n, path, err)
		}
		return d, nil
	}
	if def, ok := p.defs[expr]; ok {
		return p.resolve(expr, def)
	}
	return nil, nodeError(n, path, fmt.Sprintf("unknown type %q", expr))
}

func (p *parser) arrayOf(n *yaml.Node, elem *pvtype.Descriptor, path []string) (*pvtype.Descriptor, error) {
	var (
		d   *pvtype.Descriptor
		err error
	)
	switch elem.Kind() {
	case pvtype.KindScalar, pvtype.KindBoundedString:
		d, err = p.reg.ArrayOf(elem)
	case pvtype.KindAggregate:
		d, err = p.reg.AggregateArray(elem)
	case pvtype.KindUnion:
		d, err = p.reg.UnionArray(elem)
	default:
		return nil, nodeError(n, path, fmt.Sprintf("no array of %s", elem.TypeName()))
	}
	if err != nil {
		return nil, descriptorError(n, path, err)
	}
	return d, nil
}

func (p *parser) composite(n *yaml.Node, path []string) (*pvtype.Descriptor, error) {
	var (
		id            string
		union, array  bool
		discriminated = true
		members       []pvtype.Member
	)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		var err error
		switch key.Value {
		case "$id":
			err = val.Decode(&id)
		case "$union":
			err = val.Decode(&union)
		case "$discriminated":
			err = val.Decode(&discriminated)
		case "$array":
			err = val.Decode(&array)
		default:
			if strings.HasPrefix(key.Value, "$") {
				return nil, nodeError(key, path, fmt.Sprintf("unknown attribute %q", key.Value))
			}
			mp := append(append([]string(nil), path...), key.Value)
			d, terr := p.typeOf(val, mp)
			if terr != nil {
				return nil, terr
			}
			members = append(members, pvtype.M(key.Value, d))
		}
		if err != nil {
			return nil, nodeError(val, path, fmt.Sprintf("attribute %s: %v", key.Value, err))
		}
	}

	var (
		d   *pvtype.Descriptor
		err error
	)
	switch {
	case union && len(members) == 0:
		d = p.reg.VariantUnion()
	case union:
		d, err = p.reg.UnionWithID(id, discriminated, members...)
	default:
		d, err = p.reg.AggregateWithID(id, members...)
	}
	if err != nil {
		return nil, descriptorError(n, path, err)
	}
	if array {
		return p.arrayOf(n, d, path)
	}
	return d, nil
}
