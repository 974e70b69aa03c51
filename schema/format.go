package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/pvdata/errors"
	"github.com/wippyai/pvdata/pvtype"
)

// Format renders d as a schema document whose record is d, with every
// aggregate and union written inline.
func Format(d *pvtype.Descriptor) ([]byte, error) {
	if d == nil {
		return nil, errors.NilPointer(errors.PhaseParse, "descriptor")
	}
	rec, err := toNode(d)
	if err != nil {
		return nil, err
	}
	doc := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{str("record"), rec}}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "format schema")
	}
	return out, nil
}

func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func boolean(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprint(b)}
}

func toNode(d *pvtype.Descriptor) (*yaml.Node, error) {
	switch d.Kind() {
	case pvtype.KindScalar, pvtype.KindBoundedString, pvtype.KindArray:
		return str(d.TypeName()), nil
	case pvtype.KindAggregate, pvtype.KindUnion:
		if d.IsVariant() {
			return str("any"), nil
		}
		m := &yaml.Node{Kind: yaml.MappingNode}
		if d.Kind() == pvtype.KindUnion {
			m.Content = append(m.Content, str("$union"), boolean(true))
			if !d.Discriminated() {
				m.Content = append(m.Content, str("$discriminated"), boolean(false))
			}
			if d.ID() != pvtype.DefaultUnionID {
				m.Content = append(m.Content, str("$id"), str(d.ID()))
			}
		} else if d.ID() != pvtype.DefaultAggregateID {
			m.Content = append(m.Content, str("$id"), str(d.ID()))
		}
		for i := 0; i < d.NumMembers(); i++ {
			name := d.MemberName(i)
			if strings.HasPrefix(name, "$") {
				return nil, errors.InvalidData(errors.PhaseParse, []string{name}, "member name cannot be written in a schema")
			}
			child, err := toNode(d.Member(i))
			if err != nil {
				return nil, err
			}
			m.Content = append(m.Content, str(name), child)
		}
		return m, nil
	case pvtype.KindAggregateArray, pvtype.KindUnionArray:
		elem, err := toNode(d.Element())
		if err != nil {
			return nil, err
		}
		if elem.Kind == yaml.ScalarNode {
			elem.Value += "[]"
			return elem, nil
		}
		elem.Content = append([]*yaml.Node{str("$array"), boolean(true)}, elem.Content...)
		return elem, nil
	}
	return nil, errors.Unsupported(errors.PhaseParse, d.Kind().String())
}
