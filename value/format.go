package value

import (
	"strconv"
	"strings"

	"github.com/wippyai/pvdata/pvtype"
)

// String renders the node and everything below it as an indented tree.
func (n *Node) String() string {
	var b strings.Builder
	n.dump(&b, "", 0)
	return strings.TrimSuffix(b.String(), "\n")
}

func (n *Node) dump(b *strings.Builder, name string, depth int) {
	indent := strings.Repeat("    ", depth)
	b.WriteString(indent)
	b.WriteString(n.desc.TypeName())
	if name != "" {
		b.WriteByte(' ')
		b.WriteString(name)
	}

	switch n.desc.Kind() {
	case pvtype.KindScalar, pvtype.KindBoundedString:
		b.WriteByte(' ')
		b.WriteString(FormatScalar(n.scalar))
		b.WriteByte('\n')
	case pvtype.KindArray:
		b.WriteString(" [")
		for i := 0; i < ArrayLen(n.array); i++ {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(FormatScalar(ArrayIndex(n.array, i)))
		}
		b.WriteString("]\n")
	case pvtype.KindAggregate:
		b.WriteByte('\n')
		for i, m := range n.members {
			m.dump(b, n.desc.MemberName(i), depth+1)
		}
	case pvtype.KindUnion:
		b.WriteByte('\n')
		if n.active == nil {
			b.WriteString(indent)
			b.WriteString("    (none)\n")
			return
		}
		variant, _ := n.Variant()
		n.active.dump(b, variant, depth+1)
	case pvtype.KindAggregateArray, pvtype.KindUnionArray:
		b.WriteByte('\n')
		for i, e := range n.elems {
			label := "[" + strconv.Itoa(i) + "]"
			if e == nil {
				b.WriteString(indent)
				b.WriteString("    " + label + " null\n")
				continue
			}
			e.dump(b, label, depth+1)
		}
	}
}
