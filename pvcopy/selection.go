package pvcopy

import (
	"sort"
	"strings"

	"github.com/wippyai/pvdata/errors"
	"github.com/wippyai/pvdata/pvtype"
)

// Selection names the parts of a master descriptor a view keeps.
type Selection struct {
	paths []string
	all   bool
}

// All selects the whole master.
func All() Selection {
	return Selection{all: true}
}

// Paths selects the listed dotted member paths. Selecting an aggregate
// selects everything below it.
func Paths(paths ...string) Selection {
	return Selection{paths: append([]string(nil), paths...)}
}

// IsAll reports whether the selection keeps the whole master.
func (s Selection) IsAll() bool {
	return s.all
}

// List returns the selected paths in sorted order, or nil for All.
func (s Selection) List() []string {
	if s.all {
		return nil
	}
	out := append([]string(nil), s.paths...)
	sort.Strings(out)
	return out
}

func (s Selection) String() string {
	if s.all {
		return "*"
	}
	return strings.Join(s.List(), ",")
}

// trie is the selection resolved against a master descriptor.
type trie struct {
	children map[string]*trie
	whole    bool
}

func (s Selection) resolve(master *pvtype.Descriptor) (*trie, error) {
	root := &trie{}
	if s.all {
		root.whole = true
		return root, nil
	}
	if len(s.paths) == 0 {
		return nil, errors.InvalidData(errors.PhaseProject, nil, "empty selection")
	}
	for _, p := range s.paths {
		if p == "" {
			root.whole = true
			continue
		}
		if _, _, err := master.Lookup(p); err != nil {
			if e, ok := err.(*errors.Error); ok {
				e.Phase = errors.PhaseProject
			}
			return nil, err
		}
		node := root
		for _, name := range strings.Split(p, ".") {
			if node.children == nil {
				node.children = make(map[string]*trie)
			}
			next, ok := node.children[name]
			if !ok {
				next = &trie{}
				node.children[name] = next
			}
			node = next
		}
		node.whole = true
	}
	return root, nil
}
