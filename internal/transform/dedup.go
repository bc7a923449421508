package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Kind tags a Node.
type Kind int

const (
	KindScalar Kind = iota
	KindList
	KindObject
)

// Node is a JSON value as a tagged tree. Scalars hold string, json.Number,
// bool or nil.
type Node struct {
	Kind   Kind
	Scalar any
	List   []*Node
	Object map[string]*Node
}

// DecodeNode parses JSON into a tree, keeping numbers exact.
func DecodeNode(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	return fromValue(v), nil
}

func fromValue(v any) *Node {
	switch t := v.(type) {
	case map[string]any:
		n := &Node{Kind: KindObject, Object: make(map[string]*Node, len(t))}
		for k, child := range t {
			n.Object[k] = fromValue(child)
		}
		return n
	case []any:
		n := &Node{Kind: KindList, List: make([]*Node, 0, len(t))}
		for _, child := range t {
			n.List = append(n.List, fromValue(child))
		}
		return n
	}
	return &Node{Kind: KindScalar, Scalar: v}
}

func (n *Node) value() any {
	switch n.Kind {
	case KindObject:
		m := make(map[string]any, len(n.Object))
		for k, child := range n.Object {
			m[k] = child.value()
		}
		return m
	case KindList:
		l := make([]any, 0, len(n.List))
		for _, child := range n.List {
			l = append(l, child.value())
		}
		return l
	}
	return n.Scalar
}

// MarshalJSON encodes the tree with object keys sorted.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.value())
}

// CanonicalKey renders the node with sorted object keys so structurally
// identical trees produce identical keys.
func (n *Node) CanonicalKey() string {
	var b strings.Builder
	n.writeKey(&b)
	return b.String()
}

func (n *Node) writeKey(b *strings.Builder) {
	switch n.Kind {
	case KindObject:
		keys := make([]string, 0, len(n.Object))
		for k := range n.Object {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			b.Write(kb)
			b.WriteByte(':')
			n.Object[k].writeKey(b)
		}
		b.WriteByte('}')
	case KindList:
		b.WriteByte('[')
		for i, child := range n.List {
			if i > 0 {
				b.WriteByte(',')
			}
			child.writeKey(b)
		}
		b.WriteByte(']')
	default:
		sb, _ := json.Marshal(n.Scalar)
		b.Write(sb)
	}
}

// Dedupe returns a copy of the tree in which every list keeps only the first
// occurrence of structurally identical entries. Children are deduplicated
// before their parents are compared.
func Dedupe(n *Node) *Node {
	switch n.Kind {
	case KindObject:
		out := &Node{Kind: KindObject, Object: make(map[string]*Node, len(n.Object))}
		for k, child := range n.Object {
			out.Object[k] = Dedupe(child)
		}
		return out
	case KindList:
		out := &Node{Kind: KindList, List: make([]*Node, 0, len(n.List))}
		seen := make(map[string]struct{}, len(n.List))
		for _, child := range n.List {
			clean := Dedupe(child)
			key := clean.CanonicalKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out.List = append(out.List, clean)
		}
		return out
	}
	return &Node{Kind: KindScalar, Scalar: n.Scalar}
}

// DedupeValue round-trips v through the tree and removes duplicate list
// entries anywhere inside it.
func DedupeValue[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("encode for dedup: %w", err)
	}
	tree, err := DecodeNode(data)
	if err != nil {
		return out, err
	}
	clean, err := json.Marshal(Dedupe(tree))
	if err != nil {
		return out, fmt.Errorf("encode deduplicated tree: %w", err)
	}
	if err := json.Unmarshal(clean, &out); err != nil {
		return out, fmt.Errorf("decode deduplicated tree: %w", err)
	}
	return out, nil
}
