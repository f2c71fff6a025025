package astcodec

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

const fileMagic = "cAST"
const fileVersion = 1

// Encoder accumulates one or more AST roots (children-before-parents,
// duplicates-by-pointer dropped) and a symbol set, then produces the final
// byte stream via Encode. Grounded on astencode_t in
// original_source/src/astencode.c.
type Encoder struct {
	nodes     []*Node          // final order: children before parents
	index     map[*Node]uint32 // node -> final index
	roots     []uint32
	symset    map[string]bool
	symsOrder []string // assigned once, during Encode
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{
		index:  make(map[*Node]uint32),
		symset: make(map[string]bool),
	}
}

// AddAST performs a BFS from root over Noderef/NodeArray edges, appends
// every undiscovered node to the node list, then reverses the newly
// discovered range so that children precede parents — matching
// astencode_add_ast's "nodes are ordered from least refs to most refs"
// contract. Nodes already present (by pointer identity, from a prior
// AddAST call) are not re-added. root's final index is always recorded in
// the root list, even if root was already present.
func (e *Encoder) AddAST(root *Node) error {
	if root == nil {
		return fmt.Errorf("astcodec: nil root")
	}
	if _, ok := e.index[root]; ok {
		e.roots = append(e.roots, e.index[root])
		return nil
	}

	var discovered []*Node
	seen := map[*Node]bool{root: true}
	queue := []*Node{root}
	discovered = append(discovered, root)

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, a := range n.Attrs {
			switch a.Kind {
			case AttrNoderef:
				if a.Ref != nil && !seen[a.Ref] {
					if _, already := e.index[a.Ref]; !already {
						seen[a.Ref] = true
						discovered = append(discovered, a.Ref)
						queue = append(queue, a.Ref)
					}
				}
			case AttrNodeArray:
				for _, c := range a.Arr {
					if c != nil && !seen[c] {
						if _, already := e.index[c]; !already {
							seen[c] = true
							discovered = append(discovered, c)
							queue = append(queue, c)
						}
					}
				}
			}
		}
	}

	// Reverse so children precede parents.
	for i, j := 0, len(discovered)-1; i < j; i, j = i+1, j-1 {
		discovered[i], discovered[j] = discovered[j], discovered[i]
	}

	base := uint32(len(e.nodes))
	for i, n := range discovered {
		idx := base + uint32(i)
		e.index[n] = idx
		n.index = idx
		e.nodes = append(e.nodes, n)
		if err := e.regSyms(n); err != nil {
			return err
		}
	}

	e.roots = append(e.roots, e.index[root])
	return nil
}

// regSyms interns every symbol attribute referenced by n into the sorted
// symbol set (ordered by string equality per spec.md §9's Open Question:
// "if the reimplementation does not intern symbols by pointer, interning
// must switch to string equality").
func (e *Encoder) regSyms(n *Node) error {
	for _, a := range n.Attrs {
		if a.Kind == AttrSymref {
			e.symset[a.Sym] = true
		}
	}
	return nil
}

// Encode produces the final cAST byte stream. Deterministic: the same
// input graph and the same AddAST call sequence always produce the same
// bytes (spec.md P6's "encoding is deterministic").
func (e *Encoder) Encode() ([]byte, error) {
	e.symsOrder = e.symsOrder[:0]
	for s := range e.symset {
		e.symsOrder = append(e.symsOrder, s)
	}
	sort.Strings(e.symsOrder)
	symIndex := make(map[string]uint32, len(e.symsOrder))
	for i, s := range e.symsOrder {
		symIndex[s] = uint32(i)
	}

	var buf bytes.Buffer

	header := fmt.Sprintf("%s %x %x %x %x\n",
		fileMagic, fileVersion, len(e.symsOrder), len(e.nodes), len(e.roots))
	buf.WriteString(header)

	for _, s := range e.symsOrder {
		if err := writeSymbolLine(&buf, s); err != nil {
			return nil, err
		}
	}

	for _, n := range e.nodes {
		if err := writeNodeLine(&buf, n, e.index, symIndex); err != nil {
			return nil, err
		}
	}

	for _, r := range e.roots {
		fmt.Fprintf(&buf, "%x\n", r)
	}

	return buf.Bytes(), nil
}

func writeSymbolLine(buf *bytes.Buffer, s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] == 0x00 || s[i] == 0x0A {
			return fmt.Errorf("astcodec: symbol %q contains an unencodable byte", s)
		}
	}
	line := s
	pad := (4 - len(line)%4) % 4
	buf.WriteString(line)
	buf.WriteString(spaces[:pad])
	buf.WriteByte('\n')
	return nil
}

var spaces = "   "

func writeNodeLine(buf *bytes.Buffer, n *Node, index map[*Node]uint32, symIndex map[string]uint32) error {
	if int(n.Kind) >= int(kindCount) {
		return fmt.Errorf("astcodec: invalid kind %d", n.Kind)
	}
	line := bytes.Buffer{}
	line.WriteString(kindID[n.Kind])
	for _, a := range n.Attrs {
		line.WriteByte(' ')
		switch a.Kind {
		case AttrNone:
			line.WriteByte('_')
		case AttrUint:
			line.WriteString(strconv.FormatUint(a.Uint, 16))
		case AttrString:
			line.WriteString(quoteString(a.Str))
		case AttrSymref:
			idx, ok := symIndex[a.Sym]
			if !ok {
				return fmt.Errorf("astcodec: symbol %q not interned", a.Sym)
			}
			line.WriteByte('#')
			line.WriteString(strconv.FormatUint(uint64(idx), 16))
		case AttrNoderef:
			idx, ok := index[a.Ref]
			if !ok {
				return fmt.Errorf("astcodec: noderef target not in node list")
			}
			if idx >= n.index {
				return fmt.Errorf("astcodec: noderef target index %d not less than referrer index %d", idx, n.index)
			}
			line.WriteByte('&')
			line.WriteString(strconv.FormatUint(uint64(idx), 16))
		case AttrNodeArray:
			line.WriteByte('*')
			line.WriteString(strconv.FormatUint(uint64(len(a.Arr)), 16))
			for _, c := range a.Arr {
				idx, ok := index[c]
				if !ok {
					return fmt.Errorf("astcodec: nodearray element not in node list")
				}
				if idx >= n.index {
					return fmt.Errorf("astcodec: nodearray element index %d not less than referrer index %d", idx, n.index)
				}
				line.WriteByte(' ')
				line.WriteByte('&')
				line.WriteString(strconv.FormatUint(uint64(idx), 16))
			}
		default:
			return fmt.Errorf("astcodec: unknown attr kind %d", a.Kind)
		}
	}
	b := line.Bytes()
	pad := (4 - len(b)%4) % 4
	buf.Write(b)
	buf.WriteString(spaces[:pad])
	buf.WriteByte('\n')
	return nil
}

// quoteString renders s as a double-quoted, backslash-escaped token safe to
// embed in a space-delimited line (escapes '"', '\\', and control bytes).
func quoteString(s string) string {
	var b bytes.Buffer
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c < 0x20:
			fmt.Fprintf(&b, "\\x%02x", c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
