package astcodec

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/compis-build/compis/internal/coerr"
)

// maxNodeCount is the decoder's node-count ceiling (spec.md §4.E "node-count
// ≤ 1 MiB", end-to-end scenario 6).
const maxNodeCount = 1024 * 1024

// minEncodedNodeSize is a conservative per-node lower bound: the shortest
// node line the encoder can emit is a 4-byte kind tag (already 4-aligned)
// plus its '\n'. Used to reject a claimed nodecount that the remaining
// input could not possibly hold.
const minEncodedNodeSize = 5

// Decode parses a cAST byte stream produced by Encoder.Encode, returning
// the roots in encoding order. It is the full specification of
// original_source's TODO-stubbed astdecode, derived from the encoder's
// documented contract (spec.md §9 Open Questions) and validated against
// spec.md §8 P6/P7 and end-to-end scenario 6.
func Decode(data []byte) (roots []*Node, err error) {
	const minHeader = len("cAST 1 0 0 0\n")
	if len(data) < minHeader {
		return nil, coerr.Invalid
	}
	if !bytes.HasPrefix(data, []byte(fileMagic)) {
		return nil, coerr.Invalid
	}

	nl := bytes.IndexByte(data, '\n')
	if nl < 0 {
		return nil, coerr.Invalid
	}
	header := string(data[:nl])
	fields := strings.Fields(header)
	if len(fields) != 5 || fields[0] != fileMagic {
		return nil, coerr.Invalid
	}

	version, err := strconv.ParseUint(fields[1], 16, 32)
	if err != nil {
		return nil, coerr.Invalid
	}
	if version != fileVersion {
		return nil, coerr.NotSupported
	}

	symCount, err := strconv.ParseUint(fields[2], 16, 32)
	if err != nil {
		return nil, coerr.Invalid
	}
	nodeCount, err := strconv.ParseUint(fields[3], 16, 32)
	if err != nil {
		return nil, coerr.Invalid
	}
	rootCount, err := strconv.ParseUint(fields[4], 16, 32)
	if err != nil {
		return nil, coerr.Invalid
	}

	if nodeCount > maxNodeCount {
		return nil, coerr.Overflow
	}
	remaining := len(data) - (nl + 1)
	var need uint64
	need = nodeCount * minEncodedNodeSize
	if need > uint64(remaining) {
		return nil, coerr.Overflow
	}

	rest := data[nl+1:]
	lines := bytes.Split(rest, []byte("\n"))
	// bytes.Split on a trailing-\n input leaves one empty trailing element.
	if len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}

	wantLines := int(symCount) + int(nodeCount) + int(rootCount)
	if len(lines) < wantLines {
		return nil, coerr.Invalid
	}

	symsOrder := make([]string, symCount)
	for i := uint64(0); i < symCount; i++ {
		symsOrder[i] = strings.TrimRight(string(lines[i]), " ")
	}

	nodes := make([]*Node, nodeCount)
	nodeLines := lines[symCount : symCount+nodeCount]
	for i, raw := range nodeLines {
		n, perr := parseNodeLine(raw, uint32(i), nodes, symsOrder)
		if perr != nil {
			return nil, perr
		}
		nodes[i] = n
	}

	rootLines := lines[symCount+nodeCount : symCount+nodeCount+rootCount]
	roots = make([]*Node, rootCount)
	for i, raw := range rootLines {
		idx, perr := strconv.ParseUint(strings.TrimRight(string(raw), " "), 16, 32)
		if perr != nil {
			return nil, coerr.Invalid
		}
		if idx >= nodeCount {
			return nil, coerr.Invalid
		}
		roots[i] = nodes[idx]
	}

	return roots, nil
}

// parseNodeLine parses one "kind attr* padding" line. Back-edges
// (noderefs/nodearray elements) always reference an index < idx by
// construction (§4.E invariant), so nodes[0:idx] are already populated and
// resolution is O(1).
func parseNodeLine(raw []byte, idx uint32, nodes []*Node, syms []string) (*Node, error) {
	toks, err := tokenize(raw)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, coerr.Invalid
	}
	kindStr := strings.TrimRight(toks[0], " ")
	// kind ids are stored padded to exactly 4 bytes; re-pad for lookup.
	for len(kindStr) < 4 {
		kindStr += " "
	}
	k, ok := kindByID[kindStr]
	if !ok {
		k = NodeBad // unknown kinds decode to NODE_BAD (stability guarantee)
	}

	n := &Node{Kind: k, index: idx}
	for _, t := range toks[1:] {
		a, perr := parseAttr(t, idx, nodes, syms)
		if perr != nil {
			return nil, perr
		}
		n.Attrs = append(n.Attrs, a)
	}
	return n, nil
}

func parseAttr(tok string, referrer uint32, nodes []*Node, syms []string) (Attr, error) {
	if tok == "" {
		return Attr{}, coerr.Invalid
	}
	switch tok[0] {
	case '_':
		return NoneAttr(), nil
	case '"':
		if len(tok) < 2 || tok[len(tok)-1] != '"' {
			return Attr{}, coerr.Invalid
		}
		s, err := unquoteString(tok[1 : len(tok)-1])
		if err != nil {
			return Attr{}, err
		}
		return StringAttr(s), nil
	case '#':
		v, err := strconv.ParseUint(tok[1:], 16, 32)
		if err != nil {
			return Attr{}, coerr.Invalid
		}
		if v >= uint64(len(syms)) {
			return Attr{}, coerr.Invalid
		}
		return SymrefAttr(syms[v]), nil
	case '&':
		v, err := strconv.ParseUint(tok[1:], 16, 32)
		if err != nil {
			return Attr{}, coerr.Invalid
		}
		if v >= uint64(referrer) {
			return Attr{}, coerr.Invalid
		}
		return NoderefAttr(nodes[v]), nil
	case '*':
		rest := tok[1:]
		parts := strings.Fields(rest)
		if len(parts) == 0 {
			return Attr{}, coerr.Invalid
		}
		count, err := strconv.ParseUint(parts[0], 16, 32)
		if err != nil {
			return Attr{}, coerr.Invalid
		}
		if uint64(len(parts)-1) != count {
			return Attr{}, coerr.Invalid
		}
		arr := make([]*Node, count)
		for i, p := range parts[1:] {
			if len(p) < 2 || p[0] != '&' {
				return Attr{}, coerr.Invalid
			}
			v, err := strconv.ParseUint(p[1:], 16, 32)
			if err != nil {
				return Attr{}, coerr.Invalid
			}
			if v >= uint64(referrer) {
				return Attr{}, coerr.Invalid
			}
			arr[i] = nodes[v]
		}
		return NodeArrayAttr(arr), nil
	default:
		v, err := strconv.ParseUint(tok, 16, 64)
		if err != nil {
			return Attr{}, coerr.Invalid
		}
		return UintAttr(v), nil
	}
}

// tokenize splits a node/array line on spaces, keeping double-quoted
// substrings (which may contain escaped spaces) intact as single tokens,
// and dropping trailing padding spaces.
func tokenize(raw []byte) ([]string, error) {
	s := string(raw)
	var toks []string
	i := 0
	for i < len(s) {
		for i < len(s) && s[i] == ' ' {
			i++
		}
		if i >= len(s) {
			break
		}
		if s[i] == '*' {
			// nodearray: "*count ( &idx)*" — keep as one token including its
			// trailing &idx sub-tokens so parseAttr can see the whole group.
			start := i
			i++
			for i < len(s) && s[i] != ' ' {
				i++
			}
			for {
				save := i
				for save < len(s) && s[save] == ' ' {
					save++
				}
				if save < len(s) && s[save] == '&' {
					i = save + 1
					for i < len(s) && s[i] != ' ' {
						i++
					}
				} else {
					break
				}
			}
			toks = append(toks, s[start:i])
			continue
		}
		if s[i] == '"' {
			start := i
			i++
			for i < len(s) {
				if s[i] == '\\' && i+1 < len(s) {
					i += 2
					continue
				}
				if s[i] == '"' {
					i++
					break
				}
				i++
			}
			toks = append(toks, s[start:i])
			continue
		}
		start := i
		for i < len(s) && s[i] != ' ' {
			i++
		}
		toks = append(toks, s[start:i])
	}
	return toks, nil
}

func unquoteString(s string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '\\' {
			if i+1 >= len(s) {
				return "", coerr.Invalid
			}
			next := s[i+1]
			switch next {
			case '"', '\\':
				b.WriteByte(next)
				i += 2
			case 'x':
				if i+3 >= len(s) {
					return "", coerr.Invalid
				}
				v, err := strconv.ParseUint(s[i+2:i+4], 16, 8)
				if err != nil {
					return "", coerr.Invalid
				}
				b.WriteByte(byte(v))
				i += 4
			default:
				return "", coerr.Invalid
			}
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), nil
}
