package astcodec

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/compis-build/compis/internal/coerr"
)

func sampleAST() *Node {
	// binop(prefixop(intlit 1), intlit 2)
	one := &Node{Kind: ExprIntlit, Attrs: []Attr{UintAttr(1)}}
	two := &Node{Kind: ExprIntlit, Attrs: []Attr{UintAttr(2)}}
	pre := &Node{Kind: ExprPrefixop, Attrs: []Attr{NoderefAttr(one)}}
	bin := &Node{Kind: ExprBinop, Attrs: []Attr{NoderefAttr(pre), NoderefAttr(two), SymrefAttr("+")}}
	return bin
}

func structure(n *Node) map[string]interface{} {
	m := map[string]interface{}{"kind": n.Kind}
	var attrs []interface{}
	for _, a := range n.Attrs {
		switch a.Kind {
		case AttrNone:
			attrs = append(attrs, "none")
		case AttrUint:
			attrs = append(attrs, a.Uint)
		case AttrString:
			attrs = append(attrs, a.Str)
		case AttrSymref:
			attrs = append(attrs, "#"+a.Sym)
		case AttrNoderef:
			attrs = append(attrs, structure(a.Ref))
		case AttrNodeArray:
			var arr []interface{}
			for _, c := range a.Arr {
				arr = append(arr, structure(c))
			}
			attrs = append(attrs, arr)
		}
	}
	m["attrs"] = attrs
	return m
}

// P6: decode(encode(T)) ≡ T under structural equality; encoding is
// deterministic byte-for-byte across runs.
func TestRoundtripAndDeterminism(t *testing.T) {
	root := sampleAST()

	enc1 := NewEncoder()
	if err := enc1.AddAST(root); err != nil {
		t.Fatal(err)
	}
	b1, err := enc1.Encode()
	if err != nil {
		t.Fatal(err)
	}

	enc2 := NewEncoder()
	if err := enc2.AddAST(sampleAST()); err != nil {
		t.Fatal(err)
	}
	b2, err := enc2.Encode()
	if err != nil {
		t.Fatal(err)
	}

	if !cmp.Equal(b1, b2) {
		t.Fatalf("encoding not deterministic:\n%s\nvs\n%s", b1, b2)
	}

	roots, err := Decode(b1)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(roots) != 1 {
		t.Fatalf("expected 1 root, got %d", len(roots))
	}

	if diff := cmp.Diff(structure(root), structure(roots[0]), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("structural mismatch (-want +got):\n%s", diff)
	}
}

// P7: every noderef/nodearray-element index is strictly less than its
// referrer's index; Decode enforces this by construction (forward
// references are rejected).
func TestChildBeforeParentEnforced(t *testing.T) {
	root := sampleAST()
	enc := NewEncoder()
	if err := enc.AddAST(root); err != nil {
		t.Fatal(err)
	}
	b, err := enc.Encode()
	if err != nil {
		t.Fatal(err)
	}

	// Corrupt: rewrite the first node's noderef-looking attribute, if any,
	// to point forward. Simpler: directly craft a minimal invalid stream
	// with a forward reference and confirm Decode rejects it.
	bad := []byte("cAST 1 0 2 1\nBLIT _   \nILIT &1 \n0\n")
	if _, err := Decode(bad); err == nil {
		t.Fatal("expected forward noderef to be rejected")
	}
	_ = b
}

// Scenario 6: magic mismatch / overflowing nodecount / unsupported version
// are reported precisely, with no partial AST.
func TestDecodeErrorScenarios(t *testing.T) {
	cases := []struct {
		name string
		data string
		want error
	}{
		{"bad magic", "dAST 1 0 0 0\n", coerr.Invalid},
		{"overflow", "cAST 1 0 200000 0\n", coerr.Overflow},
		{"unsupported version", "cAST 2 0 0 0\n", coerr.NotSupported},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			roots, err := Decode([]byte(tc.data))
			if !errors.Is(err, tc.want) {
				t.Fatalf("got err %v, want %v", err, tc.want)
			}
			if roots != nil {
				t.Fatalf("expected no partial AST on error, got %v", roots)
			}
		})
	}
}

func TestEncodeDuplicatePointerDropped(t *testing.T) {
	shared := &Node{Kind: ExprIntlit, Attrs: []Attr{UintAttr(7)}}
	a := &Node{Kind: ExprPrefixop, Attrs: []Attr{NoderefAttr(shared)}}
	b := &Node{Kind: ExprPrefixop, Attrs: []Attr{NoderefAttr(shared)}}

	enc := NewEncoder()
	if err := enc.AddAST(a); err != nil {
		t.Fatal(err)
	}
	if err := enc.AddAST(b); err != nil {
		t.Fatal(err)
	}
	out, err := enc.Encode()
	if err != nil {
		t.Fatal(err)
	}

	roots, err := Decode(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	if len(enc.nodes) != 3 {
		t.Fatalf("expected the shared node to be encoded once (3 nodes total), got %d", len(enc.nodes))
	}
}
