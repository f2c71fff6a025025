// Package astcodec serialises and deserialises a package's public API (its
// AST) to the stable textual "cAST" form used for on-disk incremental-build
// caching and cross-package import, per spec.md §4.E. The wire grammar and
// the encoder's BFS/reversal/dedup algorithm are grounded directly on
// original_source/src/astencode.c; the decoder is specified in full here
// since that file's own astdecode is TODO-stubbed (see spec.md §9 Open
// Questions) — it is derived from the encoder's documented contract plus
// spec.md §8 properties P6/P7 and end-to-end scenario 6.
package astcodec

// Kind is a closed tag for AST node kinds. The original implementation uses
// `switch (nodekind)` throughout instead of vtables (spec.md Design Notes,
// "Hidden dynamic dispatch"); this port preserves that shape with a small
// closed Go enum rather than an interface hierarchy.
type Kind uint8

const (
	NodeBad Kind = iota
	NodeComment
	NodeUnit
	StmtTypedef
	StmtImport
	ExprFun
	ExprBlock
	ExprCall
	ExprTypecons
	ExprID
	ExprField
	ExprParam
	ExprVar
	ExprLet
	ExprMember
	ExprSubscript
	ExprPrefixop
	ExprPostfixop
	ExprBinop
	ExprAssign
	ExprDeref
	ExprIf
	ExprFor
	ExprReturn
	ExprBoollit
	ExprIntlit
	ExprFloatlit
	ExprStrlit
	ExprArraylit
	TypeVoid
	TypeBool
	TypeI8
	TypeI16
	TypeI32
	TypeI64
	TypeInt
	TypeU8
	TypeU16
	TypeU32
	TypeU64
	TypeUint
	TypeF32
	TypeF64
	TypeArray
	TypeFun
	TypePtr
	TypeRef
	TypeMutref
	TypeSlice
	TypeMutslice
	TypeOptional
	TypeStruct
	TypeAlias
	TypeUnknown
	TypeUnresolved

	kindCount
)

// kindID is the 4-byte wire identifier for each Kind, mirroring
// original_source/src/astencode.c's nodekind_id_tab exactly (down to the
// trailing-space padding used to make every id exactly 4 bytes).
var kindID = [kindCount]string{
	NodeBad:       "BAD ",
	NodeComment:   "CMNT",
	NodeUnit:      "UNIT",
	StmtTypedef:   "TDEF",
	StmtImport:    "IMPO",
	ExprFun:       "FUN ",
	ExprBlock:     "BLK ",
	ExprCall:      "CALL",
	ExprTypecons:  "TCON",
	ExprID:        "ID  ",
	ExprField:     "FIEL",
	ExprParam:     "PARM",
	ExprVar:       "VAR ",
	ExprLet:       "LET ",
	ExprMember:    "MEMB",
	ExprSubscript: "SUBS",
	ExprPrefixop:  "PREO",
	ExprPostfixop: "POSO",
	ExprBinop:     "BINO",
	ExprAssign:    "ASSI",
	ExprDeref:     "DREF",
	ExprIf:        "IF  ",
	ExprFor:       "FOR ",
	ExprReturn:    "RET ",
	ExprBoollit:   "BLIT",
	ExprIntlit:    "ILIT",
	ExprFloatlit:  "FLIT",
	ExprStrlit:    "SLIT",
	ExprArraylit:  "ALIT",
	TypeVoid:      "void",
	TypeBool:      "bool",
	TypeI8:        "i8  ",
	TypeI16:       "i16 ",
	TypeI32:       "i32 ",
	TypeI64:       "i64 ",
	TypeInt:       "int ",
	TypeU8:        "u8  ",
	TypeU16:       "u16 ",
	TypeU32:       "u32 ",
	TypeU64:       "u64 ",
	TypeUint:      "uint",
	TypeF32:       "f32 ",
	TypeF64:       "f64 ",
	TypeArray:     "arry",
	TypeFun:       "fun ",
	TypePtr:       "ptr ",
	TypeRef:       "ref ",
	TypeMutref:    "mref",
	TypeSlice:     "sli ",
	TypeMutslice:  "msli",
	TypeOptional:  "opt ",
	TypeStruct:    "stct",
	TypeAlias:     "alia",
	TypeUnknown:   "unkn",
	TypeUnresolved: "unre",
}

var kindByID map[string]Kind

func init() {
	kindByID = make(map[string]Kind, kindCount)
	for k, id := range kindID {
		kindByID[id] = Kind(k)
	}
}

// AttrKind discriminates the tagged attribute union of spec.md's grammar:
// uint | string | symref | noderef | nodearray | none.
type AttrKind uint8

const (
	AttrNone AttrKind = iota
	AttrUint
	AttrString
	AttrSymref
	AttrNoderef
	AttrNodeArray
)

// Attr is one positional attribute of a Node.
type Attr struct {
	Kind AttrKind

	Uint uint64 // AttrUint
	Str  string // AttrString

	Sym string // AttrSymref: the symbol's text

	Ref *Node // AttrNoderef

	Arr []*Node // AttrNodeArray
}

func UintAttr(v uint64) Attr       { return Attr{Kind: AttrUint, Uint: v} }
func StringAttr(s string) Attr     { return Attr{Kind: AttrString, Str: s} }
func SymrefAttr(sym string) Attr   { return Attr{Kind: AttrSymref, Sym: sym} }
func NoderefAttr(n *Node) Attr     { return Attr{Kind: AttrNoderef, Ref: n} }
func NodeArrayAttr(ns []*Node) Attr { return Attr{Kind: AttrNodeArray, Arr: ns} }
func NoneAttr() Attr               { return Attr{Kind: AttrNone} }

// Node is one AST node: a kind tag plus a fixed positional attribute list.
// Ownership is single-arena in the original (one bump allocator per
// package, cross-edges are non-owning pointers); this port leaves ownership
// to Go's GC but preserves the non-owning-pointer *shape* of Ref/Arr so the
// cycle-breaking logic in the encoder stays meaningful.
type Node struct {
	Kind  Kind
	Attrs []Attr

	// index is set only during encode/decode; zero value is meaningless
	// outside those passes.
	index uint32
}

// Index returns the node's position in the most recently produced/consumed
// encoding, valid only immediately after Encode or Decode.
func (n *Node) Index() uint32 { return n.index }
