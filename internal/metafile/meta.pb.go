// Code generated by hand in the style of protoc-gen-go (no .proto source
// ships in this tree — protoc was never run to produce it). The struct
// tags below are the same "protobuf:..." shape protoc-gen-go emits for a
// proto3 message, which is what lets github.com/golang/protobuf/proto's
// legacy message support build a descriptor for Meta via reflection,
// matching how distri's generated pb.Meta (pb/readmeta.go) is consumed:
// proto.MarshalTextString / proto.UnmarshalText against a plain Go struct.
package metafile

import "github.com/golang/protobuf/proto"

// Meta is one package's persisted incremental-build record, the compis
// analogue of distri's pb.Meta (a .meta.textproto sidecar file recording
// enough about the last successful build to decide whether to skip it).
type Meta struct {
	// ImportPath is the package this record describes, e.g. "std/runtime".
	ImportPath string `protobuf:"bytes,1,opt,name=import_path,json=importPath,proto3" json:"import_path,omitempty"`

	// ApiHash is the package's 32-byte API-hash at the time of the last
	// successful build (pkgindex.Package.APIHash), the primary cache key.
	ApiHash []byte `protobuf:"bytes,2,opt,name=api_hash,json=apiHash,proto3" json:"api_hash,omitempty"`

	// InputDigest covers the full source-file set (name+size+mtime of every
	// SourceFile), catching changes a content-insensitive API-hash miss
	// could mask, e.g. comment-only edits invalidating debug info.
	InputDigest []byte `protobuf:"bytes,3,opt,name=input_digest,json=inputDigest,proto3" json:"input_digest,omitempty"`

	// BuildUnixSec is when this record was written, for `compis targets`
	// -style freshness reporting; not itself part of the cache key.
	BuildUnixSec int64 `protobuf:"varint,4,opt,name=build_unix_sec,json=buildUnixSec,proto3" json:"build_unix_sec,omitempty"`

	// Deps lists the import paths this package depended on when built, so
	// a dependency's own rebuild can be distinguished from a genuine miss.
	Deps []string `protobuf:"bytes,5,rep,name=deps,proto3" json:"deps,omitempty"`
}

func (m *Meta) Reset()         { *m = Meta{} }
func (m *Meta) String() string { return proto.CompactTextString(m) }
func (*Meta) ProtoMessage()    {}

func (m *Meta) GetImportPath() string {
	if m != nil {
		return m.ImportPath
	}
	return ""
}

func (m *Meta) GetApiHash() []byte {
	if m != nil {
		return m.ApiHash
	}
	return nil
}

func (m *Meta) GetInputDigest() []byte {
	if m != nil {
		return m.InputDigest
	}
	return nil
}

func (m *Meta) GetBuildUnixSec() int64 {
	if m != nil {
		return m.BuildUnixSec
	}
	return 0
}

func (m *Meta) GetDeps() []string {
	if m != nil {
		return m.Deps
	}
	return nil
}
