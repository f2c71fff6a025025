// Code generated by hand in the style of protoc-gen-go / protoc-gen-go-grpc
// (no .proto source ships in this tree — protoc was never run to produce
// it). The message shape mirrors internal/metafile's meta.pb.go; the
// service registration/client-stub shape below is the long-stable unary
// grpc.ServiceDesc / grpc.ServiceRegistrar / grpc.ClientConnInterface
// pattern protoc-gen-go-grpc has emitted for plain unary RPCs for years,
// grounded on distri's own pb.RegisterFUSEServer / pb.PingRequest /
// pb.PingReply call sites in internal/fuse/fuse.go, which depend on an
// equally absent generated pb.FUSEServer.
package buildsvc

import (
	"context"

	"github.com/golang/protobuf/proto"
	"google.golang.org/grpc"
)

// PackageStatus is one package's current position in the build, reported
// over the loopback status socket for the CLI's own status renderer.
type PackageStatus struct {
	ImportPath string `protobuf:"bytes,1,opt,name=import_path,json=importPath,proto3" json:"import_path,omitempty"`
	State      string `protobuf:"bytes,2,opt,name=state,proto3" json:"state,omitempty"`
	Err        string `protobuf:"bytes,3,opt,name=err,proto3" json:"err,omitempty"`
}

func (m *PackageStatus) Reset()         { *m = PackageStatus{} }
func (m *PackageStatus) String() string { return proto.CompactTextString(m) }
func (*PackageStatus) ProtoMessage()    {}

// StatusRequest optionally narrows a Status call to a subset of packages;
// an empty ImportPaths reports every package the build knows about.
type StatusRequest struct {
	ImportPaths []string `protobuf:"bytes,1,rep,name=import_paths,json=importPaths,proto3" json:"import_paths,omitempty"`
}

func (m *StatusRequest) Reset()         { *m = StatusRequest{} }
func (m *StatusRequest) String() string { return proto.CompactTextString(m) }
func (*StatusRequest) ProtoMessage()    {}

type StatusReply struct {
	Packages []*PackageStatus `protobuf:"bytes,1,rep,name=packages,proto3" json:"packages,omitempty"`
}

func (m *StatusReply) Reset()         { *m = StatusReply{} }
func (m *StatusReply) String() string { return proto.CompactTextString(m) }
func (*StatusReply) ProtoMessage()    {}

// BuildStatusServer is the service a compis build process runs, exposing
// its live package-by-package progress.
type BuildStatusServer interface {
	Status(context.Context, *StatusRequest) (*StatusReply, error)
}

// BuildStatusClient is the stub a status renderer (or `compis build
// -status=addr`) dials against.
type BuildStatusClient interface {
	Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusReply, error)
}

type buildStatusClient struct {
	cc grpc.ClientConnInterface
}

func NewBuildStatusClient(cc grpc.ClientConnInterface) BuildStatusClient {
	return &buildStatusClient{cc}
}

func (c *buildStatusClient) Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusReply, error) {
	out := new(StatusReply)
	if err := c.cc.Invoke(ctx, "/compis.buildsvc.BuildStatus/Status", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _BuildStatus_Status_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BuildStatusServer).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/compis.buildsvc.BuildStatus/Status",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BuildStatusServer).Status(ctx, req.(*StatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// BuildStatus_ServiceDesc is the grpc.ServiceDesc protoc-gen-go-grpc would
// have emitted for a BuildStatus service with a single unary Status RPC.
var BuildStatus_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "compis.buildsvc.BuildStatus",
	HandlerType: (*BuildStatusServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Status",
			Handler:    _BuildStatus_Status_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/buildsvc/buildsvc.proto",
}

// RegisterBuildStatusServer is protoc-gen-go-grpc's usual thin wrapper
// around s.RegisterService.
func RegisterBuildStatusServer(s grpc.ServiceRegistrar, srv BuildStatusServer) {
	s.RegisterService(&BuildStatus_ServiceDesc, srv)
}
