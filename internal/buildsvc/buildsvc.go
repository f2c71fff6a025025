// Package buildsvc exposes a running build's live package-by-package
// status over a loopback gRPC socket, so a status renderer can watch a
// `compis build` invocation without scraping its stdout — the Go analogue
// of distri's own FUSE control-plane socket (internal/fuse's pb.FUSEServer
// Ping/MkdirAll/ScanPackages), applied to build progress instead of FUSE
// control requests.
package buildsvc

import (
	"context"
	"net"
	"sort"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Server tracks one build's package statuses and serves them over gRPC.
// internal/orchestrator calls SetStatus as packages start, finish, or
// fail; a client dials in and calls Status to get a snapshot.
type Server struct {
	UnimplementedBuildStatusServer

	mu       sync.Mutex
	statuses map[string]*PackageStatus
}

// NewServer returns an empty status tracker.
func NewServer() *Server {
	return &Server{statuses: make(map[string]*PackageStatus)}
}

// SetStatus records importPath's current state ("pending", "building",
// "done", "failed") and, for a failure, the error that caused it.
func (s *Server) SetStatus(importPath, state string, buildErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	errText := ""
	if buildErr != nil {
		errText = buildErr.Error()
	}
	s.statuses[importPath] = &PackageStatus{
		ImportPath: importPath,
		State:      state,
		Err:        errText,
	}
}

// Status implements BuildStatusServer: it returns every tracked package's
// status, or just the ones named in req.ImportPaths if that's non-empty.
func (s *Server) Status(ctx context.Context, req *StatusRequest) (*StatusReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var want map[string]bool
	if len(req.ImportPaths) > 0 {
		want = make(map[string]bool, len(req.ImportPaths))
		for _, p := range req.ImportPaths {
			want[p] = true
		}
	}

	reply := &StatusReply{}
	for importPath, st := range s.statuses {
		if want != nil && !want[importPath] {
			continue
		}
		reply.Packages = append(reply.Packages, st)
	}
	sort.Slice(reply.Packages, func(i, j int) bool {
		return reply.Packages[i].ImportPath < reply.Packages[j].ImportPath
	})
	return reply, nil
}

// Serve registers s on a fresh grpc.Server and runs it on lis until lis
// (or the returned *grpc.Server) is closed. Callers that want a unix
// socket, matching distri's own fs.ctl convention, pass a
// net.Listen("unix", path) listener.
func (s *Server) Serve(lis net.Listener) (*grpc.Server, error) {
	srv := grpc.NewServer()
	RegisterBuildStatusServer(srv, s)
	go srv.Serve(lis)
	return srv, nil
}

// Dial connects to a running Server's unix socket and returns a client
// stub, for tooling that reads `compis build -status-socket <path>`.
func Dial(ctx context.Context, socketPath string) (BuildStatusClient, *grpc.ClientConn, error) {
	conn, err := grpc.DialContext(ctx, "unix:"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock())
	if err != nil {
		return nil, nil, err
	}
	return NewBuildStatusClient(conn), conn, nil
}

// UnimplementedBuildStatusServer embeds into Server so adding a method to
// BuildStatusServer in the future doesn't break this implementation,
// matching protoc-gen-go-grpc's usual forward-compatibility embed.
type UnimplementedBuildStatusServer struct{}

func (UnimplementedBuildStatusServer) Status(context.Context, *StatusRequest) (*StatusReply, error) {
	return nil, nil
}
