package buildsvc

import (
	"context"
	"testing"
)

func TestStatusReportsAllByDefault(t *testing.T) {
	s := NewServer()
	s.SetStatus("a", "done", nil)
	s.SetStatus("b", "failed", errBoom)

	reply, err := s.Status(context.Background(), &StatusRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(reply.Packages) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(reply.Packages))
	}
	if reply.Packages[0].ImportPath != "a" || reply.Packages[1].ImportPath != "b" {
		t.Fatalf("expected sorted [a, b], got %+v", reply.Packages)
	}
	if reply.Packages[1].Err != errBoom.Error() {
		t.Fatalf("expected failed package to carry its error, got %q", reply.Packages[1].Err)
	}
}

func TestStatusFiltersByImportPath(t *testing.T) {
	s := NewServer()
	s.SetStatus("a", "done", nil)
	s.SetStatus("b", "building", nil)

	reply, err := s.Status(context.Background(), &StatusRequest{ImportPaths: []string{"b"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(reply.Packages) != 1 || reply.Packages[0].ImportPath != "b" {
		t.Fatalf("expected only b, got %+v", reply.Packages)
	}
}

func TestSetStatusOverwritesPreviousState(t *testing.T) {
	s := NewServer()
	s.SetStatus("a", "building", nil)
	s.SetStatus("a", "done", nil)

	reply, err := s.Status(context.Background(), &StatusRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(reply.Packages) != 1 || reply.Packages[0].State != "done" {
		t.Fatalf("expected a single done entry, got %+v", reply.Packages)
	}
}

type boomErr struct{}

func (*boomErr) Error() string { return "boom" }

var errBoom = &boomErr{}
