package roview

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jacobsa/fuse/fuseops"
)

func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "include", "co"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "include", "co", "prelude.h"), []byte("// prelude\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("prelude.h", filepath.Join(root, "include", "co", "alias.h")); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestBuildWalksTree(t *testing.T) {
	root := writeTree(t)
	fs, err := build(root)
	if err != nil {
		t.Fatal(err)
	}
	rootNode := fs.inodes[fuseops.RootInodeID]
	if rootNode == nil {
		t.Fatal("root inode missing")
	}
	includeID, ok := rootNode.byName["include"]
	if !ok {
		t.Fatal("include directory missing from root")
	}
	includeNode := fs.inodes[includeID]
	if !includeNode.info.IsDir() {
		t.Fatal("include is not recorded as a directory")
	}
	coID, ok := includeNode.byName["co"]
	if !ok {
		t.Fatal("include/co missing")
	}
	coNode := fs.inodes[coID]
	preludeID, ok := coNode.byName["prelude.h"]
	if !ok {
		t.Fatal("prelude.h missing")
	}
	preludeNode := fs.inodes[preludeID]
	if preludeNode.info.IsDir() {
		t.Fatal("prelude.h recorded as a directory")
	}

	aliasID, ok := coNode.byName["alias.h"]
	if !ok {
		t.Fatal("alias.h missing")
	}
	aliasNode := fs.inodes[aliasID]
	if aliasNode.linkDest != "prelude.h" {
		t.Fatalf("alias.h linkDest = %q, want %q", aliasNode.linkDest, "prelude.h")
	}
}

func TestReadDirListsChildrenInOffsetOrder(t *testing.T) {
	root := writeTree(t)
	fs, err := build(root)
	if err != nil {
		t.Fatal(err)
	}
	rootNode := fs.inodes[fuseops.RootInodeID]
	includeID := rootNode.byName["include"]
	includeNode := fs.inodes[includeID]
	if len(includeNode.children) != 1 || includeNode.children[0].Name != "co" {
		t.Fatalf("unexpected children of include: %+v", includeNode.children)
	}
}

func TestReadFileReturnsContents(t *testing.T) {
	root := writeTree(t)
	fs, err := build(root)
	if err != nil {
		t.Fatal(err)
	}
	rootNode := fs.inodes[fuseops.RootInodeID]
	includeNode := fs.inodes[rootNode.byName["include"]]
	coNode := fs.inodes[includeNode.byName["co"]]
	preludeID := coNode.byName["prelude.h"]

	op := &fuseops.ReadFileOp{Inode: preludeID, Dst: make([]byte, 64)}
	if err := fs.ReadFile(context.Background(), op); err != nil {
		t.Fatal(err)
	}
	got := op.Dst[:op.BytesRead]
	if string(got) != "// prelude\n" {
		t.Fatalf("contents = %q", got)
	}
}
