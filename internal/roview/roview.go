// Package roview mounts a read-only FUSE view over a built sysroot, letting a
// sandboxed Clang invocation see a merged {sysroot}/include, {sysroot}/lib
// tree without compis having to copy files into place first.
//
// Grounded on distri's internal/fuse/fuse.go: same dependency (jacobsa/fuse),
// same overall shape (a fuseutil.NotImplementedFileSystem-embedding type,
// mounted via fuse.Mount with a MountConfig tuned for a read-only,
// immutable backing store, joined in a background goroutine). distri's
// fuseFS serves a dynamic union of many squashfs package images under a
// virtual root with live rescans (SIGUSR1) and downloads (SIGHUP); compis
// has no package store or squashfs images to union — a sysroot is a single,
// already-fully-built local directory tree — so roview's fuseFS walks that
// one tree once at mount time into a static inode table and serves lookups
// and reads directly from the real filesystem underneath. There is no
// rescanning: a sysroot is rebuilt (and remounted) as a whole by
// internal/sysroot, never mutated in place while mounted.
package roview

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"golang.org/x/xerrors"
)

// never mirrors distri's own roview expiration sentinel: the backing sysroot
// is immutable for the lifetime of a mount (internal/sysroot never modifies
// a sysroot directory that roview currently has mounted), so the kernel can
// cache every attribute and entry indefinitely.
var never = time.Now().Add(365 * 24 * time.Hour)

type inode struct {
	path     string // absolute path in the real filesystem
	info     os.FileInfo
	linkDest string // non-empty only for symlinks

	// children is populated only for directories, sorted by name for a
	// deterministic ReadDir iteration order (fuseutil.Dirent.Offset must be
	// stable across calls for the same directory).
	children []fuseutil.Dirent
	byName   map[string]fuseops.InodeID
}

type fuseFS struct {
	fuseutil.NotImplementedFileSystem

	root string // sysroot directory this view serves

	mu     sync.Mutex
	inodes map[fuseops.InodeID]*inode
	nextID fuseops.InodeID

	filesMu sync.Mutex
	files   map[fuseops.InodeID]*os.File
}

const rootInode fuseops.InodeID = fuseops.RootInodeID

// build walks root, the sysroot directory, assigning every file and
// directory a stable inode and recording its real filesystem path, the way
// distri's fuseFS.scanPackages builds fs.dirs/fs.inodes from squashfs
// directory listings — except roview reads straight from os.Stat /
// os.ReadDir instead of a squashfs.Reader, since there is no image to
// decode.
func build(root string) (*fuseFS, error) {
	fs := &fuseFS{
		root:   root,
		inodes: make(map[fuseops.InodeID]*inode),
		nextID: rootInode,
		files:  make(map[fuseops.InodeID]*os.File),
	}

	rootInfo, err := os.Lstat(root)
	if err != nil {
		return nil, xerrors.Errorf("roview: stat sysroot: %w", err)
	}
	rootNode := &inode{path: root, info: rootInfo, byName: make(map[string]fuseops.InodeID)}
	fs.inodes[fs.nextID] = rootNode
	fs.nextID++

	var walk func(dirInode fuseops.InodeID, dirNode *inode) error
	walk = func(dirInode fuseops.InodeID, dirNode *inode) error {
		entries, err := os.ReadDir(dirNode.path)
		if err != nil {
			return xerrors.Errorf("roview: readdir %s: %w", dirNode.path, err)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, de := range entries {
			childPath := filepath.Join(dirNode.path, de.Name())
			info, err := os.Lstat(childPath)
			if err != nil {
				return xerrors.Errorf("roview: lstat %s: %w", childPath, err)
			}
			childID := fs.nextID
			fs.nextID++
			child := &inode{path: childPath, info: info}

			var linkDest string
			if info.Mode()&os.ModeSymlink != 0 {
				linkDest, err = os.Readlink(childPath)
				if err != nil {
					return xerrors.Errorf("roview: readlink %s: %w", childPath, err)
				}
				child.linkDest = linkDest
			}

			fs.inodes[childID] = child
			dirNode.byName[de.Name()] = childID
			dirNode.children = append(dirNode.children, fuseutil.Dirent{
				Offset: fuseops.DirOffset(len(dirNode.children) + 1),
				Inode:  childID,
				Name:   de.Name(),
				Type:   direntType(info),
			})

			if info.IsDir() {
				child.byName = make(map[string]fuseops.InodeID)
				if err := walk(childID, child); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walk(fs.nextID-1, rootNode); err != nil {
		return nil, err
	}
	return fs, nil
}

func direntType(info os.FileInfo) fuseutil.DirentType {
	switch {
	case info.IsDir():
		return fuseutil.DT_Directory
	case info.Mode()&os.ModeSymlink != 0:
		return fuseutil.DT_File
	default:
		return fuseutil.DT_File
	}
}

func attributesOf(info os.FileInfo) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:  uint64(info.Size()),
		Nlink: 1,
		Mode:  info.Mode(),
		Atime: info.ModTime(),
		Mtime: info.ModTime(),
		Ctime: info.ModTime(),
	}
}

func (fs *fuseFS) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	op.BlockSize = 4096
	op.Blocks = 1
	op.BlocksFree = 0
	op.BlocksAvailable = 0
	op.IoSize = 65536
	return nil
}

func (fs *fuseFS) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	parent, ok := fs.inodes[op.Parent]
	if !ok {
		return fuse.ENOENT
	}
	childID, ok := parent.byName[op.Name]
	if !ok {
		return fuse.ENOENT
	}
	child := fs.inodes[childID]
	op.Entry.Child = childID
	op.Entry.Attributes = attributesOf(child.info)
	op.Entry.AttributesExpiration = never
	op.Entry.EntryExpiration = never
	return nil
}

func (fs *fuseFS) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	fs.mu.Lock()
	n, ok := fs.inodes[op.Inode]
	fs.mu.Unlock()
	if !ok {
		return fuse.ENOENT
	}
	op.Attributes = attributesOf(n.info)
	op.AttributesExpiration = never
	return nil
}

// OpenDir and OpenFile return ENOSYS so the kernel skips the round trip
// entirely (EnableNoOpendirSupport/EnableNoOpenSupport below), the same
// performance opt-out distri's own roview-equivalent uses since every
// lookup and read here is already inode-keyed and needs no open handle.
func (fs *fuseFS) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	return fuse.ENOSYS
}

func (fs *fuseFS) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	return fuse.ENOSYS
}

func (fs *fuseFS) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	fs.mu.Lock()
	n, ok := fs.inodes[op.Inode]
	fs.mu.Unlock()
	if !ok {
		return fuse.ENOENT
	}
	if !n.info.IsDir() {
		return fuse.EIO
	}
	if op.Offset > fuseops.DirOffset(len(n.children)) {
		return fuse.EIO
	}
	for _, e := range n.children[op.Offset:] {
		written := fuseutil.WriteDirent(op.Dst[op.BytesRead:], e)
		if written == 0 {
			break
		}
		op.BytesRead += written
	}
	return nil
}

func (fs *fuseFS) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	fs.filesMu.Lock()
	f, ok := fs.files[op.Inode]
	fs.filesMu.Unlock()
	if !ok {
		fs.mu.Lock()
		n, exists := fs.inodes[op.Inode]
		fs.mu.Unlock()
		if !exists {
			return fuse.ENOENT
		}
		var err error
		f, err = os.Open(n.path)
		if err != nil {
			return xerrors.Errorf("roview: open %s: %w", n.path, err)
		}
		fs.filesMu.Lock()
		fs.files[op.Inode] = f
		fs.filesMu.Unlock()
	}
	var err error
	op.BytesRead, err = f.ReadAt(op.Dst, op.Offset)
	if err == io.EOF {
		err = nil // FUSE does not want io.EOF
	}
	return err
}

func (fs *fuseFS) ReadSymlink(ctx context.Context, op *fuseops.ReadSymlinkOp) error {
	fs.mu.Lock()
	n, ok := fs.inodes[op.Inode]
	fs.mu.Unlock()
	if !ok {
		return fuse.ENOENT
	}
	if n.linkDest == "" {
		return fuse.EIO
	}
	op.Target = n.linkDest
	return nil
}

func (fs *fuseFS) Destroy() {
	fs.filesMu.Lock()
	defer fs.filesMu.Unlock()
	for _, f := range fs.files {
		f.Close()
	}
}

// Mounted is a live roview mount; callers must call Join (blocking until
// the mount is torn down) and, when done, Unmount.
type Mounted struct {
	mountpoint string
	mfs        *fuse.MountedFileSystem
}

// Mount serves root, an already-built sysroot directory, as a read-only
// FUSE filesystem at mountpoint — distri's fuse.Mount, stripped of the
// package-store scanning and control socket, applied to a single directory
// tree instead of a squashfs union.
func Mount(root, mountpoint string) (*Mounted, error) {
	fs, err := build(root)
	if err != nil {
		return nil, err
	}
	server := fuseutil.NewFileSystemServer(fs)
	mfs, err := fuse.Mount(mountpoint, server, &fuse.MountConfig{
		FSName:   "compis-roview",
		ReadOnly: true,
		Options: map[string]string{
			"allow_other": "",
		},
		EnableSymlinkCaching:   true,
		EnableNoOpenSupport:    true,
		EnableNoOpendirSupport: true,
	})
	if err != nil {
		return nil, xerrors.Errorf("roview: fuse.Mount(%s): %w", mountpoint, err)
	}
	return &Mounted{mountpoint: mountpoint, mfs: mfs}, nil
}

// Join blocks until the mount is unmounted, matching distri's
// mfs.Join(ctx) pattern in internal/fuse's own join closure.
func (m *Mounted) Join(ctx context.Context) error {
	return m.mfs.Join(ctx)
}

// Unmount tears down the mount point. Safe to call once Join has returned
// on its own (e.g. after an external fusermount -u), though normally it's
// what triggers Join to return.
func (m *Mounted) Unmount() error {
	if err := fuse.Unmount(m.mountpoint); err != nil {
		return fmt.Errorf("roview: unmount %s: %w", m.mountpoint, err)
	}
	return nil
}
