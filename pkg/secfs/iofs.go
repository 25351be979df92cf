package secfs

import (
	"context"
	"io"
	"io/fs"
	"strings"
	"syscall"
)

// IOFS returns a read-only io/fs view of the store, usable with
// fs.WalkDir, fs.ReadFile and friends. Names are unrooted ("ca/42").
func (f *FS) IOFS(ctx context.Context) fs.FS {
	return &ioFS{ctx: ctx, fs: f}
}

type ioFS struct {
	ctx context.Context
	fs  *FS
}

func (v *ioFS) abs(op, name string) (string, error) {
	if !fs.ValidPath(name) {
		return "", &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		return "/", nil
	}
	return "/" + name, nil
}

// Open implements fs.FS.
func (v *ioFS) Open(name string) (fs.File, error) {
	path, err := v.abs("open", name)
	if err != nil {
		return nil, err
	}
	if typ, ok := v.fs.isFolder(path); ok {
		return &dirFile{ctx: v.ctx, fs: v.fs, typ: typ}, nil
	}
	if strings.Count(name, "/") != 1 {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return v.fs.Open(v.ctx, path, "r")
}

// ReadDir implements fs.ReadDirFS.
func (v *ioFS) ReadDir(name string) ([]fs.DirEntry, error) {
	path, err := v.abs("readdir", name)
	if err != nil {
		return nil, err
	}
	typ, ok := v.fs.isFolder(path)
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: syscall.ENOTDIR}
	}
	return v.fs.readDir(v.ctx, typ)
}

// ReadFile implements fs.ReadFileFS.
func (v *ioFS) ReadFile(name string) ([]byte, error) {
	f, err := v.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// dirFile is an open folder.
type dirFile struct {
	ctx     context.Context
	fs      *FS
	typ     CredType
	entries []fs.DirEntry
	listed  bool
}

func (d *dirFile) Stat() (fs.FileInfo, error) {
	return &fileInfo{name: d.typ.String(), dir: true}, nil
}

func (d *dirFile) Read([]byte) (int, error) {
	return 0, newError("read", "/"+d.typ.String(), syscall.EISDIR)
}

func (d *dirFile) Close() error {
	return nil
}

// ReadDir implements fs.ReadDirFile.
func (d *dirFile) ReadDir(n int) ([]fs.DirEntry, error) {
	if !d.listed {
		entries, err := d.fs.readDir(d.ctx, d.typ)
		if err != nil {
			return nil, err
		}
		d.entries, d.listed = entries, true
	}
	if n <= 0 {
		entries := d.entries
		d.entries = nil
		return entries, nil
	}
	if len(d.entries) == 0 {
		return nil, io.EOF
	}
	if n > len(d.entries) {
		n = len(d.entries)
	}
	entries := d.entries[:n]
	d.entries = d.entries[n:]
	return entries, nil
}
