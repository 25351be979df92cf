package secfs

import (
	"context"
	"io/fs"
	"strings"
	"sync"
	"syscall"

	"github.com/golang/glog"
)

// FS is the virtual secure filesystem.
type FS struct {
	CMNG *CMNG

	lock  sync.Mutex
	level CredType
}

// New creates an FS with the root as working directory.
func New(cmng *CMNG) *FS {
	return &FS{CMNG: cmng, level: Root}
}

// Mount is accepted for compatibility with block filesystems, there is
// nothing to format or check.
func (f *FS) Mount(readOnly, mkfs bool) error {
	glog.V(2).Infof("secfs mounted (readOnly=%v mkfs=%v)", readOnly, mkfs)
	return nil
}

// folder resolves the credential type named by the first element of
// path. An empty path is the root.
func folder(op, path string) (CredType, error) {
	p := strings.TrimLeft(path, "/")
	if p == "" {
		return Root, nil
	}
	name := p
	if idx := strings.Index(p, "/"); idx >= 0 {
		name = p[:idx]
	}
	typ, ok := ParseCredType(name)
	if !ok {
		return Root, newError(op, path, syscall.ENOTDIR)
	}
	return typ, nil
}

func (f *FS) cwd() CredType {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.level
}

// resolve finds the folder and file name of path. Paths without a slash
// are relative to the working directory.
func (f *FS) resolve(op, path string) (CredType, string, error) {
	level := f.cwd()
	if strings.Contains(path, "/") {
		typ, err := folder(op, path)
		if err != nil {
			return Root, "", err
		}
		level = typ
	}
	return level, path[strings.LastIndex(path, "/")+1:], nil
}

// isFolder tells whether path names the root or a type folder.
func (f *FS) isFolder(path string) (CredType, bool) {
	p := strings.Trim(path, "/")
	if p == "" {
		return Root, strings.HasPrefix(path, "/")
	}
	typ, ok := ParseCredType(p)
	if !ok || strings.Contains(p, "/") {
		return Root, false
	}
	return typ, strings.HasPrefix(path, "/") || f.cwd() == Root
}

// Chdir changes the working directory.
func (f *FS) Chdir(path string) error {
	typ, err := folder("chdir", path)
	if err != nil {
		return err
	}
	f.lock.Lock()
	f.level = typ
	f.lock.Unlock()
	return nil
}

// Getwd returns the working directory: "/<folder>", or "/" at the root,
// which stays a valid argument to Chdir and ReadDir.
func (f *FS) Getwd() string {
	if level := f.cwd(); level.IsValid() {
		return "/" + level.String()
	}
	return "/"
}

// Open opens a credential file. Reading requires "r" in mode, writing
// any of "w", "a" or "+", so "r+" allows both.
func (f *FS) Open(ctx context.Context, path, mode string) (*File, error) {
	level, name, err := f.resolve("open", path)
	if err != nil {
		return nil, err
	}
	tag, err := ParseSecTag(name)
	if err != nil {
		return nil, newError("open", path, syscall.EINVAL)
	}
	if !level.IsValid() {
		// files only live inside the type folders.
		return nil, newError("open", path, syscall.ENOENT)
	}
	return newFile(ctx, f.CMNG, level, tag, mode), nil
}

// Remove deletes a credential.
func (f *FS) Remove(ctx context.Context, path string) error {
	level, name, err := f.resolve("remove", path)
	if err != nil {
		return err
	}
	if _, isDir := f.isFolder(path); name == "" || isDir {
		return newError("remove", path, syscall.EISDIR)
	}
	tag, err := ParseSecTag(name)
	if err != nil {
		return newError("remove", path, syscall.EINVAL)
	}
	if !level.IsValid() {
		return newError("remove", path, syscall.ENOENT)
	}
	return f.CMNG.Delete(ctx, level, tag)
}

// Rmdir deletes every credential in the folder. On the root it empties
// every folder. The folders themselves stay.
func (f *FS) Rmdir(ctx context.Context, path string) error {
	level, err := folder("rmdir", path)
	if err != nil {
		return err
	}
	levels := []CredType{level}
	if level == Root {
		levels = CredTypes()
	}
	for _, typ := range levels {
		tags, err := f.CMNG.List(ctx, typ)
		if err != nil {
			return err
		}
		for _, tag := range tags {
			glog.V(2).Infof("rmdir: delete %s/%s", typ, tag)
			if err := f.CMNG.Delete(ctx, typ, tag); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadDir lists a folder. An empty path lists the working directory.
func (f *FS) ReadDir(ctx context.Context, path string) ([]fs.DirEntry, error) {
	level, err := folder("readdir", path)
	if err != nil {
		return nil, err
	}
	if level == Root && path == "" {
		level = f.cwd()
	}
	return f.readDir(ctx, level)
}

func (f *FS) readDir(ctx context.Context, level CredType) ([]fs.DirEntry, error) {
	if level == Root {
		types := CredTypes()
		entries := make([]fs.DirEntry, len(types))
		for n, typ := range types {
			entries[n] = &fileInfo{name: typ.String(), dir: true}
		}
		return entries, nil
	}
	tags, err := f.CMNG.List(ctx, level)
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, len(tags))
	for n, tag := range tags {
		entries[n] = &fileInfo{name: tag.String()}
	}
	return entries, nil
}

// Stat describes a folder or credential. Credential sizes are not known
// without reading them and are reported as zero.
func (f *FS) Stat(ctx context.Context, path string) (fs.FileInfo, error) {
	if typ, isDir := f.isFolder(path); isDir {
		return &fileInfo{name: typ.String(), dir: true}, nil
	}
	level, name, err := f.resolve("stat", path)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return &fileInfo{name: level.String(), dir: true}, nil
	}
	tag, err := ParseSecTag(name)
	if err != nil || !level.IsValid() {
		return nil, newError("stat", path, syscall.ENOENT)
	}
	ok, err := f.CMNG.Exists(ctx, level, tag)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError("stat", path, syscall.ENOENT)
	}
	return &fileInfo{name: tag.String()}, nil
}
