package secfs

import (
	"context"
	"io"
	"io/fs"
	"strings"
	"sync"
	"syscall"
	"time"
)

// File is an open credential.
//
// The content is fetched from the modem on the first read and kept until
// the next write. Writes go straight to the modem and replace the stored
// credential entirely, so a credential should be written with one Write.
type File struct {
	ctx  context.Context
	cmng *CMNG
	typ  CredType
	tag  SecTag
	mode string

	lock    sync.Mutex
	content string
	offset  int
	fetched bool
	closed  bool
}

func newFile(ctx context.Context, cmng *CMNG, typ CredType, tag SecTag, mode string) *File {
	if mode == "" {
		mode = "r"
	}
	return &File{ctx: ctx, cmng: cmng, typ: typ, tag: tag, mode: mode}
}

// Name returns the file name, the decimal security tag.
func (f *File) Name() string {
	return f.tag.String()
}

// Path returns the absolute path.
func (f *File) Path() string {
	return "/" + f.typ.String() + "/" + f.tag.String()
}

// Type returns the credential type.
func (f *File) Type() CredType {
	return f.typ
}

// Tag returns the security tag.
func (f *File) Tag() SecTag {
	return f.tag
}

// readable requires "r": "w+" writes only.
func (f *File) readable() bool {
	return strings.Contains(f.mode, "r")
}

func (f *File) writable() bool {
	return strings.ContainsAny(f.mode, "wa+")
}

func (f *File) fetchLocked(op string) error {
	if f.closed {
		return newError(op, f.Path(), syscall.EBADF)
	}
	if !f.readable() {
		return newError(op, f.Path(), syscall.EPERM)
	}
	if !f.fetched {
		content, err := f.cmng.Read(f.ctx, f.typ, f.tag)
		if err != nil {
			return err
		}
		f.content, f.fetched = content, true
	}
	return nil
}

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if err := f.fetchLocked("read"); err != nil {
		return 0, err
	}
	if f.offset >= len(f.content) {
		return 0, io.EOF
	}
	n := copy(p, f.content[f.offset:])
	f.offset += n
	return n, nil
}

// ReadString returns the remaining content.
func (f *File) ReadString() (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if err := f.fetchLocked("read"); err != nil {
		return "", err
	}
	if f.offset >= len(f.content) {
		return "", nil
	}
	s := f.content[f.offset:]
	f.offset = len(f.content)
	return s, nil
}

// Write implements io.Writer. The credential is replaced by p.
func (f *File) Write(p []byte) (int, error) {
	return f.WriteString(string(p))
}

// WriteString replaces the credential by s.
func (f *File) WriteString(s string) (int, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.closed {
		return 0, newError("write", f.Path(), syscall.EBADF)
	}
	if !f.writable() {
		return 0, newError("write", f.Path(), syscall.EPERM)
	}
	n, err := f.cmng.Write(f.ctx, f.typ, f.tag, s)
	if err != nil {
		return 0, err
	}
	f.offset, f.fetched, f.content = 0, false, ""
	return n, nil
}

// Stat implements fs.File. The size is known once the content was read,
// readable files are read for that.
func (f *File) Stat() (fs.FileInfo, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.closed {
		return nil, newError("stat", f.Path(), syscall.EBADF)
	}
	info := &fileInfo{name: f.Name()}
	if f.readable() {
		if err := f.fetchLocked("stat"); err != nil {
			return nil, err
		}
		info.size = int64(len(f.content))
	}
	return info, nil
}

// Close implements io.Closer. Closing twice fails with EBADF.
func (f *File) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.closed {
		return newError("close", f.Path(), syscall.EBADF)
	}
	f.closed = true
	return nil
}

// fileInfo implements fs.FileInfo and fs.DirEntry.
type fileInfo struct {
	name string
	size int64
	dir  bool
}

func (i *fileInfo) Name() string {
	if i.name == "" {
		return "/"
	}
	return i.name
}

func (i *fileInfo) Size() int64 { return i.size }

func (i *fileInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o555
	}
	return 0o600
}

func (i *fileInfo) ModTime() time.Time         { return time.Time{} }
func (i *fileInfo) IsDir() bool                { return i.dir }
func (i *fileInfo) Sys() interface{}           { return nil }
func (i *fileInfo) Type() fs.FileMode          { return i.Mode().Type() }
func (i *fileInfo) Info() (fs.FileInfo, error) { return i, nil }
