// Package fsstore serves TFTP transfers from a directory on the local
// filesystem. Request filenames are treated as slash-separated paths rooted
// at the store's directory; anything that would escape the root is refused.
package fsstore

import (
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/quietwire/tftpd/pkg/wire"
)

const maxFilenameLength = 256

// Store is a directory-rooted server.Handler implementation.
type Store struct {
	root           string
	allowOverwrite bool
}

// Options configures a Store.
type Options struct {
	// AllowOverwrite lets write requests replace existing files. Off by
	// default: a colliding write fails with the file-exists error.
	AllowOverwrite bool
}

// New creates a store rooted at dir, which must exist and be a directory.
func New(dir string, opts Options) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "open", Path: abs, Err: os.ErrInvalid}
	}
	return &Store{root: abs, allowOverwrite: opts.AllowOverwrite}, nil
}

// Root returns the served directory.
func (s *Store) Root() string {
	return s.root
}

// OpenRead opens filename beneath the root and reports its size for tsize
// negotiation.
func (s *Store) OpenRead(peer *net.UDPAddr, filename string) (io.ReadCloser, int64, error) {
	full, err := s.resolve(filename)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, wire.Error{Code: wire.ErrAccessViolation, Message: "not a file"}
	}
	return f, info.Size(), nil
}

// OpenWrite creates filename beneath the root. The declared size is not
// trusted for anything; bytes are written as they arrive.
func (s *Store) OpenWrite(peer *net.UDPAddr, filename string, declaredSize int64) (io.WriteCloser, error) {
	full, err := s.resolve(filename)
	if err != nil {
		return nil, err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if s.allowOverwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	return os.OpenFile(full, flags, 0o644)
}

// resolve validates a request filename and anchors it beneath the root.
// Rooting the path at "/" before cleaning folds any ".." prefix away, so
// the joined result cannot climb out of the served directory.
func (s *Store) resolve(filename string) (string, error) {
	if filename == "" || len(filename) > maxFilenameLength {
		return "", wire.Error{Code: wire.ErrAccessViolation, Message: "invalid filename"}
	}
	if strings.ContainsAny(filename, "\\\x00") {
		return "", wire.Error{Code: wire.ErrAccessViolation, Message: "invalid filename"}
	}
	for _, elem := range strings.Split(filename, "/") {
		if elem == ".." {
			return "", wire.Error{Code: wire.ErrAccessViolation, Message: "invalid filename"}
		}
	}
	rel := strings.TrimPrefix(path.Clean("/"+filename), "/")
	if rel == "" {
		return "", wire.Error{Code: wire.ErrAccessViolation, Message: "invalid filename"}
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}
