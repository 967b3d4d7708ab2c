// Package store persists the toggle index across restarts.
//
// Loading never fails: any problem reading the value is logged and the
// default (0) is returned. Saving reports failures to the caller, who may
// ignore them.
package store

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

const (
	// DefaultNamespace is the table the value is stored under.
	DefaultNamespace = "storage"
	// DefaultKey is the key of the value inside its namespace.
	DefaultKey = "value"
)

// File stores a single int32 inside a TOML document on disk. Other tables
// and keys in the same document are preserved.
type File struct {
	path      string
	namespace string
	key       string
	logger    *slog.Logger

	mu sync.Mutex
}

// FileOption configures a File.
type FileOption func(*File)

// WithNamespace sets the table the value is stored under.
func WithNamespace(namespace string) FileOption {
	return func(f *File) { f.namespace = namespace }
}

// WithKey sets the key of the value.
func WithKey(key string) FileOption {
	return func(f *File) { f.key = key }
}

// NewFile creates a store backed by the TOML file at path. The file does not
// need to exist.
func NewFile(path string, logger *slog.Logger, opts ...FileOption) *File {
	f := &File{
		path:      path,
		namespace: DefaultNamespace,
		key:       DefaultKey,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the path of the backing file.
func (f *File) Path() string {
	return f.path
}

// Load returns the stored value, or 0 if there is none or it cannot be read.
func (f *File) Load() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, err := f.load()
	if err != nil {
		f.logger.Warn(
			"failed to load persisted value, using default",
			"path", f.path,
			"error", err)
		return 0
	}
	return v
}

func (f *File) load() (int32, error) {
	tree, err := f.readTree()
	if err != nil {
		return 0, err
	}
	if tree == nil {
		f.logger.Debug("no persisted state yet", "path", f.path)
		return 0, nil
	}

	raw := tree.GetPath([]string{f.namespace, f.key})
	if raw == nil {
		f.logger.Debug(
			"persisted state has no value",
			"namespace", f.namespace,
			"key", f.key)
		return 0, nil
	}

	v, ok := raw.(int64)
	if !ok {
		return 0, fmt.Errorf("%s.%s is a %T, not an integer", f.namespace, f.key, raw)
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%s.%s = %d overflows int32", f.namespace, f.key, v)
	}
	return int32(v), nil
}

// readTree reads the document. It returns a nil tree if the file does not
// exist.
func (f *File) readTree() (*toml.Tree, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read state file")
	}

	tree, err := toml.LoadBytes(b)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse state file")
	}

	// A namespace that exists but is not a table cannot hold our key.
	if ns := tree.Get(f.namespace); ns != nil {
		if _, ok := ns.(*toml.Tree); !ok {
			return nil, fmt.Errorf("%s is a %T, not a table", f.namespace, ns)
		}
	}

	return tree, nil
}

// Save durably stores v. It returns once the new document is committed to
// disk, so a Load after a crash observes v.
func (f *File) Save(v int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tree, err := f.readTree()
	if err != nil || tree == nil {
		if err != nil {
			f.logger.Warn(
				"replacing unreadable state file",
				"path", f.path,
				"error", err)
		}
		tree, err = toml.TreeFromMap(map[string]interface{}{})
		if err != nil {
			return errors.Wrap(err, "failed to create state document")
		}
	}

	tree.SetPath([]string{f.namespace, f.key}, int64(v))

	b, err := tree.Marshal()
	if err != nil {
		return errors.Wrap(err, "failed to encode state")
	}

	if err := writeFileSync(f.path, b); err != nil {
		return err
	}

	f.logger.Debug("persisted value", "path", f.path, "value", v)
	return nil
}

// writeFileSync atomically replaces path with data. The data and the
// directory entry are both synced before it returns.
func writeFileSync(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create state directory")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary state file")
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return errors.Wrap(err, "failed to write temporary state file")
	}
	if err := tmp.Sync(); err != nil {
		return errors.Wrap(err, "failed to sync temporary state file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temporary state file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "failed to replace state file")
	}
	committed = true

	d, err := os.Open(dir)
	if err != nil {
		return errors.Wrap(err, "failed to open state directory")
	}
	defer d.Close()

	if err := d.Sync(); err != nil {
		return errors.Wrap(err, "failed to sync state directory")
	}

	return nil
}
