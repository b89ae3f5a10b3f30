package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

const snapshotExt = ".cbor"

// LocalStore keeps the latest snapshot of each tournament in its own file,
// named after the tournament code.
type LocalStore struct {
	dir string
	enc cbor.EncMode
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLocalWrite, err)
	}
	enc, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		return nil, err
	}
	return &LocalStore{dir: dir, enc: enc}, nil
}

// Save replaces the stored snapshot. The file is written beside the target
// and renamed into place, so a crash leaves either the old or the new one.
func (l *LocalStore) Save(snap Snapshot) error {
	path, err := l.path(snap.Code)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocalWrite, err)
	}
	data, err := l.enc.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrLocalWrite, snap.Code, err)
	}

	tmp, err := os.CreateTemp(l.dir, snap.Code+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocalWrite, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrLocalWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrLocalWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrLocalWrite, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %v", ErrLocalWrite, err)
	}
	return nil
}

// Load returns the stored snapshot, or false when there is none.
func (l *LocalStore) Load(code string) (Snapshot, bool, error) {
	path, err := l.path(code)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: %v", ErrLocalRead, err)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: %v", ErrLocalRead, err)
	}

	var snap Snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: decode %s: %v", ErrLocalRead, code, err)
	}
	return snap, true, nil
}

func (l *LocalStore) Delete(code string) error {
	path, err := l.path(code)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocalWrite, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrLocalWrite, err)
	}
	return nil
}

// Codes lists the tournaments that have a stored snapshot.
func (l *LocalStore) Codes() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLocalRead, err)
	}
	var codes []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		codes = append(codes, strings.TrimSuffix(name, snapshotExt))
	}
	return codes, nil
}

func (l *LocalStore) path(code string) (string, error) {
	if code == "" || strings.ContainsAny(code, `/\.`) {
		return "", fmt.Errorf("invalid tournament code %q", code)
	}
	return filepath.Join(l.dir, code+snapshotExt), nil
}
