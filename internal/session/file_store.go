package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/and161185/wordshelf/internal/crypto/clientcrypto"
	"github.com/and161185/wordshelf/internal/model"
)

const (
	sessionFile   = "session.bin"
	deviceKeyFile = "device.key"
	sealPurpose   = "wordshelf/session"
)

var sealAAD = []byte("wordshelf/session/v1")

// FileStore keeps the session sealed under a per-device key inside dir.
type FileStore struct {
	dir string
}

// NewFileStore constructs a file-backed store rooted at dir.
func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

// Path returns the sealed session file location.
func (f *FileStore) Path() string { return filepath.Join(f.dir, sessionFile) }

func (f *FileStore) keyPath() string { return filepath.Join(f.dir, deviceKeyFile) }

// Read opens and decodes the sealed session.
func (f *FileStore) Read(_ context.Context) (*model.Session, error) {
	blob, err := os.ReadFile(f.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	key, err := f.sealKey(false)
	if err != nil {
		return nil, err
	}
	pt, err := clientcrypto.Open(key, sealAAD, blob)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	var s model.Session
	if err := json.Unmarshal(pt, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// Write seals s and replaces the session file via rename.
func (f *FileStore) Write(_ context.Context, s model.Session) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}
	key, err := f.sealKey(true)
	if err != nil {
		return err
	}
	pt, err := json.Marshal(s)
	if err != nil {
		return err
	}
	blob, err := clientcrypto.Seal(key, sealAAD, pt)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, sessionFile+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path())
}

// Remove deletes the session file. The device key is kept.
func (f *FileStore) Remove(_ context.Context) error {
	err := os.Remove(f.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// sealKey loads the device key, creating it when create is set.
func (f *FileStore) sealKey(create bool) ([]byte, error) {
	dev, err := os.ReadFile(f.keyPath())
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && create:
		dev, err = clientcrypto.Rand(clientcrypto.DeviceKeyLen)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(f.keyPath(), dev, 0o600); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	if len(dev) != clientcrypto.DeviceKeyLen {
		return nil, errors.New("device key has wrong length")
	}
	return clientcrypto.DeriveKey(dev, sealPurpose)
}

var _ Persister = (*FileStore)(nil)
