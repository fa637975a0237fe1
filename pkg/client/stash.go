package client

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Stash guarda el estado efímero del flujo (verifier, state) y la sesión.
// Get devuelve ok=false si la key no existe.
type Stash interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStash vive lo que vive el proceso.
type MemoryStash struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemoryStash() *MemoryStash { return &MemoryStash{m: map[string]string{}} }

func (s *MemoryStash) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemoryStash) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *MemoryStash) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

const (
	stashDirPerm     = fs.FileMode(0o700)
	stashFilePerm    = fs.FileMode(0o600)
	stashOpenTimeout = 5 * time.Second
)

var stashBucket = []byte("tenantauth")

// BoltStash persiste en un archivo bbolt. Sirve a CLIs y apps de escritorio
// donde el redirect vuelve a otro proceso.
type BoltStash struct {
	db *bolt.DB
}

// OpenBoltStash abre (o crea) el archivo en path.
func OpenBoltStash(path string) (*BoltStash, error) {
	if err := os.MkdirAll(filepath.Dir(path), stashDirPerm); err != nil {
		return nil, fmt.Errorf("creating stash directory: %w", err)
	}
	db, err := bolt.Open(path, stashFilePerm, &bolt.Options{Timeout: stashOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening stash db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stashBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing stash db: %w", err)
	}
	return &BoltStash{db: db}, nil
}

func (s *BoltStash) Get(_ context.Context, key string) (string, bool, error) {
	var (
		v  string
		ok bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(stashBucket).Get([]byte(key))
		if b != nil {
			// el slice solo es válido dentro de la tx
			v, ok = string(b), true
		}
		return nil
	})
	return v, ok, err
}

func (s *BoltStash) Set(_ context.Context, key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stashBucket).Put([]byte(key), []byte(value))
	})
}

func (s *BoltStash) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stashBucket).Delete([]byte(key))
	})
}

func (s *BoltStash) Close() error { return s.db.Close() }
