package advice

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
)

// LevelDBNodeStore persists Merkle nodes in LevelDB, keyed by the parent's
// 32-byte encoding with the 64-byte concatenation of its children as value.
type LevelDBNodeStore struct {
	db *leveldb.DB
}

// NewLevelDBNodeStore opens or creates a database at path. An empty path
// uses in-memory storage.
func NewLevelDBNodeStore(path string) (*LevelDBNodeStore, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open node store at %s: %w", path, err)
	}
	return &LevelDBNodeStore{db: db}, nil
}

// GetNode returns the children of parent. A missing key is not an error.
func (s *LevelDBNodeStore) GetNode(parent core.Digest) (core.Word, core.Word, bool, error) {
	data, err := s.db.Get(parent.Bytes(), nil)
	if err == leveldb.ErrNotFound {
		return core.Word{}, core.Word{}, false, nil
	}
	if err != nil {
		return core.Word{}, core.Word{}, false, fmt.Errorf("get node %s: %w", parent.Hex(), err)
	}
	if len(data) != 64 {
		return core.Word{}, core.Word{}, false, fmt.Errorf("node %s: corrupt value of %d bytes", parent.Hex(), len(data))
	}
	left, err := core.WordFromBytes(data[:32])
	if err != nil {
		return core.Word{}, core.Word{}, false, err
	}
	right, err := core.WordFromBytes(data[32:])
	if err != nil {
		return core.Word{}, core.Word{}, false, err
	}
	return left, right, true, nil
}

// PutNode records the children of parent
func (s *LevelDBNodeStore) PutNode(parent core.Digest, left, right core.Word) error {
	value := append(left.Bytes(), right.Bytes()...)
	return s.db.Put(parent.Bytes(), value, nil)
}

// Close releases the database
func (s *LevelDBNodeStore) Close() error {
	return s.db.Close()
}
