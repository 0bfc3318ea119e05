// File: internal/services/blob/badger_store.go
package blob

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrEmptyBlob    = errors.New("blob is empty")
)

// Blob is a stored attachment.
type Blob struct {
	Data        []byte
	ContentType string
}

type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// OpenBadger opens the blob database at path. An empty path keeps
// everything in memory.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	return db, nil
}

// BadgerStore keeps attachments content-addressed per owner:
// blob:{owner}:{hash} holds the bytes, blobtype:{owner}:{hash} the content type.
type BadgerStore struct {
	db      *badger.DB
	baseURL string
	logger  Logger
}

func NewBadgerStore(db *badger.DB, publicBaseURL string, logger Logger) *BadgerStore {
	return &BadgerStore{
		db:      db,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:  logger,
	}
}

// Save stores data under its hash and returns the URL it can be fetched
// from. Saving the same bytes twice for one owner stores them once.
func (s *BadgerStore) Save(ctx context.Context, ownerID string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyBlob
	}

	hash := Hash(data)
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(dataKey(ownerID, hash)); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(dataKey(ownerID, hash), data); err != nil {
			return err
		}
		return txn.Set(typeKey(ownerID, hash), []byte(contentType))
	})
	if err != nil {
		s.logger.Error("[BlobStore] save failed", "owner_id", ownerID, "bytes", len(data), "error", err)
		return "", fmt.Errorf("save blob: %w", err)
	}

	s.logger.Debug("[BlobStore] blob saved", "owner_id", ownerID, "hash", hash, "bytes", len(data))
	return s.URL(hash), nil
}

// Load returns the blob stored under hash for ownerID. Other owners' blobs
// are reported as not found.
func (s *BadgerStore) Load(ctx context.Context, ownerID, hash string) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var blob Blob
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dataKey(ownerID, hash))
		if err != nil {
			return err
		}
		if blob.Data, err = item.ValueCopy(nil); err != nil {
			return err
		}

		item, err = txn.Get(typeKey(ownerID, hash))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			blob.ContentType = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load blob: %w", err)
	}
	return &blob, nil
}

// URL is where the blob with the given hash is served.
func (s *BadgerStore) URL(hash string) string {
	return s.baseURL + "/api/files/" + hash
}

// Hash is the hex blake2b-256 digest used as a blob's address.
func Hash(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func dataKey(ownerID, hash string) []byte {
	return []byte("blob:" + ownerID + ":" + hash)
}

func typeKey(ownerID, hash string) []byte {
	return []byte("blobtype:" + ownerID + ":" + hash)
}
