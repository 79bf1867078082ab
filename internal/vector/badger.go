// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package vector

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const embeddingKeyPrefix = "emb:"

// badgerRecord is the JSON envelope stored under each key. Vector holds the
// little-endian float32 encoding.
type badgerRecord struct {
	Vector    []byte    `json:"vector"`
	Model     string    `json:"model"`
	Hash      string    `json:"hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BadgerBackend persists embeddings in BadgerDB.
type BadgerBackend struct {
	db     *badger.DB
	ownsDB bool
}

// OpenBadgerBackend opens (or creates) a BadgerDB at path. An empty path
// with inMemory set opens a purely in-memory database.
func OpenBadgerBackend(path string, inMemory bool) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // badger's own logger is noisy at info level

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for embeddings: %w", err)
	}
	return &BadgerBackend{db: db, ownsDB: true}, nil
}

// NewBadgerBackend wraps an already open database. Close leaves db open.
func NewBadgerBackend(db *badger.DB) *BadgerBackend {
	return &BadgerBackend{db: db}
}

func embeddingKey(id int64) []byte {
	key := make([]byte, len(embeddingKeyPrefix)+8)
	copy(key, embeddingKeyPrefix)
	binary.BigEndian.PutUint64(key[len(embeddingKeyPrefix):], uint64(id)) //nolint:gosec // bit-preserving conversion
	return key
}

func idFromKey(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key[len(embeddingKeyPrefix):])) //nolint:gosec // bit-preserving conversion
}

func marshalRecord(rec *Record) ([]byte, error) {
	data, err := json.Marshal(badgerRecord{
		Vector:    EncodeEmbedding(rec.Vector),
		Model:     rec.Model,
		Hash:      rec.ContentHash,
		CreatedAt: rec.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding %d: %w", rec.ID, err)
	}
	return data, nil
}

func unmarshalRecord(id int64, data []byte) (Record, error) {
	var br badgerRecord
	if err := json.Unmarshal(data, &br); err != nil {
		return Record{}, fmt.Errorf("unmarshal embedding %d: %w", id, err)
	}
	vec, err := DecodeEmbedding(br.Vector)
	if err != nil {
		return Record{}, fmt.Errorf("decode embedding %d: %w", id, err)
	}
	return Record{ID: id, Vector: vec, Model: br.Model, ContentHash: br.Hash, CreatedAt: br.CreatedAt}, nil
}

// Put implements Backend.
func (b *BadgerBackend) Put(ctx context.Context, rec Record) error {
	return b.PutBatch(ctx, []Record{rec})
}

// PutBatch writes every record in a single transaction.
func (b *BadgerBackend) PutBatch(ctx context.Context, recs []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		for i := range recs {
			data, err := marshalRecord(&recs[i])
			if err != nil {
				return err
			}
			if err := txn.Set(embeddingKey(recs[i].ID), data); err != nil {
				return fmt.Errorf("set embedding %d: %w", recs[i].ID, err)
			}
		}
		return nil
	})
}

// Get implements Backend.
func (b *BadgerBackend) Get(ctx context.Context, id int64) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}

	var rec Record
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(embeddingKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decodeErr error
			rec, decodeErr = unmarshalRecord(id, val)
			return decodeErr
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get embedding %d: %w", id, err)
	}
	return rec, true, nil
}

// Delete implements Backend. Deleting a missing id is not an error.
func (b *BadgerBackend) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(embeddingKey(id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete embedding %d: %w", id, err)
		}
		return nil
	})
}

// Iterate implements Backend.
func (b *BadgerBackend) Iterate(ctx context.Context, fn func(Record) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(embeddingKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			id := idFromKey(item.Key())
			var rec Record
			err := item.Value(func(val []byte) error {
				var decodeErr error
				rec, decodeErr = unmarshalRecord(id, val)
				return decodeErr
			})
			if err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Clear implements Backend.
func (b *BadgerBackend) Clear(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(embeddingKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}

	if err := b.db.DropPrefix([]byte(embeddingKeyPrefix)); err != nil {
		return 0, fmt.Errorf("drop embeddings: %w", err)
	}
	return count, nil
}

// Close closes the database if this backend opened it.
func (b *BadgerBackend) Close() error {
	if !b.ownsDB {
		return nil
	}
	return b.db.Close()
}

var _ Backend = (*BadgerBackend)(nil)
