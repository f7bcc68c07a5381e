package internal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

const CodebookFilename = "codebook.db"

var (
	bucketMeta = []byte("meta")
	keyMeta    = []byte("codebook")
)

type codebookMeta struct {
	Dimension int            `json:"dimension"`
	Types     []FieldType    `json:"types"`
	Trees     map[string]int `json:"trees"`
	Sizes     map[string]int `json:"sizes"`
}

func groupBucket(t FieldType) []byte {
	return []byte("group:" + string(t))
}

func slotKey(slot uint32) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], slot)
	return k[:]
}

// SaveCodebook writes one Annoy file per type and the slot dictionaries of
// all types into dir. Previous contents of the dictionary database are
// replaced.
func SaveCodebook(dir string, cb *Codebook) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create codebook directory: %w", err)
	}

	meta := codebookMeta{
		Dimension: cb.Dimension(),
		Types:     cb.Types(),
		Trees:     make(map[string]int),
		Sizes:     make(map[string]int),
	}

	for _, t := range cb.order {
		idx := cb.groups[t]
		if err := idx.save(indexPath(dir, t)); err != nil {
			return fmt.Errorf("type %s: %w", t, err)
		}
		meta.Trees[string(t)] = idx.Trees()
		meta.Sizes[string(t)] = idx.Len()
	}

	dbPath := filepath.Join(dir, CodebookFilename)
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale dictionary: %w", err)
	}

	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("open dictionary: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		mb, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketMeta, err)
		}

		data, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal meta: %w", err)
		}
		if err := mb.Put(keyMeta, data); err != nil {
			return err
		}

		for _, t := range cb.order {
			b, err := tx.CreateBucketIfNotExists(groupBucket(t))
			if err != nil {
				return fmt.Errorf("create bucket for %s: %w", t, err)
			}
			for slot, tok := range cb.groups[t].Tokens() {
				if err := b.Put(slotKey(uint32(slot)), []byte(tok)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// LoadCodebook restores a codebook saved by SaveCodebook. vocab must be the
// vocabulary the codebook was built from; only its dimension is checked.
func LoadCodebook(dir string, vocab *Vocabulary) (*Codebook, error) {
	dbPath := filepath.Join(dir, CodebookFilename)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer db.Close()

	var meta codebookMeta
	dicts := make(map[FieldType][]Token)

	err = db.View(func(tx *bbolt.Tx) error {
		mb := tx.Bucket(bucketMeta)
		if mb == nil {
			return fmt.Errorf("%w: missing meta bucket", ErrCorruptCodebook)
		}
		data := mb.Get(keyMeta)
		if data == nil {
			return fmt.Errorf("%w: missing meta record", ErrCorruptCodebook)
		}
		if err := json.Unmarshal(data, &meta); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptCodebook, err)
		}

		for _, t := range meta.Types {
			b := tx.Bucket(groupBucket(t))
			if b == nil {
				return fmt.Errorf("%w: missing dictionary for %s", ErrCorruptCodebook, t)
			}

			tokens := make([]Token, 0, meta.Sizes[string(t)])
			err := b.ForEach(func(k, v []byte) error {
				if len(k) != 4 || binary.BigEndian.Uint32(k) != uint32(len(tokens)) {
					return fmt.Errorf("%w: %s dictionary has a gap at slot %d", ErrCorruptCodebook, t, len(tokens))
				}
				tokens = append(tokens, Token(v))
				return nil
			})
			if err != nil {
				return err
			}
			if len(tokens) != meta.Sizes[string(t)] {
				return fmt.Errorf("%w: %s has %d tokens, index has %d", ErrCorruptCodebook, t, len(tokens), meta.Sizes[string(t)])
			}
			dicts[t] = tokens
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if vocab != nil && vocab.Dimension() != meta.Dimension {
		return nil, fmt.Errorf("%w: codebook has %d, vocabulary has %d", ErrDimensionMismatch, meta.Dimension, vocab.Dimension())
	}

	cb := &Codebook{
		vocab:  vocab,
		groups: make(map[FieldType]*TokenIndex, len(meta.Types)),
	}
	for _, t := range meta.Types {
		idx, err := loadTokenIndex(indexPath(dir, t), meta.Dimension, meta.Trees[string(t)], dicts[t])
		if err != nil {
			cb.Close()
			return nil, fmt.Errorf("type %s: %w", t, err)
		}
		cb.order = append(cb.order, t)
		cb.groups[t] = idx
	}

	return cb, nil
}
