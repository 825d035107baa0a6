package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"matter-go-home/internal/event"
)

var (
	bucketNodes  = []byte("nodes")
	bucketEvents = []byte("events")
)

var (
	journalEnc cbor.EncMode
	journalDec cbor.DecMode
)

func init() {
	var err error
	journalEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("store: cbor encoder mode: %v", err))
	}
	journalDec, err = cbor.DecOptions{DupMapKey: cbor.DupMapKeyQuiet}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("store: cbor decoder mode: %v", err))
	}
}

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketNodes, bucketEvents} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func nodeKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%016X", id))
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func (s *BoltStore) SaveNode(node *Node) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketNodes)
		}
		data, err := json.Marshal(node)
		if err != nil {
			return err
		}
		return b.Put(nodeKey(node.ID), data)
	})
}

func (s *BoltStore) GetNode(id uint64) (*Node, error) {
	var node Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketNodes)
		}
		data := b.Get(nodeKey(id))
		if data == nil {
			return fmt.Errorf("node 0x%016X: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *BoltStore) DeleteNode(id uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketNodes)
		}
		return b.Delete(nodeKey(id))
	})
}

func (s *BoltStore) ListNodes() ([]*Node, error) {
	var nodes []*Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b == nil {
			return nil // no bucket = no nodes
		}
		nodes = make([]*Node, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			var node Node
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			nodes = append(nodes, &node)
			return nil
		})
	})
	return nodes, err
}

func (s *BoltStore) UpdateNode(id uint64, fn func(node *Node) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketNodes)
		}
		data := b.Get(nodeKey(id))
		if data == nil {
			return fmt.Errorf("node 0x%016X: %w", id, ErrNotFound)
		}
		var node Node
		if err := json.Unmarshal(data, &node); err != nil {
			return err
		}
		if err := fn(&node); err != nil {
			return err
		}
		node.ID = id
		out, err := json.Marshal(&node)
		if err != nil {
			return err
		}
		return b.Put(nodeKey(id), out)
	})
}

// AppendEvent journals a report and returns its journal sequence.
func (s *BoltStore) AppendEvent(rep event.Report) (uint64, error) {
	data, err := journalEnc.Marshal(rep)
	if err != nil {
		return 0, fmt.Errorf("encode report: %w", err)
	}
	var seq uint64
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketEvents)
		}
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// ScanEvents calls fn for each journal entry matching q until fn returns false.
func (s *BoltStore) ScanEvents(q JournalQuery, fn func(JournalEntry) bool) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		if b == nil {
			return nil
		}
		c := b.Cursor()

		var k, v []byte
		if q.Reverse {
			if q.Before > 0 {
				k, v = c.Seek(seqKey(q.Before))
				if k == nil {
					k, v = c.Last()
				} else {
					k, v = c.Prev()
				}
			} else {
				k, v = c.Last()
			}
		} else {
			k, v = c.Seek(seqKey(q.After + 1))
		}

		for ; k != nil; k, v = step(c, q.Reverse) {
			seq := binary.BigEndian.Uint64(k)
			if q.Reverse && q.After > 0 && seq <= q.After {
				break
			}
			if !q.Reverse && q.Before > 0 && seq >= q.Before {
				break
			}
			var rep event.Report
			if err := journalDec.Unmarshal(v, &rep); err != nil {
				return fmt.Errorf("decode journal entry %d: %w", seq, err)
			}
			if q.Node != 0 && rep.Node != q.Node {
				continue
			}
			if !fn(JournalEntry{Seq: seq, Report: rep}) {
				return nil
			}
		}
		return nil
	})
}

func step(c *bolt.Cursor, reverse bool) ([]byte, []byte) {
	if reverse {
		return c.Prev()
	}
	return c.Next()
}

// PruneEvents deletes the oldest entries so that at most keep remain and
// returns how many were deleted.
func (s *BoltStore) PruneEvents(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		if b == nil {
			return nil
		}
		excess := b.Stats().KeyN - keep
		if excess <= 0 {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil && deleted < excess; k, _ = c.First() {
			if err := b.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
