package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v3"
	bolt "go.etcd.io/bbolt"

	"github.com/dogrut/rtreed/logging"
)

var log = logging.New("store")

var (
	bucketNodes = []byte("nodes")
	bucketBBox  = []byte("bbox")
	bucketInts  = []byte("ints")
	bucketEdges = []byte("edges")
	bucketMeta  = []byte("meta")

	keyLayerRoot = []byte("layer_root")

	subBucketOut = []byte("out")
	subBucketIn  = []byte("in")
)

// BoltStore is the reference Store implementation, backed by an embedded
// go.etcd.io/bbolt database file. Every Update/View call maps directly onto
// one bbolt read-write or read-only transaction, so the MVCC snapshot
// semantics bbolt already provides are exactly the ones the index core
// relies on.
type BoltStore struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bbolt-backed store at path. A file
// left locked by a still-shutting-down process is retried with
// exponential backoff rather than failing on the first attempt.
func Open(path string) (*BoltStore, error) {
	var db *bolt.DB
	operation := func() error {
		var err error
		db, err = bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	b.Reset()

	if err := backoff.Retry(operation, b); err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}

	err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketNodes, bucketBBox, bucketInts, bucketEdges, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Infoln("opened store at", path)
	return &BoltStore{db: db}, nil
}

// Close releases the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Update runs fn inside a read-write bbolt transaction.
func (s *BoltStore) Update(fn func(tx Tx) error) error {
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(&boltTx{tx: btx})
	})
}

// View runs fn inside a read-only bbolt transaction.
func (s *BoltStore) View(fn func(tx Tx) error) error {
	return s.db.View(func(btx *bolt.Tx) error {
		return fn(&boltTx{tx: btx})
	})
}

// EnsureLayerRoot returns this store's single demo layer root, creating it
// on first use. A production deployment with multiple named layers would
// look a layer's root up by name instead of keeping exactly one.
func (s *BoltStore) EnsureLayerRoot() (NodeID, error) {
	var id NodeID
	err := s.db.Update(func(btx *bolt.Tx) error {
		meta := btx.Bucket(bucketMeta)
		if v := meta.Get(keyLayerRoot); v != nil {
			id = idFromKey(v)
			return nil
		}
		nodes := btx.Bucket(bucketNodes)
		seq, err := nodes.NextSequence()
		if err != nil {
			return err
		}
		nid := NodeID(seq)
		if err := nodes.Put(idKey(nid), []byte{1}); err != nil {
			return err
		}
		id = nid
		return meta.Put(keyLayerRoot, idKey(nid))
	})
	return id, err
}

type boltTx struct {
	tx *bolt.Tx
}

func idKey(id NodeID) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func idFromKey(b []byte) NodeID {
	return NodeID(binary.BigEndian.Uint64(b))
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (t *boltTx) CreateNode() (NodeID, error) {
	b := t.tx.Bucket(bucketNodes)
	seq, err := b.NextSequence()
	if err != nil {
		return 0, err
	}
	id := NodeID(seq)
	if err := b.Put(idKey(id), []byte{1}); err != nil {
		return 0, err
	}
	return id, nil
}

func (t *boltTx) DeleteNode(id NodeID) error {
	if err := t.tx.Bucket(bucketNodes).Delete(idKey(id)); err != nil {
		return err
	}
	prefix := idKey(id)
	ints := t.tx.Bucket(bucketInts)
	c := ints.Cursor()
	var stale [][]byte
	for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
		stale = append(stale, append([]byte(nil), k...))
	}
	for _, k := range stale {
		if err := ints.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func edgeTypeBucket(tx *bolt.Tx, t EdgeType) (*bolt.Bucket, error) {
	root := tx.Bucket(bucketEdges)
	return root.CreateBucketIfNotExists([]byte(t.String()))
}

func edgeTypeBucketReadOnly(tx *bolt.Tx, t EdgeType) *bolt.Bucket {
	root := tx.Bucket(bucketEdges)
	return root.Bucket([]byte(t.String()))
}

func edgeKey(from, to NodeID) []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[0:8], uint64(from))
	binary.BigEndian.PutUint64(b[8:16], uint64(to))
	return b
}

func (t *boltTx) CreateEdge(et EdgeType, from, to NodeID) error {
	eb, err := edgeTypeBucket(t.tx, et)
	if err != nil {
		return err
	}
	out, err := eb.CreateBucketIfNotExists(subBucketOut)
	if err != nil {
		return err
	}
	in, err := eb.CreateBucketIfNotExists(subBucketIn)
	if err != nil {
		return err
	}
	if err := out.Put(edgeKey(from, to), []byte{1}); err != nil {
		return err
	}
	return in.Put(edgeKey(to, from), []byte{1})
}

func (t *boltTx) DeleteEdge(et EdgeType, from, to NodeID) error {
	eb := edgeTypeBucketReadOnly(t.tx, et)
	if eb == nil {
		return nil
	}
	if out := eb.Bucket(subBucketOut); out != nil {
		if err := out.Delete(edgeKey(from, to)); err != nil {
			return err
		}
	}
	if in := eb.Bucket(subBucketIn); in != nil {
		if err := in.Delete(edgeKey(to, from)); err != nil {
			return err
		}
	}
	return nil
}

func (t *boltTx) Children(et EdgeType, from NodeID) ([]NodeID, error) {
	eb := edgeTypeBucketReadOnly(t.tx, et)
	if eb == nil {
		return nil, nil
	}
	out := eb.Bucket(subBucketOut)
	if out == nil {
		return nil, nil
	}
	prefix := idKey(from)
	var result []NodeID
	c := out.Cursor()
	for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
		result = append(result, idFromKey(k[8:]))
	}
	return result, nil
}

func (t *boltTx) Parent(et EdgeType, to NodeID) (NodeID, bool, error) {
	eb := edgeTypeBucketReadOnly(t.tx, et)
	if eb == nil {
		return 0, false, nil
	}
	in := eb.Bucket(subBucketIn)
	if in == nil {
		return 0, false, nil
	}
	prefix := idKey(to)
	c := in.Cursor()
	k, _ := c.Seek(prefix)
	if k == nil || !hasPrefix(k, prefix) {
		return 0, false, nil
	}
	return idFromKey(k[8:]), true, nil
}

func (t *boltTx) GetBBox(id NodeID) ([4]float64, bool, error) {
	v := t.tx.Bucket(bucketBBox).Get(idKey(id))
	if v == nil {
		return [4]float64{}, false, nil
	}
	var out [4]float64
	for i := 0; i < 4; i++ {
		bits := binary.BigEndian.Uint64(v[i*8 : i*8+8])
		out[i] = math.Float64frombits(bits)
	}
	return out, true, nil
}

func (t *boltTx) SetBBox(id NodeID, bbox [4]float64) error {
	v := make([]byte, 32)
	for i, f := range bbox {
		binary.BigEndian.PutUint64(v[i*8:i*8+8], math.Float64bits(f))
	}
	return t.tx.Bucket(bucketBBox).Put(idKey(id), v)
}

func (t *boltTx) DeleteBBox(id NodeID) error {
	return t.tx.Bucket(bucketBBox).Delete(idKey(id))
}

func intKey(id NodeID, key string) []byte {
	return append(idKey(id), []byte(":"+key)...)
}

func (t *boltTx) GetInt(id NodeID, key string) (int64, bool, error) {
	v := t.tx.Bucket(bucketInts).Get(intKey(id, key))
	if v == nil {
		return 0, false, nil
	}
	return int64(binary.BigEndian.Uint64(v)), true, nil
}

func (t *boltTx) SetInt(id NodeID, key string, value int64) error {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, uint64(value))
	return t.tx.Bucket(bucketInts).Put(intKey(id, key), v)
}
