package storage

// PrefixDB wraps a DB and prepends a fixed prefix to all keys, giving the
// wallet its own namespace inside a shared database.
type PrefixDB struct {
	inner  DB
	prefix []byte
}

// NewPrefixDB creates a new PrefixDB wrapping inner with the given prefix.
func NewPrefixDB(inner DB, prefix []byte) *PrefixDB {
	return &PrefixDB{inner: inner, prefix: clone(prefix)}
}

// Prefix returns the namespace prefix.
func (p *PrefixDB) Prefix() []byte {
	return clone(p.prefix)
}

func (p *PrefixDB) prefixed(key []byte) []byte {
	out := make([]byte, len(p.prefix)+len(key))
	copy(out, p.prefix)
	copy(out[len(p.prefix):], key)
	return out
}

// Get retrieves a value by key.
func (p *PrefixDB) Get(key []byte) ([]byte, error) {
	return p.inner.Get(p.prefixed(key))
}

// Put stores a key-value pair.
func (p *PrefixDB) Put(key, value []byte) error {
	return p.inner.Put(p.prefixed(key), value)
}

// Delete removes a key.
func (p *PrefixDB) Delete(key []byte) error {
	return p.inner.Delete(p.prefixed(key))
}

// Has checks if a key exists.
func (p *PrefixDB) Has(key []byte) (bool, error) {
	return p.inner.Has(p.prefixed(key))
}

// ForEach iterates over keys with the given prefix inside the namespace.
// Keys passed to fn have the namespace prefix stripped.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return p.inner.ForEach(p.prefixed(prefix), func(key, value []byte) error {
		return fn(key[len(p.prefix):], value)
	})
}

// DeleteAll removes every key in the namespace, leaving the rest of the
// inner DB untouched.
func (p *PrefixDB) DeleteAll() error {
	var keys [][]byte
	err := p.inner.ForEach(p.prefix, func(key, _ []byte) error {
		keys = append(keys, clone(key))
		return nil
	})
	if err != nil {
		return err
	}

	b := p.NewBatch()
	for _, key := range keys {
		// Keys are already fully prefixed; strip so the batch re-adds it.
		if err := b.Delete(key[len(p.prefix):]); err != nil {
			return err
		}
	}
	return b.Commit()
}

// Close is a no-op. The inner DB manages its own lifecycle.
func (p *PrefixDB) Close() error {
	return nil
}

// Atomic reports whether batches from this DB commit atomically.
func (p *PrefixDB) Atomic() bool {
	_, ok := p.inner.(Batcher)
	return ok
}

// NewBatch returns a batch that writes under the namespace. When the inner
// DB is a Batcher the batch commits atomically; otherwise the buffered
// writes are replayed one by one.
func (p *PrefixDB) NewBatch() Batch {
	pb := &prefixBatch{db: p}
	if batcher, ok := p.inner.(Batcher); ok {
		pb.inner = batcher.NewBatch()
	}
	return pb
}

type prefixBatch struct {
	db    *PrefixDB
	inner Batch
	ops   []batchOp
}

func (pb *prefixBatch) Put(key, value []byte) error {
	if pb.inner != nil {
		return pb.inner.Put(pb.db.prefixed(key), value)
	}
	v := clone(value)
	if v == nil {
		v = []byte{}
	}
	pb.ops = append(pb.ops, batchOp{clone(key), v})
	return nil
}

func (pb *prefixBatch) Delete(key []byte) error {
	if pb.inner != nil {
		return pb.inner.Delete(pb.db.prefixed(key))
	}
	pb.ops = append(pb.ops, batchOp{key: clone(key)})
	return nil
}

func (pb *prefixBatch) Commit() error {
	if pb.inner != nil {
		return pb.inner.Commit()
	}
	for _, op := range pb.ops {
		var err error
		if op.value == nil {
			err = pb.db.Delete(op.key)
		} else {
			err = pb.db.Put(op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	pb.ops = nil
	return nil
}
