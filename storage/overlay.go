package storage

import "errors"

// Overlay stages mutations on top of a Database so a whole ledger operation can
// be applied or discarded as one unit. Reads fall through to the backing store
// unless the key was written (or deleted) in this overlay; nothing touches the
// store until Commit.
//
// Overlay is not safe for concurrent use.
type Overlay struct {
	store   Database
	writes  map[string][]byte
	deletes map[string]struct{}
}

// NewOverlay creates an empty overlay on top of the provided store.
func NewOverlay(store Database) *Overlay {
	return &Overlay{
		store:   store,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

// Get retrieves a value, preferring staged writes. Missing keys yield a nil
// value with no error so callers can treat empty data as absence.
func (o *Overlay) Get(key []byte) ([]byte, error) {
	if o == nil || o.store == nil {
		return nil, errors.New("storage: overlay not initialised")
	}
	k := string(key)
	if _, ok := o.deletes[k]; ok {
		return nil, nil
	}
	if value, ok := o.writes[k]; ok {
		return append([]byte(nil), value...), nil
	}
	value, err := o.store.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return value, err
}

// Update stages a write for the provided key.
func (o *Overlay) Update(key, value []byte) error {
	if o == nil || o.store == nil {
		return errors.New("storage: overlay not initialised")
	}
	k := string(key)
	delete(o.deletes, k)
	o.writes[k] = append([]byte(nil), value...)
	return nil
}

// Delete stages a removal for the provided key.
func (o *Overlay) Delete(key []byte) error {
	if o == nil || o.store == nil {
		return errors.New("storage: overlay not initialised")
	}
	k := string(key)
	delete(o.writes, k)
	o.deletes[k] = struct{}{}
	return nil
}

// Pending reports how many staged mutations the overlay currently holds.
func (o *Overlay) Pending() int {
	if o == nil {
		return 0
	}
	return len(o.writes) + len(o.deletes)
}

// Commit flushes all staged mutations to the backing store and clears the
// overlay. A partial flush leaves the remaining mutations staged so the caller
// can surface the failure; the backing store is expected to be local and not
// fail between writes under normal operation.
func (o *Overlay) Commit() error {
	if o == nil || o.store == nil {
		return errors.New("storage: overlay not initialised")
	}
	for k, v := range o.writes {
		if err := o.store.Put([]byte(k), v); err != nil {
			return err
		}
		delete(o.writes, k)
	}
	for k := range o.deletes {
		if err := o.store.Delete([]byte(k)); err != nil {
			return err
		}
		delete(o.deletes, k)
	}
	return nil
}

// Reset discards every staged mutation without touching the backing store.
func (o *Overlay) Reset() {
	if o == nil {
		return
	}
	o.writes = make(map[string][]byte)
	o.deletes = make(map[string]struct{})
}
