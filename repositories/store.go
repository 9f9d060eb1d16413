//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks
package repositories

import (
	stderrors "errors"

	"campus-lab/errors"

	"github.com/dgraph-io/badger/v4"
)

// Txn is a consistent snapshot of the document store for the duration
// of one transaction. Get returns errors.ErrNotFound for missing keys.
// Ascend and Descend walk keys under prefix starting at seek (the
// prefix itself when seek is empty); the callback returns false to stop.
type Txn interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Ascend(prefix, seek string, fn func(key string, value []byte) (bool, error)) error
	Descend(prefix, seek string, fn func(key string, value []byte) (bool, error)) error
}

// DocumentStore is the capability handed to repositories and the
// enrollment coordinator. Update runs fn against a snapshot and commits
// all-or-nothing; a write-write collision with a concurrently committed
// transaction surfaces as errors.ErrContention so callers can retry
// against fresh state.
type DocumentStore interface {
	View(fn func(Txn) error) error
	Update(fn func(Txn) error) error
}

// BadgerStore adapts a Badger database to the DocumentStore contract.
// Badger's managed transactions give serializable snapshot isolation,
// which is exactly the optimistic-conflict behavior the coordinator
// builds on.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(db *badger.DB) BadgerStore {
	return BadgerStore{db: db}
}

func (s BadgerStore) View(fn func(Txn) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		return fn(badgerTxn{txn: txn})
	})
}

func (s BadgerStore) Update(fn func(Txn) error) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return fn(badgerTxn{txn: txn})
	})
	if stderrors.Is(err, badger.ErrConflict) {
		return errors.ErrContention
	}
	return err
}

type badgerTxn struct {
	txn *badger.Txn
}

func (t badgerTxn) Get(key string) ([]byte, error) {
	item, err := t.txn.Get([]byte(key))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t badgerTxn) Set(key string, value []byte) error {
	return t.txn.Set([]byte(key), value)
}

func (t badgerTxn) Delete(key string) error {
	return t.txn.Delete([]byte(key))
}

func (t badgerTxn) Ascend(prefix, seek string, fn func(key string, value []byte) (bool, error)) error {
	options := badger.DefaultIteratorOptions
	it := t.txn.NewIterator(options)
	defer it.Close()

	if seek == "" {
		seek = prefix
	}
	for it.Seek([]byte(seek)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		item := it.Item()
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		goOn, err := fn(string(item.Key()), value)
		if err != nil {
			return err
		}
		if !goOn {
			return nil
		}
	}
	return nil
}

func (t badgerTxn) Descend(prefix, seek string, fn func(key string, value []byte) (bool, error)) error {
	options := badger.DefaultIteratorOptions
	options.Reverse = true
	it := t.txn.NewIterator(options)
	defer it.Close()

	if seek == "" {
		// One past every key under the prefix, so the scan starts at the
		// newest entry.
		seek = prefix + "\xff"
	}
	for it.Seek([]byte(seek)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		item := it.Item()
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		goOn, err := fn(string(item.Key()), value)
		if err != nil {
			return err
		}
		if !goOn {
			return nil
		}
	}
	return nil
}
