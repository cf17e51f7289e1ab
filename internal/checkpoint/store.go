// Package checkpoint persists the best solution of a search run in an embedded badger database,
// so that an interrupted run can be resumed.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/edongashi/itc-2019-sub000/pkg/solution"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("checkpoint not found")

type Checkpoint struct {
	RunID     uuid.UUID       `json:"runId"`
	Instance  string          `json:"instance"`
	Iteration int64           `json:"iteration"`
	SavedAt   time.Time       `json:"savedAt"`
	Result    solution.Result `json:"result"`
}

type Store struct {
	db *badger.DB
}

type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// Open opens the store in directory path, creating it when needed. An empty path keeps everything
// in memory.
func Open(path string, logger *zap.Logger) (*Store, error) {
	var options badger.Options
	if path == "" {
		options = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0750); err != nil {
			return nil, fmt.Errorf("create checkpoint directory %s: %w", path, err)
		}
		options = badger.DefaultOptions(path)
	}

	if logger != nil {
		options = options.WithLogger(&badgerLogger{logger: logger.Named("badger").Sugar()})
	} else {
		options = options.WithLogger(nil)
	}

	db, err := badger.Open(options.WithNumVersionsToKeep(1))
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}
	return &Store{db: db}, nil
}

func (store *Store) Close() error {
	return store.db.Close()
}

func runKey(instance string, runID uuid.UUID) []byte {
	return []byte("run/" + instance + "/" + runID.String())
}

func latestKey(instance string) []byte {
	return []byte("latest/" + instance)
}

// Save stores a checkpoint under its run and marks it as the latest one of its instance
func (store *Store) Save(checkpoint Checkpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	return store.db.Update(func(txn *badger.Txn) error {
		key := runKey(checkpoint.Instance, checkpoint.RunID)
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(latestKey(checkpoint.Instance), key)
	})
}

// Latest returns the last checkpoint saved for an instance
func (store *Store) Latest(instance string) (Checkpoint, error) {
	var checkpoint Checkpoint
	err := store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(latestKey(instance))
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return decode(txn, key, &checkpoint)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Checkpoint{}, fmt.Errorf("%w: %v", ErrNotFound, instance)
	}
	return checkpoint, err
}

// Run returns the checkpoint of a specific run
func (store *Store) Run(instance string, runID uuid.UUID) (Checkpoint, error) {
	var checkpoint Checkpoint
	err := store.db.View(func(txn *badger.Txn) error {
		return decode(txn, runKey(instance, runID), &checkpoint)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Checkpoint{}, fmt.Errorf("%w: run %v of %v", ErrNotFound, runID, instance)
	}
	return checkpoint, err
}

// Runs lists the ids of every run saved for an instance
func (store *Store) Runs(instance string) ([]uuid.UUID, error) {
	var runs []uuid.UUID
	prefix := []byte("run/" + instance + "/")
	err := store.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = prefix
		iterator := txn.NewIterator(options)
		defer iterator.Close()

		for iterator.Rewind(); iterator.Valid(); iterator.Next() {
			id, err := uuid.ParseBytes(iterator.Item().KeyCopy(nil)[len(prefix):])
			if err != nil {
				return fmt.Errorf("corrupt checkpoint key: %w", err)
			}
			runs = append(runs, id)
		}
		return nil
	})
	return runs, err
}

func decode(txn *badger.Txn, key []byte, checkpoint *Checkpoint) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(value []byte) error {
		return json.Unmarshal(value, checkpoint)
	})
}
