package checkpoint

import (
	"context"
	"sync"
	"time"

	"github.com/edongashi/itc-2019-sub000/pkg/search"
	"github.com/edongashi/itc-2019-sub000/pkg/solution"
	"go.uber.org/zap"
)

// Writer is a search.Observer that hands snapshots over to a goroutine running Run, so that the
// search loop never waits on the disk. A snapshot arriving while the previous one is still pending
// replaces it.
type Writer struct {
	store    *Store
	instance string
	logger   *zap.Logger

	pending chan Checkpoint
	done    chan struct{}
	once    sync.Once
}

func NewWriter(store *Store, instance string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		store:    store,
		instance: instance,
		logger:   logger,
		pending:  make(chan Checkpoint, 1),
		done:     make(chan struct{}),
	}
}

func (writer *Writer) OnBest(search.Progress, *solution.Solution) {}

func (writer *Writer) OnPenalization(search.Progress) {}

func (writer *Writer) OnSnapshot(progress search.Progress, best *solution.Solution) {
	checkpoint := Checkpoint{
		RunID:     progress.RunID,
		Instance:  writer.instance,
		Iteration: progress.Iteration,
		SavedAt:   time.Now().UTC(),
		Result:    best.Result(),
	}

	for {
		select {
		case writer.pending <- checkpoint:
			return
		default:
		}
		// Drop the stale snapshot
		select {
		case <-writer.pending:
		default:
		}
	}
}

// Close makes Run return once the pending snapshot is written
func (writer *Writer) Close() {
	writer.once.Do(func() { close(writer.done) })
}

// Run saves snapshots until Close is called or ctx is done
func (writer *Writer) Run(ctx context.Context) error {
	for {
		select {
		case checkpoint := <-writer.pending:
			if err := writer.save(checkpoint); err != nil {
				return err
			}
		case <-writer.done:
			select {
			case checkpoint := <-writer.pending:
				return writer.save(checkpoint)
			default:
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (writer *Writer) save(checkpoint Checkpoint) error {
	if err := writer.store.Save(checkpoint); err != nil {
		return err
	}
	writer.logger.Debug("checkpoint saved",
		zap.Stringer("run", checkpoint.RunID),
		zap.Int64("iteration", checkpoint.Iteration),
		zap.Int("hard", checkpoint.Result.Penalties.Hard),
		zap.Int("soft", checkpoint.Result.Penalties.Soft),
	)
	return nil
}
