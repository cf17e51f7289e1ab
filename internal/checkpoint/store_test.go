package checkpoint

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/edongashi/itc-2019-sub000/internal/fixture"
	"github.com/edongashi/itc-2019-sub000/pkg/problem"
	"github.com/edongashi/itc-2019-sub000/pkg/search"
	"github.com/edongashi/itc-2019-sub000/pkg/solution"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ search.Observer = (*Writer)(nil)

func openMemory(t *testing.T) *Store {
	t.Helper()
	store, err := Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSolution(t *testing.T) *solution.Solution {
	t.Helper()
	rng := rand.New(rand.NewPCG(4, 2))
	p, err := problem.New(fixture.GenerateInstance(rng, fixture.DefaultOptions()), 0)
	require.NoError(t, err)
	return solution.Initial(p)
}

func TestSaveAndLatest(t *testing.T) {
	//** Arrange
	store := openMemory(t)
	best := sampleSolution(t)
	first := Checkpoint{RunID: uuid.New(), Instance: "sample", Iteration: 10, Result: best.Result()}
	second := Checkpoint{RunID: uuid.New(), Instance: "sample", Iteration: 20, Result: best.Result()}

	//** Act
	require.NoError(t, store.Save(first))
	require.NoError(t, store.Save(second))
	latest, err := store.Latest("sample")

	//** Assert
	require.NoError(t, err)
	assert.Equal(t, second.RunID, latest.RunID)
	assert.Equal(t, int64(20), latest.Iteration)
	assert.Equal(t, best.Assignment(), latest.Result.Assignment)

	rebuilt, err := solution.New(best.Problem(), latest.Result.Assignment)
	require.NoError(t, err)
	assert.Equal(t, best.HardPenalty(), rebuilt.HardPenalty())

	run, err := store.Run("sample", first.RunID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), run.Iteration)

	runs, err := store.Runs("sample")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{first.RunID, second.RunID}, runs)
}

func TestNotFound(t *testing.T) {
	store := openMemory(t)

	_, err := store.Latest("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Run("missing", uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	runs, err := store.Runs("missing")
	assert.NoError(t, err)
	assert.Empty(t, runs)
}

func TestPersistentDirectory(t *testing.T) {
	//** Arrange
	directory := t.TempDir()
	best := sampleSolution(t)
	checkpoint := Checkpoint{RunID: uuid.New(), Instance: "disk", Iteration: 5, Result: best.Result()}

	store, err := Open(directory, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(checkpoint))
	require.NoError(t, store.Close())

	//** Act
	reopened, err := Open(directory, nil)
	require.NoError(t, err)
	defer reopened.Close()
	latest, err := reopened.Latest("disk")

	//** Assert
	require.NoError(t, err)
	assert.Equal(t, checkpoint.RunID, latest.RunID)
}

func TestWriter(t *testing.T) {
	//** Arrange
	store := openMemory(t)
	best := sampleSolution(t)
	writer := NewWriter(store, "sample", nil)
	runID := uuid.New()
	errs := make(chan error, 1)
	go func() { errs <- writer.Run(context.Background()) }()

	//** Act
	for iteration := int64(1); iteration <= 5; iteration++ {
		writer.OnSnapshot(search.Progress{RunID: runID, Iteration: iteration}, best)
	}
	writer.Close()

	//** Assert
	select {
	case err := <-errs:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("writer did not stop")
	}
	latest, err := store.Latest("sample")
	require.NoError(t, err)
	assert.Equal(t, runID, latest.RunID)
	assert.Equal(t, int64(5), latest.Iteration)
}
