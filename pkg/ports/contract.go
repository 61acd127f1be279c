package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/turing/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractSnapshot is a small machine with every field populated.
func contractSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Alphabet:   "ab",
		Blank:      domain.Blank,
		Tape:       "abba",
		StartState: "q0",
		States: []domain.StateSpec{
			{
				Name:     "q0",
				Position: domain.Vec2{X: 10, Y: 20},
				Transitions: []domain.TransitionSpec{
					{Read: "a", Write: "b", To: "q0", Direction: domain.Right, Anchor: domain.DefaultLoopAnchor},
					{Read: "_", Write: "_", To: "q1", Direction: domain.Left, Anchor: domain.DefaultAnchor},
				},
			},
			{Name: "q1", Position: domain.Vec2{X: 200, Y: 20}, Final: true},
		},
	}
}

// RunMachineStoreContract runs a suite of tests to verify that a MachineStore
// implementation adheres to the defined interface contract.
func RunMachineStoreContract(t *testing.T, store MachineStore) {
	ctx := context.Background()
	id := "contract-test-machine-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := contractSnapshot()

		err := store.Save(ctx, id, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap, loaded)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		snap := contractSnapshot()
		snap.Tape = "b"
		require.NoError(t, store.Save(ctx, id, snap))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "b", loaded.Tape)
	})

	t.Run("Load Is A Copy", func(t *testing.T) {
		snap := contractSnapshot()
		require.NoError(t, store.Save(ctx, id, snap))
		snap.States[0].Name = "mutated"

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "q0", loaded.States[0].Name)

		loaded.Tape = "mutated"
		again, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "abba", again.Tape)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrMachineNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, id, contractSnapshot()))

		err := store.Delete(ctx, id)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrMachineNotFound, "Load after Delete should return ErrMachineNotFound")

		assert.NoError(t, store.Delete(ctx, id), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := id + "-1"
		id2 := id + "-2"
		require.NoError(t, store.Save(ctx, id1, contractSnapshot()))
		require.NoError(t, store.Save(ctx, id2, contractSnapshot()))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
		assert.NotContains(t, ids, id)
	})
}
