package mongodb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/richman/backend/internal/game/models"
)

func TestSnapshotStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("save upserts", func(mt *mtest.T) {
		store := NewSnapshotStore(mt.DB, mt.Coll.Name())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		err := store.Save(context.Background(), models.Snapshot{GameID: "g1", Name: "slot"})
		require.NoError(mt, err)
	})

	mt.Run("load decodes", func(mt *mtest.T) {
		store := NewSnapshotStore(mt.DB, mt.Coll.Name())
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "gameId", Value: "g1"},
			{Key: "name", Value: "slot"},
			{Key: "round", Value: 4},
			{Key: "state", Value: "playing"},
		}))

		snap, err := store.Load(context.Background(), "g1", "slot")
		require.NoError(mt, err)
		assert.Equal(mt, 4, snap.Round)
		assert.Equal(mt, models.GameStatePlaying, snap.State)
	})

	mt.Run("load missing", func(mt *mtest.T) {
		store := NewSnapshotStore(mt.DB, mt.Coll.Name())
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := store.Load(context.Background(), "g1", "nope")
		assert.True(mt, errors.Is(err, models.ErrNotFound))
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		store := NewSnapshotStore(mt.DB, mt.Coll.Name())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := store.Delete(context.Background(), "g1", "nope")
		assert.True(mt, errors.Is(err, models.ErrNotFound))
	})

	mt.Run("prune nothing old", func(mt *mtest.T) {
		store := NewSnapshotStore(mt.DB, mt.Coll.Name())
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		n, err := store.PruneAutoSaves(context.Background(), "g1", 5)
		require.NoError(mt, err)
		assert.Zero(mt, n)
	})

	mt.Run("prune deletes overflow", func(mt *mtest.T) {
		store := NewSnapshotStore(mt.DB, mt.Coll.Name())
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				bson.D{{Key: "name", Value: "auto-1"}},
				bson.D{{Key: "name", Value: "auto-2"}},
			),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}),
		)

		n, err := store.PruneAutoSaves(context.Background(), "g1", 5)
		require.NoError(mt, err)
		assert.Equal(mt, 2, n)
	})
}
