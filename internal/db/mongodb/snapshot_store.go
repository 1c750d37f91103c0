package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/richman/backend/internal/game/models"
)

// SnapshotStore keeps save slots in a collection, one document per game and name
type SnapshotStore struct {
	saves *mongo.Collection
}

// NewSnapshotStore creates a store on the named collection
func NewSnapshotStore(db *mongo.Database, collection string) *SnapshotStore {
	return &SnapshotStore{
		saves: db.Collection(collection),
	}
}

// EnsureIndexes creates the unique slot index and the listing index
func (s *SnapshotStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.saves.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "gameId", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "gameId", Value: 1}, {Key: "savedAt", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create save indexes: %w", err)
	}
	return nil
}

func slot(gameID, name string) bson.M {
	return bson.M{"gameId": gameID, "name": name}
}

// Save writes s, replacing any slot with the same game and name
func (s *SnapshotStore) Save(ctx context.Context, snap models.Snapshot) error {
	_, err := s.saves.ReplaceOne(ctx, slot(snap.GameID, snap.Name), snap, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save snapshot %q: %w", snap.Name, err)
	}
	return nil
}

// Load reads one slot
func (s *SnapshotStore) Load(ctx context.Context, gameID, name string) (*models.Snapshot, error) {
	var snap models.Snapshot
	err := s.saves.FindOne(ctx, slot(gameID, name)).Decode(&snap)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.Errorf(models.CodeNotFound, "no save named %q for game %s", name, gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %q: %w", name, err)
	}
	return &snap, nil
}

// List returns the slots of a game, newest first
func (s *SnapshotStore) List(ctx context.Context, gameID string) ([]models.SaveInfo, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "savedAt", Value: -1}}).
		SetProjection(bson.M{"gameId": 1, "name": 1, "autoSave": 1, "round": 1, "savedAt": 1})

	cursor, err := s.saves.Find(ctx, bson.M{"gameId": gameID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	defer cursor.Close(ctx)

	infos := []models.SaveInfo{}
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("failed to decode saves: %w", err)
	}
	return infos, nil
}

// Delete removes one slot
func (s *SnapshotStore) Delete(ctx context.Context, gameID, name string) error {
	res, err := s.saves.DeleteOne(ctx, slot(gameID, name))
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %q: %w", name, err)
	}
	if res.DeletedCount == 0 {
		return models.Errorf(models.CodeNotFound, "no save named %q for game %s", name, gameID)
	}
	return nil
}

// PruneAutoSaves keeps the newest keep auto-saves of a game and deletes the rest
func (s *SnapshotStore) PruneAutoSaves(ctx context.Context, gameID string, keep int) (int, error) {
	filter := bson.M{"gameId": gameID, "autoSave": true}
	opts := options.Find().
		SetSort(bson.D{{Key: "savedAt", Value: -1}}).
		SetSkip(int64(keep)).
		SetProjection(bson.M{"name": 1})

	cursor, err := s.saves.Find(ctx, filter, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to find old auto-saves: %w", err)
	}
	defer cursor.Close(ctx)

	var old []struct {
		Name string `bson:"name"`
	}
	if err := cursor.All(ctx, &old); err != nil {
		return 0, fmt.Errorf("failed to decode old auto-saves: %w", err)
	}
	if len(old) == 0 {
		return 0, nil
	}

	names := make([]string, 0, len(old))
	for _, o := range old {
		names = append(names, o.Name)
	}
	res, err := s.saves.DeleteMany(ctx, bson.M{"gameId": gameID, "autoSave": true, "name": bson.M{"$in": names}})
	if err != nil {
		return 0, fmt.Errorf("failed to prune auto-saves: %w", err)
	}
	return int(res.DeletedCount), nil
}
