package manager

import (
	"context"
	"sort"
	"sync"

	"github.com/richman/backend/internal/game/models"
)

// MemoryStore keeps save slots in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	saves map[string]map[string]models.Snapshot
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{saves: make(map[string]map[string]models.Snapshot)}
}

func (m *MemoryStore) Save(ctx context.Context, snap models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slots, ok := m.saves[snap.GameID]
	if !ok {
		slots = make(map[string]models.Snapshot)
		m.saves[snap.GameID] = slots
	}
	slots[snap.Name] = snap
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, gameID, name string) (*models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.saves[gameID][name]
	if !ok {
		return nil, models.Errorf(models.CodeNotFound, "no save named %q for game %s", name, gameID)
	}
	return &snap, nil
}

func (m *MemoryStore) List(ctx context.Context, gameID string) ([]models.SaveInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := []models.SaveInfo{}
	for _, snap := range m.saves[gameID] {
		infos = append(infos, snap.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].SavedAt.Equal(infos[j].SavedAt) {
			return infos[i].Name < infos[j].Name
		}
		return infos[i].SavedAt.After(infos[j].SavedAt)
	})
	return infos, nil
}

func (m *MemoryStore) Delete(ctx context.Context, gameID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.saves[gameID][name]; !ok {
		return models.Errorf(models.CodeNotFound, "no save named %q for game %s", name, gameID)
	}
	delete(m.saves[gameID], name)
	return nil
}

func (m *MemoryStore) PruneAutoSaves(ctx context.Context, gameID string, keep int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var autos []models.Snapshot
	for _, snap := range m.saves[gameID] {
		if snap.AutoSave {
			autos = append(autos, snap)
		}
	}
	if len(autos) <= keep {
		return 0, nil
	}
	sort.Slice(autos, func(i, j int) bool { return autos[i].SavedAt.After(autos[j].SavedAt) })
	for _, snap := range autos[keep:] {
		delete(m.saves[gameID], snap.Name)
	}
	return len(autos) - keep, nil
}
