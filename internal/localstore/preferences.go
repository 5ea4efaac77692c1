package localstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/terraincognita07/daywindow/internal/models"
)

// PreferencesStore holds preferences in memory. Local mode has a single demo
// user, so nothing needs to survive a restart.
type PreferencesStore struct {
	mu   sync.RWMutex
	rows map[uint]models.UserPreferences
}

func NewPreferencesStore() *PreferencesStore {
	return &PreferencesStore{rows: make(map[uint]models.UserPreferences)}
}

func (store *PreferencesStore) FindByUserID(ctx context.Context, userID uint) (models.UserPreferences, bool, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	preferences, ok := store.rows[userID]
	return preferences, ok, nil
}

func (store *PreferencesStore) Upsert(ctx context.Context, preferences *models.UserPreferences) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := store.rows[preferences.UserID]; ok {
		preferences.ID = existing.ID
		preferences.CreatedAt = existing.CreatedAt
	} else {
		preferences.ID = uint(len(store.rows) + 1)
		preferences.CreatedAt = now
	}
	preferences.UpdatedAt = now
	store.rows[preferences.UserID] = *preferences
	return nil
}

func (store *PreferencesStore) ListAll(ctx context.Context) ([]models.UserPreferences, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	rows := make([]models.UserPreferences, 0, len(store.rows))
	for _, preferences := range store.rows {
		rows = append(rows, preferences)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].UserID < rows[j].UserID
	})
	return rows, nil
}
