package memory

import (
	"context"

	"github.com/SAP-F-2025/lms-registry/internal/repositories"
)

// Manager adapts a Store to repositories.RepositoryManager.
type Manager struct {
	store *Store
}

func NewRepositoryManager() repositories.RepositoryManager {
	return &Manager{store: New()}
}

func (m *Manager) Initialize() error { return nil }

func (m *Manager) GetRepository() repositories.Repository {
	return m.store.Repository()
}

func (m *Manager) HealthCheck(ctx context.Context) error {
	return m.store.Repository().Ping(ctx)
}

func (m *Manager) Shutdown(ctx context.Context) error {
	return m.store.Repository().Close()
}
