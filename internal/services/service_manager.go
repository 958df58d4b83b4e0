package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SAP-F-2025/lms-registry/internal/address"
	"github.com/SAP-F-2025/lms-registry/internal/events"
	"github.com/SAP-F-2025/lms-registry/internal/ledger"
	"github.com/SAP-F-2025/lms-registry/internal/repositories"
	"github.com/SAP-F-2025/lms-registry/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	RegistrationPolicy RegistrationPolicy
	LedgerQueueSize    int
}

// Validate validates the service manager configuration
func (c *ServiceManagerConfig) Validate() error {
	if _, err := ParseRegistrationPolicy(string(c.RegistrationPolicy)); err != nil {
		return err
	}
	if c.LedgerQueueSize < 0 {
		return fmt.Errorf("ledger queue size cannot be negative")
	}
	return nil
}

func DefaultServiceManagerConfig() ServiceManagerConfig {
	return ServiceManagerConfig{
		RegistrationPolicy: PolicyLockOwners,
		LedgerQueueSize:    ledger.DefaultQueueSize,
	}
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repoManager repositories.RepositoryManager
	deriver     *address.Deriver
	publisher   events.EventPublisher
	logger      *slog.Logger
	validator   *validator.Validator
	config      ServiceManagerConfig

	ledger *ledger.Ledger

	// Service instances
	userDirectory UserDirectory
	registry      CourseExamRegistry
	export        ExportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(repoManager repositories.RepositoryManager, deriver *address.Deriver, publisher events.EventPublisher, logger *slog.Logger, v *validator.Validator, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		repoManager: repoManager,
		deriver:     deriver,
		publisher:   publisher,
		logger:      logger,
		validator:   v,
		config:      config,
	}
}

// Initialize starts the command ledger and builds the services
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.config.Validate(); err != nil {
		return fmt.Errorf("invalid service configuration: %w", err)
	}

	repo := sm.repoManager.GetRepository()
	if repo == nil {
		return fmt.Errorf("repository not initialized")
	}
	if err := repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	policy, _ := ParseRegistrationPolicy(string(sm.config.RegistrationPolicy))

	sm.ledger = ledger.New(sm.config.LedgerQueueSize, sm.logger.With("component", "ledger"))
	sm.ledger.Start()

	sm.userDirectory = NewUserDirectory(repo, sm.ledger, sm.publisher, sm.logger, sm.validator, policy)
	sm.registry = NewRegistryService(repo, sm.ledger, sm.deriver, sm.publisher, sm.logger, sm.validator)
	sm.export = NewExportService(repo, sm.deriver, sm.logger)

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully",
		"registration_policy", policy,
		"registry_address", sm.registry.RegistryAddress())

	return nil
}

// Service getters
func (sm *serviceManager) Users() UserDirectory {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.userDirectory
}

func (sm *serviceManager) Registry() CourseExamRegistry {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.registry
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.export
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repoManager.HealthCheck(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

// Shutdown drains the ledger before closing the publisher and the store
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.ledger != nil {
		if err := sm.ledger.Close(); err != nil {
			sm.logger.Error("Failed to close ledger", "error", err)
		}
	}

	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if err := sm.repoManager.Shutdown(ctx); err != nil {
		sm.logger.Error("Failed to shutdown repository manager", "error", err)
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}
