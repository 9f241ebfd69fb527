package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reports/internal/application/port"
	"github.com/garyjia/expense-reports/internal/config"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and released in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure
	messenger port.MessageSender
	storage   port.ExportStorage

	// Application
	services *ServiceBundle

	// Lifecycle
	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
// 1. External clients (Lark)
// 2. Export storage
// 3. Application services
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.logger.Info("Starting container initialization")

	messenger, err := ProvideMessenger(&c.config.Lark, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize external clients: %w", err)
	}
	c.messenger = messenger

	store, err := ProvideStorage(&c.config.Storage, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.storage = store

	services, err := ProvideServices(&c.config.Report, c.messenger, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.services = services

	c.ready.Store(true)
	c.logger.Info("Container started successfully",
		zap.Bool("notifications", c.services.Notifications.Enabled()))

	return nil
}

// Close drops the current snapshot and marks the container closed.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	if c.services != nil {
		c.services.Reports.Reset()
	}

	c.closed.Store(true)
	c.ready.Store(false)
	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    c.ready.Load(),
		Components: make(map[string]ComponentHealth),
	}

	if c.services != nil {
		msg := "no document loaded"
		if snap, err := c.services.Reports.Current(); err == nil {
			msg = "fingerprint " + snap.Fingerprint
		}
		status.Components["reports"] = ComponentHealth{Healthy: true, Message: msg}
	} else {
		status.Components["reports"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	if c.messenger != nil {
		status.Components["lark"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["lark"] = ComponentHealth{Healthy: true, Message: "disabled"}
	}

	if c.storage != nil {
		status.Components["storage"] = ComponentHealth{Healthy: true, Message: c.config.Storage.OutputDir}
	} else {
		status.Components["storage"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	return status
}

// Config returns the loaded configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Storage returns the export storage.
func (c *Container) Storage() port.ExportStorage {
	return c.storage
}

// Logger returns the container logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}
