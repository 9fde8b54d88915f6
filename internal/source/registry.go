package source

import (
	"sync"

	"go.uber.org/zap"

	"github.com/pace42/orchestrator/internal/metrics"
)

// Registry caches one tool-call client per user. Eviction is explicit: on
// disconnect or credential change the caller removes the entry so the next
// request builds a fresh client.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*ToolCallClient
	base    ClientConfig
	logger  *zap.Logger
}

// NewRegistry creates a registry. base carries everything except UserID,
// which is filled per user.
func NewRegistry(base ClientConfig, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		clients: make(map[string]*ToolCallClient),
		base:    base,
		logger:  logger,
	}
}

// ForUser returns the cached client for userID, creating it on first use.
func (r *Registry) ForUser(userID string) *ToolCallClient {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[userID]; ok {
		return c
	}

	cfg := r.base
	cfg.UserID = userID
	c := NewToolCallClient(cfg, r.logger.With(zap.String("user_id", userID)))
	r.clients[userID] = c
	metrics.SourceClientsActive.Set(float64(len(r.clients)))
	r.logger.Info("created upstream client", zap.String("user_id", userID))
	return c
}

// Evict removes the cached client for userID.
func (r *Registry) Evict(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[userID]; ok {
		delete(r.clients, userID)
		metrics.SourceClientsActive.Set(float64(len(r.clients)))
		r.logger.Info("evicted upstream client", zap.String("user_id", userID))
	}
}

// Len reports the number of cached clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}
