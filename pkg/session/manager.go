package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/compositor"
	"github.com/aretw0/compositor/internal/logging"
	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/graph"
	"github.com/aretw0/compositor/pkg/ports"
	"github.com/aretw0/compositor/pkg/schema"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

var (
	// ErrProjectOpen is returned when opening a project that is already open in this process.
	ErrProjectOpen = errors.New("project is already open")
	// ErrProjectNotOpen is returned when referring to a project that is not open.
	ErrProjectNotOpen = errors.New("project is not open")
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates project access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.ProjectStore

	mu    sync.Mutex            // Global lock for the maps below
	locks map[string]*lockEntry // Map of active locks
	open  map[string]*Project   // Projects opened in this process

	locker     ports.DistributedLocker // Optional distributed locker
	lockTTL    time.Duration
	ids        *Identifiers
	engineOpts []compositor.Option
	logger     *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock lease (default DefaultLockTTL).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithIdentifiers shares an identifier table between managers.
func WithIdentifiers(ids *Identifiers) Option {
	return func(m *Manager) {
		m.ids = ids
	}
}

// WithEngineOptions configures the engines built by Open.
func WithEngineOptions(opts ...compositor.Option) Option {
	return func(m *Manager) {
		m.engineOpts = append(m.engineOpts, opts...)
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager with the given persistence store.
func NewManager(store ports.ProjectStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		open:    make(map[string]*Project),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.ids == nil {
		m.ids = NewIdentifiers()
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(projectID) after unlocking.
func (m *Manager) acquire(projectID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[projectID]
	if !exists {
		entry = &lockEntry{}
		m.locks[projectID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[projectID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, projectID)
	}
}

// Load retrieves an existing project document from the store.
func (m *Manager) Load(ctx context.Context, projectID string) (*schema.Document, error) {
	var doc *schema.Document
	err := m.WithLock(ctx, projectID, func(ctx context.Context) error {
		var err error
		doc, err = m.store.Load(ctx, projectID)
		return err
	})
	return doc, err
}

// LoadOrCreate loads a project. If it does not exist, an empty document named name is
// created and persisted.
func (m *Manager) LoadOrCreate(ctx context.Context, projectID string, name string) (*schema.Document, error) {
	var doc *schema.Document
	err := m.WithLock(ctx, projectID, func(ctx context.Context) error {
		var err error
		doc, err = m.store.Load(ctx, projectID)
		if err == nil {
			return nil
		}

		if !errors.Is(err, domain.ErrProjectNotFound) {
			return fmt.Errorf("failed to check project existence: %w", err)
		}

		if name == "" {
			name = graph.DefaultName
		}
		doc = &schema.Document{Version: schema.CurrentVersion, Name: name, Nodes: []schema.NodeDoc{}}

		// Persist immediately to reserve the ID
		if err := m.store.Save(ctx, projectID, doc); err != nil {
			return fmt.Errorf("failed to initialize project: %w", err)
		}
		return nil
	})
	return doc, err
}

// Save persists a project document. Open projects have their identifiers refreshed.
func (m *Manager) Save(ctx context.Context, projectID string, doc *schema.Document) error {
	return m.WithLock(ctx, projectID, func(ctx context.Context) error {
		if err := m.store.Save(ctx, projectID, doc); err != nil {
			return err
		}
		if m.isOpen(projectID) {
			m.ids.Register(projectID, doc)
		}
		return nil
	})
}

// Delete removes the project from the store. Open projects must be closed first.
func (m *Manager) Delete(ctx context.Context, projectID string) error {
	if m.isOpen(projectID) {
		return fmt.Errorf("delete %q: %w", projectID, ErrProjectOpen)
	}
	return m.WithLock(ctx, projectID, func(ctx context.Context) error {
		return m.store.Delete(ctx, projectID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying project store.
func (m *Manager) Store() ports.ProjectStore {
	return m.store
}

// Identifiers returns the identifier table of open projects.
func (m *Manager) Identifiers() *Identifiers {
	return m.ids
}

// WithLock executes a function while holding the lock for the project.
func (m *Manager) WithLock(ctx context.Context, projectID string, fn func(context.Context) error) error {
	entry := m.acquire(projectID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(projectID)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, projectID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"project_id", projectID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

func (m *Manager) isOpen(projectID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.open[projectID]
	return ok
}

// Open loads (or creates) a project and builds a live engine for it. The project's node
// identifiers are registered until Close.
func (m *Manager) Open(ctx context.Context, projectID string) (*Project, error) {
	m.mu.Lock()
	if _, ok := m.open[projectID]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("open %q: %w", projectID, ErrProjectOpen)
	}
	// Reserve the slot so a concurrent Open fails fast.
	m.open[projectID] = nil
	m.mu.Unlock()

	p, err := m.openProject(ctx, projectID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		delete(m.open, projectID)
		return nil, err
	}
	m.open[projectID] = p
	return p, nil
}

func (m *Manager) openProject(ctx context.Context, projectID string) (*Project, error) {
	doc, err := m.LoadOrCreate(ctx, projectID, "")
	if err != nil {
		return nil, err
	}
	eng, err := compositor.FromDocument(doc, m.engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", projectID, err)
	}
	m.ids.Register(projectID, doc)
	m.logger.Debug("project opened", "project_id", projectID, "graph", doc.Name, "nodes", len(doc.Nodes))
	return &Project{ID: projectID, Engine: eng, mgr: m}, nil
}

// Project is a project opened through a Manager.
type Project struct {
	ID     string
	Engine *compositor.Engine

	mgr    *Manager
	closed sync.Once
}

// Save persists the engine's current graph.
func (p *Project) Save(ctx context.Context) error {
	doc, err := p.Engine.Document()
	if err != nil {
		return fmt.Errorf("save %q: %w", p.ID, err)
	}
	return p.mgr.Save(ctx, p.ID, doc)
}

// Close tears down the engine and the project's identifiers. It does not save.
func (p *Project) Close() {
	p.closed.Do(func() {
		p.Engine.Close()
		p.mgr.ids.Unregister(p.ID)

		p.mgr.mu.Lock()
		delete(p.mgr.open, p.ID)
		p.mgr.mu.Unlock()
		p.mgr.logger.Debug("project closed", "project_id", p.ID)
	})
}
