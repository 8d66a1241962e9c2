package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/compositor"
	"github.com/aretw0/compositor/pkg/adapters/file"
	loamAdapter "github.com/aretw0/compositor/pkg/adapters/loam"
	redisAdapter "github.com/aretw0/compositor/pkg/adapters/redis"
	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/nodes"
	"github.com/aretw0/compositor/pkg/persistence/middleware"
	"github.com/aretw0/compositor/pkg/ports"
	"github.com/aretw0/compositor/pkg/schema"
	"github.com/aretw0/compositor/pkg/session"
)

// EncryptionKeyEnv names the environment variable holding a hex AES-256 key for stored projects.
const EncryptionKeyEnv = "COMPOSITOR_ENCRYPTION_KEY"

// Options selects where the CLI reads its project from.
type Options struct {
	Dir       string // loam node-per-file directory, or a .yaml/.json document
	Demo      bool   // use the built-in demo document instead of Dir
	Project   string // project ID in a store; takes precedence over Dir
	StoreDir  string // file store location for Project (default .compositor/projects)
	RedisAddr string // Redis store for Project, instead of StoreDir
	Parallel  int
}

// Workspace is an opened project.
type Workspace struct {
	Engine *compositor.Engine
	// Source describes where the project came from, for messages.
	Source string
	// Project is set when the workspace was opened from a store.
	Project *session.Project

	baseDir string
	closers []func()
}

// Close releases the engine and any store connection.
func (w *Workspace) Close() {
	for i := len(w.closers) - 1; i >= 0; i-- {
		w.closers[i]()
	}
}

// OpenWorkspace builds an engine from opts.
func OpenWorkspace(ctx context.Context, opts Options, logger *slog.Logger, extra ...compositor.Option) (*Workspace, error) {
	engineOpts := []compositor.Option{
		compositor.WithLogger(logger),
		compositor.WithParallelism(opts.Parallel),
	}
	engineOpts = append(engineOpts, extra...)

	switch {
	case opts.Project != "":
		return openStoredProject(ctx, opts, logger, engineOpts)

	case opts.Demo:
		eng, err := compositor.FromDocument(DemoDocument(), engineOpts...)
		if err != nil {
			return nil, err
		}
		return &Workspace{Engine: eng, Source: "demo", closers: []func(){eng.Close}}, nil

	case isDocumentFile(opts.Dir):
		doc, err := ReadDocument(opts.Dir)
		if err != nil {
			return nil, err
		}
		eng, err := compositor.FromDocument(doc, engineOpts...)
		if err != nil {
			return nil, err
		}
		ws := &Workspace{Engine: eng, Source: opts.Dir, baseDir: filepath.Dir(opts.Dir), closers: []func(){eng.Close}}
		return withFootage(ws, logger)

	default:
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}
		eng, err := compositor.New(dir, engineOpts...)
		if err != nil {
			return nil, fmt.Errorf("error initializing compositor: %w", err)
		}
		ws := &Workspace{Engine: eng, Source: dir, baseDir: dir, closers: []func(){eng.Close}}
		return withFootage(ws, logger)
	}
}

func openStoredProject(ctx context.Context, opts Options, logger *slog.Logger, engineOpts []compositor.Option) (*Workspace, error) {
	store, locker, closeStore, err := OpenStore(opts)
	if err != nil {
		return nil, err
	}

	mgrOpts := []session.Option{session.WithLogger(logger), session.WithEngineOptions(engineOpts...)}
	if locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(locker))
	}
	mgr := session.NewManager(store, mgrOpts...)

	p, err := mgr.Open(ctx, opts.Project)
	if err != nil {
		closeStore()
		return nil, err
	}
	ws := &Workspace{
		Engine:  p.Engine,
		Source:  "project " + opts.Project,
		Project: p,
		baseDir: ".",
		closers: []func(){closeStore, p.Close},
	}
	return withFootage(ws, logger)
}

// OpenStore returns the project store selected by opts, wrapped with encryption when
// EncryptionKeyEnv is set. Redis stores also provide a distributed locker.
func OpenStore(opts Options) (ports.ProjectStore, ports.DistributedLocker, func(), error) {
	var (
		store     ports.ProjectStore
		locker    ports.DistributedLocker
		closeFunc = func() {}
	)

	if opts.RedisAddr != "" {
		rs := redisAdapter.New(opts.RedisAddr, "", 0)
		store = rs
		locker = redisAdapter.NewLocker(rs.Client(), redisAdapter.DefaultPrefix)
		closeFunc = func() { _ = rs.Close() }
	} else {
		store = file.New(opts.StoreDir)
	}

	if raw := os.Getenv(EncryptionKeyEnv); raw != "" {
		key, err := hex.DecodeString(strings.TrimSpace(raw))
		if err != nil || len(key) != 32 {
			closeFunc()
			return nil, nil, nil, fmt.Errorf("%s must be 64 hex characters (AES-256)", EncryptionKeyEnv)
		}
		store = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})(store)
	}
	return store, locker, closeFunc, nil
}

// LoadDocument reads the project described by opts without building an engine.
func LoadDocument(ctx context.Context, opts Options) (*schema.Document, error) {
	switch {
	case opts.Project != "":
		store, _, closeStore, err := OpenStore(opts)
		if err != nil {
			return nil, err
		}
		defer closeStore()
		return store.Load(ctx, opts.Project)
	case opts.Demo:
		return DemoDocument(), nil
	case isDocumentFile(opts.Dir):
		return ReadDocument(opts.Dir)
	default:
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}
		l, err := loamAdapter.Open(dir)
		if err != nil {
			return nil, err
		}
		return l.LoadDocument(ctx)
	}
}

// ReadDocument decodes a YAML or JSON document file.
func ReadDocument(path string) (*schema.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := schema.Unmarshal(data, schema.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func isDocumentFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		info, err := os.Stat(path)
		return err == nil && !info.IsDir()
	}
	return false
}

func withFootage(ws *Workspace, logger *slog.Logger) (*Workspace, error) {
	if err := ws.LoadFootage(logger); err != nil {
		ws.Close()
		return nil, err
	}
	return ws, nil
}

// LoadFootage decodes the source files of image nodes and feeds them in as footage.
// Sources are resolved against the project directory. Missing files are logged and skipped.
func (w *Workspace) LoadFootage(logger *slog.Logger) error {
	var errs []error
	for _, n := range w.Engine.Graph().Nodes() {
		img, ok := n.Kind().(nodes.Image)
		if !ok || img.Source == "" {
			continue
		}
		path := img.Source
		if !filepath.IsAbs(path) {
			path = filepath.Join(w.baseDir, path)
		}
		tex, err := file.LoadImage(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logger.Warn("footage not found", "node", n.ID(), "path", path)
				continue
			}
			errs = append(errs, fmt.Errorf("node %q: %w", n.ID(), err))
			continue
		}
		if err := n.SetValue("footage", domain.Texture(tex)); err != nil {
			errs = append(errs, fmt.Errorf("node %q: %w", n.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// DetermineTarget picks the node to render: the requested one, else the first viewer.
func DetermineTarget(eng *compositor.Engine, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if viewers := eng.Viewers(); len(viewers) > 0 {
		return viewers[0], nil
	}
	return "", fmt.Errorf("graph %q has no viewer; pass --node: %w", eng.Name(), domain.ErrNodeNotFound)
}

// AttachAll binds c to every viewer of the engine and returns their IDs.
// Rebinding a viewer replaces its consumer, so this is safe to call after each reload.
func AttachAll(eng *compositor.Engine, c domain.FrameConsumer) []string {
	var attached []string
	for _, id := range eng.Viewers() {
		if err := eng.Attach(id, c); err == nil {
			attached = append(attached, id)
		}
	}
	return attached
}
