package lumen

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gekko3d/lumen/fx/core"
)

type AssetId string

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}

// GeometryGenerator produces one named source geometry.
type GeometryGenerator func(ctx context.Context) (*core.Geometry, error)

type queuedGeometry struct {
	id   AssetId
	name string
	gen  GeometryGenerator
}

// AssetServer provides named, pre-decoded geometries. Everything queued
// before Load is produced in one batch; Ready fires exactly once, after the
// whole batch has finished, whether or not items failed.
type AssetServer struct {
	mu         sync.Mutex
	ids        map[string]AssetId
	geometries map[AssetId]*core.Geometry
	failures   map[string]error
	queue      []queuedGeometry
	loading    bool

	parallelism int
	ready       chan struct{}
	readyOnce   sync.Once
}

func NewAssetServer(parallelism int) *AssetServer {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	return &AssetServer{
		ids:         make(map[string]AssetId),
		geometries:  make(map[AssetId]*core.Geometry),
		failures:    make(map[string]error),
		parallelism: parallelism,
		ready:       make(chan struct{}),
	}
}

// QueueGeometry registers a generator under name. Names are unique.
func (server *AssetServer) QueueGeometry(name string, gen GeometryGenerator) (AssetId, error) {
	server.mu.Lock()
	defer server.mu.Unlock()
	if server.loading {
		return "", fmt.Errorf("queue %q: batch already loading", name)
	}
	if _, ok := server.ids[name]; ok {
		return "", fmt.Errorf("queue %q: name already used", name)
	}
	id := makeAssetId()
	server.ids[name] = id
	server.queue = append(server.queue, queuedGeometry{id: id, name: name, gen: gen})
	return id, nil
}

// Load runs every queued generator, at most parallelism at a time. A failing
// item does not stop the others; all failures are joined into the returned
// error. Load may be called once.
func (server *AssetServer) Load(ctx context.Context) error {
	server.mu.Lock()
	if server.loading {
		server.mu.Unlock()
		return errors.New("asset batch already loading")
	}
	server.loading = true
	queue := slices.Clone(server.queue)
	server.mu.Unlock()
	defer server.readyOnce.Do(func() { close(server.ready) })

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(server.parallelism)
	for _, item := range queue {
		g.Go(func() error {
			geometry, err := generate(ctx, item)
			server.mu.Lock()
			defer server.mu.Unlock()
			if err != nil {
				server.failures[item.name] = err
				return nil
			}
			server.geometries[item.id] = geometry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	server.mu.Lock()
	defer server.mu.Unlock()
	errs := make([]error, 0, len(server.failures))
	for _, item := range queue {
		if err, ok := server.failures[item.name]; ok {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func generate(ctx context.Context, item queuedGeometry) (geometry *core.Geometry, err error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("geometry %q: %w", item.name, err)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("geometry %q: generator panicked: %v", item.name, r)
		}
	}()
	geometry, err = item.gen(ctx)
	if err != nil {
		return nil, fmt.Errorf("geometry %q: %w", item.name, err)
	}
	if !geometry.Usable() {
		return nil, fmt.Errorf("geometry %q: no vertices", item.name)
	}
	if geometry.Name == "" {
		geometry.Name = item.name
	}
	return geometry, nil
}

// Ready is closed once the batch has finished.
func (server *AssetServer) Ready() <-chan struct{} { return server.ready }

// Geometry returns the loaded geometry called name.
func (server *AssetServer) Geometry(name string) (*core.Geometry, bool) {
	server.mu.Lock()
	defer server.mu.Unlock()
	g, ok := server.geometries[server.ids[name]]
	return g, ok
}

// Failure returns the load error of name, if it failed.
func (server *AssetServer) Failure(name string) error {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.failures[name]
}

// AssetServerModule loads the queued batch in the background on entering the
// loading state and moves the app to running once it is ready.
type AssetServerModule struct {
	Parallelism int
	// Enqueue registers the batch before loading starts.
	Enqueue func(server *AssetServer) error
}

func (mod AssetServerModule) Install(app *App, cmd *Commands) {
	server := NewAssetServer(mod.Parallelism)
	if mod.Enqueue != nil {
		if err := mod.Enqueue(server); err != nil {
			panic(fmt.Sprintf("queue assets: %v", err))
		}
	}
	cmd.AddResources(server)

	app.UseSystem(
		System(func(server *AssetServer, cmd *Commands) {
			log := cmd.Logger()
			go func() {
				if err := server.Load(context.Background()); err != nil {
					log.Errorf("asset load: %v", err)
				}
			}()
		}).
			InStage(Prelude).
			InState(OnEnter(StateLoading)),
	)
	app.UseSystem(
		System(func(server *AssetServer, cmd *Commands) {
			select {
			case <-server.Ready():
				cmd.Logger().Infof("assets ready")
				cmd.ChangeState(StateRunning)
			default:
			}
		}).
			InStage(Prelude).
			InState(OnExecute(StateLoading)),
	)
}
