package route

import (
	"context"
	"errors"
	"fmt"
	"sync"

	apperrors "gateway/pkg/errors"
)

// Info is the admin view of one route.
type Info struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Status    Status `json:"status"`
	LastError string `json:"lastError,omitempty"`
}

// Registry owns the consumer routes of the process. The set of routes is
// fixed once the application has started.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	routes  map[string]*ConsumerRoute
	baseCtx context.Context
}

func NewRegistry() *Registry {
	return &Registry{
		routes:  make(map[string]*ConsumerRoute),
		baseCtx: context.Background(),
	}
}

func (r *Registry) Add(route *ConsumerRoute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.routes[route.ID()]; exists {
		return fmt.Errorf("route %s already registered", route.ID())
	}
	r.routes[route.ID()] = route
	r.order = append(r.order, route.ID())
	return nil
}

func (r *Registry) Get(id string) (*ConsumerRoute, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.routes[id]
	return route, ok
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// RouteStatus reports the status of a registered route; ok is false when
// no route has that id.
func (r *Registry) RouteStatus(id string) (Status, bool) {
	route, ok := r.Get(id)
	if !ok {
		return StatusNotFound, false
	}
	return route.Status(), true
}

func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		route := r.routes[id]
		info := Info{ID: id, Topic: route.Topic(), Status: route.Status()}
		if err := route.LastError(); err != nil {
			info.LastError = err.Error()
		}
		out = append(out, info)
	}
	return out
}

// StartAll starts the given routes under ctx, which also becomes the parent
// of routes resumed later.
func (r *Registry) StartAll(ctx context.Context, ids []string) error {
	r.mu.Lock()
	r.baseCtx = ctx
	r.mu.Unlock()

	for _, id := range ids {
		if err := r.Resume(id); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) Resume(id string) error {
	route, ok := r.Get(id)
	if !ok {
		return apperrors.ErrNotFound.WithDetail("route", id)
	}
	r.mu.RLock()
	ctx := r.baseCtx
	r.mu.RUnlock()
	return route.Start(ctx)
}

func (r *Registry) Suspend(ctx context.Context, id string) error {
	route, ok := r.Get(id)
	if !ok {
		return apperrors.ErrNotFound.WithDetail("route", id)
	}
	return route.Suspend(ctx)
}

// StopAll stops every route concurrently and waits until each has finished
// its in-flight message or ctx expires.
func (r *Registry) StopAll(ctx context.Context) error {
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for _, id := range r.IDs() {
		route, _ := r.Get(id)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := route.Stop(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("stop route %s: %w", id, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
