package platform

import (
	"context"
	"sync"

	"publish-scheduler/domain/dto"
	"publish-scheduler/domain/model"
	"publish-scheduler/domain/repository"
)

// Registry maps platforms to adapters. Platforms without an adapter resolve
// to UnsupportedAdapter.
type Registry struct {
	mu       sync.RWMutex
	adapters map[model.Platform]repository.IPlatformAdapter
}

func NewRegistry(adapters ...repository.IPlatformAdapter) *Registry {
	r := &Registry{adapters: make(map[model.Platform]repository.IPlatformAdapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func (r *Registry) Register(adapter repository.IPlatformAdapter) {
	if adapter == nil {
		return
	}
	r.mu.Lock()
	r.adapters[adapter.Platform()] = adapter
	r.mu.Unlock()
}

func (r *Registry) Get(platform model.Platform) repository.IPlatformAdapter {
	r.mu.RLock()
	a, ok := r.adapters[platform]
	r.mu.RUnlock()
	if !ok {
		return UnsupportedAdapter{platform: platform}
	}
	return a
}

func (r *Registry) Supported(platform model.Platform) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.adapters[platform]
	return ok
}

// Platforms lists every declared platform in declaration order.
func (r *Registry) Platforms() []dto.PlatformCapability {
	out := make([]dto.PlatformCapability, 0, len(model.Platforms))
	for _, p := range model.Platforms {
		out = append(out, dto.PlatformCapability{Platform: string(p), Implemented: r.Supported(p)})
	}
	return out
}

// UnsupportedAdapter stands in for platforms with no integration.
type UnsupportedAdapter struct {
	platform model.Platform
}

func (u UnsupportedAdapter) Platform() model.Platform { return u.platform }

func (u UnsupportedAdapter) Authenticate(context.Context, string) (*model.OAuthToken, error) {
	return nil, model.ErrUnsupportedPlatform
}

func (u UnsupportedAdapter) ResolveSubject(context.Context, string) (*model.PlatformProfile, error) {
	return nil, model.ErrUnsupportedPlatform
}

func (u UnsupportedAdapter) Publish(context.Context, string, string, string) (*model.PublishResult, error) {
	return nil, model.ErrUnsupportedPlatform
}
