// Package provider implements the uniform client layer over external
// inference services. Each driver maps Generate/Embed onto one hosted
// HTTP endpoint and normalizes every failure into a CallError before it
// reaches the fallback orchestrator.
package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/arxivmind/arxivmind/pkg/contracts"
	"github.com/rs/zerolog/log"
)

// Registry holds named drivers by capability. Thread-safe.
type Registry struct {
	mu     sync.RWMutex
	gens   map[string]contracts.GenerationDriver
	embeds map[string]contracts.EmbeddingDriver
}

// NewRegistry creates an empty driver registry.
func NewRegistry() *Registry {
	return &Registry{
		gens:   make(map[string]contracts.GenerationDriver),
		embeds: make(map[string]contracts.EmbeddingDriver),
	}
}

// RegisterGeneration adds a generation driver under the given name.
// Overwrites if exists.
func (r *Registry) RegisterGeneration(name string, d contracts.GenerationDriver) {
	r.mu.Lock()
	r.gens[name] = d
	r.mu.Unlock()
	log.Info().Str("name", name).Str("kind", d.Kind()).Msg("Generation driver registered")
}

// RegisterEmbedding adds an embedding driver under the given name.
// Overwrites if exists.
func (r *Registry) RegisterEmbedding(name string, d contracts.EmbeddingDriver) {
	r.mu.Lock()
	r.embeds[name] = d
	r.mu.Unlock()
	log.Info().Str("name", name).Str("kind", d.Kind()).Int("dims", d.Dimensions()).Msg("Embedding driver registered")
}

// Generation returns the generation driver by name.
func (r *Registry) Generation(name string) (contracts.GenerationDriver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.gens[name]
	if !ok {
		return nil, fmt.Errorf("generation driver not found: %s", name)
	}
	return d, nil
}

// Embedding returns the embedding driver by name.
func (r *Registry) Embedding(name string) (contracts.EmbeddingDriver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.embeds[name]
	if !ok {
		return nil, fmt.Errorf("embedding driver not found: %s", name)
	}
	return d, nil
}

// ListGeneration returns all registered generation driver names.
func (r *Registry) ListGeneration() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.gens))
	for name := range r.gens {
		names = append(names, name)
	}
	return names
}

// ListEmbedding returns all registered embedding driver names.
func (r *Registry) ListEmbedding() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.embeds))
	for name := range r.embeds {
		names = append(names, name)
	}
	return names
}

// HealthCheckAll pings every registered driver and returns errors keyed
// by "capability/name".
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	gens := make(map[string]contracts.GenerationDriver, len(r.gens))
	for k, v := range r.gens {
		gens[k] = v
	}
	embeds := make(map[string]contracts.EmbeddingDriver, len(r.embeds))
	for k, v := range r.embeds {
		embeds[k] = v
	}
	r.mu.RUnlock()

	results := make(map[string]error, len(gens)+len(embeds))
	for name, d := range gens {
		results["generation/"+name] = d.HealthCheck(ctx)
	}
	for name, d := range embeds {
		results["embedding/"+name] = d.HealthCheck(ctx)
	}
	return results
}
