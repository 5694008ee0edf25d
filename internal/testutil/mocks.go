// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase.
package testutil

import (
	"context"
	"sync"

	"taxi-ingest/internal/domain"
)

// === Converter Mock ===

// MockConverter implements domain.Converter for testing.
type MockConverter struct {
	ConvertFn func(ctx context.Context, srcPath, dstPath string) error

	mu    sync.Mutex
	Calls []string // source paths, in call order
}

// Convert implements the interface method for testing.
func (m *MockConverter) Convert(ctx context.Context, srcPath, dstPath string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, srcPath)
	m.mu.Unlock()
	if m.ConvertFn != nil {
		return m.ConvertFn(ctx, srcPath, dstPath)
	}
	panic("unexpected call to MockConverter.Convert")
}

// === Publisher Mock ===

// MockPublisher implements domain.Publisher for testing.
type MockPublisher struct {
	PublishFn func(ctx context.Context, category domain.Category, localPath string) (string, error)
	Paths     []string // successfully published paths
}

// Publish implements the interface method for testing.
func (m *MockPublisher) Publish(ctx context.Context, category domain.Category, localPath string) (string, error) {
	if m.PublishFn == nil {
		panic("unexpected call to MockPublisher.Publish")
	}
	uri, err := m.PublishFn(ctx, category, localPath)
	if err != nil {
		return "", err
	}
	m.Paths = append(m.Paths, localPath)
	return uri, nil
}

// === Fetcher Mock ===

// MockFetcher implements domain.Fetcher for testing.
type MockFetcher struct {
	FetchFn func(ctx context.Context, category domain.Category, years []int) (*domain.FetchReport, error)
	Calls   []domain.Category
}

// Fetch implements the interface method for testing.
func (m *MockFetcher) Fetch(ctx context.Context, category domain.Category, years []int) (*domain.FetchReport, error) {
	m.Calls = append(m.Calls, category)
	if m.FetchFn != nil {
		return m.FetchFn(ctx, category, years)
	}
	return &domain.FetchReport{Category: category}, nil
}

// === TableLoader Mock ===

// MockLoader implements domain.TableLoader for testing.
type MockLoader struct {
	LoadFn func(ctx context.Context, categories []domain.Category) ([]domain.LoadResult, error)
	Calls  [][]domain.Category
}

// Load implements the interface method for testing.
func (m *MockLoader) Load(ctx context.Context, categories []domain.Category) ([]domain.LoadResult, error) {
	m.Calls = append(m.Calls, categories)
	if m.LoadFn != nil {
		return m.LoadFn(ctx, categories)
	}
	return nil, nil
}

// Compile-time interface checks.
var (
	_ domain.Converter   = (*MockConverter)(nil)
	_ domain.Publisher   = (*MockPublisher)(nil)
	_ domain.Fetcher     = (*MockFetcher)(nil)
	_ domain.TableLoader = (*MockLoader)(nil)
)
