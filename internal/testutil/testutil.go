// Package testutil provides hand-rolled fakes shared by the package tests.
package testutil

import (
	"context"
	"sync"

	"github.com/cecil-the-coder/modelwatch/pkg/types"
)

// StubSource is a canned sources.Source. Each operation returns the
// configured value or error and counts its calls.
type StubSource struct {
	SourceName types.SourceName

	Stats    *types.SystemStats
	Models   []types.Model
	Detailed *types.DetailedStatus
	Err      error

	mu            sync.Mutex
	StatsCalls    int
	ModelsCalls   int
	DetailedCalls int
	LastFilters   types.ModelFilters
}

// NewStubSource returns a stub that succeeds with empty data.
func NewStubSource(name types.SourceName) *StubSource {
	return &StubSource{
		SourceName: name,
		Stats:      &types.SystemStats{},
		Detailed:   &types.DetailedStatus{},
	}
}

func (s *StubSource) Name() types.SourceName { return s.SourceName }

func (s *StubSource) GetSystemStats(ctx context.Context) (*types.SystemStats, error) {
	s.mu.Lock()
	s.StatsCalls++
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Stats, nil
}

func (s *StubSource) GetAllModels(ctx context.Context, filters types.ModelFilters) ([]types.Model, error) {
	s.mu.Lock()
	s.ModelsCalls++
	s.LastFilters = filters
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Models, nil
}

func (s *StubSource) GetDetailedStatus(ctx context.Context) (*types.DetailedStatus, error) {
	s.mu.Lock()
	s.DetailedCalls++
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Detailed, nil
}

// TotalCalls sums calls across all operations.
func (s *StubSource) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.StatsCalls + s.ModelsCalls + s.DetailedCalls
}
