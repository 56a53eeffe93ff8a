package source

import (
	"context"
	"sync"

	"github.com/moznion/go-optional"

	"BotHerald/internal/model"
)

// MockSource returns controllable fixed data for development and testing.
// Errors set on it are returned by the matching call until cleared.
type MockSource struct {
	mu sync.Mutex

	Entities    []string
	Latest      map[string]model.TradeEvent
	History     map[string][]model.TradeEvent
	Snapshot    model.Snapshot
	Bots        []model.Bot
	ListErr     error
	LatestErr   map[string]error
	SnapshotErr error

	Calls map[string]int
}

// NewMockSource returns an empty MockSource.
func NewMockSource() *MockSource {
	return &MockSource{
		Latest:    make(map[string]model.TradeEvent),
		History:   make(map[string][]model.TradeEvent),
		LatestErr: make(map[string]error),
		Calls:     make(map[string]int),
	}
}

// SetLatest replaces the latest trade of entity.
func (m *MockSource) SetLatest(entity string, ev model.TradeEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Latest[entity] = ev
}

// SetEntities replaces the active entity set.
func (m *MockSource) SetEntities(entities ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entities = entities
}

// CallCount returns how many times the named method was invoked.
func (m *MockSource) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

func (m *MockSource) ListActiveEntities(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["ListActiveEntities"]++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return append([]string(nil), m.Entities...), nil
}

func (m *MockSource) LatestEvent(_ context.Context, entity string) (optional.Option[model.TradeEvent], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["LatestEvent"]++
	if err := m.LatestErr[entity]; err != nil {
		return optional.None[model.TradeEvent](), err
	}
	ev, ok := m.Latest[entity]
	if !ok {
		return optional.None[model.TradeEvent](), nil
	}
	return optional.Some(ev), nil
}

func (m *MockSource) CurrentSnapshot(_ context.Context) (model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["CurrentSnapshot"]++
	if m.SnapshotErr != nil {
		return model.Snapshot{}, m.SnapshotErr
	}
	return m.Snapshot, nil
}

func (m *MockSource) Trades(_ context.Context, entity string) ([]model.TradeEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Trades"]++
	return append([]model.TradeEvent(nil), m.History[entity]...), nil
}

func (m *MockSource) ActiveBots(_ context.Context) ([]model.Bot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["ActiveBots"]++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return append([]model.Bot(nil), m.Bots...), nil
}
