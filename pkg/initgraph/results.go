package initgraph

import (
	"fmt"
	"sync"
)

// DependencyProvider exposes the values produced by a task's declared dependencies.
type DependencyProvider interface {
	// Result returns the stored value or an error wrapping ErrResultNotFound.
	Result(identifier TaskID) (any, error)
	// Lookup returns the stored value and whether it was available.
	Lookup(identifier TaskID) (any, bool)
}

// ResultAs returns the dependency value converted to T.
func ResultAs[T any](provider DependencyProvider, identifier TaskID) (T, error) {
	var zero T
	value, resultError := provider.Result(identifier)
	if resultError != nil {
		return zero, resultError
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: task %q produced %T, want %T", ErrResultTypeMismatch, identifier, value, zero)
	}
	return typed, nil
}

// ResultStore is a concurrency-safe, write-once map of task results for one run.
type ResultStore struct {
	mutex  sync.RWMutex
	values map[TaskID]any
}

// NewResultStore constructs an empty store.
func NewResultStore() *ResultStore {
	return &ResultStore{values: make(map[TaskID]any)}
}

// Store records the value produced by a task. Nil values are not stored.
func (store *ResultStore) Store(identifier TaskID, value any) error {
	if value == nil {
		return nil
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if _, exists := store.values[identifier]; exists {
		return fmt.Errorf("%w: task %q", ErrResultAlreadyStored, identifier)
	}
	store.values[identifier] = value
	return nil
}

// Load returns the value recorded for the task.
func (store *ResultStore) Load(identifier TaskID) (any, bool) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	value, exists := store.values[identifier]
	return value, exists
}

// Snapshot returns a copy of every stored value.
func (store *ResultStore) Snapshot() map[TaskID]any {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	copied := make(map[TaskID]any, len(store.values))
	for identifier, value := range store.values {
		copied[identifier] = value
	}
	return copied
}

// ProviderFor returns a read-only view limited to the declared dependencies.
func (store *ResultStore) ProviderFor(dependencies []TaskID) DependencyProvider {
	declared := make(map[TaskID]struct{}, len(dependencies))
	for _, dependency := range dependencies {
		declared[dependency] = struct{}{}
	}
	return scopedProvider{store: store, declared: declared}
}

type scopedProvider struct {
	store    *ResultStore
	declared map[TaskID]struct{}
}

func (provider scopedProvider) Result(identifier TaskID) (any, error) {
	value, available := provider.Lookup(identifier)
	if !available {
		return nil, fmt.Errorf("%w: task %q", ErrResultNotFound, identifier)
	}
	return value, nil
}

func (provider scopedProvider) Lookup(identifier TaskID) (any, bool) {
	if _, declared := provider.declared[identifier]; !declared {
		return nil, false
	}
	return provider.store.Load(identifier)
}
