package initgraph

import "strings"

// Registry holds the immutable set of declared tasks.
//
// The registry does not validate; GraphValidator reports duplicate, missing,
// illegal and circular declarations before any run begins.
type Registry struct {
	tasks []Task
	index map[TaskID]int
}

// NewRegistry copies the provided task declarations into an immutable registry.
// Dependency identifiers are trimmed and deduplicated per task.
func NewRegistry(tasks []Task) *Registry {
	registry := &Registry{
		tasks: make([]Task, 0, len(tasks)),
		index: make(map[TaskID]int, len(tasks)),
	}

	for taskIndex := range tasks {
		task := tasks[taskIndex]
		task.ID = TaskID(strings.TrimSpace(string(task.ID)))
		task.Class = task.class()
		task.Dependencies = sanitizeDependencies(task.Dependencies)

		registry.tasks = append(registry.tasks, task)
		if _, exists := registry.index[task.ID]; !exists {
			registry.index[task.ID] = len(registry.tasks) - 1
		}
	}

	return registry
}

// Len returns the number of registered declarations.
func (registry *Registry) Len() int {
	return len(registry.tasks)
}

// Tasks returns a copy of the registered declarations in registration order.
func (registry *Registry) Tasks() []Task {
	copied := make([]Task, len(registry.tasks))
	for taskIndex := range registry.tasks {
		copied[taskIndex] = registry.tasks[taskIndex]
		copied[taskIndex].Dependencies = append([]TaskID(nil), registry.tasks[taskIndex].Dependencies...)
	}
	return copied
}

// Task returns the first declaration registered under the identifier.
func (registry *Registry) Task(identifier TaskID) (Task, bool) {
	taskIndex, exists := registry.index[identifier]
	if !exists {
		return Task{}, false
	}
	task := registry.tasks[taskIndex]
	task.Dependencies = append([]TaskID(nil), task.Dependencies...)
	return task, true
}

// Contains reports whether a task with the identifier is registered.
func (registry *Registry) Contains(identifier TaskID) bool {
	_, exists := registry.index[identifier]
	return exists
}

func sanitizeDependencies(dependencies []TaskID) []TaskID {
	if len(dependencies) == 0 {
		return nil
	}
	sanitized := make([]TaskID, 0, len(dependencies))
	seen := make(map[TaskID]struct{}, len(dependencies))
	for _, dependency := range dependencies {
		trimmed := TaskID(strings.TrimSpace(string(dependency)))
		if len(trimmed) == 0 {
			continue
		}
		if _, alreadyIncluded := seen[trimmed]; alreadyIncluded {
			continue
		}
		seen[trimmed] = struct{}{}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}
