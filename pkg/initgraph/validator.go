package initgraph

import (
	"slices"
	"strings"
)

const (
	emptyTaskIdentifierDetailConstant = "identifier is empty"
	missingTaskBodyDetailConstant     = "body is not set"
)

// ClassMixingPolicy decides whether ordered tasks may depend on concurrent tasks.
type ClassMixingPolicy string

// Supported class-mixing policies.
const (
	// ClassMixingAllow accepts ordered tasks depending on concurrent tasks.
	ClassMixingAllow ClassMixingPolicy = "allow"
	// ClassMixingReject reports IllegalDependency for ordered tasks depending on concurrent tasks.
	ClassMixingReject ClassMixingPolicy = "reject"
)

// ParseClassMixingPolicy normalizes a textual policy name. Empty input resolves to ClassMixingAllow.
func ParseClassMixingPolicy(raw string) (ClassMixingPolicy, bool) {
	switch ClassMixingPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ClassMixingAllow:
		return ClassMixingAllow, true
	case ClassMixingReject:
		return ClassMixingReject, true
	default:
		return "", false
	}
}

// Plan is the validated form of a registry.
type Plan struct {
	Order        []TaskID
	Dependencies map[TaskID][]TaskID
	Dependents   map[TaskID][]TaskID
	tasks        map[TaskID]Task
}

// Task returns the declaration for a planned task.
func (plan Plan) Task(identifier TaskID) (Task, bool) {
	task, exists := plan.tasks[identifier]
	return task, exists
}

// Roots returns the planned tasks without dependencies, in plan order.
func (plan Plan) Roots() []TaskID {
	roots := make([]TaskID, 0)
	for _, identifier := range plan.Order {
		if len(plan.Dependencies[identifier]) == 0 {
			roots = append(roots, identifier)
		}
	}
	return roots
}

// GraphValidator checks task declarations and produces a dependency-respecting order.
type GraphValidator struct {
	classMixingPolicy ClassMixingPolicy
}

// NewGraphValidator constructs a validator enforcing the provided class-mixing policy.
func NewGraphValidator(policy ClassMixingPolicy) GraphValidator {
	if policy != ClassMixingReject {
		policy = ClassMixingAllow
	}
	return GraphValidator{classMixingPolicy: policy}
}

// Validate verifies the registry and returns its plan.
// The returned error is always a ConfigurationError.
func (validator GraphValidator) Validate(registry *Registry) (Plan, error) {
	declarations := registry.Tasks()
	slices.SortStableFunc(declarations, func(first Task, second Task) int {
		return strings.Compare(string(first.ID), string(second.ID))
	})

	tasksByID := make(map[TaskID]Task, len(declarations))
	for _, task := range declarations {
		if len(task.ID) == 0 {
			return Plan{}, ConfigurationError{Code: ErrInvalidTask, Detail: emptyTaskIdentifierDetailConstant}
		}
		if task.Body == nil {
			return Plan{}, ConfigurationError{Code: ErrInvalidTask, TaskID: task.ID, Detail: missingTaskBodyDetailConstant}
		}
		if _, exists := tasksByID[task.ID]; exists {
			return Plan{}, ConfigurationError{Code: ErrDuplicateTask, TaskID: task.ID}
		}
		tasksByID[task.ID] = task
	}

	inDegree := make(map[TaskID]int, len(declarations))
	adjacency := make(map[TaskID][]TaskID, len(declarations))
	dependencies := make(map[TaskID][]TaskID, len(declarations))

	for _, task := range declarations {
		inDegree[task.ID] = 0
	}

	for _, task := range declarations {
		for _, dependencyID := range task.Dependencies {
			if dependencyID == task.ID {
				return Plan{}, ConfigurationError{Code: ErrCircularDependency, TaskID: task.ID, DependencyID: dependencyID}
			}
			dependency, exists := tasksByID[dependencyID]
			if !exists {
				return Plan{}, ConfigurationError{Code: ErrMissingDependency, TaskID: task.ID, DependencyID: dependencyID}
			}
			if validator.classMixingPolicy == ClassMixingReject && task.Class == ClassOrdered && dependency.Class == ClassConcurrent {
				return Plan{}, ConfigurationError{Code: ErrIllegalDependency, TaskID: task.ID, DependencyID: dependencyID}
			}
			inDegree[task.ID]++
			adjacency[dependencyID] = append(adjacency[dependencyID], task.ID)
			dependencies[task.ID] = append(dependencies[task.ID], dependencyID)
		}
	}

	ready := make([]TaskID, 0, len(declarations))
	for _, task := range declarations {
		if inDegree[task.ID] == 0 {
			ready = append(ready, task.ID)
		}
	}

	order := make([]TaskID, 0, len(declarations))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)

		released := false
		for _, dependent := range adjacency[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
				released = true
			}
		}
		if released {
			slices.Sort(ready)
		}
	}

	if len(order) < len(declarations) {
		unsorted := make([]TaskID, 0, len(declarations)-len(order))
		for _, task := range declarations {
			if inDegree[task.ID] > 0 {
				unsorted = append(unsorted, task.ID)
			}
		}
		return Plan{}, ConfigurationError{Code: ErrCircularDependency, Tasks: unsorted}
	}

	for identifier := range adjacency {
		slices.Sort(adjacency[identifier])
	}

	return Plan{
		Order:        order,
		Dependencies: dependencies,
		Dependents:   adjacency,
		tasks:        tasksByID,
	}, nil
}
