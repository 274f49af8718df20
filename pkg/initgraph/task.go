package initgraph

import (
	"context"
	"strings"
)

// TaskID identifies a task within a registry.
type TaskID string

// TaskClass describes how a task shares execution with its peers.
type TaskClass string

// Supported task classes.
const (
	// ClassConcurrent tasks run as soon as their dependencies succeed.
	ClassConcurrent TaskClass = "concurrent"
	// ClassOrdered tasks additionally run one at a time, in validated order.
	ClassOrdered TaskClass = "ordered"
)

// Runnable is the body of a task.
type Runnable interface {
	Execute(executionContext context.Context, provider DependencyProvider) (any, error)
}

// RunnableFunc adapts a function to the Runnable interface.
type RunnableFunc func(executionContext context.Context, provider DependencyProvider) (any, error)

// Execute calls the wrapped function.
func (function RunnableFunc) Execute(executionContext context.Context, provider DependencyProvider) (any, error) {
	return function(executionContext, provider)
}

// Task declares one initialization unit.
type Task struct {
	ID           TaskID
	Dependencies []TaskID
	Class        TaskClass
	Body         Runnable
}

// NewTask builds a concurrent task from a function body.
func NewTask(identifier TaskID, body RunnableFunc, dependencies ...TaskID) Task {
	return Task{
		ID:           identifier,
		Dependencies: dependencies,
		Class:        ClassConcurrent,
		Body:         body,
	}
}

// NewOrderedTask builds an ordered task from a function body.
func NewOrderedTask(identifier TaskID, body RunnableFunc, dependencies ...TaskID) Task {
	task := NewTask(identifier, body, dependencies...)
	task.Class = ClassOrdered
	return task
}

// ParseTaskClass normalizes a textual class name. Empty input resolves to ClassConcurrent.
func ParseTaskClass(raw string) (TaskClass, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(ClassConcurrent), "best-effort-concurrent":
		return ClassConcurrent, true
	case string(ClassOrdered), "strict-order":
		return ClassOrdered, true
	default:
		return "", false
	}
}

func (task Task) class() TaskClass {
	if task.Class == ClassOrdered {
		return ClassOrdered
	}
	return ClassConcurrent
}
