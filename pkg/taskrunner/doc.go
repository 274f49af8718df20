// Package taskrunner hosts the shared abstractions for loading and executing
// initgraph manifests. It exposes the `Executor` interface plus helpers
// (`Factory`, `Resolve`, `BuildDependencies`) so CLI packages can wire the shell
// executor and action catalog once and obtain a runner that prints summaries and
// diagnostics, while unit tests can swap in fakes.
package taskrunner
