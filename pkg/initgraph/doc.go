// Package initgraph runs a declared set of initialization tasks in dependency order.
//
// A Controller validates the task graph before anything executes, then launches one
// handle per task. Each handle waits for its dependencies, runs its body when they all
// succeeded, and otherwise settles without running. Independent tasks run concurrently.
// Once every handle has settled the controller publishes exactly one Report to its
// subscribers and to the RunHandle returned by Start.
package initgraph
