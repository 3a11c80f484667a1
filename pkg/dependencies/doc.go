// Package dependencies tracks the directed dependency graph between plugins.
//
// # Overview
//
// Edges run from a dependency to the plugins that depend on it. The loader
// records an edge only after the dependent has resolved every one of its
// declared dependencies, and removes it again when the dependent unloads, so
// the graph always describes the plugins that are live right now.
//
// # Usage Example
//
//	graph := dependencies.NewGraph()
//	if err := graph.AddEdge("ui-helpers", "core-lib"); err != nil {
//		return err // self edge or cycle
//	}
//
//	for _, id := range graph.Dependents("core-lib") {
//		fmt.Println("must unload first:", id)
//	}
//
// Declared (not yet live) dependencies are ordered with TopologicalSort, which
// reports cycles instead of recursing forever:
//
//	order, err := dependencies.TopologicalSort("ui-helpers", declared)
//
// # Related Packages
//
//   - pkg/plugins: maintains the live graph during load and unload
//   - pkg/api: serves the graph in Cytoscape.js format
package dependencies
