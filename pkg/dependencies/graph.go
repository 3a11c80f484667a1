package dependencies

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrSelfDependency is returned when a plugin is made to depend on itself.
	ErrSelfDependency = errors.New("plugin cannot depend on itself")

	// ErrCycle is returned when an edge or a declared dependency list closes a cycle.
	ErrCycle = errors.New("circular dependency detected")
)

// Graph is the live dependency graph. Edges point from a dependency to its
// dependents. The zero value is not usable; call NewGraph.
type Graph struct {
	// dependency -> dependents, most recently added first
	dependents map[string][]string
	// dependent -> dependencies
	dependencies map[string][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		dependents:   make(map[string][]string),
		dependencies: make(map[string][]string),
	}
}

// AddEdge records that dependent requires dependency. Adding an existing edge
// is a no-op. An edge that would close a cycle is rejected.
func (g *Graph) AddEdge(dependent, dependency string) error {
	if dependent == dependency {
		return fmt.Errorf("%s: %w", dependent, ErrSelfDependency)
	}
	if g.HasEdge(dependent, dependency) {
		return nil
	}
	// dependency must not already (transitively) depend on dependent
	if g.reaches(dependency, dependent) {
		return fmt.Errorf("%s -> %s: %w", dependent, dependency, ErrCycle)
	}

	g.dependents[dependency] = append([]string{dependent}, g.dependents[dependency]...)
	g.dependencies[dependent] = append(g.dependencies[dependent], dependency)
	return nil
}

// RemoveEdge drops the edge if present and reports whether it existed.
func (g *Graph) RemoveEdge(dependent, dependency string) bool {
	if !g.HasEdge(dependent, dependency) {
		return false
	}
	g.dependents[dependency] = remove(g.dependents[dependency], dependent)
	if len(g.dependents[dependency]) == 0 {
		delete(g.dependents, dependency)
	}
	g.dependencies[dependent] = remove(g.dependencies[dependent], dependency)
	if len(g.dependencies[dependent]) == 0 {
		delete(g.dependencies, dependent)
	}
	return true
}

// RemoveNode drops every edge touching id.
func (g *Graph) RemoveNode(id string) {
	for _, dep := range g.Dependencies(id) {
		g.RemoveEdge(id, dep)
	}
	for _, dependent := range g.Dependents(id) {
		g.RemoveEdge(dependent, id)
	}
}

// HasEdge reports whether dependent currently depends on dependency.
func (g *Graph) HasEdge(dependent, dependency string) bool {
	for _, d := range g.dependents[dependency] {
		if d == dependent {
			return true
		}
	}
	return false
}

// Dependents returns a copy of the plugins that depend on id.
func (g *Graph) Dependents(id string) []string {
	return append([]string(nil), g.dependents[id]...)
}

// Dependencies returns a copy of the live dependencies of id.
func (g *Graph) Dependencies(id string) []string {
	return append([]string(nil), g.dependencies[id]...)
}

// TransitiveDependents returns every plugin that directly or indirectly
// depends on id, nearest first.
func (g *Graph) TransitiveDependents(id string) []string {
	visited := map[string]bool{id: true}
	result := make([]string, 0)

	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range g.dependents[cur] {
			if visited[d] {
				continue
			}
			visited[d] = true
			result = append(result, d)
			queue = append(queue, d)
		}
	}
	return result
}

// Nodes returns every id that has at least one edge, sorted.
func (g *Graph) Nodes() []string {
	seen := make(map[string]bool)
	for k, v := range g.dependents {
		seen[k] = true
		for _, d := range v {
			seen[d] = true
		}
	}
	nodes := make([]string, 0, len(seen))
	for n := range seen {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

// EdgeCount returns the number of live edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, v := range g.dependents {
		n += len(v)
	}
	return n
}

// reaches reports whether from transitively depends on to.
func (g *Graph) reaches(from, to string) bool {
	visited := make(map[string]bool)
	var walk func(string) bool
	walk = func(cur string) bool {
		if cur == to {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true
		for _, dep := range g.dependencies[cur] {
			if walk(dep) {
				return true
			}
		}
		return false
	}
	return walk(from)
}

// TopologicalSort orders root's declared dependency closure so that every id
// appears after all of its dependencies. root itself is last. depsOf returns
// the declared dependencies of an id; unknown ids simply have none.
func TopologicalSort(root string, depsOf func(id string) []string) ([]string, error) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	result := make([]string, 0)

	var visit func(string) error
	visit = func(id string) error {
		if recStack[id] {
			return fmt.Errorf("at %s: %w", id, ErrCycle)
		}
		if visited[id] {
			return nil
		}
		visited[id] = true
		recStack[id] = true

		for _, dep := range depsOf(id) {
			if err := visit(dep); err != nil {
				return err
			}
		}

		recStack[id] = false
		result = append(result, id)
		return nil
	}

	if err := visit(root); err != nil {
		return nil, err
	}
	return result, nil
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
