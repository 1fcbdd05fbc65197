// Package depgraph computes install order, cycle detection, and missing
// dependencies over a package dependency graph. Both traversals are
// iterative with an explicit stack, since a host recursive DFS would
// overflow on a sufficiently long dependency chain.
package depgraph

// Node is one package vertex: its own identity, its direct dependencies,
// and the dependents that point back at it. Invariant: for every b in
// Deps(a) whose node exists, a is in Dependents(b) — AddDep and AddPackage
// keep both sides consistent whichever of the two is called first.
type Node struct {
	Name       string
	Version    string
	Deps       []string
	Dependents []string
	Optional   bool
	Installed  bool
}

// Graph holds all known package nodes keyed by name.
type Graph struct {
	nodes map[string]*Node
	order []string // insertion order, for deterministic iteration
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddPackage registers name at version if not already known. Idempotent.
// Packages that already list name as a dependency become its dependents.
func (g *Graph) AddPackage(name, version string) {
	if _, ok := g.nodes[name]; ok {
		return
	}
	n := &Node{Name: name, Version: version}
	for _, other := range g.order {
		for _, dep := range g.nodes[other].Deps {
			if dep == name {
				n.Dependents = append(n.Dependents, other)
				break
			}
		}
	}
	g.nodes[name] = n
	g.order = append(g.order, name)
}

// AddDep records that a depends on b, appending b to a's deps and, if b is
// already known, appending a to b's dependents.
func (g *Graph) AddDep(a, b string) {
	na, ok := g.nodes[a]
	if !ok {
		return
	}
	na.Deps = append(na.Deps, b)
	if nb, ok := g.nodes[b]; ok {
		nb.Dependents = append(nb.Dependents, a)
	}
}

// Node returns the node for name, or nil if unknown.
func (g *Graph) Node(name string) *Node {
	return g.nodes[name]
}

// MissingDependencies returns every dependency name referenced by some
// package that has no node of its own.
func (g *Graph) MissingDependencies() []string {
	var missing []string
	seen := make(map[string]bool)
	for _, name := range g.order {
		for _, dep := range g.nodes[name].Deps {
			if _, ok := g.nodes[dep]; !ok && !seen[dep] {
				missing = append(missing, dep)
				seen[dep] = true
			}
		}
	}
	return missing
}

type frame struct {
	name     string
	depIndex int
}

// InstallOrder returns an iterative depth-first post-order over all nodes:
// a package is emitted only after every dependency it has a node for. The
// longest dependency chain determines stack depth, which this explicit
// stack keeps off the host call stack.
func (g *Graph) InstallOrder() []string {
	visited := make(map[string]bool)
	var out []string

	for _, root := range g.order {
		if visited[root] {
			continue
		}
		stack := []frame{{name: root}}
		visited[root] = true

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			node := g.nodes[top.name]

			advanced := false
			for top.depIndex < len(node.Deps) {
				dep := node.Deps[top.depIndex]
				top.depIndex++
				if _, ok := g.nodes[dep]; !ok || visited[dep] {
					continue
				}
				visited[dep] = true
				stack = append(stack, frame{name: dep})
				advanced = true
				break
			}
			if advanced {
				continue
			}

			out = append(out, top.name)
			stack = stack[:len(stack)-1]
		}
	}

	return out
}

// DetectCycles runs an iterative depth-first search tracking both a global
// visited set and a per-path recursion-stack set; a back-edge into the
// recursion stack identifies a cycle, and the stack's contents at that
// point are the offending cycle.
func (g *Graph) DetectCycles() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	type dfsFrame struct {
		name     string
		depIndex int
	}

	for _, root := range g.order {
		if visited[root] {
			continue
		}

		stack := []dfsFrame{{name: root}}
		visited[root] = true
		onStack[root] = true

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			node := g.nodes[top.name]

			advanced := false
			for top.depIndex < len(node.Deps) {
				dep := node.Deps[top.depIndex]
				top.depIndex++

				if _, ok := g.nodes[dep]; !ok {
					continue
				}
				if onStack[dep] {
					startIdx := 0
					for i, f := range stack {
						if f.name == dep {
							startIdx = i
							break
						}
					}
					cycle := make([]string, 0, len(stack)-startIdx)
					for _, f := range stack[startIdx:] {
						cycle = append(cycle, f.name)
					}
					return cycle
				}
				if visited[dep] {
					continue
				}

				visited[dep] = true
				onStack[dep] = true
				stack = append(stack, dfsFrame{name: dep})
				advanced = true
				break
			}
			if advanced {
				continue
			}

			onStack[top.name] = false
			stack = stack[:len(stack)-1]
		}
	}

	return nil
}
