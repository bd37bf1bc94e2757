package dependency

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// NodeID identifies a node, usually a document reference.
type NodeID string

// Node is a document together with the documents it depends on.
type Node struct {
	ID        NodeID
	DependsOn []NodeID
}

// Graph is not safe for concurrent writes.
type Graph struct {
	nodes map[NodeID]*Node
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[NodeID]*Node)}
}

// AddNode adds or replaces a node.
func (g *Graph) AddNode(n Node) {
	if g.nodes == nil {
		g.nodes = make(map[NodeID]*Node)
	}
	copied := n
	copied.DependsOn = slices.Clone(n.DependsOn)
	g.nodes[n.ID] = &copied
}

// Has reports whether id was added.
func (g *Graph) Has(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Dependencies returns the direct dependencies of id.
func (g *Graph) Dependencies(id NodeID) []NodeID {
	if n, ok := g.nodes[id]; ok {
		return slices.Clone(n.DependsOn)
	}
	return nil
}

// Dependents returns the nodes that directly depend on id, sorted.
func (g *Graph) Dependents(id NodeID) []NodeID {
	var res []NodeID
	for _, n := range g.nodes {
		if slices.Contains(n.DependsOn, id) {
			res = append(res, n.ID)
		}
	}
	slices.Sort(res)
	return res
}

// CycleError is returned when a node depends on itself, directly or not.
type CycleError struct {
	// Chain is the path that leads back to a node already on it.
	Chain []NodeID
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, id := range e.Chain {
		parts[i] = string(id)
	}
	return fmt.Sprintf("dependency cycle: %s", strings.Join(parts, " -> "))
}

// IsCycle checks if an error is or wraps a CycleError.
func IsCycle(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}

// MissingError is returned by Expand for a node that was never added.
type MissingError struct {
	ID NodeID
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("unknown node %s", e.ID)
}

// Expand returns roots with their dependencies in run order: depth first,
// every dependency before its dependent. Nodes reachable along several paths
// are repeated.
func (g *Graph) Expand(roots []NodeID) ([]NodeID, error) {
	var order []NodeID
	if err := g.expand(roots, nil, &order); err != nil {
		return nil, err
	}
	return order, nil
}

func (g *Graph) expand(ids []NodeID, path []NodeID, order *[]NodeID) error {
	for _, id := range ids {
		if slices.Contains(path, id) {
			return &CycleError{Chain: append(slices.Clone(path), id)}
		}
		n, ok := g.nodes[id]
		if !ok {
			return &MissingError{ID: id}
		}
		if err := g.expand(n.DependsOn, append(slices.Clone(path), id), order); err != nil {
			return err
		}
		*order = append(*order, id)
	}
	return nil
}
