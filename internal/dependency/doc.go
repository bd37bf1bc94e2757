// Package dependency provides a small directed graph of prerequisite
// documents.
//
// Each node is a document identified by its reference; its edges are the
// documents it lists as prerequisites. The graph answers two questions:
// which documents depend on a given one, and in which order a set of
// documents must run so that every prerequisite runs before the document
// that needs it.
//
// # Usage Example
//
//	g := dependency.New()
//	g.AddNode(dependency.Node{ID: "login.json"})
//	g.AddNode(dependency.Node{ID: "create-user.json", DependsOn: []dependency.NodeID{"login.json"}})
//
//	order, err := g.Expand([]dependency.NodeID{"create-user.json"})
//	// order == [login.json create-user.json]
//
// Expand does not deduplicate: a document reached along two paths appears
// once per path, because each reference is run again with the variables
// current at that point. A cycle fails with *CycleError.
package dependency
