package runner

import (
	"context"
	"errors"

	"tcrun/internal/dependency"
	"tcrun/pkg/logging"
)

// planPrerequisites expands refs depth-first into the order they must run in:
// a prerequisite's own prerequisites come before it. Documents are read
// without resolving placeholders so the whole chain is checked for cycles
// before any call is made.
func (r *Runner) planPrerequisites(testName string, refs []string) ([]string, error) {
	g := dependency.New()
	if err := r.addDocuments(g, refs); err != nil {
		return nil, err
	}

	roots := make([]dependency.NodeID, len(refs))
	for i, ref := range refs {
		roots[i] = dependency.NodeID(ref)
	}
	order, err := g.Expand(roots)
	if err != nil {
		var ce *dependency.CycleError
		if errors.As(err, &ce) {
			chain := []string{testName}
			for _, id := range ce.Chain {
				chain = append(chain, string(id))
			}
			return nil, &PrerequisiteCycleError{Chain: chain}
		}
		return nil, err
	}

	plan := make([]string, len(order))
	for i, id := range order {
		plan[i] = string(id)
	}
	return plan, nil
}

// addDocuments reads every document reachable from refs into g, once each.
func (r *Runner) addDocuments(g *dependency.Graph, refs []string) error {
	for _, ref := range refs {
		if g.Has(dependency.NodeID(ref)) {
			continue
		}
		tc, err := r.repo.LoadSingleRaw(ref)
		if err != nil {
			return err
		}
		node := dependency.Node{ID: dependency.NodeID(ref)}
		for _, dep := range tc.Prerequisite {
			node.DependsOn = append(node.DependsOn, dependency.NodeID(dep))
		}
		g.AddNode(node)
		if err := r.addDocuments(g, tc.Prerequisite); err != nil {
			return err
		}
	}
	return nil
}

// runPrerequisite runs one prerequisite document: request, call and
// post-processor. Its assertions are not evaluated.
func (r *Runner) runPrerequisite(ctx context.Context, ref string) error {
	tc, err := r.repo.LoadSingle(ref)
	if err != nil {
		return err
	}
	logging.Debug("Runner", "Running prerequisite %s (%s %s)", ref, tc.Method, tc.URL)

	out, err := r.execute(ctx, tc)
	if err != nil {
		return err
	}
	_, err = r.applyPostProcessor(tc.PostProcessor, out)
	return err
}
