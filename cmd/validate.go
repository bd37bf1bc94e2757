package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tcrun/internal/dependency"
	"tcrun/internal/resource"
	"tcrun/internal/template"
	"tcrun/internal/testcase"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [files...]",
		Short: "Check test-case documents without running them",
		Long: `Check that documents parse, that test names are unique, that every
test case has a supported method and a URL, that every prerequisite
document exists and that every helper placeholder names a known helper.
Placeholders are not resolved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := resolveFiles(cfg, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			invalid := 0
			for _, file := range files {
				if errs := validateFile(file); len(errs) > 0 {
					invalid++
					fmt.Fprintf(out, "❌ %s\n", file)
					for _, e := range errs {
						fmt.Fprintf(out, "   • %v\n", e)
					}
					continue
				}
				fmt.Fprintf(out, "✅ %s\n", file)
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d document(s) invalid", invalid, len(files))
			}
			return nil
		},
	}
}

func validateFile(file string) []error {
	loader := resource.NewLoader(cfg.TestCaseDir, nil)
	repo := testcase.NewRepository(loader)
	if err := repo.Load(file); err != nil {
		return []error{err}
	}

	var errs []error
	if raw, err := loader.ReadRaw(file); err == nil {
		for _, name := range template.New(nil, nil).UndefinedHelpers(raw) {
			errs = append(errs, fmt.Errorf("unknown helper %s()", name))
		}
	}
	graph := dependency.New()
	for _, name := range repo.Names() {
		tc, err := repo.GetRaw(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if err := tc.Validate(); err != nil {
			errs = append(errs, err)
		}
		errs = append(errs, checkPrerequisites(repo, graph, name, tc.Prerequisite)...)
	}
	return errs
}

// checkPrerequisites loads every document reachable from refs into graph
// and reports missing documents and cycles.
func checkPrerequisites(repo *testcase.Repository, graph *dependency.Graph, name string, refs []string) []error {
	var errs []error
	pending := append([]string(nil), refs...)
	for len(pending) > 0 {
		ref := pending[0]
		pending = pending[1:]
		if graph.Has(dependency.NodeID(ref)) {
			continue
		}
		tc, err := repo.LoadSingleRaw(ref)
		if err != nil {
			if parents := graph.Dependents(dependency.NodeID(ref)); len(parents) > 0 {
				err = fmt.Errorf("required by %v: %w", parents, err)
			}
			errs = append(errs, fmt.Errorf("%s: prerequisite %s: %w", name, ref, err))
			continue
		}
		node := dependency.Node{ID: dependency.NodeID(ref)}
		for _, dep := range tc.Prerequisite {
			node.DependsOn = append(node.DependsOn, dependency.NodeID(dep))
		}
		graph.AddNode(node)
		pending = append(pending, tc.Prerequisite...)
	}
	if len(errs) > 0 {
		return errs
	}

	roots := make([]dependency.NodeID, len(refs))
	for i, ref := range refs {
		roots[i] = dependency.NodeID(ref)
	}
	if _, err := graph.Expand(roots); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return errs
}
