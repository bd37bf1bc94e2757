package cmd

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"tcrun/internal/formatting"
	"tcrun/internal/resource"
	"tcrun/internal/testcase"
	pkgstrings "tcrun/pkg/strings"
)

// listEntry is one row of the list output.
type listEntry struct {
	File          string   `json:"file" yaml:"file"`
	TestName      string   `json:"testName,omitempty" yaml:"testName,omitempty"`
	Method        string   `json:"method,omitempty" yaml:"method,omitempty"`
	URL           string   `json:"url,omitempty" yaml:"url,omitempty"`
	Prerequisites []string `json:"prerequisite,omitempty" yaml:"prerequisite,omitempty"`
	Error         string   `json:"error,omitempty" yaml:"error,omitempty"`
}

func newListCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list [files...]",
		Short: "List the test cases of test-case documents",
		Long: `List the test cases of one or more documents without running them.
Without arguments every test-case document in the test-case directory is listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatting.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			files, err := resolveFiles(cfg, args)
			if err != nil {
				return err
			}

			entries := collectEntries(files)
			if format != formatting.FormatTable {
				return formatting.WriteData(cmd.OutOrStdout(), format, entries)
			}
			if len(entries) == 0 {
				fmt.Fprint(cmd.OutOrStdout(), formatting.EmptyMessage("📋", "No test cases found"))
				return nil
			}
			renderEntries(cmd, entries)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	_ = cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return formatting.OutputFormats, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func collectEntries(files []string) []listEntry {
	var entries []listEntry
	for _, file := range files {
		repo := testcase.NewRepository(resource.NewLoader(cfg.TestCaseDir, nil))
		if err := repo.Load(file); err != nil {
			entries = append(entries, listEntry{File: file, Error: "cannot load: " + err.Error()})
			continue
		}
		for _, name := range repo.Names() {
			tc, err := repo.GetRaw(name)
			if err != nil {
				entries = append(entries, listEntry{File: file, TestName: name, Error: err.Error()})
				continue
			}
			entries = append(entries, listEntry{
				File:          file,
				TestName:      name,
				Method:        string(tc.Method),
				URL:           tc.URL,
				Prerequisites: tc.Prerequisite,
			})
		}
	}
	return entries
}

func renderEntries(cmd *cobra.Command, entries []listEntry) {
	t := formatting.NewTable(cmd.OutOrStdout(), "FILE", "TEST NAME", "METHOD", "URL", "PREREQUISITES")

	total := 0
	for _, e := range entries {
		if e.Error != "" {
			t.AppendRow(table.Row{e.File, e.TestName, text.FgRed.Sprint("invalid"), pkgstrings.Truncate(e.Error, pkgstrings.DefaultMaxLen), ""})
			continue
		}
		t.AppendRow(table.Row{e.File, e.TestName, e.Method, e.URL, strings.Join(e.Prerequisites, ", ")})
		total++
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d test case(s)", total), "", "", ""})
	t.Render()
}
