package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tcrun/internal/mcpserver"
	"tcrun/internal/runner"
	"tcrun/pkg/logging"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve test-case runs as MCP tools over stdio",
		Long: `Run an MCP server on stdin and stdout exposing the tools
list_test_cases, run_test_case, run_test_file, get_variables and
reset_variables. Configure it in your AI assistant's MCP settings.

Logging is disabled because stdout carries the protocol stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Discard()

			env, err := runner.NewEnvironment(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer env.Close()

			srv := mcpserver.New("tcrun", GetVersion(), env.Factory(nil, false))
			if err := srv.ServeStdio(cmd.Context()); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}
}
