// Package mcpserver exposes test-case runs as MCP tools so that an AI
// assistant can list, run and inspect test cases over stdio.
//
// Each test-case document gets its own session: a runner and its variable
// context are kept between calls, so a run_test_case call sees the
// variables written by earlier calls on the same document until
// reset_variables is called.
package mcpserver
