package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tcrun/internal/config"
	"tcrun/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates every test case passed.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeTestsFailed indicates the run completed but not every test case passed.
	ExitCodeTestsFailed = 2
	// ExitCodeConfig indicates the configuration could not be loaded.
	ExitCodeConfig = 3
)

var (
	configPath string
	debug      bool
	logLevel   string
	logFormat  string
	baseURL    string

	// cfg is loaded before any subcommand runs.
	cfg config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tcrun",
	Short: "Run declarative end-to-end API test cases",
	Long: `tcrun runs end-to-end API test cases described in JSON or YAML documents.

Each test case names an HTTP call, an optional request fixture with field
overrides, the assertions to check against the response and the database,
and the values to capture into variables for later test cases.`,
	// Errors are printed once by Execute; usage is only useful for flag errors.
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// TestFailureError is returned when a run completes with failing test cases.
type TestFailureError struct {
	Failed  int
	Errored int
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("%d test case(s) failed, %d errored", e.Failed, e.Errored)
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with a code describing the outcome.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "tcrun version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps an error to a process exit code.
func getExitCode(err error) int {
	var failed *TestFailureError
	if errors.As(err, &failed) {
		return ExitCodeTestsFailed
	}
	if config.IsConfigurationError(err) {
		return ExitCodeConfig
	}
	var invalid config.ValidationErrors
	if errors.As(err, &invalid) {
		return ExitCodeConfig
	}
	return ExitCodeError
}

// loadConfig loads the configuration, applies flag overrides and sets up logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if baseURL != "" {
		loaded.BaseURL = baseURL
	}
	if logLevel != "" {
		loaded.Logging.Level = logLevel
	}
	if logFormat != "" {
		loaded.Logging.Format = logFormat
	}
	if debug {
		loaded.Logging.Level = "debug"
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(loaded.Logging.Level)
	if err != nil {
		return err
	}
	logging.Init(level, logging.Format(loaded.Logging.Format), cmd.ErrOrStderr())

	cfg = loaded
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file (default: ./"+config.DefaultConfigFileName+")")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Override the API base URL")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newMCPCmd())
}
