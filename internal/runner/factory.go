package runner

import (
	"context"
	"fmt"

	"tcrun/internal/apiclient"
	"tcrun/internal/config"
	"tcrun/internal/dbclient"
	"tcrun/internal/resource"
	"tcrun/internal/template"
)

// Environment holds the collaborators shared by every runner of a process:
// the API client, the optional database and the registries.
type Environment struct {
	Config  config.Config
	Client  apiclient.Client
	Types   *resource.TypeRegistry
	Helpers *template.Registry

	db *dbclient.Client
}

// NewEnvironment connects the collaborators described by cfg. The database
// is opened only when cfg configures one.
func NewEnvironment(ctx context.Context, cfg config.Config) (*Environment, error) {
	env := &Environment{
		Config: cfg,
		Client: apiclient.New(apiclient.Options{
			BaseURL: cfg.BaseURL,
			Token:   cfg.Auth.Token,
			Timeout: cfg.Timeout,
		}),
		Types:   resource.NewTypeRegistry(),
		Helpers: template.DefaultRegistry(),
	}
	for name, t := range cfg.Types {
		env.Types.Register(name, resource.SchemaOf(name, resource.Schema{Required: t.Required, Fields: t.Fields}))
	}

	if cfg.HasDatabase() {
		db, err := dbclient.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("db assertions need a database: %w", err)
		}
		env.db = db
	}
	return env, nil
}

// NewRunner creates a runner with a fresh variable context.
func (e *Environment) NewRunner(reporter Reporter, failFast bool) *Runner {
	opts := Options{
		TestCaseDir:        e.Config.TestCaseDir,
		RequestResourceDir: e.Config.RequestResourceDir,
		BundleDir:          e.Config.DefaultAssertionDir,
		DBValidationPath:   e.Config.DBValidationPath,
		Client:             e.Client,
		Types:              e.Types,
		Helpers:            e.Helpers,
		Reporter:           reporter,
		FailFast:           failFast,
	}
	if e.db != nil {
		opts.DB = e.db
	}
	return New(opts)
}

// Factory returns a RunnerFactory bound to this environment.
func (e *Environment) Factory(reporter Reporter, failFast bool) RunnerFactory {
	return func() *Runner {
		return e.NewRunner(reporter, failFast)
	}
}

// Close releases the database connection, if any.
func (e *Environment) Close() error {
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}
