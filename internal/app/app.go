// Package app wires configuration, logging, secrets and the database client
// for the command line tools.
package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"rig.dev/identity/internal/config"
	"rig.dev/identity/internal/obs"
	"rig.dev/identity/internal/secrets"
	"rig.dev/identity/internal/store/pg"
)

// App owns the long-lived dependencies of a process.
type App struct {
	Config  *config.Config
	Log     *obs.Logger
	Secrets *secrets.Manager
	Conn    *pg.Connector
	Client  *pg.Client
}

// New builds the dependency graph. No connection is opened until the first
// query runs. reg may be nil to skip metric registration.
func New(cfg *config.Config, reg prometheus.Registerer, opts ...pg.ConnectorOption) *App {
	env := cfg.Environment()
	log := obs.NewLogger(obs.LogConfig{
		Env:     string(env),
		Service: cfg.ServiceName,
		Level:   cfg.LogLevel,
	})
	if reg != nil {
		obs.Register(reg)
	}

	sec := secrets.NewManager(env, secrets.WithFile(cfg.SecretsFile), secrets.WithLogger(log))
	conn := pg.NewConnector(sec, log, pg.ConnConfig{
		Port:            cfg.DBPort,
		MaxConns:        cfg.DBMaxConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}, opts...)

	return &App{
		Config:  cfg,
		Log:     log,
		Secrets: sec,
		Conn:    conn,
		Client:  pg.NewClient(conn, pg.WithClientLogger(log)),
	}
}

// Close releases the connection pool.
func (a *App) Close() error {
	return a.Conn.Close()
}
