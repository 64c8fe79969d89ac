package pg

import (
	"context"
	"database/sql"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"rig.dev/identity/internal/obs"
	"rig.dev/identity/internal/secrets"
	"rig.dev/identity/internal/store"
)

const (
	defaultPort     = 5432
	defaultMaxConns = 10
)

// Secrets resolves named credentials.
type Secrets interface {
	Get(ctx context.Context, key string) (string, error)
}

// Logger is the subset of *obs.Logger used by this package.
type Logger interface {
	Critical(msg string, fields ...obs.Fields)
	Error(msg string, fields ...obs.Fields)
	Info(msg string, fields ...obs.Fields)
}

// ConnConfig tunes the pool. Zero values fall back to defaults.
type ConnConfig struct {
	Port            int
	MaxConns        int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// OpenFunc turns a parsed pgx config into a database/sql pool.
type OpenFunc func(cfg *pgx.ConnConfig) (*sql.DB, error)

func openStdlib(cfg *pgx.ConnConfig) (*sql.DB, error) {
	return stdlib.OpenDB(*cfg), nil
}

// ConnectorOption configures a Connector.
type ConnectorOption func(*Connector)

// WithOpener replaces the pgx stdlib opener.
func WithOpener(fn OpenFunc) ConnectorOption {
	return func(c *Connector) {
		if fn != nil {
			c.open = fn
		}
	}
}

// Connector lazily creates one shared pool and hands it to every caller.
type Connector struct {
	secrets Secrets
	log     Logger
	cfg     ConnConfig
	open    OpenFunc

	mu sync.Mutex
	db *sql.DB
}

// NewConnector returns a Connector. Nothing is dialled until DB is called.
func NewConnector(sec Secrets, log Logger, cfg ConnConfig, opts ...ConnectorOption) *Connector {
	if log == nil {
		log = obs.Nop()
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = defaultMaxConns
	}
	c := &Connector{secrets: sec, log: log, cfg: cfg, open: openStdlib}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DB returns the shared pool, creating it on first use. A failed attempt
// leaves nothing behind and the next call starts over.
func (c *Connector) DB(ctx context.Context) (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return c.db, nil
	}
	db, err := c.connect(ctx)
	if err != nil {
		c.log.Critical("database connection failed", obs.Fields{"error": err.Error()})
		return nil, err
	}
	c.db = db
	return db, nil
}

// Close closes the pool if it was opened.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func (c *Connector) connect(ctx context.Context) (*sql.DB, error) {
	var creds [4]string
	for i, key := range []string{secrets.DBHost, secrets.DBName, secrets.DBUser, secrets.DBPassword} {
		v, err := c.secrets.Get(ctx, key)
		if err != nil {
			return nil, store.Connection("connector.secrets", err)
		}
		creds[i] = v
	}
	host, name, user, pass := creds[0], creds[1], creds[2], creds[3]

	c.log.Info("initializing database connection", obs.Fields{
		"host":      host,
		"database":  name,
		"port":      c.cfg.Port,
		"max_conns": c.cfg.MaxConns,
	})

	dsn := (&url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, pass),
		Host:   net.JoinHostPort(host, strconv.Itoa(c.cfg.Port)),
		Path:   "/" + name,
	}).String()
	pgcfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, store.Connection("connector.parse_config", err)
	}

	db, err := c.open(pgcfg)
	if err != nil {
		return nil, store.Connection("connector.open", err)
	}
	db.SetMaxOpenConns(c.cfg.MaxConns)
	db.SetMaxIdleConns(c.cfg.MaxConns)
	if c.cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.cfg.ConnMaxLifetime)
	}
	if c.cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(c.cfg.ConnMaxIdleTime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, store.Connection("connector.ping", err)
	}
	return db, nil
}
