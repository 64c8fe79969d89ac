// Package secrets resolves credentials by keychain key.
//
// Secret names are prefixed with the deployment stage, "rig-<env>-<key>".
// In the local stage every secret is read once from a JSON file; in staging
// and prod each secret is resolved from the environment on first use
// (rig-prod-rds_pass -> RIG_PROD_RDS_PASS). Resolved values are cached for
// the life of the Manager and are never logged.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"rig.dev/identity/internal/config"
	"rig.dev/identity/internal/obs"
)

// Keychain keys.
const (
	DBHost     = "rds_host"
	DBName     = "rds_name"
	DBUser     = "rds_user"
	DBPassword = "rds_pass"
)

// ErrNotFound is returned when a secret is absent from its source.
var ErrNotFound = errors.New("secrets: not found")

// Manager is a cached credential provider.
type Manager struct {
	env  config.Environment
	file string
	log  *obs.Logger

	mu          sync.Mutex
	cache       map[string]string
	localLoaded bool
	remote      *viper.Viper
}

// Option configures a Manager.
type Option func(*Manager)

// WithFile overrides the local secrets file path.
func WithFile(path string) Option {
	return func(m *Manager) {
		if strings.TrimSpace(path) != "" {
			m.file = path
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(log *obs.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewManager builds a Manager for env.
func NewManager(env config.Environment, opts ...Option) *Manager {
	m := &Manager{
		env:   env,
		file:  "secrets.local.json",
		log:   obs.Nop(),
		cache: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the stage-qualified secret name for key.
func (m *Manager) Name(key string) string {
	return fmt.Sprintf("rig-%s-%s", m.env, key)
}

// Get returns the secret stored under key.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := m.Name(key)

	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.cache[name]; ok {
		m.log.Debug("secret served from cache", obs.Fields{"key": key, "environment": string(m.env)})
		return v, nil
	}

	switch m.env {
	case config.EnvStaging, config.EnvProd:
		m.loadFromEnv(name)
	default:
		if err := m.loadLocal(); err != nil {
			return "", err
		}
	}

	v, ok := m.cache[name]
	if !ok {
		m.log.Critical("secret not found after loading", obs.Fields{"key": key, "environment": string(m.env)})
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return v, nil
}

func (m *Manager) loadLocal() error {
	if m.localLoaded {
		return nil
	}
	m.log.Info("loading local secrets file", obs.Fields{"environment": string(m.env), "path": m.file})

	v := viper.New()
	v.SetConfigFile(m.file)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		m.log.Critical("failed to read local secrets", obs.Fields{"environment": string(m.env), "path": m.file})
		return fmt.Errorf("secrets: read %s: %w", m.file, err)
	}
	for _, k := range v.AllKeys() {
		m.cache[k] = v.GetString(k)
	}
	m.localLoaded = true
	return nil
}

func (m *Manager) loadFromEnv(name string) {
	if m.remote == nil {
		m.remote = viper.New()
		m.remote.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		m.remote.AutomaticEnv()
	}
	m.log.Info("fetching secret", obs.Fields{"key": name, "source": "env", "environment": string(m.env)})
	if v := m.remote.GetString(name); v != "" {
		m.cache[name] = v
	}
}
