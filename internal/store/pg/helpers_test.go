package pg

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"rig.dev/identity/internal/secrets"
)

var (
	t0 = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

// fakeSecrets is an in-memory Secrets that counts lookups.
type fakeSecrets struct {
	mu     sync.Mutex
	values map[string]string
	gets   atomic.Int32
}

func newFakeSecrets() *fakeSecrets {
	return &fakeSecrets{values: map[string]string{
		secrets.DBHost:     "db.internal",
		secrets.DBName:     "identity",
		secrets.DBUser:     "rig",
		secrets.DBPassword: "s3cr3t-pa55",
	}}
}

func (f *fakeSecrets) Get(_ context.Context, key string) (string, error) {
	f.gets.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", secrets.ErrNotFound, key)
	}
	return v, nil
}

func (f *fakeSecrets) set(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
}

func (f *fakeSecrets) unset(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
}

// argConverter lets []string reach the driver the way pgx accepts it.
type argConverter struct{}

func (argConverter) ConvertValue(v any) (driver.Value, error) {
	if s, ok := v.([]string); ok {
		return s, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

// stringsArg matches a []string query argument.
type stringsArg []string

func (a stringsArg) Match(v driver.Value) bool {
	got, ok := v.([]string)
	return ok && reflect.DeepEqual([]string(a), got)
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(argConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMock(t)
	conn := NewConnector(newFakeSecrets(), nil, ConnConfig{}, WithOpener(func(*pgx.ConnConfig) (*sql.DB, error) {
		return db, nil
	}))
	return NewClient(conn), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	require.NoError(t, mock.ExpectationsWereMet())
}
