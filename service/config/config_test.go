package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "localhost", cfg.PostgreSQL.Host)
	assert.Equal(t, 5432, cfg.PostgreSQL.Port)
	assert.Equal(t, 90*24*time.Hour, time.Duration(cfg.ResultRetention))
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingPathUsesDefaults(t *testing.T) {
	cfg, err := Load("", logrus.New())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("/nonexistent/config.yaml", logrus.New())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadAppliesDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9090"
postgresql:
  host: db.internal
  password: secret
result_retention: 7d
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path, logrus.New())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "db.internal", cfg.PostgreSQL.Host)
	assert.Equal(t, "secret", cfg.PostgreSQL.Password)
	// Unset fields fall back to defaults.
	assert.Equal(t, 5432, cfg.PostgreSQL.Port)
	assert.Equal(t, "dbtune", cfg.PostgreSQL.Database)
	assert.Equal(t, 30, cfg.Server.ReadTimeoutSeconds)
	assert.Equal(t, 7*24*time.Hour, time.Duration(cfg.ResultRetention))
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0644))

	_, err := Load(path, logrus.New())
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
postgresql:
  max_open_conns: -1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_open_conns")
}

func TestPostgreSQLValidate(t *testing.T) {
	valid := Default().PostgreSQL
	assert.NoError(t, valid.Validate())

	badPort := valid
	badPort.Port = 70000
	assert.Error(t, badPort.Validate())

	noUser := valid
	noUser.User = ""
	assert.Error(t, noUser.Validate())
}

func TestConnectionString(t *testing.T) {
	cfg := PostgreSQLConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "dbtune",
		User:     "postgres",
		Password: "pw",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=pw dbname=dbtune sslmode=disable",
		cfg.ConnectionString())
}
