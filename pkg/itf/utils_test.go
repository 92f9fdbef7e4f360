package itf

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func TestDatabaseOptions_FromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "")

	opts := DatabaseOptions()
	require.Equal(t, "db.internal", opts.Host)
	require.Equal(t, "6543", opts.Port)
	require.Equal(t, "imes", opts.Name)
	require.Contains(t, DbOpts(), "host=db.internal port=6543")
}

func TestNewPool_ConfiguresSearchPath(t *testing.T) {
	var seen string
	pool, err := NewPool(DbOpts(), func(c *pgxpool.Config) {
		c.ConnConfig.RuntimeParams["search_path"] = "itf_test"
		seen = c.ConnConfig.RuntimeParams["search_path"]
	})
	require.NoError(t, err)
	defer pool.Close()
	require.Equal(t, "itf_test", seen)
	require.Equal(t, int32(8), pool.Config().MaxConns)
}

func TestNewPool_InvalidOptions(t *testing.T) {
	_, err := NewPool("postgres://%zz", nil)
	require.Error(t, err)
}
