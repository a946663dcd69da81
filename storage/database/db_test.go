package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/nutridash/core"
	appfs "github.com/trezcool/nutridash/fs"
)

func TestURL(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Database = core.DatabaseConfig{
		Engine:        "postgres",
		Host:          "db.local",
		Port:          5433,
		Name:          "nutridash",
		User:          "app",
		Password:      "s3cr3t",
		AdminUser:     "postgres",
		AdminPassword: "root",
		DisableTLS:    true,
	}

	u, err := url.Parse(URL(conf.Database.Name, false, conf))
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.local:5433", u.Host)
	assert.Equal(t, "/nutridash", u.Path)
	assert.Equal(t, "app", u.User.Username())
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "utc", u.Query().Get("timezone"))

	u, err = url.Parse(URL("postgres", true, conf))
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.User.Username())
	pwd, _ := u.User.Password()
	assert.Equal(t, "root", pwd)

	conf.Database.DisableTLS = false
	conf.Database.AdminUser = ""
	u, err = url.Parse(URL("postgres", true, conf))
	require.NoError(t, err)
	assert.Equal(t, "app", u.User.Username())
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := appfs.FS.ReadDir(MigrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "00001_init.sql", entries[0].Name())
}
