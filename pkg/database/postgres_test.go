package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentorship-api/pkg/config"
)

func TestDSNEscapesCredentials(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "mentor",
		Password: "p@ss:w/rd",
		Name:     "mentorship",
		SSLMode:  "require",
	})

	parsed, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", parsed.Scheme)
	assert.Equal(t, "db.internal:5432", parsed.Host)
	assert.Equal(t, "/mentorship", parsed.Path)
	password, ok := parsed.User.Password()
	require.True(t, ok)
	assert.Equal(t, "p@ss:w/rd", password)
	assert.Equal(t, "require", parsed.Query().Get("sslmode"))
}
