package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/camp-autoscheduler/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "camp", Password: "secret", Name: "program"})
	assert.Equal(t, "host=db port=5432 user=camp password=secret dbname=program sslmode=disable", dsn)

	dsn = DSN(config.DatabaseConfig{Host: "db", Port: 6432, User: "u", Password: "p", Name: "n", SSLMode: "require"})
	assert.Contains(t, dsn, "sslmode=require")
}
