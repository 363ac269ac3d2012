package migrations

import "embed"

// Migrations holds the golang-migrate files for the PostgreSQL driver.
//
//go:embed *.sql
var Migrations embed.FS
