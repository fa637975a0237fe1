// Package postgres embebe las migraciones SQL del schema principal.
// Formato de archivo: {version}_{name}.sql (ej: 0001_init.sql).
package postgres

import "embed"

//go:embed *.sql
var FS embed.FS
