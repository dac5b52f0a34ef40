package migrations

import "embed"

// FS contains the schema for each supported driver, named <driver>.sql.
//
//go:embed *.sql
var FS embed.FS
