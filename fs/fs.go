package appfs

import "embed"

// FS holds the SQL migrations applied by goose.
//go:embed migrations/*.sql
var FS embed.FS
