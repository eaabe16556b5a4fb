// migrations встраивает SQL-миграции схемы accounts (формат goose).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
