// Package migrations embeds the booking schema for goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
