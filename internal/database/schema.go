package database

import _ "embed"

// Schema and query code are generated from the migrations:
//
//	go generate ./internal/database
//
// The first step migrates an in-memory database and dumps its tables and
// indexes to sqlc/schema.sql; the second runs sqlc against that file.

//go:generate sh -c "cd ../.. && go run ./internal/database/tools -out internal/database/sqlc/schema.sql"
//go:generate sh -c "cd ../.. && sqlc generate -f internal/database/sqlc/sqlc.yaml"

// Schema is the current schema generated from the migrations. Tests apply it to
// in-memory databases instead of running the migrations.
//
//go:embed sqlc/schema.sql
var Schema string
