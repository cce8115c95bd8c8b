// Package all wires every built-in storage backend into the storage factory.
//
// Importing it for side effects runs each backend's init, which registers
// its factory and DDL builder:
//
//   - "sqlite"   (pdsreader/internal/storage/sqlite)
//   - "postgres" (pdsreader/internal/storage/postgres)
//   - "mssql"    (pdsreader/internal/storage/mssql)
//   - "mysql"    (pdsreader/internal/storage/mysql)
//
// Typical usage in cmd/pdsreader:
//
//	import _ "pdsreader/internal/storage/all"
//
//	cat, err := storage.OpenCatalog(ctx, job.Catalog.Kind, job.Catalog.DSN, job.Catalog.Table)
//	if err != nil { ... }
//	defer cat.Close()
//
// A binary that needs only a subset of backends can import those packages
// directly instead.
package all

import (
	_ "pdsreader/internal/storage/mssql"
	_ "pdsreader/internal/storage/mysql"
	_ "pdsreader/internal/storage/postgres"
	_ "pdsreader/internal/storage/sqlite"
)
