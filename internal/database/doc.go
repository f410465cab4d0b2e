// Package database opens the PostgreSQL pool used by the connection
// event journal.
package database
