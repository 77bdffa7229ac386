// Package database provides connection management, migrations of the core
// tables, query hooks for logging, slow query detection and metrics,
// configuration types, SQL error classification and the logging contract
// shared by the rest of the module, all built on top of Bun.
package database
