// Package repository provides a generic repository built on Bun for CRUD
// operations, transactions, upserts and filtered list queries driven by
// query.ListOptions.
package repository
