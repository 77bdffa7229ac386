// Package audit records create, update and delete operations performed
// through a service into the logs table.
package audit
