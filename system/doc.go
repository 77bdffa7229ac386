// Package system stores the runtime options of an installation (maintenance
// mode, audit logging) and the keys issued to calling services.
package system
