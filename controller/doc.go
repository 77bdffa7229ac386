// Package controller exposes services over HTTP with fiber: one set of
// REST routes per resource plus the shared middlewares and error handler.
package controller
