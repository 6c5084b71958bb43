// Package repository provides database access for the domain types.
// Sentinel errors defined here let handlers map storage outcomes onto
// HTTP statuses without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist.
// Handlers should translate this into an HTTP 404.
var ErrNotFound = errors.New("not found")
