/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// HTTPError is implemented by errors that carry a response status.
type HTTPError interface {
	error
	HTTPCode() int
}

// ConfigurationError reports a resource misconfiguration, such as a
// fulltext alias used in a request without being registered.
type ConfigurationError struct {
	Message string
}

func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string { return e.Message }

func (e *ConfigurationError) HTTPCode() int { return http.StatusBadRequest }

// ResourceNotFoundError is returned when a resource lookup by id misses.
type ResourceNotFoundError struct {
	Resource string
	ID       any
	Err      error
}

func (e *ResourceNotFoundError) Error() string {
	if e.Resource == "" {
		return "resource not found"
	}
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

func (e *ResourceNotFoundError) Unwrap() error { return e.Err }

func (e *ResourceNotFoundError) HTTPCode() int { return http.StatusNotFound }

// ValidationError holds the failed rules keyed by field name.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a message for field.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) HTTPCode() int { return http.StatusUnprocessableEntity }

// IsNotFound reports whether err is, or wraps, a ResourceNotFoundError.
func IsNotFound(err error) bool {
	var nf *ResourceNotFoundError
	return errors.As(err, &nf)
}

// StatusCode resolves the HTTP status for err, defaulting to 500.
func StatusCode(err error) int {
	var he HTTPError
	if errors.As(err, &he) {
		return he.HTTPCode()
	}
	return http.StatusInternalServerError
}
