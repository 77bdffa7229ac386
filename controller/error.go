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

package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tomoncle/restcore/database"
	"github.com/tomoncle/restcore/types"
)

type errorPayload struct {
	RequestID string              `json:"request_id,omitempty"`
	Error     errorEnvelope       `json:"error"`
	Errors    map[string][]string `json:"errors,omitempty"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusCodes names the statuses the handlers produce.
var statusCodes = map[int]string{
	fiber.StatusBadRequest:          "BAD_REQUEST",
	fiber.StatusNotFound:            "NOT_FOUND",
	fiber.StatusMethodNotAllowed:    "METHOD_NOT_ALLOWED",
	fiber.StatusUnprocessableEntity: "VALIDATION_FAILED",
	fiber.StatusServiceUnavailable:  "SERVICE_UNAVAILABLE",
	fiber.StatusInternalServerError: "INTERNAL_ERROR",
}

func statusCode(status int) string {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

func writeError(c *fiber.Ctx, status int, message string, fields map[string][]string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error:     errorEnvelope{Code: statusCode(status), Message: message},
		Errors:    fields,
	})
}

// ErrorHandler renders errors as {"error":{"code","message"},"errors":{}}.
// The status comes from fiber errors or from types.HTTPError; anything
// else is a 500 whose message is not exposed.
func ErrorHandler(logger database.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = database.NopLogger{}
	}
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return writeError(c, fe.Code, fe.Message, nil)
		}

		status := types.StatusCode(err)
		if status >= fiber.StatusInternalServerError {
			logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
			return writeError(c, status, "internal server error", nil)
		}

		var verr *types.ValidationError
		if errors.As(err, &verr) {
			return writeError(c, status, "the given data was invalid", verr.Fields)
		}
		return writeError(c, status, err.Error(), nil)
	}
}
