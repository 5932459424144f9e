// Package handler implements the HTTP endpoints of the trading API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/spotdesk/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// errorBody is the machine-readable error envelope every rejection uses.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
	Rule  string `json:"rule,omitempty"`
}

// writeDomainError maps the error taxonomy onto HTTP statuses: schema and
// business-rule rejections are 400, a missing position is 404, anything
// unexpected is a generic 500 with the detail kept in logs only.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	var schemaErr *domain.SchemaError
	if errors.As(err, &schemaErr) {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: schemaErr.Error(),
			Code:  "schema_error",
			Field: schemaErr.Field,
		})
		return
	}

	var ruleErr *domain.BusinessRuleError
	if errors.As(err, &ruleErr) {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: ruleErr.Error(),
			Code:  "business_rule_error",
			Rule:  ruleErr.Rule,
		})
		return
	}

	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{
			Error: "position not found",
			Code:  "not_found",
		})
		return
	}

	logger.ErrorContext(r.Context(), "handler: unexpected error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, errorBody{
		Error: "internal server error",
		Code:  "internal",
	})
}

// decodeJSON decodes a request body into dst, rejecting unknown fields so a
// typoed field name is a schema error rather than a silent default.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.NewSchemaError("", "malformed JSON body: "+err.Error())
	}
	return nil
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}
