// Copyright (c) Microsoft. All rights reserved.

package devui

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/moogar0880/problems"
)

func writeProblem(w http.ResponseWriter, logger *slog.Logger, p *problems.Problem) {
	w.Header().Set("Content-Type", problems.ProblemMediaType)
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		logger.Warn("failed to write problem", "status", p.Status, "error", err)
	}
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger, detail string) {
	writeProblem(w, logger, problems.NewStatusProblem(http.StatusBadRequest).
		WithInstance(r.URL.Path).
		WithType("validation_error").
		WithDetail(detail))
}

func writeNotFound(w http.ResponseWriter, r *http.Request, logger *slog.Logger, detail string) {
	writeProblem(w, logger, problems.NewStatusProblem(http.StatusNotFound).
		WithInstance(r.URL.Path).
		WithType("not_found").
		WithDetail(detail))
}

func writeInternal(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	writeProblem(w, logger, problems.NewStatusProblem(http.StatusInternalServerError).
		WithInstance(r.URL.Path).
		WithType("internal_error").
		WithError(err))
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}
