package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/worthlabs/worthhub/internal/domain"
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

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a domain error to its HTTP status and writes it.
// Unrecognized errors become an opaque 500 with fallback as the logged
// message.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error, fallback string) {
	status := http.StatusInternalServerError
	msg := fallback

	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrAlreadyExists):
		status, msg = http.StatusConflict, "already exists"
	case errors.Is(err, domain.ErrDuplicateCommitment):
		status, msg = http.StatusConflict, domain.ErrDuplicateCommitment.Error()
	case errors.Is(err, domain.ErrAlreadyRevealed):
		status, msg = http.StatusConflict, domain.ErrAlreadyRevealed.Error()
	case errors.Is(err, domain.ErrAlreadyFinalized):
		status, msg = http.StatusConflict, domain.ErrAlreadyFinalized.Error()
	case errors.Is(err, domain.ErrAlreadySettled):
		status, msg = http.StatusConflict, domain.ErrAlreadySettled.Error()
	case errors.Is(err, domain.ErrLockHeld):
		status, msg = http.StatusConflict, domain.ErrLockHeld.Error()
	case errors.Is(err, domain.ErrCommitPhaseEnded),
		errors.Is(err, domain.ErrCommitPhaseNotEnded),
		errors.Is(err, domain.ErrRevealPhaseEnded),
		errors.Is(err, domain.ErrRevealPhaseNotEnded),
		errors.Is(err, domain.ErrInvalidTopicState),
		errors.Is(err, domain.ErrPartialSettlement):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrDescriptionTooLong),
		errors.Is(err, domain.ErrSymbolTooLong),
		errors.Is(err, domain.ErrInvalidDeadlines),
		errors.Is(err, domain.ErrZeroStake),
		errors.Is(err, domain.ErrStakeBelowMinimum),
		errors.Is(err, domain.ErrHashMismatch),
		errors.Is(err, domain.ErrUnknownParticipant):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnauthorizedOracle),
		errors.Is(err, domain.ErrUnauthorizedAuthority),
		errors.Is(err, domain.ErrInvalidSignature):
		status, msg = http.StatusForbidden, err.Error()
	}

	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "handler: "+fallback,
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeError(w, status, msg)
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0. An optional status parameter
// filters topics by lifecycle state.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	opts := domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}

	if v := q.Get("status"); v != "" {
		var status domain.TopicStatus
		if err := status.UnmarshalText([]byte(v)); err == nil {
			opts.Status = &status
		}
	}

	return opts
}

// pathTopicID extracts the {id} path parameter as a topic ID.
func pathTopicID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(r.PathValue("id"), 10, 64)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
