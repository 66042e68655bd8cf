package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/goliatone/go-carmarket/failure"
)

// MsgInvalidRequest is returned for bodies and parameters that cannot be decoded.
const MsgInvalidRequest = "Invalid request"

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Kind     string `json:"kind"`
	Category string `json:"category"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Detail   string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err through its categorized form. Errors that are not
// failures yet are normalized first.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *failure.Error
	if !errors.As(err, &fe) && !errors.As(failure.Normalize(err), &fe) {
		fe = failure.New(failure.KindUnknown, failure.MessageUnknown)
	}
	ge := fe.ToGoError()

	level := slog.LevelInfo
	if ge.Code >= http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("kind", string(fe.Kind)),
		slog.Int("status", ge.Code),
	)

	writeJSON(w, ge.Code, errorBody{Error: errorPayload{
		Kind:     ge.TextCode,
		Category: string(ge.Category),
		Code:     ge.Code,
		Message:  fe.Message,
		Detail:   fe.Detail,
	}})
}

func decodeBody(r *http.Request, dest any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return failure.Validation(MsgInvalidRequest, "body must be a JSON object: "+err.Error())
	}
	return nil
}
