package www

import (
	"encoding/json"
	"errors"
	"net/http"

	"tradecore/model"
)

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeErr maps domain errors to HTTP status codes.
func (h *Handlers) writeErr(w http.ResponseWriter, err error) {
	var (
		unknown    *model.UnknownNodeError
		duplicate  *model.DuplicateNodeError
		badOrder   *model.InvalidOrderDataError
		transition *model.InvalidTransitionError
		badAgr     *model.InvalidAgreementError
	)
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrNotFound), errors.As(err, &unknown):
		code = http.StatusNotFound
	case errors.As(err, &duplicate), errors.As(err, &transition):
		code = http.StatusConflict
	case errors.As(err, &badOrder), errors.As(err, &badAgr):
		code = http.StatusBadRequest
	default:
		h.log.Errorf("request failed: %v", err)
	}
	h.jsonError(w, err.Error(), code)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
