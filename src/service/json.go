package service

import (
	"encoding/json"
	"errors"
	"net/http"

	cm "github.com/peerbadge/badges/src/common"
	"github.com/peerbadge/badges/src/issuance"
	"github.com/peerbadge/badges/src/validation"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Required *int   `json:"required,omitempty"`
	Actual   *int   `json:"actual,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "BadRequest", Message: err.Error()})
		return false
	}
	return true
}

// writeError maps err to a status code. Validation failures are reported
// verbatim with their code.
func writeError(w http.ResponseWriter, err error) {
	if verr, ok := validation.As(err); ok {
		res := ErrorResponse{Error: verr.Code(), Message: verr.Message()}
		if verr.Type() == validation.InsufficientClaims {
			required, actual := verr.Required(), verr.Actual()
			res.Required, res.Actual = &required, &actual
		}
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}

	status, code := http.StatusInternalServerError, "InternalError"
	switch {
	case cm.IsStore(err, cm.KeyNotFound), cm.IsStore(err, cm.UnknownParticipant):
		status, code = http.StatusNotFound, "NotFound"
	case cm.IsStore(err, cm.KeyAlreadyExists):
		status, code = http.StatusConflict, "Conflict"
	case errors.Is(err, issuance.ErrWrongKind):
		status, code = http.StatusBadRequest, "WrongKind"
	case errors.Is(err, issuance.ErrNotRecipient):
		status, code = http.StatusForbidden, "NotRecipient"
	case errors.Is(err, issuance.ErrNoProvenance):
		status, code = http.StatusConflict, "NoProvenance"
	case errors.Is(err, issuance.ErrLegacyDisabled):
		status, code = http.StatusNotFound, "LegacyDisabled"
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: err.Error()})
}
