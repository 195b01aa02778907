package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/clinicauth"
)

type errorBody struct {
	Error string `json:"error"`
}

type apiError struct {
	status int
	code   string
}

// errorTable is walked in order; the first sentinel matched by errors.Is wins.
var errorTable = []struct {
	err error
	apiError
}{
	{clinicauth.ErrInvalidCredentials, apiError{http.StatusUnauthorized, "invalid_credentials"}},
	{clinicauth.ErrSessionNotFound, apiError{http.StatusUnauthorized, "unauthorized"}},
	{clinicauth.ErrSessionExpired, apiError{http.StatusUnauthorized, "session_expired"}},
	{clinicauth.ErrOTPInvalid, apiError{http.StatusUnauthorized, "invalid_code"}},

	{clinicauth.ErrMagicLinkInvalid, apiError{http.StatusBadRequest, "invalid_token"}},
	{clinicauth.ErrInviteInvalid, apiError{http.StatusBadRequest, "invalid_token"}},
	{clinicauth.ErrPasswordResetInvalid, apiError{http.StatusBadRequest, "invalid_token"}},

	{clinicauth.ErrOTPExpired, apiError{http.StatusGone, "code_expired"}},
	{clinicauth.ErrMagicLinkExpired, apiError{http.StatusGone, "token_expired"}},
	{clinicauth.ErrInviteExpired, apiError{http.StatusGone, "token_expired"}},
	{clinicauth.ErrPasswordResetExpired, apiError{http.StatusGone, "token_expired"}},

	{clinicauth.ErrPasswordlessAccount, apiError{http.StatusConflict, "passwordless_account"}},
	{clinicauth.ErrInviteNotPending, apiError{http.StatusConflict, "invite_not_pending"}},
	{clinicauth.ErrInviteAlreadyAccepted, apiError{http.StatusConflict, "invite_already_accepted"}},
	{clinicauth.ErrAccountExists, apiError{http.StatusConflict, "account_exists"}},
	{clinicauth.ErrAccountNotFound, apiError{http.StatusNotFound, "not_found"}},
	{clinicauth.ErrDeviceNotFound, apiError{http.StatusNotFound, "not_found"}},
	{clinicauth.ErrPasswordPolicy, apiError{http.StatusUnprocessableEntity, "password_policy"}},
	{clinicauth.ErrInvalidRole, apiError{http.StatusBadRequest, "invalid_role"}},
	{clinicauth.ErrInvalidRequest, apiError{http.StatusBadRequest, "invalid_request"}},

	{clinicauth.ErrLoginRateLimited, apiError{http.StatusTooManyRequests, "too_many_requests"}},
	{clinicauth.ErrOTPResendCooldown, apiError{http.StatusTooManyRequests, "too_many_requests"}},
	{clinicauth.ErrOTPAttemptsExceeded, apiError{http.StatusTooManyRequests, "too_many_requests"}},
	{clinicauth.ErrPasswordResetRateLimited, apiError{http.StatusTooManyRequests, "too_many_requests"}},

	{clinicauth.ErrStoreUnavailable, apiError{http.StatusServiceUnavailable, "unavailable"}},
	{clinicauth.ErrLimiterUnavailable, apiError{http.StatusServiceUnavailable, "unavailable"}},
}

func classify(err error) apiError {
	for _, entry := range errorTable {
		if errors.Is(err, entry.err) {
			return entry.apiError
		}
	}
	return apiError{http.StatusInternalServerError, "internal_error"}
}

// writeError maps an engine error to a status and a fixed code. Causes are
// logged for 5xx responses only and never reach the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := classify(err)
	if ae.status >= http.StatusInternalServerError {
		s.logger.Printf("clinicauth: %s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, ae.status, errorBody{Error: ae.code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, code string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: code})
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
}
