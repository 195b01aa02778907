package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrEthical07/clinicauth"
	"github.com/MrEthical07/clinicauth/account"
	"github.com/MrEthical07/clinicauth/device"
	"github.com/MrEthical07/clinicauth/jwt"
	"github.com/MrEthical07/clinicauth/middleware"
)

const defaultMaxBody = 1 << 16

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	limit := s.cfg.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBody
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(v); err != nil {
		badRequest(w, "invalid_json")
		return false
	}
	return true
}

/*
====================================
LOGIN & OTP
====================================
*/

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.engine.LoginWithPassword(r.Context(), roleFrom(r), req.Email, req.Password)
	if errors.Is(err, clinicauth.ErrPasswordlessAccount) && s.magicLinkFallback {
		writeJSON(w, http.StatusAccepted, loginResponse{MagicLinkSent: true})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if res.RequiresOTP {
		token, expires, err := s.challenges.Issue(res.UserID, res.Role.String(), res.DeviceID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.setChallengeCookie(w, token, expires)
		writeJSON(w, http.StatusOK, loginResponse{RequiresOTP: true})
		return
	}

	s.respondSession(w, res)
}

// challenge reads the pending OTP login for the role in the path.
func (s *Server) challenge(w http.ResponseWriter, r *http.Request) (*jwt.ChallengeClaims, bool) {
	c, err := r.Cookie(ChallengeCookie)
	if err != nil || c.Value == "" {
		unauthorized(w)
		return nil, false
	}

	claims, err := s.challenges.Parse(c.Value, roleFrom(r).String())
	if err != nil {
		s.clearChallengeCookie(w)
		if errors.Is(err, jwt.ErrChallengeExpired) {
			writeJSON(w, http.StatusGone, errorBody{Error: "challenge_expired"})
			return nil, false
		}
		unauthorized(w)
		return nil, false
	}
	return claims, true
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.challenge(w, r)
	if !ok {
		return
	}
	var req otpVerifyRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.engine.VerifyOTPAndLogin(r.Context(), roleFrom(r), claims.UID, req.Code)
	if err != nil {
		if errors.Is(err, clinicauth.ErrOTPAttemptsExceeded) {
			s.clearChallengeCookie(w)
		}
		s.writeError(w, r, err)
		return
	}

	s.clearChallengeCookie(w)
	s.respondSession(w, res)
}

func (s *Server) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.challenge(w, r)
	if !ok {
		return
	}
	if err := s.engine.ResendOTP(r.Context(), roleFrom(r), claims.UID); err != nil {
		s.writeError(w, r, err)
		return
	}
	token, expires, err := s.challenges.Issue(claims.UID, claims.Role, claims.DeviceID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.setChallengeCookie(w, token, expires)
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "sent"})
}

func (s *Server) respondSession(w http.ResponseWriter, res *clinicauth.LoginResult) {
	s.setSessionCookie(w, res)
	expires := res.SessionExpiresAt.UTC()
	writeJSON(w, http.StatusOK, loginResponse{
		UserID:    res.UserID,
		Role:      res.Role.String(),
		ExpiresAt: &expires,
	})
}

/*
====================================
MAGIC LINKS
====================================
*/

func (s *Server) handleSendMagicLink(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.SendMagicLink(r.Context(), roleFrom(r), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "sent"})
}

func (s *Server) handleVerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.VerifyMagicLink(r.Context(), roleFrom(r), r.URL.Query().Get("token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondSession(w, res)
}

/*
====================================
SESSIONS & DEVICES
====================================
*/

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	role := roleFrom(r)
	if token, ok := middleware.SessionToken(r, role); ok {
		if err := s.engine.Logout(r.Context(), role, token); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	s.clearSessionCookie(w, role)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		UserID:    sess.UserID,
		Role:      sess.Role.String(),
		Email:     sess.Email,
		Name:      sess.Name,
		ExpiresAt: sess.ExpiresAt.UTC(),
	})
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	devices, err := s.engine.ListDevices(r.Context(), sess.Role, sess.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if devices == nil {
		devices = []device.Device{}
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleForgetDevice(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	if err := s.engine.ForgetDevice(r.Context(), sess.Role, sess.UserID, chi.URLParam(r, "deviceID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/*
====================================
PASSWORD RESET
====================================
*/

// handleForgotPassword answers 202 whether or not the email exists.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.RequestPasswordReset(r.Context(), roleFrom(r), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "sent"})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !s.decode(w, r, &req) {
		return
	}
	role := roleFrom(r)
	if err := s.engine.ConfirmPasswordReset(r.Context(), role, req.Token, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.clearSessionCookie(w, role)
	w.WriteHeader(http.StatusNoContent)
}

/*
====================================
ADMIN
====================================
*/

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	var req inviteRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.engine.InviteAdmin(r.Context(), clinicauth.InviteRequest{
		Name:        req.Name,
		Email:       req.Email,
		InviterName: sess.Name,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inviteResponse{AdminID: res.AdminID, ExpiresAt: res.ExpiresAt.UTC()})
}

func (s *Server) handleValidateInvite(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	info, err := s.engine.ValidateAdminInvite(r.Context(), q.Get("token"), q.Get("email"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inviteResponse{
		AdminID:   info.AdminID,
		Name:      info.Name,
		Email:     info.Email,
		ExpiresAt: info.ExpiresAt.UTC(),
	})
}

func (s *Server) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req acceptInviteRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.AcceptAdminInvite(r.Context(), req.Token, req.Email, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResendInvite(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	if err := s.engine.ResendAdminInvite(r.Context(), chi.URLParam(r, "adminID"), sess.Name); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteInvite(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteAdminInvite(r.Context(), chi.URLParam(r, "adminID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !s.decode(w, r, &req) {
		return
	}
	role, err := account.ParseRole(req.Role)
	if err != nil {
		s.writeError(w, r, clinicauth.ErrInvalidRole)
		return
	}

	acct, err := s.engine.CreateAccount(r.Context(), clinicauth.CreateAccountRequest{
		Role:       role,
		Email:      req.Email,
		Name:       strings.TrimSpace(req.Name),
		Password:   req.Password,
		Attributes: req.Attributes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountResponse{
		ID:    acct.ID,
		Role:  acct.Role.String(),
		Email: acct.Email,
		Name:  acct.Name,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.engine.Health(r.Context())
	resp := healthResponse{
		Status:         "ok",
		RedisAvailable: h.RedisAvailable,
		RedisLatencyMS: h.RedisLatency.Milliseconds(),
	}
	status := http.StatusOK
	if !h.RedisAvailable {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
