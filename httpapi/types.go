package httpapi

import "time"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpVerifyRequest struct {
	Code string `json:"code"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type inviteRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type acceptInviteRequest struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createAccountRequest struct {
	Role       string            `json:"role"`
	Email      string            `json:"email"`
	Name       string            `json:"name"`
	Password   string            `json:"password,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type loginResponse struct {
	UserID        string     `json:"user_id,omitempty"`
	Role          string     `json:"role,omitempty"`
	RequiresOTP   bool       `json:"requires_otp"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	MagicLinkSent bool       `json:"magic_link_sent,omitempty"`
}

type sessionResponse struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
}

type inviteResponse struct {
	AdminID   string    `json:"admin_id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type accountResponse struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type healthResponse struct {
	Status         string `json:"status"`
	RedisAvailable bool   `json:"redis_available"`
	RedisLatencyMS int64  `json:"redis_latency_ms"`
}

type statusResponse struct {
	Status string `json:"status"`
}
