package auth

import "time"

// Principal is the authenticated caller: built once per request by the
// token verifier and never mutated afterwards.
type Principal struct {
	UID    string
	Claims map[string]any
}

type LoginRequest struct {
	Username   string `json:"username"`
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type StepUpRequest struct {
	Code string `json:"code"`
}
