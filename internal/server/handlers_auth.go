package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"fieldguard/internal/auth"
	"fieldguard/internal/totp"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.rlLoginIP.allow(clientIP(r)) {
		tooMany(w, 60)
		return
	}

	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Username)
	}
	if identifier == "" || !s.rlLoginID.allow(identifier) {
		if identifier != "" {
			tooMany(w, 300)
			return
		}
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	u, err := s.users.FindByUID(r.Context(), identifier)
	if err != nil {
		u, err = s.users.FindByEmail(r.Context(), identifier)
	}
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	ok, err := auth.VerifyPassword(req.Password, u.PassHash)
	if err != nil || !ok {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	// Base token: password only, no step-up signal.
	tok, exp, err := s.signer.IssueToken(u.UID, map[string]any{"amr": []string{"pwd"}})
	if err != nil {
		http.Error(w, "token issue failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, auth.LoginResponse{Token: tok, ExpiresAt: exp})
}

// handleStepUp exchanges a base token plus a valid TOTP code for a token
// carrying amr ["pwd","otp"], which satisfies the pipeline's step-up stage.
func (s *Server) handleStepUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pr, err := s.signer.Verify(r.Context(), bearerToken(r))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if !s.rlStepUp.allow(pr.UID) {
		tooMany(w, 120)
		return
	}

	var req auth.StepUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	u, err := s.users.FindByUID(r.Context(), pr.UID)
	if err != nil || u.TOTPSecret == "" {
		http.Error(w, "step-up not available", http.StatusForbidden)
		return
	}
	if !totp.Verify(req.Code, u.TOTPSecret, time.Now()) {
		http.Error(w, "invalid code", http.StatusForbidden)
		return
	}

	tok, exp, err := s.signer.IssueToken(u.UID, map[string]any{"amr": []string{"pwd", "otp"}})
	if err != nil {
		http.Error(w, "token issue failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, auth.LoginResponse{Token: tok, ExpiresAt: exp})
}
