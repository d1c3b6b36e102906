package server

import "net/http"

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/health", s.handleHealth)

	s.mux.HandleFunc("/api/login", s.handleLogin)
	s.mux.HandleFunc("/api/login/stepup", s.handleStepUp)

	s.mux.HandleFunc("/api/employees", s.handleEmployees)
	s.mux.HandleFunc("/api/employees/", s.handleEmployeeByPath)
	s.mux.HandleFunc("/api/bank-accounts/", s.handleBankAccountByPath)
	s.mux.HandleFunc("/api/settings/", s.handleSettings)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
