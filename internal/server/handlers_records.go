package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"fieldguard/internal/guard"
)

// URL shapes:
//
//	GET  /api/employees?tenant={id}           list (projections)
//	GET  /api/employees/{tenant}/{id}         read (decrypted)
//	PUT  /api/employees/{tenant}/{id}         write (encrypted)
//	GET  /api/bank-accounts/{tenant}/{id}
//	PUT  /api/bank-accounts/{tenant}/{id}
//	GET  /api/settings/{userId}               self-service
//	PUT  /api/settings/{userId}
func (s *Server) handleEmployees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.dispatch(w, r, s.listEmployees, map[string]any{
		"tenantId": r.URL.Query().Get("tenant"),
	})
}

func (s *Server) handleEmployeeByPath(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := splitTenantResource(r.URL.Path, "/api/employees/")
	if !ok {
		http.Error(w, "bad path", http.StatusBadRequest)
		return
	}
	recordPath := "tenants/" + tenantID + "/employees/" + id
	s.handleRecordRW(w, r, recordPath, s.readEmployee, s.writeEmployee)
}

func (s *Server) handleBankAccountByPath(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := splitTenantResource(r.URL.Path, "/api/bank-accounts/")
	if !ok {
		http.Error(w, "bad path", http.StatusBadRequest)
		return
	}
	recordPath := "tenants/" + tenantID + "/bankAccounts/" + id
	s.handleRecordRW(w, r, recordPath, s.readBank, s.writeBank)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimPrefix(r.URL.Path, "/api/settings/")
	if userID == "" || strings.Contains(userID, "/") {
		http.Error(w, "bad path", http.StatusBadRequest)
		return
	}
	recordPath := "users/" + userID + "/settings"
	switch r.Method {
	case http.MethodGet:
		s.dispatch(w, r, s.readSettings, map[string]any{
			"userId":     userID,
			"recordPath": recordPath,
		})
	case http.MethodPut:
		rec, ok := decodeRecordBody(w, r)
		if !ok {
			return
		}
		s.dispatch(w, r, s.writeSettings, map[string]any{
			"userId":     userID,
			"recordPath": recordPath,
			"record":     rec,
		})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRecordRW(w http.ResponseWriter, r *http.Request, recordPath string, read, write guard.Protected) {
	switch r.Method {
	case http.MethodGet:
		s.dispatch(w, r, read, map[string]any{"recordPath": recordPath})
	case http.MethodPut:
		rec, ok := decodeRecordBody(w, r)
		if !ok {
			return
		}
		s.dispatch(w, r, write, map[string]any{
			"recordPath": recordPath,
			"record":     rec,
		})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// dispatch runs one precomposed protected operation. The guard pipeline owns
// everything from identity to key release; this function only adapts HTTP.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, op guard.Protected, body map[string]any) {
	if !s.rlGuarded.allow(clientIP(r)) {
		tooMany(w, 10)
		return
	}
	out, err := op(r.Context(), guard.Request{Token: bearerToken(r), Body: body})
	if err != nil {
		writeGuardError(w, err)
		return
	}
	writeJSON(w, out)
}

func decodeRecordBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var body struct {
		Record map[string]any `json:"record"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Record == nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return nil, false
	}
	return body.Record, true
}

func splitTenantResource(path, prefix string) (tenantID, id string, ok bool) {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
