package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldguard/internal/audit"
	"fieldguard/internal/auth"
	"fieldguard/internal/totp"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testPassword = "Seed-User-Passw0rd!"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, string) {
	t.Helper()
	t.Setenv("FIELDGUARD_SECRET_FINANCE", testSecret)
	t.Setenv("FIELDGUARD_SECRET_HR", testSecret)
	t.Setenv("FIELDGUARD_SECRET_SETTINGS", testSecret)

	totpSecret, err := totp.GenerateSecret()
	require.NoError(t, err)

	srv, err := New(context.Background(), Config{
		SeedUsers: []SeedUser{
			{
				UID:         "hr-admin",
				Email:       "hr@acme.example",
				Password:    testPassword,
				TenantRoles: map[string]string{"acme": "hr_admin"},
				TOTPSecret:  totpSecret,
			},
			{
				UID:         "fin-admin",
				Email:       "fin@acme.example",
				Password:    testPassword,
				TenantRoles: map[string]string{"acme": "finance_admin"},
				TOTPSecret:  totpSecret,
			},
			{
				UID:         "worker",
				Email:       "worker@acme.example",
				Password:    testPassword,
				TenantRoles: map[string]string{"acme": "staff"},
			},
		},
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = srv.Close(context.Background()) })
	return srv, ts, totpSecret
}

func login(t *testing.T, ts *httptest.Server, uid string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"identifier": uid, "password": testPassword})
	resp, err := http.Post(ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out auth.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Token
}

func stepUp(t *testing.T, ts *httptest.Server, token, totpSecret string) string {
	t.Helper()
	code, err := totp.Code(totpSecret, time.Now())
	require.NoError(t, err)
	body, _ := json.Marshal(map[string]string{"code": code})
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/login/stepup", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out auth.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Token
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestEmployeeWriteThenReadRoundTrip(t *testing.T) {
	srv, ts, _ := newTestServer(t)
	tok := login(t, ts, "hr-admin")

	resp, out := doJSON(t, http.MethodPut, ts.URL+"/api/employees/acme/e1", tok, map[string]any{
		"record": map[string]any{
			"firstName":               "Jo",
			"nationalInsuranceNumber": "AB123456C",
			"taxCode":                 "1257L",
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, out["encryptedFields"], "nationalInsuranceNumber")

	// What reached the store is ciphertext, not plaintext.
	raw, err := srv.records.Get(context.Background(), "tenants/acme/employees/e1")
	require.NoError(t, err)
	stored, _ := raw["nationalInsuranceNumber"].(string)
	assert.True(t, strings.HasPrefix(stored, "ENC:"), "stored value %q", stored)
	assert.Regexp(t, `^ENC:[A-Za-z0-9+/=]+$`, stored)

	resp, out = doJSON(t, http.MethodGet, ts.URL+"/api/employees/acme/e1", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "AB123456C", out["nationalInsuranceNumber"])
	assert.Equal(t, "Jo", out["firstName"])

	// Access events reached the audit chain, none with plaintext.
	time.Sleep(50 * time.Millisecond) // recorder is async
	entries := srv.AuditLog().Entries()
	require.NotEmpty(t, entries)
	assert.NoError(t, srv.AuditLog().Verify())
	for _, e := range entries {
		assert.Equal(t, audit.KindAccess, e.Kind)
	}
}

func TestMissingCredentialIsUnauthorized(t *testing.T) {
	_, ts, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/employees/acme/e1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStaffCannotReadEmployeeRecords(t *testing.T) {
	_, ts, _ := newTestServer(t)
	tok := login(t, ts, "worker")
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/employees/acme/e1", tok, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBankWriteRequiresStepUp(t *testing.T) {
	srv, ts, totpSecret := newTestServer(t)
	base := login(t, ts, "fin-admin")

	body := map[string]any{"record": map[string]any{
		"bankName":      "Example Bank",
		"accountNumber": "12345678",
		"sortCode":      "20-00-00",
	}}

	// Password-only token: denied, and exactly one MFA rejection recorded.
	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/api/bank-accounts/acme/b1", base, body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	time.Sleep(50 * time.Millisecond)
	var mfaEvents int
	for _, e := range srv.AuditLog().Entries() {
		if e.Kind == audit.KindMFARejected {
			mfaEvents++
		}
	}
	assert.Equal(t, 1, mfaEvents)

	// After step-up the same write succeeds.
	upgraded := stepUp(t, ts, base, totpSecret)
	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/api/bank-accounts/acme/b1", upgraded, body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out := doJSON(t, http.MethodGet, ts.URL+"/api/bank-accounts/acme/b1", upgraded, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "12345678", out["accountNumber"])
}

func TestEmployeeListReturnsProjectionsOnly(t *testing.T) {
	_, ts, _ := newTestServer(t)
	tok := login(t, ts, "hr-admin")

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/api/employees/acme/e1", tok, map[string]any{
		"record": map[string]any{
			"firstName":               "Jo",
			"department":              "Finance",
			"nationalInsuranceNumber": "AB123456C",
			"salary":                  54000,
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	worker := login(t, ts, "worker")
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/employees?tenant=acme", nil)
	req.Header.Set("Authorization", "Bearer "+worker)
	listResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var list []map[string]any
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	require.Len(t, list, 1)
	summary := list[0]["summary"].(map[string]any)
	assert.Equal(t, "Jo", summary["firstName"])
	assert.Equal(t, "Finance", summary["department"])
	_, hasNINO := summary["nationalInsuranceNumber"]
	assert.False(t, hasNINO)
	_, hasSalary := summary["salary"]
	assert.False(t, hasSalary)
}

func TestSettingsAreOwnerScoped(t *testing.T) {
	_, ts, _ := newTestServer(t)
	tok := login(t, ts, "worker")

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/api/settings/worker", tok, map[string]any{
		"record": map[string]any{
			"displayName":   "Worker",
			"personalEmail": "home@example.net",
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out := doJSON(t, http.MethodGet, ts.URL+"/api/settings/worker", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "home@example.net", out["personalEmail"])

	// Someone else's settings are off limits regardless of role.
	hr := login(t, ts, "hr-admin")
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/settings/worker", hr, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestMissingSecretIsServiceUnavailable(t *testing.T) {
	t.Setenv("FIELDGUARD_SECRET_HR", "")
	t.Setenv("FIELDGUARD_SECRET_FINANCE", testSecret)
	t.Setenv("FIELDGUARD_SECRET_SETTINGS", testSecret)

	srv, err := New(context.Background(), Config{
		SeedUsers: []SeedUser{{
			UID:         "hr-admin",
			Email:       "hr@acme.example",
			Password:    testPassword,
			TenantRoles: map[string]string{"acme": "hr_admin"},
		}},
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer srv.Close(context.Background())

	tok := login(t, ts, "hr-admin")
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/employees/acme/e1", tok, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	_, ts, _ := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"identifier": "worker", "password": "nope"})
	resp, err := http.Post(ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStepUpRejectsBadCode(t *testing.T) {
	_, ts, _ := newTestServer(t)
	tok := login(t, ts, "fin-admin")
	body, _ := json.Marshal(map[string]string{"code": "000000"})
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/login/stepup", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUnknownRecordIs404(t *testing.T) {
	_, ts, _ := newTestServer(t)
	tok := login(t, ts, "hr-admin")
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/employees/acme/no-such", tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRateLimiterAllows(t *testing.T) {
	// 2 events per second with burst 2.
	kl := newKeyedLimiter(2, 2, time.Minute)
	require.True(t, kl.allow("k"))
	require.True(t, kl.allow("k"))
	assert.False(t, kl.allow("k"))
	// A different key has its own bucket.
	assert.True(t, kl.allow(fmt.Sprintf("other-%d", time.Now().UnixNano())))
}
