//go:build e2e

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/usersvc/usersvc/internal/testutil"
)

type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// TestE2EUserLifecycle runs against a live server started with a reachable
// database.
func TestE2EUserLifecycle(t *testing.T) {
	baseURL := envOrDefault("USERSVC_BASE_URL", "http://localhost:3000")

	if status := doJSON(t, http.MethodGet, baseURL+"/ready", nil, nil); status != http.StatusOK {
		t.Skipf("server at %s is not ready (status %d)", baseURL, status)
	}

	email := testutil.UniqueEmail("e2e")

	var created userResponse
	status := doJSON(t, http.MethodPost, baseURL+"/api/users", map[string]string{"name": "E2E", "email": email}, &created)
	if status != http.StatusCreated {
		t.Fatalf("create: status %d", status)
	}

	var dup errorResponse
	status = doJSON(t, http.MethodPost, baseURL+"/api/users", map[string]string{"name": "Dup", "email": email}, &dup)
	if status != http.StatusConflict || dup.Code != "EMAIL_EXISTS" {
		t.Errorf("duplicate create: status %d body %+v", status, dup)
	}

	userURL := fmt.Sprintf("%s/api/users/%d", baseURL, created.ID)

	var fetched userResponse
	if status := doJSON(t, http.MethodGet, userURL, nil, &fetched); status != http.StatusOK || fetched != created {
		t.Errorf("get: status %d, got %+v want %+v", status, fetched, created)
	}

	var updated userResponse
	newEmail := testutil.UniqueEmail("e2e-updated")
	status = doJSON(t, http.MethodPut, userURL, map[string]string{"name": "E2E Updated", "email": newEmail}, &updated)
	if status != http.StatusOK || updated.Email != newEmail {
		t.Errorf("update: status %d body %+v", status, updated)
	}

	if status := doJSON(t, http.MethodDelete, userURL, nil, nil); status != http.StatusNoContent {
		t.Errorf("delete: status %d", status)
	}

	var missing errorResponse
	if status := doJSON(t, http.MethodGet, userURL, nil, &missing); status != http.StatusNotFound || missing.Message != "User not found" {
		t.Errorf("get after delete: status %d body %+v", status, missing)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()

	var buf io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		buf = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Skipf("server not available: %v", err)
	}
	defer resp.Body.Close()

	if out != nil && resp.ContentLength != 0 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}

	return resp.StatusCode
}
