//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

type sessionView struct {
	SessionID     string `json:"session_id"`
	CurrentIndex  int    `json:"current_index"`
	QuestionCount int    `json:"question_count"`
	Phase         string `json:"phase"`
	Question      *struct {
		Index   int      `json:"index"`
		Text    string   `json:"q"`
		Options []string `json:"options"`
	} `json:"question"`
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

var client = &http.Client{Timeout: 10 * time.Second}

// doJSON sends payload (if any) and decodes a JSON response into out (if any).
func doJSON(t *testing.T, method, url string, payload, out interface{}) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := os.Getenv("INTEGRATION_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func startSubjectSession(t *testing.T, baseURL, subjectID, userID string) sessionView {
	t.Helper()

	var view sessionView
	resp := doJSON(t, http.MethodPost, baseURL+"/v1/sessions", map[string]interface{}{
		"subject_id": subjectID,
		"user_id":    userID,
	}, &view)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected start status: %d", resp.StatusCode)
	}
	if view.SessionID == "" || view.Question == nil {
		t.Fatalf("start response missing session id or question: %+v", view)
	}
	return view
}
