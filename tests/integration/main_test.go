//go:build integration
// +build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHealthz(t *testing.T) {
	baseURL := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:5001")
	resp, err := http.Get(fmt.Sprintf("%s/healthz", baseURL))
	if err != nil {
		t.Fatalf("health check request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}
}

func TestSubjects(t *testing.T) {
	baseURL := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:5001")

	var out struct {
		Subjects []struct {
			ID            string `json:"id"`
			QuestionCount int    `json:"question_count"`
		} `json:"subjects"`
	}
	resp := doJSON(t, http.MethodGet, baseURL+"/v1/subjects", nil, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}
	if len(out.Subjects) == 0 {
		t.Fatal("expected bundled subjects")
	}
}
