// Package testutil provides common test utilities and helpers for CareSignal tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BTreeMap/CareSignal/internal/models"
	"github.com/BTreeMap/CareSignal/internal/store"
)

// TestProfile returns a complete emergency profile.
func TestProfile() models.EmergencyProfile {
	return models.EmergencyProfile{
		SubjectName:   "Alex",
		SubjectPhone:  "+15550100000",
		GuardianName:  "Sam",
		GuardianPhone: "+15550101234",
		GuardianEmail: "sam@example.com",
	}
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = bytes.NewBuffer(MustMarshalJSON(t, body))
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// SeedTestData stores a profile and a short conversation for sessionID.
func SeedTestData(t *testing.T, st store.Store, sessionID string) {
	t.Helper()
	ctx := context.Background()

	if err := st.SaveProfile(ctx, sessionID, TestProfile()); err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}

	now := time.Now().UTC()
	msgs := []models.ChatMessage{
		{ID: sessionID + "-m1", Role: models.RoleUser, Content: "hi", Timestamp: now},
		{ID: sessionID + "-m2", Role: models.RoleAssistant, Content: "Hello! How are you feeling today?", Timestamp: now},
	}
	for _, m := range msgs {
		if err := st.AppendMessage(ctx, sessionID, m); err != nil {
			t.Fatalf("failed to seed message: %v", err)
		}
	}
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t *testing.T, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
