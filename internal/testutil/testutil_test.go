package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BTreeMap/CareSignal/internal/models"
	"github.com/BTreeMap/CareSignal/internal/store"
)

func TestAssertJSONResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.Body.Write(MustMarshalJSON(t, models.Success(map[string]string{"k": "v"})))

	resp := AssertJSONResponse(t, rr, "ok")
	result, ok := resp["result"].(map[string]interface{})
	if !ok || result["k"] != "v" {
		t.Errorf("unexpected result %+v", resp["result"])
	}
}

func TestCreateHTTPRequest(t *testing.T) {
	req := CreateHTTPRequest(t, http.MethodPut, "/sessions/s1/profile", TestProfile())
	if req.Method != http.MethodPut || req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("unexpected request %s %v", req.Method, req.Header)
	}
	data, _ := io.ReadAll(req.Body)
	var p models.EmergencyProfile
	MustUnmarshalJSON(t, data, &p)
	if p != TestProfile() {
		t.Errorf("body round trip mismatch: %+v", p)
	}

	empty := CreateHTTPRequest(t, http.MethodGet, "/health", nil)
	if empty.Header.Get("Content-Type") != "" {
		t.Error("GET without body should not set a content type")
	}
}

func TestSeedTestData(t *testing.T) {
	st := store.NewInMemoryStore()
	SeedTestData(t, st, "s1")

	p, _ := st.GetProfile(context.Background(), "s1")
	if p == nil || p.Validate() != nil {
		t.Errorf("expected valid seeded profile, got %+v", p)
	}
	msgs, _ := st.ListMessages(context.Background(), "s1")
	if len(msgs) != 2 {
		t.Errorf("expected 2 seeded messages, got %d", len(msgs))
	}
}

func TestAssertHTTPStatus(t *testing.T) {
	AssertHTTPStatus(t, http.StatusOK, http.StatusOK, "matching status codes")
}
