package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
)

// baseURL returns the server URL for integration tests. The tests run
// against a live server with auth disabled and are skipped unless
// TEST_SERVER_URL is set.
func baseURL(t *testing.T) string {
	t.Helper()
	u := os.Getenv("TEST_SERVER_URL")
	if u == "" {
		t.Skip("TEST_SERVER_URL not set")
	}
	return strings.TrimSuffix(u, "/")
}

func get(t *testing.T, path string) []byte {
	t.Helper()
	resp, err := http.Get(baseURL(t) + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("GET %s: reading body: %v", path, err)
	}
	return body
}

func getJSON(t *testing.T, path string, v any) {
	t.Helper()
	body := get(t, path)
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("GET %s: unmarshal: %v\nbody: %s", path, err, body)
	}
}

func postJSON(t *testing.T, path, body string, v any) int {
	t.Helper()
	resp, err := http.Post(baseURL(t)+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("POST %s: reading body: %v", path, err)
	}
	if v != nil {
		if err := json.Unmarshal(raw, v); err != nil {
			t.Fatalf("POST %s: unmarshal: %v\nbody: %s", path, err, raw)
		}
	}
	return resp.StatusCode
}

// ── Health ──

func TestHealth(t *testing.T) {
	var resp struct {
		Status string `json:"status"`
	}
	getJSON(t, "/health", &resp)
	if resp.Status != "ok" {
		t.Errorf("health status = %q, want %q", resp.Status, "ok")
	}
}

// ── Reconstructions ──

type reconstruction struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Secret  *int64 `json:"secret"`
	Stage   string `json:"stage"`
	ShareID string `json:"share_id"`
	Used    []struct {
		X int64 `json:"x"`
		Y int64 `json:"y"`
	} `json:"used"`
	Dropped []struct {
		ShareID string `json:"share_id"`
	} `json:"dropped"`
}

const testcase1 = `{
	"keys": {"n": 4, "k": 3},
	"1": {"base": "10", "value": "4"},
	"2": {"base": "2", "value": "111"},
	"3": {"base": "10", "value": "12"},
	"6": {"base": "4", "value": "213"}
}`

func TestReconstructions_Create(t *testing.T) {
	var rec reconstruction
	if status := postJSON(t, "/reconstructions", testcase1, &rec); status != http.StatusCreated {
		t.Fatalf("status = %d, want 201", status)
	}
	if rec.Status != "recovered" || rec.Secret == nil || *rec.Secret != 3 {
		t.Fatalf("rec = %+v, want recovered secret 3", rec)
	}
	if len(rec.Used) != 3 || rec.Used[0].X != 1 || rec.Used[2].X != 3 {
		t.Errorf("used = %+v, want x = 1, 2, 3", rec.Used)
	}

	var got reconstruction
	getJSON(t, "/reconstructions/"+rec.ID, &got)
	if got.ID != rec.ID || got.Secret == nil || *got.Secret != 3 {
		t.Errorf("GET by id = %+v", got)
	}

	var list []reconstruction
	getJSON(t, "/reconstructions", &list)
	found := false
	for _, r := range list {
		if r.ID == rec.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("reconstruction %s missing from list", rec.ID)
	}
}

func TestReconstructions_SixthDegreePolynomial(t *testing.T) {
	// f(x) = 79836264049851 + x^6, points x = 1..7 encoded in mixed bases.
	doc := `{"keys":{"n":7,"k":7}`
	for x := int64(1); x <= 7; x++ {
		y := int64(79836264049851)
		p := int64(1)
		for range 6 {
			p *= x
		}
		y += p
		doc += fmt.Sprintf(`,"%d":{"base":"16","value":"%x"}`, x, y)
	}
	doc += "}"

	var rec reconstruction
	if status := postJSON(t, "/reconstructions", doc, &rec); status != http.StatusCreated {
		t.Fatalf("status = %d, body = %+v", status, rec)
	}
	if rec.Secret == nil || *rec.Secret != 79836264049851 {
		t.Errorf("secret = %v, want 79836264049851", rec.Secret)
	}
}

func TestReconstructions_DroppedShare(t *testing.T) {
	doc := `{"keys":{"n":3,"k":2},"1":{"base":"10","value":"4"},"2":{"base":"2","value":"12"},"3":{"base":"10","value":"6"}}`
	var rec reconstruction
	if status := postJSON(t, "/reconstructions", doc, &rec); status != http.StatusCreated {
		t.Fatalf("status = %d", status)
	}
	if rec.Secret == nil || *rec.Secret != 3 {
		t.Errorf("secret = %v, want 3", rec.Secret)
	}
	if len(rec.Dropped) != 1 || rec.Dropped[0].ShareID != "2" {
		t.Errorf("dropped = %+v, want share 2", rec.Dropped)
	}
}

func TestReconstructions_InsufficientShares(t *testing.T) {
	doc := `{"keys":{"n":4,"k":3},"1":{"base":"10","value":"4"},"2":{"base":"10","value":"5"}}`
	var rec reconstruction
	if status := postJSON(t, "/reconstructions", doc, &rec); status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", status)
	}
	if rec.Status != "failed" || rec.Stage != "insufficient_shares" || rec.Secret != nil {
		t.Errorf("rec = %+v", rec)
	}
}

func TestReconstructions_InvalidDocument(t *testing.T) {
	if status := postJSON(t, "/reconstructions", `{"1":{"base":"10","value":"4"}}`, nil); status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

// ── 404 behavior ──

func TestReconstructions_NotFound(t *testing.T) {
	resp, err := http.Get(fmt.Sprintf("%s/reconstructions/nonexistent", baseURL(t)))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
