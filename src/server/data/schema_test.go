package data

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/secret-recovery/server/src/server/shamir"
)

const sampleDocument = `{
	"keys": {"n": 4, "k": 3},
	"1": {"base": "10", "value": "4"},
	"2": {"base": "2", "value": "111"},
	"3": {"base": 10, "value": "12"},
	"6": {"base": "4", "value": "213"},
	"comment": "not a share"
}`

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if doc.Keys != (Keys{N: 4, K: 3}) {
		t.Errorf("Keys = %+v, want n=4 k=3", doc.Keys)
	}
	want := []shamir.Share{
		{ID: "1", Base: "10", Value: "4"},
		{ID: "2", Base: "2", Value: "111"},
		{ID: "3", Base: "10", Value: "12"},
		{ID: "6", Base: "4", Value: "213"},
	}
	if !reflect.DeepEqual(doc.Shares, want) {
		t.Errorf("Shares = %+v, want %+v", doc.Shares, want)
	}

	res, err := doc.Reconstruct()
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if res.Secret != 3 {
		t.Errorf("Secret = %d, want 3", res.Secret)
	}
}

func TestParseDocument_MalformedShareIsDropped(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"keys":{"n":3,"k":2},"1":{"base":"10","value":"4"},"2":"oops","3":{"base":"10","value":"8"}}`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	res, err := doc.Reconstruct()
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if res.Secret != 2 {
		t.Errorf("Secret = %d, want 2", res.Secret)
	}
	if len(res.Dropped) != 1 || res.Dropped[0].ID != "2" {
		t.Errorf("Dropped = %v, want share 2", res.Dropped)
	}
}

func TestParseDocument_RepeatedShareKey(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"keys":{"n":3,"k":2},"1":{"base":"10","value":"3"},"2":{"base":"10","value":"5"},"1":{"base":"10","value":"99"}}`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	want := []shamir.Share{
		{ID: "1", Base: "10", Value: "3"},
		{ID: "1", Base: "10", Value: "99"},
		{ID: "2", Base: "10", Value: "5"},
	}
	if !reflect.DeepEqual(doc.Shares, want) {
		t.Fatalf("Shares = %+v, want both entries for key 1: %+v", doc.Shares, want)
	}

	res, err := doc.Reconstruct()
	if shamir.Stage(err) != shamir.StageDuplicateCoordinate {
		t.Fatalf("Reconstruct: secret = %d, err = %v, want duplicate coordinate", res.Secret, err)
	}
	rec := NewReconstruction(doc, res, err)
	if rec.Status != StatusFailed || rec.Secret != nil || rec.ShareID != "1" {
		t.Errorf("rec = %+v, want failed on share 1 with no secret", rec)
	}
}

func TestParseDocument_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"not json", `{`, "decoding share document"},
		{"missing keys", `{"1":{"base":"10","value":"4"}}`, `missing "keys"`},
		{"zero k", `{"keys":{"n":3,"k":0}}`, "invalid keys"},
		{"negative n", `{"keys":{"n":-1,"k":1}}`, "invalid keys"},
		{"repeated keys", `{"keys":{"n":3,"k":2},"keys":{"n":3,"k":1}}`, `duplicate "keys"`},
		{"not an object", `[1,2]`, "must be a JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestShareDocument_MarshalRoundTrip(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleDocument))
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	again, err := ParseDocument(b)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(doc, again) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", again, doc)
	}
}

func TestNewReconstruction(t *testing.T) {
	doc := ShareDocument{Keys: Keys{N: 4, K: 3}, Shares: []shamir.Share{
		{ID: "1", Base: "10", Value: "4"},
		{ID: "2", Base: "2", Value: "2"},
	}}
	res, err := doc.Reconstruct()
	rec := NewReconstruction(doc, res, err)

	if rec.Status != StatusFailed {
		t.Errorf("Status = %q, want %q", rec.Status, StatusFailed)
	}
	if rec.Stage != shamir.StageInsufficientShares {
		t.Errorf("Stage = %q, want %q", rec.Stage, shamir.StageInsufficientShares)
	}
	if rec.Secret != nil {
		t.Errorf("Secret = %d, want nil", *rec.Secret)
	}
	if len(rec.Dropped) != 1 || rec.Dropped[0].ShareID != "2" || rec.Dropped[0].Stage != shamir.StageDecode {
		t.Errorf("Dropped = %+v", rec.Dropped)
	}
	if rec.ID == "" {
		t.Error("ID is empty")
	}

	ok := NewReconstruction(doc, shamir.Result{Secret: 42}, nil)
	if ok.Status != StatusRecovered || ok.Secret == nil || *ok.Secret != 42 {
		t.Errorf("recovered record = %+v", ok)
	}
}

func TestEvaluate(t *testing.T) {
	rec, err := Evaluate([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec.Status != StatusRecovered || rec.Secret == nil || *rec.Secret != 3 {
		t.Errorf("rec = %+v, want recovered secret 3", rec)
	}
	sum := sha256.Sum256([]byte(sampleDocument))
	if rec.DocumentSHA256 != hex.EncodeToString(sum[:]) {
		t.Errorf("DocumentSHA256 = %q", rec.DocumentSHA256)
	}

	failed, err := Evaluate([]byte(`{"keys":{"n":4,"k":3},"1":{"base":"10","value":"4"}}`))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if failed.Status != StatusFailed || failed.DocumentSHA256 == "" {
		t.Errorf("failed = %+v", failed)
	}

	if _, err := Evaluate([]byte(`{`)); err == nil {
		t.Error("expected error for malformed document")
	}
}
