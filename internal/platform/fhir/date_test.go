package fhir

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2023-03-06")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year() != 2023 || d.Month() != time.March || d.Day() != 6 {
		t.Errorf("unexpected date: %v", d)
	}

	if _, err := ParseDate("2023-03-06T10:00:00Z"); err == nil {
		t.Error("expected error for a datetime literal")
	}
	if _, err := ParseDate("not-a-date"); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d := NewDate(time.Date(2023, 3, 6, 0, 0, 0, 0, time.UTC))

	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `"2023-03-06"` {
		t.Errorf("unexpected literal: %s", raw)
	}

	var back Date
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.String() != "2023-03-06" {
		t.Errorf("round trip produced %s", back.String())
	}
}

func TestSplitReference(t *testing.T) {
	rt, id := SplitReference("Medication/abc-123")
	if rt != "Medication" || id != "abc-123" {
		t.Errorf("got %q/%q", rt, id)
	}

	rt, id = SplitReference("abc-123")
	if rt != "" || id != "abc-123" {
		t.Errorf("untyped reference: got %q/%q", rt, id)
	}
}

func TestFindExtension(t *testing.T) {
	exts := []Extension{
		{URL: "a", ValueString: "first"},
		{URL: "b", ValueString: "second"},
		{URL: "a", ValueString: "shadowed"},
	}
	if got := FindExtension(exts, "b"); got == nil || got.ValueString != "second" {
		t.Errorf("unexpected match: %+v", got)
	}
	if got := FindExtension(exts, "a"); got == nil || got.ValueString != "first" {
		t.Errorf("expected first match to win, got %+v", got)
	}
	if FindExtension(exts, "missing") != nil {
		t.Error("expected nil for a missing url")
	}
}
