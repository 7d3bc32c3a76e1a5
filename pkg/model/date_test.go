package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateRoundTrip(t *testing.T) {
	task := Task{ID: "t1", Date: Date("2024-01-03")}

	b, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got Task
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Date != Date("2024-01-03") {
		t.Errorf("Expected date 2024-01-03, got %s", got.Date)
	}
}

func TestDateRejectsMalformedInput(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"03/01/2024"`), &d); err == nil {
		t.Error("expected an error for a non-canonical date, got nil")
	}
	if _, err := ParseDate("2024-13-40"); err == nil {
		t.Error("expected an error for an impossible date, got nil")
	}
}

func TestDateBefore(t *testing.T) {
	if !Date("2024-01-01").Before(Date("2024-01-03")) {
		t.Error("expected 2024-01-01 < 2024-01-03")
	}
	if Date("2024-01-03").Before(Date("2024-01-03")) {
		t.Error("expected Before to be strict")
	}
	if Date("2024-01-04").Before(Date("2024-01-03")) {
		t.Error("expected 2024-01-04 to not be before 2024-01-03")
	}
}

func TestNewDate(t *testing.T) {
	at := time.Date(2024, 2, 1, 23, 30, 0, 0, time.UTC)
	if got := NewDate(at); got != Date("2024-02-01") {
		t.Errorf("NewDate = %s, want 2024-02-01", got)
	}
}
