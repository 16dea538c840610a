package types

import (
	"strings"
	"testing"
	"time"
)

func TestValidateTitle(t *testing.T) {
	if err := ValidateTitle("Trip to Paris"); err != nil {
		t.Fatalf("valid title rejected: %v", err)
	}
	if err := ValidateTitle(strings.Repeat("x", MaxTitleLen)); err != nil {
		t.Fatalf("title at the limit rejected: %v", err)
	}
	if err := ValidateTitle(""); err == nil {
		t.Fatal("empty title accepted")
	}
	if err := ValidateTitle("   "); err == nil {
		t.Fatal("blank title accepted")
	}
	if err := ValidateTitle(strings.Repeat("x", MaxTitleLen+1)); err == nil {
		t.Fatal("oversized title accepted")
	}
}

func TestRecordPatchApply(t *testing.T) {
	rec := MemoryRecord{ID: "m1", Title: "Old", Description: "old", Timestamp: 42, Completed: false}

	done := true
	RecordPatch{Completed: &done}.Apply(&rec)
	if !rec.Completed || rec.Title != "Old" || rec.Description != "old" || rec.Timestamp != 42 {
		t.Fatalf("patch touched unexpected fields: %+v", rec)
	}

	title := "New"
	RecordPatch{Title: &title}.Apply(&rec)
	if rec.Title != "New" || !rec.Completed {
		t.Fatalf("patch result wrong: %+v", rec)
	}

	if !(RecordPatch{}).IsEmpty() {
		t.Fatal("zero patch must be empty")
	}
	if (RecordPatch{Title: &title}).IsEmpty() {
		t.Fatal("non-zero patch must not be empty")
	}
}

func TestIsLocal(t *testing.T) {
	if !(MemoryRecord{ID: "local_abc"}).IsLocal() {
		t.Fatal("local_ prefix not detected")
	}
	if (MemoryRecord{ID: "8f14e45f"}).IsLocal() {
		t.Fatal("persisted id flagged as local")
	}
}

func TestSessionExpired(t *testing.T) {
	ref := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var nilSess *Session
	if !nilSess.Expired(ref) {
		t.Fatal("nil session must read as expired")
	}
	live := &Session{ExpiresAt: ref.Add(time.Hour)}
	if live.Expired(ref) {
		t.Fatal("live session flagged expired")
	}
	stale := &Session{ExpiresAt: ref.Add(-time.Hour)}
	if !stale.Expired(ref) {
		t.Fatal("stale session not flagged expired")
	}
}
