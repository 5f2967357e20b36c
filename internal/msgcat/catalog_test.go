package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedCatalogRenders(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, k := range c.Keys() {
		if _, err := c.Render(k, map[string]any{"Max": 64, "GameID": 1, "Turn": "white", "Result": "1-0"}); err != nil {
			t.Fatalf("Render(%s): %v", k, err)
		}
	}
	if got := c.Text("ws.error.user_offline", nil); got != "User is offline" {
		t.Fatalf("user_offline = %q", got)
	}
	if got := c.Text("http.error.username_too_long", map[string]int{"Max": 64}); got != "Username must be at most 64 characters" {
		t.Fatalf("username_too_long = %q", got)
	}
}

func TestMissingKeyFallsBack(t *testing.T) {
	c := Default()
	if _, err := c.Render("nope.key", nil); err == nil {
		t.Fatalf("expected error for missing key")
	}
	if got := c.Text("nope.key", nil); got != "nope.key" {
		t.Fatalf("fallback = %q", got)
	}
	var nilCat *Catalog
	if got := nilCat.Text("a.b", nil); got != "a.b" {
		t.Fatalf("nil catalog fallback = %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("ws:\n  error:\n    user_offline: \"Joueur hors ligne\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("ws.error.user_offline", nil); got != "Joueur hors ligne" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.Text("ws.error.illegal_move", nil); got != "Illegal move" {
		t.Fatalf("default lost: %q", got)
	}
}

func TestDuplicateOverrideKeys(t *testing.T) {
	dir := t.TempDir()
	body := []byte("ws:\n  error:\n    illegal_move: \"x\"\n")
	_ = os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0o644)
	_ = os.WriteFile(filepath.Join(dir, "b.yml"), body, 0o644)
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestNonStringLeafRejected(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("ws:\n  limit: 3\n"), 0o644)
	if _, err := New(dir); err == nil {
		t.Fatalf("expected type error")
	}
}
