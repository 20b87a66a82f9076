package masking

import "testing"

func TestMaskEmail(t *testing.T) {
	if got := MaskEmail("jane@example.com"); got != "j****@example.com" {
		t.Fatalf("expected j****@example.com, got %q", got)
	}
	if got := MaskEmail("nope"); got != "****" {
		t.Fatalf("expected ****, got %q", got)
	}
}

func TestMaskMetadata(t *testing.T) {
	out := MaskMetadata(map[string]any{
		"email":        "jane@example.com",
		"member_email": "bob@example.com",
		"status":       "APPROVED",
		"  ":           "dropped",
		"nested":       map[string]any{"token": "abcdefgh"},
	})

	if out["email"] != "j****@example.com" {
		t.Fatalf("expected masked email, got %v", out["email"])
	}
	if out["member_email"] != "b****@example.com" {
		t.Fatalf("expected masked member_email, got %v", out["member_email"])
	}
	if out["status"] != "APPROVED" {
		t.Fatalf("expected status untouched, got %v", out["status"])
	}
	if _, ok := out["  "]; ok {
		t.Fatalf("expected blank key dropped")
	}
	nested, ok := out["nested"].(map[string]any)
	if !ok || nested["token"] != "****efgh" {
		t.Fatalf("expected nested token masked, got %v", out["nested"])
	}
	if MaskMetadata(nil) != nil {
		t.Fatalf("expected nil for empty input")
	}
}
