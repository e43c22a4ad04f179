package auth

import (
	"strings"
	"testing"
	"time"
)

func newTestProfileTokens(t *testing.T) *ProfileTokens {
	t.Helper()
	pt, err := NewProfileTokens("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewProfileTokens: %v", err)
	}
	return pt
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewProfileTokens_ShortSecret(t *testing.T) {
	_, err := NewProfileTokens("short")
	if err == nil {
		t.Fatal("NewProfileTokens() should reject secrets shorter than 16 chars")
	}
}

func TestNewProfileID_Unique(t *testing.T) {
	a, b := NewProfileID(), NewProfileID()
	if a == "" || a == b {
		t.Errorf("NewProfileID() = %q, %q; want two distinct non-empty IDs", a, b)
	}
}

// =========================================================================
// ISSUE / VALIDATE
// =========================================================================

func TestIssue_LooksLikeJWT(t *testing.T) {
	pt := newTestProfileTokens(t)

	token, err := pt.Issue("profile-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if got := strings.Count(token, "."); got != 2 {
		t.Errorf("Issue() token has %d dots, want 2", got)
	}
}

func TestIssue_EmptyProfile(t *testing.T) {
	pt := newTestProfileTokens(t)
	if _, err := pt.Issue(""); err == nil {
		t.Fatal("Issue() should reject an empty profile ID")
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	pt := newTestProfileTokens(t)
	id := NewProfileID()

	token, err := pt.Issue(id)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := pt.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got != id {
		t.Errorf("Validate() = %q, want %q", got, id)
	}
}

func TestValidate_Expired(t *testing.T) {
	pt := newTestProfileTokens(t)

	token, err := pt.IssueWithDuration("profile-1", -time.Second)
	if err != nil {
		t.Fatalf("IssueWithDuration() error = %v", err)
	}
	if _, err := pt.Validate(token); err == nil {
		t.Fatal("Validate() should reject an expired token")
	}
}

func TestValidate_Tampered(t *testing.T) {
	pt := newTestProfileTokens(t)
	token, _ := pt.Issue("profile-1")

	tampered := token[:len(token)-3] + "xxx"
	if _, err := pt.Validate(tampered); err == nil {
		t.Fatal("Validate() should reject a tampered token")
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	pt1, _ := NewProfileTokens("correct-secret-32-chars-long!!!!")
	pt2, _ := NewProfileTokens("wrong-secret-32-chars-long!!!!!!")

	token, _ := pt1.Issue("profile-1")
	if _, err := pt2.Validate(token); err == nil {
		t.Fatal("Validate() should fail with a different secret")
	}
}

func TestValidate_Garbage(t *testing.T) {
	pt := newTestProfileTokens(t)
	for _, in := range []string{"", "not.a.jwt.token", "abc"} {
		if _, err := pt.Validate(in); err == nil {
			t.Errorf("Validate(%q) should fail", in)
		}
	}
}
