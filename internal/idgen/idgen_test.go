package idgen

import (
	"strings"
	"testing"
)

func TestNew_LengthAndPrefix(t *testing.T) {
	for _, k := range []Kind{KindForm, KindRequest, KindBackup, ""} {
		id, err := New(k)
		if err != nil {
			t.Fatalf("New(%q) error: %v", k, err)
		}
		if !strings.HasPrefix(id, string(k)) {
			t.Errorf("New(%q) = %q, want prefix %q", k, id, k)
		}
		if wantLen := len(k) + Length; len(id) != wantLen {
			t.Errorf("New(%q) length = %d, want %d (id=%q)", k, len(id), wantLen, id)
		}
	}
}

func TestHelpers_RoundTripKind(t *testing.T) {
	for want, gen := range map[Kind]func() string{
		KindForm:    FormID,
		KindRequest: RequestID,
		KindBackup:  BackupID,
	} {
		for range 50 {
			id := gen()
			if got, ok := KindOf(id); !ok || got != want {
				t.Fatalf("KindOf(%q) = %q, %v; want %q", id, got, ok, want)
			}
		}
	}
}

func TestKindOf_Rejects(t *testing.T) {
	for _, id := range []string{
		"",
		"fm-",
		"fm-short",
		"fm-abcdefghijk", // one too long
		"fm-abc-efghij",  // dash is outside the alphabet
		"xx-abcdefghij",  // unknown kind
		"abcdefghij",     // no prefix
	} {
		if k, ok := KindOf(id); ok {
			t.Errorf("KindOf(%q) = %q, want rejection", id, k)
		}
	}
}

func TestNew_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := range count {
		id, err := New(KindRequest)
		if err != nil {
			t.Fatalf("New() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}
