package reviews

import (
	"testing"
	"time"
)

func TestDownloadStoreIssueAndResolve(t *testing.T) {
	store := NewDownloadStore()
	token := store.Issue("/staging/reviewed_contract.docx", "reviewed_contract.docx")
	if token == "" {
		t.Fatal("empty token")
	}

	path, fileName, ok := store.Resolve(token)
	if !ok {
		t.Fatal("token did not resolve")
	}
	if path != "/staging/reviewed_contract.docx" || fileName != "reviewed_contract.docx" {
		t.Errorf("resolved %q %q", path, fileName)
	}

	if _, _, ok := store.Resolve("unknown-token"); ok {
		t.Error("unknown token resolved")
	}
}

func TestDownloadStoreTokensAreUnique(t *testing.T) {
	store := NewDownloadStore()
	a := store.Issue("/a", "a.docx")
	b := store.Issue("/a", "a.docx")
	if a == b {
		t.Error("expected distinct tokens for repeat issues")
	}
}

func TestDownloadStoreExpiry(t *testing.T) {
	now := time.Now()
	store := NewDownloadStore()
	store.now = func() time.Time { return now }

	token := store.Issue("/staging/file.docx", "file.docx")

	now = now.Add(29 * time.Minute)
	if _, _, ok := store.Resolve(token); !ok {
		t.Fatal("token expired early")
	}

	now = now.Add(2 * time.Minute)
	if _, _, ok := store.Resolve(token); ok {
		t.Fatal("token resolved past its TTL")
	}

	// Expired entries are purged on the next issue.
	store.Issue("/other", "other.docx")
	if len(store.entries) != 1 {
		t.Errorf("expected 1 live entry, got %d", len(store.entries))
	}
}
