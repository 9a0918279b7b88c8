package reviews

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const downloadTTL = 30 * time.Minute

type downloadEntry struct {
	path     string
	fileName string
	expires  time.Time
}

// DownloadStore maps single-purpose opaque tokens to staged artifact paths.
// Tokens expire after 30 minutes; expired entries are purged lazily.
type DownloadStore struct {
	mu      sync.Mutex
	entries map[string]downloadEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewDownloadStore constructs a DownloadStore with the default TTL.
func NewDownloadStore() *DownloadStore {
	return &DownloadStore{
		entries: make(map[string]downloadEntry),
		ttl:     downloadTTL,
		now:     time.Now,
	}
}

// Issue registers a staged file and returns a fresh token for it.
func (s *DownloadStore) Issue(path, fileName string) string {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	s.entries[token] = downloadEntry{
		path:     path,
		fileName: fileName,
		expires:  s.now().Add(s.ttl),
	}
	return token
}

// Resolve returns the path and suggested filename for a token. Unknown and
// expired tokens both report ok=false.
func (s *DownloadStore) Resolve(token string) (path, fileName string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, found := s.entries[token]
	if !found {
		return "", "", false
	}
	if s.now().After(entry.expires) {
		delete(s.entries, token)
		return "", "", false
	}
	return entry.path, entry.fileName, true
}

func (s *DownloadStore) purgeLocked() {
	now := s.now()
	for token, entry := range s.entries {
		if now.After(entry.expires) {
			delete(s.entries, token)
		}
	}
}
