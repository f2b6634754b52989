package frontier

import (
	"strings"
	"sync"
)

// Blacklist blocks links from entering the frontier. A link is blocked when
// its URL contains any of the configured substrings (which covers whole
// domains as well as path fragments).
type Blacklist struct {
	mu      sync.RWMutex
	entries []string
}

// NewBlacklist builds a Blacklist from the configured entries, dropping
// blanks.
func NewBlacklist(entries []string) *Blacklist {
	b := &Blacklist{}
	for _, e := range entries {
		e = strings.TrimSpace(strings.ToLower(e))
		if e != "" {
			b.entries = append(b.entries, e)
		}
	}
	return b
}

// Add registers a new blocked substring. Returns false if it was already
// present.
func (b *Blacklist) Add(entry string) bool {
	entry = strings.TrimSpace(strings.ToLower(entry))
	if entry == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entries {
		if e == entry {
			return false
		}
	}
	b.entries = append(b.entries, entry)
	return true
}

// Allowed reports whether the link may enter the frontier.
func (b *Blacklist) Allowed(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range b.entries {
		if strings.Contains(lower, e) {
			return false
		}
	}
	return true
}
