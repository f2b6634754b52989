// Package frontier defines the core types and storage contracts for the
// crawl frontier: the set of links and candidate search words tracked
// through their lifecycle, prioritized per domain and budgeted per link.
package frontier

import (
	"errors"
	"net/url"
	"strings"
)

// Kind identifies the class of entity tracked by the frontier.
type Kind string

// Entity kinds persisted in the store namespaces.
const (
	KindLink   Kind = "link"
	KindWord   Kind = "word"
	KindRecipe Kind = "recipe"
)

// Status is the lifecycle state of a tracked entity.
type Status string

// Link statuses. A link enters at waiting and ends in one of the three
// terminal states; processing is held while a worker owns the link.
const (
	StatusWaiting          Status = "waiting"
	StatusProcessing       Status = "processing"
	StatusProcessed        Status = "processed"
	StatusDownloadFailed   Status = "download_failed"
	StatusExtractionFailed Status = "extraction_failed"
)

// Word statuses, mirroring the link machine with word-specific terminals.
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Terminal reports whether no further automatic transition leaves s.
func (s Status) Terminal() bool {
	switch s {
	case StatusProcessed, StatusDownloadFailed, StatusExtractionFailed,
		StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Failure reports whether s is a terminal failure state eligible for requeue.
func (s Status) Failure() bool {
	return s == StatusDownloadFailed || s == StatusExtractionFailed || s == StatusRejected
}

// ValidFor reports whether s belongs to the status machine for the kind.
func (s Status) ValidFor(kind Kind) bool {
	switch kind {
	case KindLink:
		switch s {
		case StatusWaiting, StatusProcessing, StatusProcessed,
			StatusDownloadFailed, StatusExtractionFailed:
			return true
		}
	case KindWord:
		switch s {
		case StatusWaiting, StatusProcessing, StatusPending,
			StatusApproved, StatusRejected:
			return true
		}
	}
	return false
}

// ParseStatus maps a stored string to a Status, rejecting unknown values.
func ParseStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case StatusWaiting, StatusProcessing, StatusProcessed,
		StatusDownloadFailed, StatusExtractionFailed,
		StatusPending, StatusApproved, StatusRejected:
		return s, true
	}
	return "", false
}

// Sentinel errors shared across store implementations and the coordinator.
var (
	// ErrNotFound signals that the referenced entity is not tracked.
	ErrNotFound = errors.New("frontier: entity not found")
	// ErrInvalidTransition signals an operation applied to an entity whose
	// current status does not permit it. It indicates a coordination bug
	// upstream and is never silently corrected.
	ErrInvalidTransition = errors.New("frontier: invalid status transition")
	// ErrCycle signals that a parent link would make the word graph cyclic.
	ErrCycle = errors.New("frontier: parent link would create a cycle")
	// ErrDepthExceeded signals a parent chain longer than the configured
	// maximum, which points at a corrupt chain.
	ErrDepthExceeded = errors.New("frontier: parent chain depth exceeded")
	// ErrUnavailable signals that the backing store could not be reached.
	// Operations fail whole; no partial state is committed.
	ErrUnavailable = errors.New("frontier: store unavailable")
	// ErrBlacklisted signals that the link's domain or URL is blocked from
	// entering the frontier.
	ErrBlacklisted = errors.New("frontier: link is blacklisted")
)

// Attribute field names shared with collaborators. Values are stored as
// opaque strings; semantic typing is the caller's responsibility.
const (
	FieldDomain           = "domain"
	FieldPriority         = "priority"
	FieldContentSize      = "content_size"
	FieldRemainingFollows = "remaining_follows"
	FieldParent           = "parent"
	FieldTitle            = "title"
)

// Item is one waiting entry popped from a domain queue.
type Item struct {
	Domain string
	ID     string
	Score  float64
}

// NormalizeParent maps legacy sentinel parent values ("None", "null", blank)
// to the absent relation. The bool is true when a real parent remains.
func NormalizeParent(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "", "none", "null", "nil":
		return "", false
	}
	return trimmed, true
}

// DomainOf derives the queue domain for a link URL: the lowercase host with
// any www prefix stripped. Returns empty for URLs without a usable host.
func DomainOf(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
