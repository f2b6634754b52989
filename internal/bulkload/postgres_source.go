package bulkload

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
	"github.com/JakeFAU/crawl-frontier/internal/frontier/postgres"
)

// WaitingLinkSource streams the legacy waiting_link relational export:
// one row per link still awaiting download, all entering as waiting.
type WaitingLinkSource struct {
	rows pgx.Rows
	row  Row
	err  error
}

// NewWaitingLinkSource starts streaming the waiting_link table.
func NewWaitingLinkSource(ctx context.Context, pool postgres.Pool) (*WaitingLinkSource, error) {
	rows, err := pool.Query(ctx, `SELECT link, domain, priority FROM waiting_link;`)
	if err != nil {
		return nil, fmt.Errorf("query waiting_link: %w", err)
	}
	return &WaitingLinkSource{rows: rows}, nil
}

// Next advances to the next export row.
func (s *WaitingLinkSource) Next(_ context.Context) (Row, bool) {
	if s.err != nil {
		return Row{}, false
	}
	if !s.rows.Next() {
		s.err = s.rows.Err()
		return Row{}, false
	}
	var (
		link     string
		domain   *string
		priority *float64
	)
	if err := s.rows.Scan(&link, &domain, &priority); err != nil {
		s.err = fmt.Errorf("scan waiting_link row: %w", err)
		return Row{}, false
	}
	s.row = Row{
		Kind:   frontier.KindLink,
		ID:     strings.TrimSpace(link),
		Status: frontier.StatusWaiting,
	}
	if domain != nil {
		// Legacy rows carry literal "None" for unknown domains; the
		// coordinator re-derives those from the URL.
		if d, ok := frontier.NormalizeParent(*domain); ok {
			s.row.Domain = d
		}
	}
	if priority != nil {
		s.row.Priority = *priority
	}
	return s.row, true
}

// Err reports the first failure hit while streaming.
func (s *WaitingLinkSource) Err() error { return s.err }

// Close releases the underlying rows.
func (s *WaitingLinkSource) Close() error {
	s.rows.Close()
	return nil
}

// WordSource streams the legacy word table, including parent references
// with their historical "None" sentinels.
type WordSource struct {
	rows pgx.Rows
	err  error
}

// NewWordSource starts streaming the word table.
func NewWordSource(ctx context.Context, pool postgres.Pool) (*WordSource, error) {
	rows, err := pool.Query(ctx, `SELECT word, parent, priority, status FROM word;`)
	if err != nil {
		return nil, fmt.Errorf("query word: %w", err)
	}
	return &WordSource{rows: rows}, nil
}

// Next advances to the next export row.
func (s *WordSource) Next(_ context.Context) (Row, bool) {
	if s.err != nil {
		return Row{}, false
	}
	if !s.rows.Next() {
		s.err = s.rows.Err()
		return Row{}, false
	}
	var (
		word     string
		parent   *string
		priority *float64
		status   string
	)
	if err := s.rows.Scan(&word, &parent, &priority, &status); err != nil {
		s.err = fmt.Errorf("scan word row: %w", err)
		return Row{}, false
	}
	row := Row{
		Kind:   frontier.KindWord,
		ID:     strings.TrimSpace(word),
		Status: mapLegacyWordStatus(status),
	}
	if parent != nil {
		row.Parent = *parent
	}
	if priority != nil {
		row.Priority = *priority
	}
	return row, true
}

// Err reports the first failure hit while streaming.
func (s *WordSource) Err() error { return s.err }

// Close releases the underlying rows.
func (s *WordSource) Close() error {
	s.rows.Close()
	return nil
}

// mapLegacyWordStatus folds the historical WAITING_FOR_* pipeline states
// into the current word machine. Unknown states come back empty and the
// loader skips the row.
func mapLegacyWordStatus(raw string) frontier.Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "WAITING_FOR_GENERATION", "WAITING_FOR_CLASSIFICATION", "WAITING_FOR_SEARCH":
		return frontier.StatusWaiting
	case "GENERATING", "CLASSIFYING", "SEARCHING":
		return frontier.StatusProcessing
	case "SEARCH_COMPLETE", "GENERATION_COMPLETE":
		return frontier.StatusApproved
	case "CLASSIFIED_AS_INVALID":
		return frontier.StatusRejected
	}
	if status, ok := frontier.ParseStatus(strings.ToLower(strings.TrimSpace(raw))); ok {
		return status
	}
	return ""
}
