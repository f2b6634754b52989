package bulkload

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
)

func TestWaitingLinkSourceStreamsLegacyRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	domain := "a.com"
	noneDomain := "None"
	priority := 2.5
	mock.ExpectQuery("SELECT link, domain, priority FROM waiting_link").
		WillReturnRows(pgxmock.NewRows([]string{"link", "domain", "priority"}).
			AddRow("https://a.com/1", &domain, &priority).
			AddRow("  https://b.com/2  ", &noneDomain, nil).
			AddRow("https://c.com/3", nil, nil))

	src, err := NewWaitingLinkSource(context.Background(), mock)
	require.NoError(t, err)
	defer func() { require.NoError(t, src.Close()) }()

	var rows []Row
	for {
		row, ok := src.Next(context.Background())
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	require.NoError(t, src.Err())
	require.Len(t, rows, 3)

	require.Equal(t, "https://a.com/1", rows[0].ID)
	require.Equal(t, "a.com", rows[0].Domain)
	require.Equal(t, 2.5, rows[0].Priority)
	require.Equal(t, frontier.StatusWaiting, rows[0].Status)

	// Sentinel domain and nullable priority degrade gracefully.
	require.Equal(t, "https://b.com/2", rows[1].ID)
	require.Empty(t, rows[1].Domain)
	require.Zero(t, rows[1].Priority)

	require.Empty(t, rows[2].Domain)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWordSourceMapsLegacyStatuses(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	parent := "flour"
	mock.ExpectQuery("SELECT word, parent, priority, status FROM word").
		WillReturnRows(pgxmock.NewRows([]string{"word", "parent", "priority", "status"}).
			AddRow("bread", &parent, nil, "WAITING_FOR_SEARCH").
			AddRow("stale", nil, nil, "NOT_A_STATUS"))

	src, err := NewWordSource(context.Background(), mock)
	require.NoError(t, err)
	defer func() { require.NoError(t, src.Close()) }()

	row, ok := src.Next(context.Background())
	require.True(t, ok)
	require.Equal(t, frontier.KindWord, row.Kind)
	require.Equal(t, "bread", row.ID)
	require.Equal(t, "flour", row.Parent)
	require.Equal(t, frontier.StatusWaiting, row.Status)

	// Unknown legacy statuses come through empty; the loader skips them.
	row, ok = src.Next(context.Background())
	require.True(t, ok)
	require.Empty(t, row.Status)

	_, ok = src.Next(context.Background())
	require.False(t, ok)
	require.NoError(t, src.Err())
	require.NoError(t, mock.ExpectationsWereMet())
}
