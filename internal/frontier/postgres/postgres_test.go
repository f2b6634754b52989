package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
)

func TestAttributeStoreSetAndGet(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewAttributeStore(mock)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO frontier_attributes").
		WithArgs(frontier.KindLink, "https://a.com/1", frontier.FieldTitle, "Bread").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, store.Set(ctx, frontier.KindLink, "https://a.com/1", frontier.FieldTitle, "Bread"))

	mock.ExpectQuery("SELECT value FROM frontier_attributes").
		WithArgs(frontier.KindLink, "https://a.com/1", frontier.FieldTitle).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("Bread"))
	value, ok, err := store.Get(ctx, frontier.KindLink, "https://a.com/1", frontier.FieldTitle)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Bread", value)

	mock.ExpectQuery("SELECT value FROM frontier_attributes").
		WithArgs(frontier.KindLink, "https://a.com/1", frontier.FieldParent).
		WillReturnRows(pgxmock.NewRows([]string{"value"}))
	_, ok, err = store.Get(ctx, frontier.KindLink, "https://a.com/1", frontier.FieldParent)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusIndexGetStatus(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	idx := NewStatusIndex(mock)
	ctx := context.Background()

	mock.ExpectQuery("SELECT status FROM frontier_statuses").
		WithArgs(frontier.KindLink, "https://a.com/1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("processing"))
	status, err := idx.GetStatus(ctx, frontier.KindLink, "https://a.com/1")
	require.NoError(t, err)
	require.Equal(t, frontier.StatusProcessing, status)

	mock.ExpectQuery("SELECT status FROM frontier_statuses").
		WithArgs(frontier.KindLink, "https://missing.com/").
		WillReturnRows(pgxmock.NewRows([]string{"status"}))
	_, err = idx.GetStatus(ctx, frontier.KindLink, "https://missing.com/")
	require.ErrorIs(t, err, frontier.ErrNotFound)

	mock.ExpectQuery("SELECT status FROM frontier_statuses").
		WithArgs(frontier.KindLink, "https://corrupt.com/").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("garbled"))
	_, err = idx.GetStatus(ctx, frontier.KindLink, "https://corrupt.com/")
	require.Error(t, err)
	require.False(t, errors.Is(err, frontier.ErrNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusIndexMembersStreamsRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	idx := NewStatusIndex(mock)

	mock.ExpectQuery("SELECT entity_id FROM frontier_statuses").
		WithArgs(frontier.KindWord, frontier.StatusWaiting).
		WillReturnRows(pgxmock.NewRows([]string{"entity_id"}).AddRow("bread").AddRow("flour"))

	it, err := idx.Members(context.Background(), frontier.KindWord, frontier.StatusWaiting)
	require.NoError(t, err)

	var ids []string
	for it.Next() {
		ids = append(ids, it.ID())
	}
	require.NoError(t, it.Err())
	require.NoError(t, it.Close())
	require.Equal(t, []string{"bread", "flour"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetLedgerDecrement(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ledger := NewBudgetLedger(mock, 2)
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO frontier_budgets").
		WithArgs("https://a.com/1", 2).
		WillReturnRows(pgxmock.NewRows([]string{"remaining"}).AddRow(1))
	remaining, err := ledger.Decrement(ctx, "https://a.com/1")
	require.NoError(t, err)
	require.Equal(t, 1, remaining)

	mock.ExpectQuery("SELECT remaining FROM frontier_budgets").
		WithArgs("https://never-seen.com/").
		WillReturnRows(pgxmock.NewRows([]string{"remaining"}))
	remaining, err = ledger.Remaining(ctx, "https://never-seen.com/")
	require.NoError(t, err)
	require.Equal(t, 2, remaining)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueuePopHighest(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	q := NewQueue(mock, frontier.KindLink)
	ctx := context.Background()

	mock.ExpectQuery("DELETE FROM frontier_queue").
		WithArgs(frontier.KindLink, "a.com").
		WillReturnRows(pgxmock.NewRows([]string{"entity_id", "score"}).AddRow("https://a.com/1", 3.5))
	item, ok, err := q.PopHighest(ctx, "a.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, frontier.Item{Domain: "a.com", ID: "https://a.com/1", Score: 3.5}, item)

	mock.ExpectQuery("DELETE FROM frontier_queue").
		WithArgs(frontier.KindLink, "a.com").
		WillReturnRows(pgxmock.NewRows([]string{"entity_id", "score"}))
	_, ok, err = q.PopHighest(ctx, "a.com")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueuePopAnyAdvancesCursor(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	q := NewQueue(mock, frontier.KindLink)
	ctx := context.Background()

	// First call: cursor empty, a.com is next and has work.
	mock.ExpectQuery("SELECT domain FROM frontier_queue").
		WithArgs(frontier.KindLink, "").
		WillReturnRows(pgxmock.NewRows([]string{"domain"}).AddRow("a.com"))
	mock.ExpectQuery("DELETE FROM frontier_queue").
		WithArgs(frontier.KindLink, "a.com").
		WillReturnRows(pgxmock.NewRows([]string{"entity_id", "score"}).AddRow("https://a.com/1", 1.0))

	item, ok, err := q.PopAny(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a.com", item.Domain)

	// Second call: rotation resumes after a.com.
	mock.ExpectQuery("SELECT domain FROM frontier_queue").
		WithArgs(frontier.KindLink, "a.com").
		WillReturnRows(pgxmock.NewRows([]string{"domain"}).AddRow("b.com"))
	mock.ExpectQuery("DELETE FROM frontier_queue").
		WithArgs(frontier.KindLink, "b.com").
		WillReturnRows(pgxmock.NewRows([]string{"entity_id", "score"}).AddRow("https://b.com/1", 1.0))

	item, ok, err = q.PopAny(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b.com", item.Domain)

	// Third call: nothing after b.com, wrap-around finds nothing either.
	mock.ExpectQuery("SELECT domain FROM frontier_queue").
		WithArgs(frontier.KindLink, "b.com").
		WillReturnRows(pgxmock.NewRows([]string{"domain"}))
	mock.ExpectQuery("SELECT domain FROM frontier_queue").
		WithArgs(frontier.KindLink, "").
		WillReturnRows(pgxmock.NewRows([]string{"domain"}))

	_, ok, err = q.PopAny(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWordGraphSetParentWalksChain(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	g := NewWordGraph(mock, 64)
	ctx := context.Background()

	// bread -> flour, flour is a root.
	mock.ExpectQuery("SELECT parent FROM frontier_word_parents").
		WithArgs("flour").
		WillReturnRows(pgxmock.NewRows([]string{"parent"}))
	mock.ExpectExec("INSERT INTO frontier_word_parents").
		WithArgs("bread", "flour").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, g.SetParent(ctx, "bread", "flour"))

	// flour -> bread would close the loop; nothing is written.
	mock.ExpectQuery("SELECT parent FROM frontier_word_parents").
		WithArgs("bread").
		WillReturnRows(pgxmock.NewRows([]string{"parent"}).AddRow("flour"))
	require.ErrorIs(t, g.SetParent(ctx, "flour", "bread"), frontier.ErrCycle)

	require.NoError(t, mock.ExpectationsWereMet())
}
