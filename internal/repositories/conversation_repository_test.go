package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conversationRows(id, user1, user2 int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user1_id", "user2_id", "created_at"}).
		AddRow(id, user1, user2, time.Now())
}

func TestFindOrCreateInsertsNewConversation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepo(db)

	mock.ExpectQuery(`INSERT INTO conversations`).
		WithArgs(1, 2).
		WillReturnRows(conversationRows(3, 1, 2))

	conv, created, err := repo.FindOrCreate(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 3, conv.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrCreateReturnsExistingOnConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepo(db)

	mock.ExpectQuery(`INSERT INTO conversations`).
		WithArgs(1, 2).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT id, user1_id, user2_id, created_at FROM conversations WHERE user1_id`).
		WithArgs(1, 2).
		WillReturnRows(conversationRows(3, 1, 2))

	conv, created, err := repo.FindOrCreate(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 3, conv.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrCreateWithSelf(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewConversationRepo(db)

	_, _, err := repo.FindOrCreate(context.Background(), 1, 1)
	require.Error(t, err)
}

func TestGetConversationNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepo(db)

	mock.ExpectQuery(`SELECT id, user1_id, user2_id, created_at FROM conversations WHERE id`).
		WithArgs(9).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 9)
	require.ErrorIs(t, err, ErrConversationNotFound)
}

func TestIsParticipant(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepo(db)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM conversations`).
		WithArgs(3, 1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.IsParticipant(context.Background(), 3, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListForUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepo(db)

	rows := sqlmock.NewRows([]string{"id", "peer_id", "first_name", "last_name", "avatar", "status", "created_at"}).
		AddRow(3, 2, "Ada", "Lovelace", "", "Offline", time.Now())
	mock.ExpectQuery(`FROM conversations c`).
		WithArgs(1).
		WillReturnRows(rows)

	list, err := repo.ListForUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].ConversationID)
	assert.Equal(t, 2, list[0].PeerID)
}
