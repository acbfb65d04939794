package sql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"portfolio/backend/internal/domain"
)

func setupMockDB(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), newGormConfig())
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewStoreWithDB(gormDB), mock
}

var messageCols = []string{"id", "name", "email", "body", "is_read", "created_at"}

func TestStore_CreateMessage(t *testing.T) {
	ctx := context.Background()
	msg := &domain.Message{ID: "m1", Name: "Ann", Email: "ann@example.com", Body: "hello", CreatedAt: time.Now().UTC()}

	t.Run("success", func(t *testing.T) {
		store, mock := setupMockDB(t)
		mock.ExpectExec("INSERT INTO `contact_messages`").
			WillReturnResult(sqlmock.NewResult(1, 1))

		assert.NoError(t, store.CreateMessage(ctx, msg))
	})

	t.Run("duplicate entry", func(t *testing.T) {
		store, mock := setupMockDB(t)
		mock.ExpectExec("INSERT INTO `contact_messages`").
			WillReturnError(&gomysql.MySQLError{Number: mysqlDuplicateEntry, Message: "Duplicate entry 'm1'"})

		assert.ErrorIs(t, store.CreateMessage(ctx, msg), domain.ErrDuplicateID)
	})

	t.Run("bad connection", func(t *testing.T) {
		store, mock := setupMockDB(t)
		mock.ExpectExec("INSERT INTO `contact_messages`").
			WillReturnError(errors.New("invalid connection"))

		assert.ErrorIs(t, store.CreateMessage(ctx, msg), domain.ErrStoreUnavailable)
	})
}

func TestStore_ListMessages(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	store, mock := setupMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `contact_messages` WHERE is_read = \\? ORDER BY created_at DESC,id DESC").
		WillReturnRows(sqlmock.NewRows(messageCols).
			AddRow("m2", "Bob", "bob@example.com", "second", false, now).
			AddRow("m1", "Ann", "ann@example.com", "first", false, now.Add(-time.Hour)))

	unread := false
	list, err := store.ListMessages(ctx, domain.MessageFilter{Read: &unread})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "m2", list[0].ID)
	assert.Equal(t, "first", list[1].Body)
}

func TestStore_GetAndMarkRead(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("mark read returns fresh row", func(t *testing.T) {
		store, mock := setupMockDB(t)
		mock.ExpectExec("UPDATE `contact_messages` SET `is_read`=\\? WHERE id = \\?").
			WithArgs(true, "m1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT \\* FROM `contact_messages` WHERE id = \\?").
			WillReturnRows(sqlmock.NewRows(messageCols).AddRow("m1", "Ann", "ann@example.com", "hello", true, now))

		got, err := store.MarkMessageRead(ctx, "m1")
		require.NoError(t, err)
		assert.True(t, got.Read)
	})

	t.Run("missing message", func(t *testing.T) {
		store, mock := setupMockDB(t)
		mock.ExpectExec("UPDATE `contact_messages` SET `is_read`=\\? WHERE id = \\?").
			WithArgs(true, "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT \\* FROM `contact_messages` WHERE id = \\?").
			WillReturnRows(sqlmock.NewRows(messageCols))

		_, err := store.MarkMessageRead(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestStore_DeleteMessage(t *testing.T) {
	ctx := context.Background()

	store, mock := setupMockDB(t)
	mock.ExpectExec("DELETE FROM `contact_messages` WHERE id = \\?").
		WithArgs("m1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `contact_messages` WHERE id = \\?").
		WithArgs("m1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.DeleteMessage(ctx, "m1"))
	assert.ErrorIs(t, store.DeleteMessage(ctx, "m1"), domain.ErrNotFound)
}

func TestStore_MessageStats(t *testing.T) {
	ctx := context.Background()
	dayStart := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	weekStart := dayStart.Add(-6 * 24 * time.Hour)

	store, mock := setupMockDB(t)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) AS total").
		WithArgs(false, dayStart, weekStart).
		WillReturnRows(sqlmock.NewRows([]string{"total", "unread", "today", "this_week"}).AddRow(5, 2, 1, 4))

	stats, err := store.MessageStats(ctx, dayStart, weekStart)
	require.NoError(t, err)
	assert.Equal(t, &domain.MessageStats{Total: 5, Unread: 2, Today: 1, ThisWeek: 4}, stats)
}

func TestStore_GetAdminByEmail(t *testing.T) {
	ctx := context.Background()

	store, mock := setupMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `admins` WHERE email = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at", "last_login_at"}))

	_, err := store.GetAdminByEmail(ctx, "Nobody@Example.com")
	assert.ErrorIs(t, err, domain.ErrAdminNotFound)
}

func TestNormalizeMySQLDSN(t *testing.T) {
	dsn, err := normalizeMySQLDSN("user:pass@tcp(localhost:3306)/portfolio")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")

	_, err = normalizeMySQLDSN("not a dsn")
	assert.Error(t, err)
}
