package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/site-cms-api/internal/models"
	"github.com/noah-isme/site-cms-api/pkg/jsondiff"
	"github.com/noah-isme/site-cms-api/pkg/jsonvalue"
)

var historyRowColumns = []string{"id", "config_key", "action", "value", "previous_value", "diff", "actor_id", "actor_username", "actor_role", "note", "source_path", "restored_from", "created_at"}

func mustObject(t *testing.T, raw string) *jsonvalue.Object {
	t.Helper()
	obj, err := jsonvalue.ParseObject([]byte(raw))
	require.NoError(t, err)
	return obj
}

func TestGetSiteConfigKeepsKeyOrder(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSiteConfigRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"key", "value", "updated_by", "created_at", "updated_at"}).
		AddRow("首页", []byte(`{"z":1,"a":{"zh-CN":"你好"}}`), nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, value, updated_by, created_at, updated_at FROM site_configs WHERE key = $1")).
		WithArgs("首页").
		WillReturnRows(rows)

	cfg, err := repo.Get(context.Background(), "首页")
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a"}, cfg.Value.Keys())
	assert.Nil(t, cfg.UpdatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSiteConfigNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSiteConfigRepository(db)

	mock.ExpectQuery("FROM site_configs WHERE key").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSaveFirstWriteRecordsNilPrevious(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSiteConfigRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM site_configs WHERE key = $1 FOR UPDATE")).
		WithArgs("测试").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO site_configs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO site_config_history").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	value := mustObject(t, `{"a":1}`)
	var seen *jsonvalue.Object
	called := false
	entry, err := repo.Save(context.Background(), "测试", value, nil, func(prev *jsonvalue.Object) (*models.SiteConfigHistory, error) {
		called = true
		seen = prev
		return &models.SiteConfigHistory{Action: models.HistoryActionUpdate, Diff: jsondiff.Compute(prev, value)}, nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Nil(t, seen)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "测试", entry.ConfigKey)
	assert.Nil(t, entry.PreviousValue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePassesPreviousValueToBuilder(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSiteConfigRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"a":1}`)))
	mock.ExpectExec("INSERT INTO site_configs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO site_config_history").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	next := mustObject(t, `{"a":2}`)
	entry, err := repo.Save(context.Background(), "测试", next, nil, func(prev *jsonvalue.Object) (*models.SiteConfigHistory, error) {
		require.NotNil(t, prev)
		return &models.SiteConfigHistory{Action: models.HistoryActionUpdate, Diff: jsondiff.Compute(prev, next)}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, jsonvalue.MustString(entry.PreviousValue))
	require.Len(t, entry.Diff, 1)
	assert.Equal(t, jsondiff.OpChange, entry.Diff[0].Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRollsBackWhenHistoryInsertFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSiteConfigRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO site_configs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO site_config_history").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.Save(context.Background(), "k", mustObject(t, `{}`), nil, func(*jsonvalue.Object) (*models.SiteConfigHistory, error) {
		return &models.SiteConfigHistory{Action: models.HistoryActionUpdate}, nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert site config history")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveStopsWhenBuilderFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSiteConfigRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	buildErr := errors.New("rejected")
	_, err := repo.Save(context.Background(), "k", mustObject(t, `{}`), nil, func(*jsonvalue.Object) (*models.SiteConfigHistory, error) {
		return nil, buildErr
	})
	assert.ErrorIs(t, err, buildErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListHistoryDecodesDiff(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSiteConfigRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(historyRowColumns).
		AddRow("h2", "测试", "update", []byte(`{"a":2}`), []byte(`{"a":1}`), []byte(`[{"op":"change","path":"a","before":1,"after":2}]`), nil, "root", "SUPERADMIN", nil, nil, nil, now).
		AddRow("h1", "测试", "update", []byte(`{"a":1}`), nil, []byte(`[{"op":"add","path":"a","after":1}]`), nil, "root", "SUPERADMIN", nil, nil, nil, now.Add(-time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta("FROM site_config_history WHERE config_key = $1 ORDER BY created_at DESC, id DESC LIMIT $2")).
		WithArgs("测试", 10).
		WillReturnRows(rows)

	entries, err := repo.ListHistory(context.Background(), "测试", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Nil(t, entries[1].PreviousValue)
	assert.Equal(t, `{"a":1}`, jsonvalue.MustString(entries[0].PreviousValue))
	require.Len(t, entries[1].Diff, 1)
	assert.Equal(t, jsondiff.OpAdd, entries[1].Diff[0].Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHistoryNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSiteConfigRepository(db)

	mock.ExpectQuery("FROM site_config_history WHERE id = ").WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetHistory(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
