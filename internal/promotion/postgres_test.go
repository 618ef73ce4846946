package promotion

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreGetReturnsNilOnNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := &PostgresStore{db: db}

	key := Key{PageSignature: "page1", FrameHash: "frame1", LabelKey: "submit-button"}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT primary_locator, alternates, strategy, success_count, failure_count")).
		WithArgs(key.PageSignature, key.FrameHash, key.LabelKey).
		WillReturnError(sql.ErrNoRows)

	r, err := store.get(key)
	require.NoError(t, err)
	require.Nil(t, r)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetScansRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := &PostgresStore{db: db}

	key := Key{PageSignature: "page1", FrameHash: "frame1", LabelKey: "submit-button"}
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"primary_locator", "alternates", "strategy", "success_count", "failure_count",
		"score", "confidence", "attrs", "last_success_ts", "last_failure_ts",
	}).AddRow("#submit", `["css:#submit"]`, "semantic", 3, 1, 0.8, 0.75, `{"id":"submit"}`, now, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT primary_locator, alternates, strategy, success_count, failure_count")).
		WithArgs(key.PageSignature, key.FrameHash, key.LabelKey).
		WillReturnRows(rows)

	r, err := store.get(key)
	require.NoError(t, err)
	require.NotNil(t, r)
	require.Equal(t, "#submit", r.PrimaryLocator)
	require.Equal(t, []string{"css:#submit"}, r.Alternates)
	require.Equal(t, 3, r.SuccessCount)
	require.Equal(t, "submit", r.ElementAttributesSnapshot["id"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreRecordSuccessInsertsNewRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := &PostgresStore{db: db}

	key := Key{PageSignature: "page1", FrameHash: "frame1", LabelKey: "submit-button"}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT primary_locator, alternates, strategy, success_count, failure_count")).
		WithArgs(key.PageSignature, key.FrameHash, key.LabelKey).
		WillReturnError(sql.ErrNoRows)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO promotions")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	r, err := store.RecordSuccess(key, "#submit", "semantic", map[string]string{"id": "submit"})
	require.NoError(t, err)
	require.Equal(t, 1, r.SuccessCount)
	require.InDelta(t, 0.1, r.Score, 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreFallbackChainDegeneratesToSingleRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := &PostgresStore{db: db}

	key := Key{PageSignature: "page1", FrameHash: "frame1", LabelKey: "submit-button"}
	rows := sqlmock.NewRows([]string{
		"primary_locator", "alternates", "strategy", "success_count", "failure_count",
		"score", "confidence", "attrs", "last_success_ts", "last_failure_ts",
	}).AddRow("#submit", `[]`, "semantic", 1, 0, 0.1, 1.0, `{}`, time.Now(), nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT primary_locator, alternates, strategy, success_count, failure_count")).
		WithArgs(key.PageSignature, key.FrameHash, key.LabelKey).
		WillReturnRows(rows)

	chain, err := store.FallbackChain(key, 3)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
