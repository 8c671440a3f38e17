package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
)

func TestMigrate(t *testing.T) {
	t.Run("fresh database", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer mockDB.Close()
		db := sqlx.NewDb(mockDB, "postgres")

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_meta").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT value FROM schema_meta").WillReturnError(sql.ErrNoRows)
		mock.ExpectBegin()
		for range schemaStatements {
			mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
		}
		mock.ExpectExec("INSERT INTO schema_meta").
			WithArgs(schemaVersion).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		assert.NoError(t, Migrate(context.Background(), db))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already current", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer mockDB.Close()
		db := sqlx.NewDb(mockDB, "postgres")

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_meta").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT value FROM schema_meta").
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(schemaVersion))

		assert.NoError(t, Migrate(context.Background(), db))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed statement rolls back", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer mockDB.Close()
		db := sqlx.NewDb(mockDB, "postgres")

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_meta").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT value FROM schema_meta").WillReturnError(sql.ErrNoRows)
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS members").WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err = Migrate(context.Background(), db)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "apply migration")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDBConfig_DSN(t *testing.T) {
	cfg := &DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "library", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=library sslmode=disable", cfg.DSN())
}
