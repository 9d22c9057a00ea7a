package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, RentalsTable, RentalsColumns, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"rentals"}, RentalsColumns).WillReturnResult(2)

	rows := [][]any{
		{"https://x/1", "145 W 58th St", 4200.0, 1, nil, nil},
		{"https://x/2", "E 86th St", 3100.0, 0, 40.78, -73.95},
	}
	n, err := CopyFrom(context.Background(), mock, RentalsTable, RentalsColumns, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"staging", "rentals"}, []string{"url"}).WillReturnResult(1)

	n, err := CopyFrom(context.Background(), mock, "staging.rentals", []string{"url"}, [][]any{{"https://x/1"}})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"rentals"}, []string{"url"}).WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyFrom(context.Background(), mock, RentalsTable, []string{"url"}, [][]any{{"https://x/1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO rentals")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS rentals").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(fmt.Errorf("permission denied"))
	err = Migrate(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate rentals")
}

func TestConnect_NoURL(t *testing.T) {
	_, err := Connect(context.Background(), "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url is required")
}
