package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/honeypot-card-monitor/internal/domain/merchant"
)

func strPtr(s string) *string { return &s }

func merchantColumns() []string {
	return []string{"id", "acceptor_id", "descriptor", "city", "state", "country", "mcc", "category", "category_description", "created_at", "updated_at"}
}

func testMerchant() *merchant.Merchant {
	now := time.Now()
	return &merchant.Merchant{
		ID:                  uuid.New(),
		AcceptorID:          strPtr("acc_1"),
		Descriptor:          "COFFEE SHOP",
		City:                strPtr("Lisbon"),
		Country:             strPtr("PT"),
		MCC:                 strPtr("5812"),
		Category:            strPtr("Food & Drink"),
		CategoryDescription: strPtr("Eating places and restaurants"),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func merchantRow(m *merchant.Merchant) *pgxmock.Rows {
	return pgxmock.NewRows(merchantColumns()).
		AddRow(m.ID, m.AcceptorID, m.Descriptor, m.City, m.State, m.Country, m.MCC, m.Category, m.CategoryDescription, m.CreatedAt, m.UpdatedAt)
}

func TestMerchantRepository_GetByAcceptorID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MerchantRepository{querier: mock, logger: logger}

	query := `SELECT (.+) FROM merchants\s+WHERE acceptor_id = \$1`

	t.Run("found", func(t *testing.T) {
		expected := testMerchant()
		mock.ExpectQuery(query).
			WithArgs("acc_1").
			WillReturnRows(merchantRow(expected))

		m, err := repo.GetByAcceptorID(ctx, "acc_1")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, expected.ID, m.ID)
		assert.Equal(t, "COFFEE SHOP", m.Descriptor)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent yields nil without error", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("acc_missing").
			WillReturnError(pgx.ErrNoRows)

		m, err := repo.GetByAcceptorID(ctx, "acc_missing")
		assert.NoError(t, err)
		assert.Nil(t, m)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("acc_1").
			WillReturnError(errors.New("db error"))

		_, err := repo.GetByAcceptorID(ctx, "acc_1")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMerchantRepository_FindMatching(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MerchantRepository{querier: mock, logger: logger}

	query := `SELECT (.+) FROM merchants\s+WHERE descriptor = \$1`

	t.Run("exact tuple match including nulls", func(t *testing.T) {
		expected := testMerchant()
		expected.State = nil

		d := merchant.Descriptor{
			Descriptor: "COFFEE SHOP",
			City:       strPtr("Lisbon"),
			Country:    strPtr("PT"),
			MCC:        strPtr("5812"),
		}

		mock.ExpectQuery(query).
			WithArgs(d.Descriptor, d.City, d.State, d.Country, d.MCC).
			WillReturnRows(merchantRow(expected))

		matches, err := repo.FindMatching(ctx, d)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, expected.ID, matches[0].ID)
		assert.Nil(t, matches[0].State)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no matches yields empty slice", func(t *testing.T) {
		d := merchant.Descriptor{Descriptor: "NOWHERE"}
		mock.ExpectQuery(query).
			WithArgs(d.Descriptor, d.City, d.State, d.Country, d.MCC).
			WillReturnRows(pgxmock.NewRows(merchantColumns()))

		matches, err := repo.FindMatching(ctx, d)
		require.NoError(t, err)
		assert.Empty(t, matches)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("multiple matches are all returned", func(t *testing.T) {
		first := testMerchant()
		second := testMerchant()

		d := merchant.Descriptor{Descriptor: "COFFEE SHOP"}
		rows := pgxmock.NewRows(merchantColumns()).
			AddRow(first.ID, first.AcceptorID, first.Descriptor, first.City, first.State, first.Country, first.MCC, first.Category, first.CategoryDescription, first.CreatedAt, first.UpdatedAt).
			AddRow(second.ID, second.AcceptorID, second.Descriptor, second.City, second.State, second.Country, second.MCC, second.Category, second.CategoryDescription, second.CreatedAt, second.UpdatedAt)

		mock.ExpectQuery(query).
			WithArgs(d.Descriptor, d.City, d.State, d.Country, d.MCC).
			WillReturnRows(rows)

		matches, err := repo.FindMatching(ctx, d)
		require.NoError(t, err)
		assert.Len(t, matches, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMerchantRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MerchantRepository{querier: mock, logger: logger}
	m := testMerchant()

	query := `INSERT INTO merchants`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(m.ID, m.AcceptorID, m.Descriptor, m.City, m.State, m.Country, m.MCC, m.Category, m.CategoryDescription, m.CreatedAt, m.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, m)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(m.ID, m.AcceptorID, m.Descriptor, m.City, m.State, m.Country, m.MCC, m.Category, m.CategoryDescription, m.CreatedAt, m.UpdatedAt).
			WillReturnError(errors.New("db error"))

		err := repo.Create(ctx, m)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create merchant")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMerchantRepository_Update(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MerchantRepository{querier: mock, logger: logger}
	m := testMerchant()

	query := `UPDATE merchants`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(m.AcceptorID, m.Descriptor, m.City, m.State, m.Country, m.MCC, m.Category, m.CategoryDescription, m.UpdatedAt, m.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, m)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row yields typed not-found error", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(m.AcceptorID, m.Descriptor, m.City, m.State, m.Country, m.MCC, m.Category, m.CategoryDescription, m.UpdatedAt, m.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, m)
		require.Error(t, err)
		var notFound merchant.ErrMerchantNotFound
		assert.ErrorAs(t, err, &notFound)
		assert.Equal(t, m.ID, notFound.MerchantID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
