package resolver

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/honeypot-card-monitor/internal/domain/merchant"
)

// MockMerchantRepository for testing
type MockMerchantRepository struct {
	mock.Mock
}

func (m *MockMerchantRepository) GetByAcceptorID(ctx context.Context, acceptorID string) (*merchant.Merchant, error) {
	args := m.Called(ctx, acceptorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*merchant.Merchant), args.Error(1)
}

func (m *MockMerchantRepository) FindMatching(ctx context.Context, d merchant.Descriptor) ([]*merchant.Merchant, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*merchant.Merchant), args.Error(1)
}

func (m *MockMerchantRepository) Create(ctx context.Context, mc *merchant.Merchant) error {
	args := m.Called(ctx, mc)
	return args.Error(0)
}

func (m *MockMerchantRepository) Update(ctx context.Context, mc *merchant.Merchant) error {
	args := m.Called(ctx, mc)
	return args.Error(0)
}

func strPtr(s string) *string { return &s }

func storedMerchant() *merchant.Merchant {
	now := time.Now()
	return &merchant.Merchant{
		ID:         uuid.New(),
		AcceptorID: strPtr("acc_1"),
		Descriptor: "COFFEE SHOP",
		City:       strPtr("Lisbon"),
		Country:    strPtr("PT"),
		MCC:        strPtr("5812"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestResolver_AcceptorIDMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("unchanged sighting triggers no write", func(t *testing.T) {
		repo := &MockMerchantRepository{}
		r := NewResolver(repo, slog.Default())

		stored := storedMerchant()
		repo.On("GetByAcceptorID", mock.Anything, "acc_1").Return(stored, nil).Once()

		d := merchant.Descriptor{
			AcceptorID: strPtr("acc_1"),
			Descriptor: "COFFEE SHOP",
			City:       strPtr("Lisbon"),
			Country:    strPtr("PT"),
			MCC:        strPtr("5812"),
		}

		m, err := r.Resolve(ctx, d, "txn_1")
		require.NoError(t, err)
		assert.Equal(t, stored.ID, m.ID)
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("drifted sighting overwrites the stored row", func(t *testing.T) {
		repo := &MockMerchantRepository{}
		r := NewResolver(repo, slog.Default())

		stored := storedMerchant()
		repo.On("GetByAcceptorID", mock.Anything, "acc_1").Return(stored, nil).Once()
		repo.On("Update", mock.Anything, mock.MatchedBy(func(m *merchant.Merchant) bool {
			return m.ID == stored.ID && m.Descriptor == "COFFEE SHOP LX" && *m.City == "Porto"
		})).Return(nil).Once()

		d := merchant.Descriptor{
			AcceptorID: strPtr("acc_1"),
			Descriptor: "COFFEE SHOP LX",
			City:       strPtr("Porto"),
			Country:    strPtr("PT"),
			MCC:        strPtr("5812"),
		}

		m, err := r.Resolve(ctx, d, "txn_1")
		require.NoError(t, err)
		assert.Equal(t, stored.ID, m.ID)
		assert.Equal(t, "COFFEE SHOP LX", m.Descriptor)
		repo.AssertExpectations(t)
	})

	t.Run("update failure keeps the stale row and still resolves", func(t *testing.T) {
		repo := &MockMerchantRepository{}
		r := NewResolver(repo, slog.Default())

		stored := storedMerchant()
		repo.On("GetByAcceptorID", mock.Anything, "acc_1").Return(stored, nil).Once()
		repo.On("Update", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

		d := merchant.Descriptor{
			AcceptorID: strPtr("acc_1"),
			Descriptor: "DRIFTED",
		}

		m, err := r.Resolve(ctx, d, "txn_1")
		require.NoError(t, err)
		assert.Equal(t, stored.ID, m.ID)
		repo.AssertExpectations(t)
	})
}

func TestResolver_CombinationMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("single exact match resolves without a new row", func(t *testing.T) {
		repo := &MockMerchantRepository{}
		r := NewResolver(repo, slog.Default())

		stored := storedMerchant()
		stored.AcceptorID = nil

		d := merchant.Descriptor{
			Descriptor: "COFFEE SHOP",
			City:       strPtr("Lisbon"),
			Country:    strPtr("PT"),
			MCC:        strPtr("5812"),
		}

		repo.On("FindMatching", mock.Anything, d).Return([]*merchant.Merchant{stored}, nil).Once()

		m, err := r.Resolve(ctx, d, "txn_1")
		require.NoError(t, err)
		assert.Equal(t, stored.ID, m.ID)
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("match adopts a newly seen acceptor id", func(t *testing.T) {
		repo := &MockMerchantRepository{}
		r := NewResolver(repo, slog.Default())

		stored := storedMerchant()
		stored.AcceptorID = nil

		d := merchant.Descriptor{
			AcceptorID: strPtr("acc_new"),
			Descriptor: "COFFEE SHOP",
			City:       strPtr("Lisbon"),
			Country:    strPtr("PT"),
			MCC:        strPtr("5812"),
		}

		repo.On("GetByAcceptorID", mock.Anything, "acc_new").Return(nil, nil).Once()
		repo.On("FindMatching", mock.Anything, d).Return([]*merchant.Merchant{stored}, nil).Once()
		repo.On("Update", mock.Anything, mock.MatchedBy(func(m *merchant.Merchant) bool {
			return m.AcceptorID != nil && *m.AcceptorID == "acc_new"
		})).Return(nil).Once()

		m, err := r.Resolve(ctx, d, "txn_1")
		require.NoError(t, err)
		assert.Equal(t, stored.ID, m.ID)
		repo.AssertExpectations(t)
	})

	t.Run("tuple mismatch creates a new merchant", func(t *testing.T) {
		repo := &MockMerchantRepository{}
		r := NewResolver(repo, slog.Default())

		d := merchant.Descriptor{
			Descriptor: "COFFEE SHOP",
			City:       strPtr("Porto"),
			MCC:        strPtr("5812"),
		}

		repo.On("FindMatching", mock.Anything, d).Return([]*merchant.Merchant{}, nil).Once()
		repo.On("Create", mock.Anything, mock.MatchedBy(func(m *merchant.Merchant) bool {
			return m.Descriptor == "COFFEE SHOP" && *m.City == "Porto" && m.ID != uuid.Nil
		})).Return(nil).Once()

		m, err := r.Resolve(ctx, d, "txn_1")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "COFFEE SHOP", m.Descriptor)
		repo.AssertExpectations(t)
	})

	t.Run("ambiguous combination creates rather than guesses", func(t *testing.T) {
		repo := &MockMerchantRepository{}
		r := NewResolver(repo, slog.Default())

		d := merchant.Descriptor{Descriptor: "COFFEE SHOP"}

		first := storedMerchant()
		second := storedMerchant()
		repo.On("FindMatching", mock.Anything, d).Return([]*merchant.Merchant{first, second}, nil).Once()
		repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		m, err := r.Resolve(ctx, d, "txn_1")
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, m.ID)
		assert.NotEqual(t, second.ID, m.ID)
		repo.AssertExpectations(t)
	})
}

func TestResolver_Unresolvable(t *testing.T) {
	ctx := context.Background()

	t.Run("sentinel descriptor stays unlinked", func(t *testing.T) {
		repo := &MockMerchantRepository{}
		r := NewResolver(repo, slog.Default())

		m, err := r.Resolve(ctx, merchant.Descriptor{Descriptor: merchant.UnknownDescriptor}, "txn_1")
		require.NoError(t, err)
		assert.Nil(t, m)
		repo.AssertNotCalled(t, "FindMatching", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("empty descriptor stays unlinked", func(t *testing.T) {
		repo := &MockMerchantRepository{}
		r := NewResolver(repo, slog.Default())

		m, err := r.Resolve(ctx, merchant.Descriptor{}, "txn_1")
		require.NoError(t, err)
		assert.Nil(t, m)
	})
}

func TestResolver_Enrichment(t *testing.T) {
	ctx := context.Background()
	repo := &MockMerchantRepository{}
	r := NewResolver(repo, slog.Default())

	d := merchant.Descriptor{
		Descriptor: "COFFEE SHOP",
		MCC:        strPtr("5812"),
	}

	repo.On("FindMatching", mock.Anything, d).Return([]*merchant.Merchant{}, nil).Once()

	var created *merchant.Merchant
	repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*merchant.Merchant)
	}).Return(nil).Once()

	_, err := r.Resolve(ctx, d, "txn_1")
	require.NoError(t, err)
	require.NotNil(t, created)
	require.NotNil(t, created.Category)
	assert.Equal(t, "Food & Drink", *created.Category)
	require.NotNil(t, created.CategoryDescription)
	repo.AssertExpectations(t)
}

func TestResolver_LookupErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("acceptor lookup failure propagates", func(t *testing.T) {
		repo := &MockMerchantRepository{}
		r := NewResolver(repo, slog.Default())

		repo.On("GetByAcceptorID", mock.Anything, "acc_1").Return(nil, errors.New("db down")).Once()

		_, err := r.Resolve(ctx, merchant.Descriptor{AcceptorID: strPtr("acc_1"), Descriptor: "X"}, "txn_1")
		assert.Error(t, err)
	})

	t.Run("combination lookup failure propagates", func(t *testing.T) {
		repo := &MockMerchantRepository{}
		r := NewResolver(repo, slog.Default())

		repo.On("FindMatching", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()

		_, err := r.Resolve(ctx, merchant.Descriptor{Descriptor: "X"}, "txn_1")
		assert.Error(t, err)
	})
}
