package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"loyalty-agent/internal/common/database"
	apperrors "loyalty-agent/internal/common/errors"
	"loyalty-agent/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFiles(t *testing.T) {
	s, err := LoadFiles("testdata/customers.json", "testdata/transactions.json")
	require.NoError(t, err)

	assert.Equal(t, 3, s.CustomerCount())
	assert.Equal(t, 4, s.TransactionCount())
	assert.Equal(t, []string{"CUST000000", "CUST000001", "CUST000002"}, s.CustomerIDs())

	c, ok := s.Customer("CUST000000")
	require.True(t, ok)
	assert.Equal(t, "Gold", c.LoyaltyTier)
	assert.Equal(t, "2025-05-20", c.LastPurchaseDate.String())

	_, ok = s.Customer("NOPE")
	assert.False(t, ok)
}

func TestTransactions_CompletedOnly(t *testing.T) {
	s, err := LoadFiles("testdata/customers.json", "testdata/transactions.json")
	require.NoError(t, err)

	txns := s.Transactions("CUST000000")
	require.Len(t, txns, 1)
	assert.Equal(t, "TXN00000000", txns[0].TransactionID)

	assert.Empty(t, s.Transactions("CUST000001"), "failed transactions are excluded")
	assert.Empty(t, s.Transactions("UNKNOWN"))
}

func TestLoadFiles_Failures(t *testing.T) {
	tests := []struct {
		name         string
		customers    string
		transactions string
		wantDetail   string
	}{
		{"missing customers file", "testdata/absent.json", "testdata/transactions.json", "absent.json"},
		{"missing transactions file", "testdata/customers.json", "testdata/absent.json", "absent.json"},
		{"malformed json", "testdata/malformed.json", "testdata/transactions.json", "malformed.json"},
		{"schema violation", "testdata/customers_invalid.json", "testdata/transactions.json", "schema violations"},
		{"orphan transaction", "testdata/customers.json", "testdata/transactions_orphan.json", "unknown customer CUST999999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := LoadFiles(tt.customers, tt.transactions)
			require.Error(t, err)
			assert.Nil(t, s)
			assert.True(t, errors.Is(err, apperrors.ErrDataLoadFailed))
			assert.Contains(t, err.Error(), tt.wantDetail)
		})
	}
}

func TestNew_DuplicateCustomer(t *testing.T) {
	customers := []models.Customer{{CustomerID: "A"}, {CustomerID: "A"}}
	_, err := New("test", customers, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate customer_id A")
}

func TestLoadPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	registered := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	last := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT customer_id, segment, loyalty_tier`).
		WillReturnRows(sqlmock.NewRows([]string{
			"customer_id", "segment", "loyalty_tier", "registration_date", "last_purchase_date",
			"total_purchases", "avg_order_value", "lifetime_value", "purchase_frequency",
			"preferred_categories", "engagement_score", "churn_risk", "contact_email", "is_active",
		}).
			AddRow("CUST000000", "Premium", "Gold", registered, last, 90, 1500.0, 135000.0, 2.5,
				"{Electronics,Books}", 80.0, 0.2, "cust000000@example.com", true).
			AddRow("CUST000001", "New", "Standard", registered, last, 1, 50.0, 50.0, 0.1,
				"{}", 5.0, nil, nil, true))

	mock.ExpectQuery(`SELECT transaction_id, customer_id, created_at`).
		WillReturnRows(sqlmock.NewRows([]string{
			"transaction_id", "customer_id", "created_at", "product_category", "product_name",
			"quantity", "original_amount", "discount_applied", "discount_amount",
			"final_amount", "payment_method", "status",
		}).
			AddRow("TXN00000000", "CUST000000", last, "Books", "Comics", 2, 120.0, false, 0.0, 120.0, "Cash", "Completed").
			AddRow("TXN00000001", "CUST000001", last, "Toys", nil, nil, nil, nil, nil, 50.0, nil, "Failed"))

	s, err := LoadPostgres(context.Background(), database.NewPostgresFromDB(db))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "postgres", s.Source())
	c, ok := s.Customer("CUST000000")
	require.True(t, ok)
	assert.Equal(t, []string{"Electronics", "Books"}, c.PreferredCategories)
	assert.Equal(t, "2025-03-04", c.LastPurchaseDate.String())
	require.NotNil(t, c.ChurnRisk)

	other, _ := s.Customer("CUST000001")
	assert.Nil(t, other.ChurnRisk)
	assert.Len(t, s.Transactions("CUST000000"), 1)
	assert.Empty(t, s.Transactions("CUST000001"))
}

func TestLoadPostgres_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT customer_id`).WillReturnError(errors.New("relation \"customers\" does not exist"))

	_, err = LoadPostgres(context.Background(), database.NewPostgresFromDB(db))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDataLoadFailed))
}
