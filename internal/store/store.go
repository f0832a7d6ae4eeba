// Package store holds the read-only customer and transaction reference data.
package store

import (
	"fmt"

	"loyalty-agent/internal/common/errors"
	"loyalty-agent/internal/models"
)

// Store indexes customers by id and transactions by customer. It is
// immutable after construction and safe for concurrent readers.
type Store struct {
	source       string
	customers    []models.Customer
	byID         map[string]int
	completed    map[string][]models.Transaction
	transactions int
}

// New builds the indexes in one pass over each collection. Duplicate
// customer ids and transactions for unknown customers are rejected.
func New(source string, customers []models.Customer, transactions []models.Transaction) (*Store, error) {
	s := &Store{
		source:       source,
		customers:    customers,
		byID:         make(map[string]int, len(customers)),
		completed:    make(map[string][]models.Transaction),
		transactions: len(transactions),
	}

	for i, c := range customers {
		if c.CustomerID == "" {
			return nil, errors.NewDataLoadError(source, fmt.Errorf("customer at index %d has no customer_id", i))
		}
		if _, dup := s.byID[c.CustomerID]; dup {
			return nil, errors.NewDataLoadError(source, fmt.Errorf("duplicate customer_id %s", c.CustomerID))
		}
		s.byID[c.CustomerID] = i
	}

	for _, t := range transactions {
		if _, ok := s.byID[t.CustomerID]; !ok {
			return nil, errors.NewDataLoadError(source,
				fmt.Errorf("transaction %s references unknown customer %s", t.TransactionID, t.CustomerID))
		}
		if t.IsCompleted() {
			s.completed[t.CustomerID] = append(s.completed[t.CustomerID], t)
		}
	}

	return s, nil
}

// Customer returns the customer with id.
func (s *Store) Customer(id string) (models.Customer, bool) {
	i, ok := s.byID[id]
	if !ok {
		return models.Customer{}, false
	}
	return s.customers[i], true
}

// Transactions returns the completed transactions of id, possibly empty.
func (s *Store) Transactions(id string) []models.Transaction {
	return s.completed[id]
}

// AllCustomers returns customers in load order. Callers must not modify it.
func (s *Store) AllCustomers() []models.Customer {
	return s.customers
}

// CustomerIDs returns every id in load order.
func (s *Store) CustomerIDs() []string {
	ids := make([]string, len(s.customers))
	for i, c := range s.customers {
		ids[i] = c.CustomerID
	}
	return ids
}

func (s *Store) CustomerCount() int    { return len(s.customers) }
func (s *Store) TransactionCount() int { return s.transactions }
func (s *Store) Source() string        { return s.source }
