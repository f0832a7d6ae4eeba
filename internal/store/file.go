// internal/store/file.go
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"loyalty-agent/internal/common/errors"
	"loyalty-agent/internal/common/validation"
	"loyalty-agent/internal/models"
)

// LoadFiles reads the customers and transactions JSON arrays, validates
// each against its schema and builds the store.
func LoadFiles(customersPath, transactionsPath string) (*Store, error) {
	var customers []models.Customer
	if err := readValidated(customersPath, validation.SchemaCustomers, &customers); err != nil {
		return nil, err
	}

	var transactions []models.Transaction
	if err := readValidated(transactionsPath, validation.SchemaTransactions, &transactions); err != nil {
		return nil, err
	}

	return New("file:"+customersPath, customers, transactions)
}

func readValidated(path, schema string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewDataLoadError(path, err)
	}

	result, err := validation.ValidateDocument(schema, data)
	if err != nil {
		return errors.NewDataLoadError(path, err)
	}
	if !result.Valid {
		msgs := result.GetErrorMessages()
		if len(msgs) > 5 {
			msgs = append(msgs[:5], fmt.Sprintf("and %d more", len(result.Errors)-5))
		}
		return errors.NewDataLoadError(path, fmt.Errorf("schema violations: %s", strings.Join(msgs, "; ")))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewDataLoadError(path, err)
	}
	return nil
}
