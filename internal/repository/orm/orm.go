// Package orm keeps resource repositories built on gorm.
// Authentication storage stays on raw pgx in the postgres package.
package orm

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// notFound replaces gorm.ErrRecordNotFound with the domain error
func notFound(err error, domainErr error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainErr
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

// deleted checks the delete statement removed something
func deleted(res *gorm.DB, domainErr error) error {
	switch {
	case res.Error != nil:
		return fmt.Errorf("db error: %w", res.Error)
	case res.RowsAffected == 0:
		return domainErr
	default:
		return nil
	}
}
