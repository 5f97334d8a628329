// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"socially/internal/database"
	"socially/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateKey marks writes rejected by a uniqueness constraint. It is
// reachable with errors.Is through the returned *models.AppError.
var ErrDuplicateKey = errors.New("duplicate key")

const pgUniqueViolation = "23505"

func readDB(primary *gorm.DB) *gorm.DB {
	return database.GetReadDB(primary)
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// lookupError classifies a single-row read failure.
func lookupError(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewOperationFailedError(fmt.Sprintf("Failed to load %s", strings.ToLower(resource)), err)
}

// writeError classifies a failed insert/update/delete.
func writeError(err error, message string) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if isUniqueConstraintError(err) {
		return models.NewOperationFailedError(message, fmt.Errorf("%w: %v", ErrDuplicateKey, err))
	}
	return models.NewOperationFailedError(message, err)
}

// queryError classifies a failed multi-row read.
func queryError(err error, message string) error {
	return models.NewOperationFailedError(message, err)
}
