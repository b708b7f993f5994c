package sqlstore

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/cozil/cozil-backend/internal/repository"
)

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	msg := err.Error()
	// pgx reports the SQLSTATE in its message; SQLite has no codes worth matching.
	return strings.Contains(msg, "SQLSTATE 23505") || strings.Contains(msg, "UNIQUE constraint failed")
}
