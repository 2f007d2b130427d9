package postgres

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/open-apime/zapdash/internal/storage"
)

const (
	codeUniqueViolation   = "23505"
	codeInvalidTextRepres = "22P02"
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return storage.ErrDuplicate
		case codeInvalidTextRepres:
			// id que não é UUID nunca existe
			return storage.ErrNotFound
		}
	}
	return err
}

// checkID evita enviar ao banco ids que não são UUID.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return storage.ErrNotFound
	}
	return nil
}
