package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/lib/pq"

	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

const uniqueViolation = "23505"

// classify превращает ошибку драйвера в AppError и решает, временная ли она.
func classify(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code) == uniqueViolation {
			return apperror.Wrap(err, apperror.ErrCodeConflict, message)
		}
		wrapped := apperror.Wrap(err, apperror.ErrCodeStoreError, message)
		if transientSQLState(string(pqErr.Code)) {
			return wrapped.Transient()
		}
		return wrapped
	}

	wrapped := apperror.Wrap(err, apperror.ErrCodeStoreError, message)
	if transientTransport(err) {
		return wrapped.Transient()
	}
	return wrapped
}

// transientSQLState: соединение, сериализация/дедлок, нехватка ресурсов, остановка сервера.
func transientSQLState(code string) bool {
	switch {
	case strings.HasPrefix(code, "08"),
		strings.HasPrefix(code, "53"),
		code == "40001",
		code == "40P01",
		code == "57P01":
		return true
	}
	return false
}

func transientTransport(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
