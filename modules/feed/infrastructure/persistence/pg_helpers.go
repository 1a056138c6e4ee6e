package persistence

import (
	"errors"
	"net"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// ErrUnavailable marks failures to reach the database at all, as opposed
// to errors about the data being written. Callers treat it as fatal.
var ErrUnavailable = gerrors.New("database unavailable")

func pgUUIDFromUUID(id [16]byte) pgtype.UUID {
	return pgtype.UUID{
		Bytes: id,
		Valid: true,
	}
}

// pgNullableUUID maps uuid.Nil to SQL NULL.
func pgNullableUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgUUIDFromUUID(id)
}

func uuidFromPg(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return id.Bytes
}

func pgNullableText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsUnavailable reports whether err means the database could not be
// reached: connection refused, network timeout, or a closed pool. Errors
// raised by the server about a statement are not connectivity failures.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.Timeout(err)
}

// classifyError maps driver errors onto domain sentinels: unique
// violations become onConflict, connectivity failures are wrapped with
// ErrUnavailable, everything else passes through.
func classifyError(err, onConflict error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return onConflict
	}
	if IsUnavailable(err) {
		return gerrors.Wrap(ErrUnavailable, err.Error())
	}
	return err
}
