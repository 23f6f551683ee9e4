package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

const uniqueViolation = "23505"

// Unique index names, declared on the row models.
const (
	idxUsersEmail        = "idx_users_email"
	idxUsersUsername     = "idx_users_username"
	idxPatientsName      = "idx_patients_name"
	idxPredictionsScanID = "idx_predictions_scan_id"
)

var (
	errEmailTaken    = fmt.Errorf("%w: email already registered", domain.ErrAccountExists)
	errUsernameTaken = fmt.Errorf("%w: username already taken", domain.ErrAccountExists)
)

var uniqueErrors = map[string]error{
	idxUsersEmail:        errEmailTaken,
	idxUsersUsername:     errUsernameTaken,
	idxPatientsName:      domain.ErrPatientExists,
	idxPredictionsScanID: domain.ErrDuplicatePrediction,
}

// uniqueConstraint returns the violated constraint name when err is a
// unique violation.
func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func isUniqueViolation(err error) bool {
	_, ok := uniqueConstraint(err)
	return ok
}

// translateUnique maps a unique violation on a known index to its domain
// error. Anything else, including violations of unknown indexes, yields nil.
func translateUnique(err error) error {
	name, ok := uniqueConstraint(err)
	if !ok {
		return nil
	}
	return uniqueErrors[name]
}
