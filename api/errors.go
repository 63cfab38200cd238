package api

import (
	"github.com/cockroachdb/errors"
	"github.com/wilhasse/hfs-go/btr"
	"github.com/wilhasse/hfs-go/fsp"
)

// ErrCode is the engine's status code.
type ErrCode int

const (
	DB_SUCCESS           ErrCode = 10
	DB_ERROR             ErrCode = 11
	DB_OUT_OF_FILE_SPACE ErrCode = 14
	DB_CORRUPTION        ErrCode = 39
	DB_UNSUPPORTED       ErrCode = 48
	DB_NOT_FOUND         ErrCode = 2003
	DB_READONLY          ErrCode = 2004
	DB_INVALID_INPUT     ErrCode = 2005
)

func (code ErrCode) Error() string {
	return ErrString(code)
}

// ErrString returns a human-readable message for an error code.
func ErrString(code ErrCode) string {
	switch code {
	case DB_SUCCESS:
		return "Success"
	case DB_ERROR:
		return "Generic error"
	case DB_OUT_OF_FILE_SPACE:
		return "Out of disk space"
	case DB_CORRUPTION:
		return "Data structure corruption"
	case DB_UNSUPPORTED:
		return "Unsupported"
	case DB_NOT_FOUND:
		return "Not found"
	case DB_READONLY:
		return "Readonly"
	case DB_INVALID_INPUT:
		return "Invalid input"
	default:
		return "Unknown error"
	}
}

// Err returns nil for DB_SUCCESS and the ErrCode otherwise.
func Err(code ErrCode) error {
	if code == DB_SUCCESS {
		return nil
	}
	return code
}

// FromError maps an error from the storage layers to a status code.
func FromError(err error) ErrCode {
	var code ErrCode
	switch {
	case err == nil:
		return DB_SUCCESS
	case errors.As(err, &code):
		return code
	case errors.Is(err, btr.ErrOutOfSpace), errors.Is(err, fsp.ErrNoSpace):
		return DB_OUT_OF_FILE_SPACE
	case errors.IsAssertionFailure(err):
		return DB_CORRUPTION
	default:
		return DB_ERROR
	}
}
