package shamir

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrEmptyValue        = errors.New("empty share value")
	ErrInvalidDigit      = errors.New("invalid digit")
	ErrInvalidBase       = errors.New("invalid base")
	ErrInvalidCoordinate = errors.New("invalid x-coordinate")
	ErrOverflow          = errors.New("value exceeds int64 range")
	ErrInvalidQuorum     = errors.New("invalid quorum")
)

// Failure stages reported to callers.
const (
	StageDecode              = "decode"
	StageInsufficientShares  = "insufficient_shares"
	StageDuplicateCoordinate = "duplicate_coordinate"
	StageOverflow            = "overflow"
	StageInvalidQuorum       = "invalid_quorum"
)

// DecodeError describes why an encoded value could not be turned into an
// integer. Err is one of ErrEmptyValue, ErrInvalidDigit, ErrInvalidBase or
// ErrOverflow.
type DecodeError struct {
	Value string
	Base  int
	Char  rune
	Err   error
}

func (e *DecodeError) Error() string {
	switch {
	case errors.Is(e.Err, ErrInvalidDigit):
		return fmt.Sprintf("invalid digit %q for base %d in %q", e.Char, e.Base, e.Value)
	case errors.Is(e.Err, ErrInvalidBase):
		return fmt.Sprintf("invalid base %d: must be between %d and %d", e.Base, MinBase, MaxBase)
	case errors.Is(e.Err, ErrOverflow):
		return fmt.Sprintf("decoding %q in base %d: %v", e.Value, e.Base, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ShareError records a share dropped during parsing.
type ShareError struct {
	ID  string
	Err error
}

func (e ShareError) Error() string {
	return fmt.Sprintf("share %s: %v", e.ID, e.Err)
}

func (e ShareError) Unwrap() error { return e.Err }

type InsufficientSharesError struct {
	Need int
	Have int
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares: need %d, have %d", e.Need, e.Have)
}

// DuplicateCoordinateError is returned when two points share an
// x-coordinate. Both y-values are kept so the conflict can be reported.
// FirstID and SecondID are the document keys of the colliding shares when
// the points came from ReconstructShares.
type DuplicateCoordinateError struct {
	X        int64
	First    int64
	Second   int64
	FirstID  string
	SecondID string
}

func (e *DuplicateCoordinateError) Error() string {
	if e.FirstID != "" && e.SecondID != "" {
		return fmt.Sprintf("duplicate x-coordinate %d: shares %q (y=%d) and %q (y=%d)",
			e.X, e.FirstID, e.First, e.SecondID, e.Second)
	}
	return fmt.Sprintf("duplicate x-coordinate %d (y=%d and y=%d)", e.X, e.First, e.Second)
}

// ShareID returns the key of the later of the two colliding shares, or the
// decimal x-coordinate when no key is known.
func (e *DuplicateCoordinateError) ShareID() string {
	if e.SecondID != "" {
		return e.SecondID
	}
	return strconv.FormatInt(e.X, 10)
}

// Stage maps an error returned by this package to the name of the stage
// that failed. It returns "" for errors it does not recognise.
func Stage(err error) string {
	var (
		dup  *DuplicateCoordinateError
		insf *InsufficientSharesError
		dec  *DecodeError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOverflow):
		return StageOverflow
	case errors.As(err, &dup):
		return StageDuplicateCoordinate
	case errors.As(err, &insf):
		return StageInsufficientShares
	case errors.Is(err, ErrInvalidQuorum):
		return StageInvalidQuorum
	case errors.As(err, &dec), errors.Is(err, ErrInvalidCoordinate):
		return StageDecode
	}
	return ""
}

// ShareIDOf returns the share identifier attached to err, if any.
func ShareIDOf(err error) string {
	var (
		se  ShareError
		dup *DuplicateCoordinateError
	)
	switch {
	case errors.As(err, &se):
		return se.ID
	case errors.As(err, &dup):
		return dup.ShareID()
	}
	return ""
}
