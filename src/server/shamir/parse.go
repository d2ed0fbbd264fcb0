package shamir

import (
	"errors"
	"fmt"
	"strconv"
)

// Share is one raw entry of a share document. ID is the document key and
// doubles as the x-coordinate once decoded.
type Share struct {
	ID    string `json:"id"`
	Base  string `json:"base"`
	Value string `json:"value"`
}

// Point is a decoded share.
type Point struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
}

// IsShareID reports whether key names a share, i.e. consists only of
// decimal digits.
func IsShareID(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return false
		}
	}
	return true
}

// ParseShares decodes every share entry into a Point. Entries whose ID is
// not a share ID are skipped. Entries that fail to decode are dropped and
// reported in the returned ShareError list; the rest are still parsed.
// The returned points keep input order.
func ParseShares(shares []Share) ([]Point, []ShareError) {
	points, _, dropped := parseShares(shares)
	return points, dropped
}

// parseShares is ParseShares plus the share ID of every returned point.
func parseShares(shares []Share) ([]Point, []string, []ShareError) {
	points := make([]Point, 0, len(shares))
	ids := make([]string, 0, len(shares))
	var dropped []ShareError

	for _, s := range shares {
		if !IsShareID(s.ID) {
			continue
		}
		p, err := parseShare(s)
		if err != nil {
			dropped = append(dropped, ShareError{ID: s.ID, Err: err})
			continue
		}
		points = append(points, p)
		ids = append(ids, s.ID)
	}
	return points, ids, dropped
}

func parseShare(s Share) (Point, error) {
	x, err := strconv.ParseInt(s.ID, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return Point{}, &DecodeError{Value: s.ID, Base: 10, Err: ErrOverflow}
		}
		return Point{}, ErrInvalidCoordinate
	}
	if x == 0 {
		return Point{}, ErrInvalidCoordinate
	}

	base, err := Decode(s.Base, 10)
	if err != nil {
		return Point{}, fmt.Errorf("base: %w", err)
	}

	y, err := Decode(s.Value, int(base))
	if err != nil {
		return Point{}, err
	}
	return Point{X: x, Y: y}, nil
}
