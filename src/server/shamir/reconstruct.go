package shamir

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// Request is a single reconstruction attempt: the decoded points plus the
// document's n (shares issued) and k (quorum).
type Request struct {
	N      int
	K      int
	Points []Point
}

// Result is the outcome of ReconstructShares. Used holds the quorum that
// was interpolated, in ascending x order; Dropped holds shares that failed
// to decode.
type Result struct {
	Secret  int64
	Used    []Point
	Dropped []ShareError
}

// Reconstruct recovers the secret of req. It interpolates the K points with
// the lowest x-coordinates. Duplicate x-coordinates anywhere in the request
// are an error, even outside the selected quorum.
func Reconstruct(req Request) (int64, error) {
	quorum, err := SelectQuorum(req)
	if err != nil {
		return 0, err
	}
	return InterpolateAtZero(quorum)
}

// SelectQuorum validates req and returns a sorted copy of its first K
// points by ascending x. req.Points is not modified.
func SelectQuorum(req Request) ([]Point, error) {
	if req.K < 1 || req.K > req.N {
		return nil, fmt.Errorf("%w: k=%d, n=%d", ErrInvalidQuorum, req.K, req.N)
	}
	if len(req.Points) < req.K {
		return nil, &InsufficientSharesError{Need: req.K, Have: len(req.Points)}
	}
	if err := checkDistinct(req.Points); err != nil {
		return nil, err
	}

	sorted := slices.Clone(req.Points)
	slices.SortFunc(sorted, func(a, b Point) int {
		return cmp.Compare(a.X, b.X)
	})
	return sorted[:req.K:req.K], nil
}

// ReconstructShares parses shares and reconstructs the secret for a
// document with the given n and k. Dropped shares are reported in the
// result even when reconstruction fails.
func ReconstructShares(n, k int, shares []Share) (Result, error) {
	points, ids, dropped := parseShares(shares)
	res := Result{Dropped: dropped}

	quorum, err := SelectQuorum(Request{N: n, K: k, Points: points})
	var dup *DuplicateCoordinateError
	if errors.As(err, &dup) {
		dup.FirstID, dup.SecondID = collidingIDs(points, ids, dup.X)
	}
	if err != nil {
		return res, err
	}
	secret, err := InterpolateAtZero(quorum)
	if err != nil {
		return res, err
	}

	res.Secret = secret
	res.Used = quorum
	return res, nil
}

// collidingIDs returns the IDs of the first two points at x, in input
// order, matching the pair checkDistinct reports.
func collidingIDs(points []Point, ids []string, x int64) (first, second string) {
	for i, p := range points {
		if p.X != x {
			continue
		}
		if first == "" {
			first = ids[i]
			continue
		}
		return first, ids[i]
	}
	return first, ""
}
