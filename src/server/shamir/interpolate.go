package shamir

import "math/big"

// Mantissa bits used while accumulating Lagrange terms. 128 bits is wider
// than x87 extended precision; results are still rounded, so secrets near
// the int64 limits with large quorums can lose exactness.
const precision = 128

func newFloat() *big.Float {
	return new(big.Float).SetPrec(precision)
}

// InterpolateAtZero evaluates the unique polynomial of degree < len(points)
// through points at x = 0 and rounds the value half away from zero.
//
// All points are used; selecting a quorum is the caller's job. Points must
// have distinct x-coordinates.
func InterpolateAtZero(points []Point) (int64, error) {
	if len(points) == 0 {
		return 0, &InsufficientSharesError{Need: 1, Have: 0}
	}
	if err := checkDistinct(points); err != nil {
		return 0, err
	}

	sum := newFloat()
	for j, pj := range points {
		xj := newFloat().SetInt64(pj.X)
		term := newFloat().SetInt64(pj.Y)

		// L_j(0) = Π (-x_m) / (x_j - x_m) for m != j
		for m, pm := range points {
			if m == j {
				continue
			}
			xm := newFloat().SetInt64(pm.X)
			term.Mul(term, newFloat().Neg(xm))
			term.Quo(term, newFloat().Sub(xj, xm))
		}
		sum.Add(sum, term)
	}

	return roundHalfAway(sum)
}

func roundHalfAway(f *big.Float) (int64, error) {
	half := newFloat().SetFloat64(0.5)
	r := newFloat()
	if f.Sign() < 0 {
		r.Sub(f, half)
	} else {
		r.Add(f, half)
	}

	// Int truncates toward zero.
	i, _ := r.Int(nil)
	if !i.IsInt64() {
		return 0, ErrOverflow
	}
	return i.Int64(), nil
}

func checkDistinct(points []Point) error {
	seen := make(map[int64]int64, len(points))
	for _, p := range points {
		if y, ok := seen[p.X]; ok {
			return &DuplicateCoordinateError{X: p.X, First: y, Second: p.Y}
		}
		seen[p.X] = p.Y
	}
	return nil
}
