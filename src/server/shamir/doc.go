// Package shamir recovers the constant term of a polynomial from encoded
// threshold shares: values are decoded from their declared base, the k shares
// with the lowest x-coordinates are selected, and the polynomial through them
// is evaluated at x = 0 by Lagrange interpolation.
package shamir
