// Package samplecodec provides a lossless round-trip between
// in-memory complex sample sequences and the wire-friendly
// (reals, imags) pair the remote-call protocol carries (spec.md §4.1,
// §6). The shape-squeeze behavior mirrors the original
// numpy-backed implementation (np.squeeze then reject anything still
// two-dimensional) rather than reinventing a stricter Go-only rule.
package samplecodec

import (
	"reflect"

	"github.com/madpsy/usrpsync/internal/errormodel"
)

// Pair is the wire form of one complex sample sequence: equal-length
// real and imaginary rails.
type Pair struct {
	Reals []float64
	Imags []float64
}

// Encode accepts either a flat []complex128 or a nested [][]complex128
// that squeezes to one dimension (exactly one row, or every row of
// length 1). Anything else is rejected with ShapeError, matching
// np.squeeze's behavior in the reference implementation.
func Encode(signal any) (Pair, error) {
	flat, err := squeezeTo1D(signal)
	if err != nil {
		return Pair{}, err
	}
	reals := make([]float64, len(flat))
	imags := make([]float64, len(flat))
	for i, s := range flat {
		reals[i] = real(s)
		imags[i] = imag(s)
	}
	return Pair{Reals: reals, Imags: imags}, nil
}

// EncodeFlat is the common case: signal is already known to be
// one-dimensional.
func EncodeFlat(signal []complex128) Pair {
	p, _ := Encode(signal)
	return p
}

func squeezeTo1D(signal any) ([]complex128, error) {
	if flat, ok := signal.([]complex128); ok {
		return flat, nil
	}

	v := reflect.ValueOf(signal)
	if v.Kind() != reflect.Slice {
		return nil, errormodel.New(errormodel.KindShapeError, "signal is not a sequence")
	}
	if v.Len() == 0 {
		return nil, nil
	}
	elem := v.Index(0)
	if elem.Kind() != reflect.Slice {
		// flat slice of another slice type; each element must be a
		// complex128
		flat := make([]complex128, v.Len())
		for i := 0; i < v.Len(); i++ {
			c, ok := v.Index(i).Interface().(complex128)
			if !ok {
				return nil, errormodel.New(errormodel.KindShapeError, "signal elements are not complex samples")
			}
			flat[i] = c
		}
		return flat, nil
	}

	// Two-dimensional: squeeze iff exactly one row, or every row has
	// length 1.
	rows := v.Len()
	if rows == 1 {
		row, ok := v.Index(0).Interface().([]complex128)
		if !ok {
			return nil, errormodel.New(errormodel.KindShapeError, "signal rows are not complex sequences")
		}
		return row, nil
	}
	flat := make([]complex128, 0, rows)
	for i := 0; i < rows; i++ {
		row, ok := v.Index(i).Interface().([]complex128)
		if !ok || len(row) != 1 {
			return nil, errormodel.New(errormodel.KindShapeError, "signal must be one dimensional")
		}
		flat = append(flat, row[0])
	}
	return flat, nil
}

// Decode is the exact inverse of Encode: decode(encode(x)) == x for
// every valid one-dimensional x, including pure-real inputs (an
// all-zero imaginary rail).
func Decode(p Pair) ([]complex128, error) {
	if len(p.Reals) != len(p.Imags) {
		return nil, errormodel.New(errormodel.KindLengthMismatch,
			"number of imaginary samples (%d) mismatches number of real samples (%d)",
			len(p.Imags), len(p.Reals))
	}
	out := make([]complex128, len(p.Reals))
	for i := range p.Reals {
		out[i] = complex(p.Reals[i], p.Imags[i])
	}
	return out, nil
}
