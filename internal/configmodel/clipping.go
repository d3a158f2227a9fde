package configmodel

import "gonum.org/v1/gonum/floats"

// RxClipped is true iff any sample has |real| >= 1 or |imag| >= 1
// (strict, used on received data where saturation to the rail already
// indicates clipping). spec.md §4.2.
func RxClipped(m MimoSignal) bool {
	return anyExceeds(m, 1.0, true)
}

// TxClipped is true iff any sample has |real| > 1 or |imag| > 1
// (non-strict: exactly 1 is legal on the tx side). spec.md §4.2.
func TxClipped(m MimoSignal) bool {
	return anyExceeds(m, 1.0, false)
}

func anyExceeds(m MimoSignal, limit float64, orEqual bool) bool {
	for _, stream := range m.Signals {
		if len(stream) == 0 {
			continue
		}
		reals := make([]float64, len(stream))
		imags := make([]float64, len(stream))
		for i, s := range stream {
			reals[i] = abs(real(s))
			imags[i] = abs(imag(s))
		}
		maxReal := floats.Max(reals)
		maxImag := floats.Max(imags)
		peak := maxReal
		if maxImag > peak {
			peak = maxImag
		}
		if orEqual {
			if peak >= limit {
				return true
			}
		} else if peak > limit {
			return true
		}
	}
	return false
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
