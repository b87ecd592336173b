package projection

import (
	"errors"
	"fmt"
	"math"
)

var ErrDimensionMismatch = errors.New("dimension mismatch")

// VectorFunction is a vector field evaluated pointwise.
type VectorFunction interface {
	NComponents() int
	VectorValue(p, values []float64)
}

// VectorValueList evaluates f at every point. values must hold one slice of
// NComponents entries per point.
func VectorValueList(f VectorFunction, points, values [][]float64) error {
	if len(points) != len(values) {
		return fmt.Errorf("%w: %d points, %d value slots", ErrDimensionMismatch, len(points), len(values))
	}
	for i, p := range points {
		if len(values[i]) != f.NComponents() {
			return fmt.Errorf("%w: value slot %d has %d entries, want %d",
				ErrDimensionMismatch, i, len(values[i]), f.NComponents())
		}
		f.VectorValue(p, values[i])
	}
	return nil
}

// MagneticVectorPotential is f = (-sin(ky)/k, sin(kx)/k[, 0]) with k = pi/2.
type MagneticVectorPotential struct {
	Dim int
	K   float64
}

func NewMagneticVectorPotential(dim int) MagneticVectorPotential {
	return MagneticVectorPotential{Dim: dim, K: math.Pi / 2}
}

func (f MagneticVectorPotential) NComponents() int { return f.Dim }

func (f MagneticVectorPotential) VectorValue(p, values []float64) {
	values[0] = -math.Sin(f.K*p[1]) / f.K
	values[1] = math.Sin(f.K*p[0]) / f.K
	if f.Dim == 3 {
		values[2] = 0
	}
}
