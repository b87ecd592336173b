package orientation

import (
	"errors"
	"fmt"
)

// Dim selects the spatial dimension of the two-cell configuration.
type Dim int

const (
	Dim2 Dim = 2
	Dim3 Dim = 3
)

func NewDim(d int) (Dim, error) {
	switch d {
	case 2:
		return Dim2, nil
	case 3:
		return Dim3, nil
	}
	return 0, fmt.Errorf("unsupported dimension %d, must be 2 or 3", d)
}

func (d Dim) String() string { return fmt.Sprintf("%dD", int(d)) }

// Bits is the number of independent orientation flags carried by a code.
func (d Dim) Bits() int {
	if d == Dim2 {
		return 2
	}
	return 3
}

func (d Dim) MaxCode() Code { return Code(1<<d.Bits() - 1) }

// NVertices is the number of vertices of a quadrilateral or hexahedron.
func (d Dim) NVertices() int { return 1 << int(d) }

// Code is a combined orientation: orientation + 2*rotation + 4*flip.
type Code uint8

// Flags is the decoded form of a Code.
type Flags struct {
	Orientation bool
	Rotation    bool
	Flip        bool
}

func (f Flags) String() string {
	return fmt.Sprintf("flip=%d rotation=%d orientation=%d", b2i(f.Flip), b2i(f.Rotation), b2i(f.Orientation))
}

var ErrInvalidOrientationCode = errors.New("invalid orientation code")

type InvalidOrientationCodeError struct {
	Code Code
	Dim  Dim
}

func (e *InvalidOrientationCodeError) Error() string {
	return fmt.Sprintf("%s: %d is out of range 0...%d in %s", ErrInvalidOrientationCode, e.Code, e.Dim.MaxCode(), e.Dim)
}

func (e *InvalidOrientationCodeError) Is(target error) bool { return target == ErrInvalidOrientationCode }

// Validate reports whether code can be expressed in dimension d.
func Validate(code Code, d Dim) error {
	if d != Dim2 && d != Dim3 {
		return fmt.Errorf("unsupported dimension %d", int(d))
	}
	if code > d.MaxCode() {
		return &InvalidOrientationCodeError{Code: code, Dim: d}
	}
	return nil
}

func Decode(code Code, d Dim) (f Flags, err error) {
	if err = Validate(code, d); err != nil {
		return
	}
	f = Flags{
		Orientation: code&1 != 0,
		Rotation:    code&2 != 0,
		Flip:        code&4 != 0,
	}
	return
}

func Encode(f Flags) Code {
	return Code(b2i(f.Orientation) + 2*b2i(f.Rotation) + 4*b2i(f.Flip))
}

// Standard is the code of two cells sharing a face with identical frames.
const Standard Code = 1

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
