package orientation

import "fmt"

type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// Permutation lists, for each local vertex of a cell, the index of the
// reference vertex it sits on.
type Permutation []int

// IsBijection reports whether p is a permutation of 0..len(p)-1.
func (p Permutation) IsBijection() bool {
	seen := make([]bool, len(p))
	for _, v := range p {
		if v < 0 || v >= len(p) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

func (p Permutation) Copy() Permutation {
	c := make(Permutation, len(p))
	copy(c, p)
	return c
}

var (
	identity2 = [4]int{0, 1, 2, 3}
	identity3 = [8]int{0, 1, 2, 3, 4, 5, 6, 7}

	// The right square either keeps the frame of the left one or is turned
	// by half a revolution, which reverses the shared line.
	right2 = [2][4]int{
		{3, 2, 1, 0}, // even codes: line reversed
		{0, 1, 2, 3}, // odd codes: standard
	}

	// Right cube vertex lists indexed by code. Proper rotations about the
	// x axis keep local face 0 on the interface; codes with orientation=0
	// also mirror x so the interface moves to local face 1 and the cell
	// keeps a positive Jacobian.
	right3 = [8][8]int{
		{1, 0, 5, 4, 3, 2, 7, 6}, // 0: transpose
		{0, 1, 2, 3, 4, 5, 6, 7}, // 1: standard
		{3, 2, 1, 0, 7, 6, 5, 4}, // 2: rot90 . transpose
		{2, 3, 6, 7, 0, 1, 4, 5}, // 3: rot90
		{7, 6, 3, 2, 5, 4, 1, 0}, // 4: rot180 . transpose
		{6, 7, 4, 5, 2, 3, 0, 1}, // 5: rot180
		{5, 4, 7, 6, 1, 0, 3, 2}, // 6: rot270 . transpose
		{4, 5, 0, 1, 6, 7, 2, 3}, // 7: rot270
	}
)

// PermutationFor returns the vertex list of one side of the shared face.
func PermutationFor(code Code, side Side, d Dim) (p Permutation, err error) {
	if err = Validate(code, d); err != nil {
		return
	}
	switch {
	case side == Left && d == Dim2:
		p = identity2[:]
	case side == Left:
		p = identity3[:]
	case side == Right && d == Dim2:
		p = right2[code&1][:]
	case side == Right:
		p = right3[code][:]
	default:
		err = fmt.Errorf("unknown side %d", side)
		return
	}
	return p.Copy(), nil
}

// faceVertexMaps[c][i] is the owner-face vertex that the neighbor's local
// face vertex i coincides with, for the symmetry of the square encoded by
// c. Vertices are numbered lexicographically, i = a + 2b.
var faceVertexMaps = [8][4]int{
	{0, 2, 1, 3}, // transpose
	{0, 1, 2, 3}, // identity
	{1, 0, 3, 2}, // rot90 . transpose
	{1, 3, 0, 2}, // rot90
	{3, 1, 2, 0}, // rot180 . transpose
	{3, 2, 1, 0}, // rot180
	{2, 3, 0, 1}, // rot270 . transpose
	{2, 0, 3, 1}, // rot270
}

func FaceVertexMap(code Code) (sigma [4]int, err error) {
	if err = Validate(code, Dim3); err != nil {
		return
	}
	return faceVertexMaps[code], nil
}

// CodeFromFaceVertexMap inverts FaceVertexMap.
func CodeFromFaceVertexMap(sigma [4]int) (Code, bool) {
	for c, s := range faceVertexMaps {
		if s == sigma {
			return Code(c), true
		}
	}
	return 0, false
}

// InverseFaceVertexMap returns the map from owner-face vertices back to
// neighbor-face vertices.
func InverseFaceVertexMap(sigma [4]int) (inv [4]int) {
	for i, s := range sigma {
		inv[s] = i
	}
	return
}
