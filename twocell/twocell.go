package twocell

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/notargets/nedelec/mesh"
	"github.com/notargets/nedelec/orientation"
)

// SharedFace describes how one cell sees the face it shares with the other.
type SharedFace struct {
	Cell      int
	LocalFace int
	Owner     bool
	Flags     orientation.Flags
	Combined  orientation.Code
}

// TwoCellMesh is a merged left/right pair of unit cells whose shared face
// carries a prescribed relative orientation.
type TwoCellMesh struct {
	Mesh        *mesh.Mesh
	Dim         orientation.Dim
	Code        orientation.Code
	Left, Right orientation.Permutation
	Shared      [2]SharedFace
}

type MeshTopologyError struct {
	Code        orientation.Code
	Dim         orientation.Dim
	Left, Right orientation.Permutation
	Cell        int
	Err         error
}

func (e *MeshTopologyError) Error() string {
	return fmt.Sprintf("two-cell mesh %s code %d (left %v, right %v), cell %d: %v",
		e.Dim, e.Code, e.Left, e.Right, e.Cell, e.Err)
}

func (e *MeshTopologyError) Unwrap() error { return e.Err }

type config struct {
	meshFile string
	logger   *zap.Logger
}

type Option func(*config)

// WithMeshFile writes the merged mesh to filename in Gmsh 2.2 format.
func WithMeshFile(filename string) Option {
	return func(c *config) { c.meshFile = filename }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// ReferenceVertices returns the fixed vertex coordinates of one side: the
// left cell is [0,1]^d and the right cell [1,2]x[0,1]^(d-1), both numbered
// lexicographically.
func ReferenceVertices(side orientation.Side, dim orientation.Dim) [][]float64 {
	vs := make([][]float64, dim.NVertices())
	for i := range vs {
		vs[i] = mesh.ReferenceVertex(int(dim), i)
		if side == orientation.Right {
			vs[i][0] += 1
		}
	}
	return vs
}

// Build constructs the two-cell mesh for code and verifies that the shared
// face exposes the requested orientation.
func Build(code orientation.Code, dim orientation.Dim, opts ...Option) (tc *TwoCellMesh, err error) {
	cfg := &config{logger: zap.NewNop()}
	for _, o := range opts {
		o(cfg)
	}
	if err = orientation.Validate(code, dim); err != nil {
		return
	}
	tc = &TwoCellMesh{Dim: dim, Code: code}
	if tc.Left, err = orientation.PermutationFor(code, orientation.Left, dim); err != nil {
		return nil, err
	}
	if tc.Right, err = orientation.PermutationFor(code, orientation.Right, dim); err != nil {
		return nil, err
	}
	var left, right *mesh.Mesh
	if left, err = mesh.NewMesh(int(dim), ReferenceVertices(orientation.Left, dim), [][]int{tc.Left}); err != nil {
		return nil, tc.topologyError(0, err)
	}
	if right, err = mesh.NewMesh(int(dim), ReferenceVertices(orientation.Right, dim), [][]int{tc.Right}); err != nil {
		return nil, tc.topologyError(1, err)
	}
	if tc.Mesh, err = mesh.Merge(left, right, mesh.MergeTolerance); err != nil {
		return nil, tc.topologyError(-1, err)
	}
	if n := len(tc.Mesh.InteriorFaces()); n != 1 {
		return nil, tc.topologyError(-1, fmt.Errorf("%w: merge produced %d shared faces, want 1", mesh.ErrMeshTopology, n))
	}
	for cell := 0; cell < 2; cell++ {
		if tc.Shared[cell], err = tc.inspect(cell); err != nil {
			return nil, tc.topologyError(cell, err)
		}
	}
	if err = tc.Verify(); err != nil {
		return nil, err
	}
	cfg.logger.Debug("built two-cell mesh",
		zap.Stringer("dim", dim),
		zap.Uint8("code", uint8(code)),
		zap.Ints("left", tc.Left),
		zap.Ints("right", tc.Right),
		zap.Int("sharedFaceLeft", tc.Shared[0].LocalFace),
		zap.Int("sharedFaceRight", tc.Shared[1].LocalFace))
	if cfg.meshFile != "" {
		if err = tc.Mesh.WriteGmsh22File(cfg.meshFile); err != nil {
			return nil, fmt.Errorf("writing %s: %w", cfg.meshFile, err)
		}
	}
	return
}

func (tc *TwoCellMesh) inspect(cell int) (sf SharedFace, err error) {
	sf.Cell = cell
	if sf.LocalFace, err = tc.Mesh.NeighborFace(cell); err != nil {
		return
	}
	gf := tc.Mesh.EToG[cell][sf.LocalFace]
	sf.Owner = tc.Mesh.Faces[gf].Element == cell
	if sf.Combined, err = tc.Mesh.FaceOrientation(cell, sf.LocalFace); err != nil {
		return
	}
	sf.Flags, err = orientation.Decode(sf.Combined, tc.Dim)
	return
}

// ObservedCode is the orientation of the shared face as seen from the
// right cell, re-derived from the merged topology.
func (tc *TwoCellMesh) ObservedCode() orientation.Code { return tc.Shared[1].Combined }

// Matches reports whether the observed orientation equals the requested
// one. Only the line orientation is observable in 2D.
func (tc *TwoCellMesh) Matches() bool {
	if tc.Dim == orientation.Dim2 {
		return tc.ObservedCode()&1 == tc.Code&1
	}
	return tc.ObservedCode() == tc.Code
}

func (tc *TwoCellMesh) Verify() error {
	if tc.Shared[0].Combined != orientation.Standard || !tc.Shared[0].Owner {
		return tc.topologyError(0, fmt.Errorf("%w: left cell does not own its shared face in standard orientation",
			mesh.ErrMeshTopology))
	}
	if !tc.Matches() {
		return tc.topologyError(1, fmt.Errorf("%w: observed orientation %d, requested %d",
			mesh.ErrMeshTopology, tc.ObservedCode(), tc.Code))
	}
	return nil
}

// VerifyRefined checks that every face between a descendant of the left
// cell and a descendant of the right cell carries the requested
// orientation after m was produced by global refinement of tc.Mesh.
func (tc *TwoCellMesh) VerifyRefined(m *mesh.Mesh) (nInterface int, err error) {
	half := m.NumElements / 2
	for k := 0; k < half; k++ {
		for f, nb := range m.EToE[k] {
			if nb < half {
				continue
			}
			nInterface++
			var got orientation.Code
			if got, err = m.FaceOrientation(nb, m.EToF[k][f]); err != nil {
				return
			}
			ok := got == tc.Code
			if tc.Dim == orientation.Dim2 {
				ok = got&1 == tc.Code&1
			}
			if !ok {
				return nInterface, tc.topologyError(nb, fmt.Errorf("%w: refined interface face has orientation %d, requested %d",
					mesh.ErrMeshTopology, got, tc.Code))
			}
		}
	}
	return
}

func (tc *TwoCellMesh) topologyError(cell int, err error) error {
	if !errors.Is(err, mesh.ErrMeshTopology) {
		err = fmt.Errorf("%w: %v", mesh.ErrMeshTopology, err)
	}
	return &MeshTopologyError{Code: tc.Code, Dim: tc.Dim, Left: tc.Left, Right: tc.Right, Cell: cell, Err: err}
}

// Report prints the shared face metadata of both cells.
func (tc *TwoCellMesh) Report(w io.Writer) {
	if tc.Dim == orientation.Dim3 {
		f, _ := orientation.Decode(tc.Code, tc.Dim)
		fmt.Fprintf(w, "Orientation ask: %d%d%d\n", b2i(f.Flip), b2i(f.Rotation), b2i(f.Orientation))
	}
	for _, sf := range tc.Shared {
		fmt.Fprintf(w, "Cell id = %d_0:\n", sf.Cell)
		fmt.Fprintf(w, "The local index of the shared face: %d\n", sf.LocalFace)
		if tc.Dim == orientation.Dim2 {
			fmt.Fprintf(w, "Shared face - orientation: %d\n", b2i(sf.Flags.Orientation))
			continue
		}
		fmt.Fprintf(w, "Shared face - flip: %d\n", b2i(sf.Flags.Flip))
		fmt.Fprintf(w, "Shared face - rotation: %d\n", b2i(sf.Flags.Rotation))
		fmt.Fprintf(w, "Shared face - orientation: %d\n", b2i(sf.Flags.Orientation))
		fmt.Fprintf(w, "Shared face - combined orientation: %d\n", sf.Combined)
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
