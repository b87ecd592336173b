package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Gmsh numbers quadrilateral and hexahedral nodes counter-clockwise per
// layer; these tables map Gmsh node position to lexicographic local vertex.
var (
	gmshQuadOrder = []int{0, 1, 3, 2}
	gmshHexOrder  = []int{0, 1, 3, 2, 4, 5, 7, 6}
)

const (
	gmshQuad = 3
	gmshHex  = 5
)

// WriteGmsh22 writes the mesh in Gmsh 2.2 ASCII format.
func (m *Mesh) WriteGmsh22(w io.Writer) (err error) {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n")
	fmt.Fprintf(bw, "$Nodes\n%d\n", m.NumVertices)
	for i, v := range m.Vertices {
		x := [3]float64{}
		copy(x[:], v)
		fmt.Fprintf(bw, "%d %s %s %s\n", i+1,
			strconv.FormatFloat(x[0], 'g', -1, 64),
			strconv.FormatFloat(x[1], 'g', -1, 64),
			strconv.FormatFloat(x[2], 'g', -1, 64))
	}
	fmt.Fprintf(bw, "$EndNodes\n")
	elType, order := gmshQuad, gmshQuadOrder
	if m.Dim == 3 {
		elType, order = gmshHex, gmshHexOrder
	}
	fmt.Fprintf(bw, "$Elements\n%d\n", m.NumElements)
	for k, verts := range m.EtoV {
		fmt.Fprintf(bw, "%d %d 2 0 0", k+1, elType)
		for _, lv := range order {
			fmt.Fprintf(bw, " %d", verts[lv]+1)
		}
		fmt.Fprintln(bw)
	}
	fmt.Fprintf(bw, "$EndElements\n")
	return bw.Flush()
}

// WriteGmsh22File replaces filename with the mesh in Gmsh 2.2 format.
func (m *Mesh) WriteGmsh22File(filename string) (err error) {
	var f *os.File
	if f, err = os.Create(filename); err != nil {
		return
	}
	if err = m.WriteGmsh22(f); err != nil {
		f.Close()
		return
	}
	return f.Close()
}

// ReadGmsh22 reads quadrilateral or hexahedral elements from a Gmsh 2.2
// ASCII stream. Lower dimensional elements are ignored.
func ReadGmsh22(r io.Reader) (m *Mesh, err error) {
	var (
		scanner  = bufio.NewScanner(r)
		nodeIdx  = make(map[int]int)
		coords   [][]float64
		quads    [][]int
		hexes    [][]int
		isBinary bool
	)
	const maxScanTokenSize = 1024 * 1024 * 10
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "$MeshFormat":
			if !scanner.Scan() {
				return nil, fmt.Errorf("unexpected EOF in MeshFormat")
			}
			parts := strings.Fields(scanner.Text())
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid MeshFormat line")
			}
			if !strings.HasPrefix(parts[0], "2") {
				return nil, fmt.Errorf("unsupported Gmsh version: %s", parts[0])
			}
			isBinary = parts[1] == "1"
			if isBinary {
				return nil, fmt.Errorf("binary Gmsh files are not supported")
			}
			if err = skipSection(scanner, "$EndMeshFormat"); err != nil {
				return
			}
		case "$Nodes":
			var n int
			if n, err = scanCount(scanner, "Nodes"); err != nil {
				return
			}
			for i := 0; i < n; i++ {
				if !scanner.Scan() {
					return nil, fmt.Errorf("unexpected EOF in Nodes")
				}
				f := strings.Fields(scanner.Text())
				if len(f) < 4 {
					return nil, fmt.Errorf("invalid node line: %q", scanner.Text())
				}
				id, _ := strconv.Atoi(f[0])
				x := make([]float64, 3)
				for a := 0; a < 3; a++ {
					if x[a], err = strconv.ParseFloat(f[a+1], 64); err != nil {
						return nil, fmt.Errorf("invalid coordinate in node %d: %v", id, err)
					}
				}
				nodeIdx[id] = len(coords)
				coords = append(coords, x)
			}
			if err = skipSection(scanner, "$EndNodes"); err != nil {
				return
			}
		case "$Elements":
			var n int
			if n, err = scanCount(scanner, "Elements"); err != nil {
				return
			}
			for i := 0; i < n; i++ {
				if !scanner.Scan() {
					return nil, fmt.Errorf("unexpected EOF in Elements")
				}
				f := strings.Fields(scanner.Text())
				if len(f) < 3 {
					return nil, fmt.Errorf("invalid element line: %q", scanner.Text())
				}
				elType, err1 := strconv.Atoi(f[1])
				nTags, err2 := strconv.Atoi(f[2])
				if err1 != nil || err2 != nil || nTags < 0 || 3+nTags > len(f) {
					return nil, fmt.Errorf("invalid element line: %q", scanner.Text())
				}
				var order []int
				switch elType {
				case gmshQuad:
					order = gmshQuadOrder
				case gmshHex:
					order = gmshHexOrder
				default:
					continue
				}
				nodes := f[3+nTags:]
				if len(nodes) != len(order) {
					return nil, fmt.Errorf("element %s has %d nodes, want %d", f[0], len(nodes), len(order))
				}
				cell := make([]int, len(order))
				for j, lv := range order {
					id, aerr := strconv.Atoi(nodes[j])
					if aerr != nil {
						return nil, fmt.Errorf("element %s has invalid node %q", f[0], nodes[j])
					}
					idx, ok := nodeIdx[id]
					if !ok {
						return nil, fmt.Errorf("element %s references unknown node %d", f[0], id)
					}
					cell[lv] = idx
				}
				if elType == gmshHex {
					hexes = append(hexes, cell)
				} else {
					quads = append(quads, cell)
				}
			}
			if err = skipSection(scanner, "$EndElements"); err != nil {
				return
			}
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %v", err)
	}
	// Quadrilaterals in a hexahedral file are boundary entities.
	dim, cells := 3, hexes
	if len(hexes) == 0 {
		dim, cells = 2, quads
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("no quadrilateral or hexahedral elements found")
	}
	vertices := make([][]float64, len(coords))
	for i, x := range coords {
		vertices[i] = x[:dim]
	}
	return NewMesh(dim, vertices, cells)
}

func scanCount(scanner *bufio.Scanner, section string) (n int, err error) {
	if !scanner.Scan() {
		return 0, fmt.Errorf("unexpected EOF in %s", section)
	}
	if n, err = strconv.Atoi(strings.TrimSpace(scanner.Text())); err != nil {
		err = fmt.Errorf("invalid number of %s: %v", strings.ToLower(section), err)
	}
	return
}

// skipSection advances the scanner past the end marker
func skipSection(scanner *bufio.Scanner, endMarker string) error {
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == endMarker {
			return nil
		}
	}
	return fmt.Errorf("missing %s", endMarker)
}
