/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/notargets/nedelec/dofs"
	"github.com/notargets/nedelec/mesh"
	"github.com/notargets/nedelec/nedelec"
	"github.com/notargets/nedelec/orientation"
	"github.com/notargets/nedelec/projection"
	"github.com/notargets/nedelec/twocell"
)

// ShapesCmd represents the shapes command
var ShapesCmd = &cobra.Command{
	Use:   "shapes",
	Short: "Write every global shape function of a one or two cell mesh as a VTK file",
	Long: `
Distributes FE_Nedelec DoFs on a two-cell mesh with the requested shared face
orientation, or on a single reference cell, and writes one VTK file per DoF
with that DoF set to one and all others to zero.

nedelec shapes --dim 2 --code 1 --degree 0`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			dim    orientation.Dim
			code   orientation.Code
			dir    string
			degree int
			single bool
		)
		if dim, code, err = dimAndCode(cmd); err != nil {
			return
		}
		degree, _ = cmd.Flags().GetInt("degree")
		single, _ = cmd.Flags().GetBool("single")
		if dir, err = outputDir(); err != nil {
			return
		}
		_, err = RunShapes(cmd.OutOrStdout(), dir, dim, code, degree, single)
		return
	},
}

func init() {
	rootCmd.AddCommand(ShapesCmd)
	addDimAndCode(ShapesCmd)
	ShapesCmd.Flags().IntP("degree", "p", 0, "FE_Nedelec degree")
	ShapesCmd.Flags().BoolP("single", "s", false, "use one reference cell instead of the two-cell mesh")
}

func RunShapes(w io.Writer, dir string, dim orientation.Dim, code orientation.Code, degree int, single bool) (files []string, err error) {
	var (
		m  *mesh.Mesh
		fe *nedelec.Element
	)
	if single {
		cell := make([]int, dim.NVertices())
		for i := range cell {
			cell[i] = i
		}
		if m, err = mesh.NewMesh(int(dim), twocell.ReferenceVertices(orientation.Left, dim), [][]int{cell}); err != nil {
			return
		}
	} else {
		var tc *twocell.TwoCellMesh
		if tc, err = twocell.Build(code, dim, twocell.WithLogger(logger)); err != nil {
			return
		}
		tc.Report(w)
		m = tc.Mesh
	}
	if fe, err = nedelec.New(int(dim), degree); err != nil {
		return
	}
	h := dofs.NewDoFHandler(m)
	h.DistributeDofs(fe)
	fmt.Fprintf(w, "\n%s\n", fe.Name())
	fmt.Fprintf(w, "\nWriting to %s/\n...\n", dir)
	return projection.WriteShapeFunctions(filepath.Join(dir, fmt.Sprintf("%s_shape_function", dim)), fe, h)
}
