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

	"github.com/notargets/nedelec/orientation"
	"github.com/notargets/nedelec/twocell"
)

// OrientationCmd represents the orientation command
var OrientationCmd = &cobra.Command{
	Use:   "orientation",
	Short: "Build a two-cell mesh with a given shared face orientation and print its metadata",
	Long: `
Builds two unit cells sharing one face (one line in 2D) so that the shared
face has the requested combined orientation code as seen from the second
cell, prints the orientation metadata of both cells and checks that global
refinement preserves the orientation on every interface face.

nedelec orientation --dim 3 --code 5 --mesh-file`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			dim     orientation.Dim
			code    orientation.Code
			refine  int
			meshOut bool
		)
		if dim, code, err = dimAndCode(cmd); err != nil {
			return
		}
		refine, _ = cmd.Flags().GetInt("refine")
		meshOut, _ = cmd.Flags().GetBool("mesh-file")
		opts := []twocell.Option{twocell.WithLogger(logger)}
		if meshOut {
			var dir string
			if dir, err = outputDir(); err != nil {
				return
			}
			opts = append(opts, twocell.WithMeshFile(filepath.Join(dir, fmt.Sprintf("%s_mesh.msh", dim))))
		}
		return RunOrientation(cmd.OutOrStdout(), dim, code, refine, opts...)
	},
}

func init() {
	rootCmd.AddCommand(OrientationCmd)
	addDimAndCode(OrientationCmd)
	OrientationCmd.Flags().IntP("refine", "r", 2, "number of global refinements checked for interface orientation")
	OrientationCmd.Flags().BoolP("mesh-file", "m", false, "write the two-cell mesh in Gmsh 2.2 format to the output directory")
}

func addDimAndCode(cmd *cobra.Command) {
	cmd.Flags().IntP("dim", "d", 2, "spatial dimension, 2 or 3")
	cmd.Flags().IntP("code", "c", 0, "combined face orientation code, 0...3 in 2D and 0...7 in 3D")
}

func dimAndCode(cmd *cobra.Command) (dim orientation.Dim, code orientation.Code, err error) {
	d, _ := cmd.Flags().GetInt("dim")
	c, _ := cmd.Flags().GetInt("code")
	if dim, err = orientation.NewDim(d); err != nil {
		return
	}
	if c < 0 || c > int(dim.MaxCode()) {
		err = fmt.Errorf("%w: %d is out of range 0...%d in %s", orientation.ErrInvalidOrientationCode, c, dim.MaxCode(), dim)
		return
	}
	code = orientation.Code(c)
	return
}

func RunOrientation(w io.Writer, dim orientation.Dim, code orientation.Code, refine int, opts ...twocell.Option) (err error) {
	var tc *twocell.TwoCellMesh
	if tc, err = twocell.Build(code, dim, opts...); err != nil {
		return
	}
	fmt.Fprintf(w, "Dimensions: %d\n", int(dim))
	fmt.Fprintf(w, "Face orientation: %d\n", code)
	tc.Report(w)
	tc.Mesh.PrintStatistics(w)
	if refine < 1 {
		return
	}
	if err = tc.Mesh.RefineGlobal(refine); err != nil {
		return
	}
	var n int
	if n, err = tc.VerifyRefined(tc.Mesh); err != nil {
		return
	}
	fmt.Fprintf(w, "Interface faces after %d refinements: %d, orientation %d on all\n", refine, n, tc.ObservedCode())
	return
}
