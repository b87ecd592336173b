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
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/nedelec/InputParameters"
	"github.com/notargets/nedelec/convergence"
	"github.com/notargets/nedelec/orientation"
	"github.com/notargets/nedelec/timer"
	"github.com/notargets/nedelec/utils"
)

// MaxDegree bounds the --degrees range phrase.
const MaxDegree = 10

// ConvergenceCmd represents the convergence command
var ConvergenceCmd = &cobra.Command{
	Use:   "convergence",
	Short: "L2 projection convergence tables for FE_Nedelec on a two-cell mesh",
	Long: `
Projects a smooth vector field onto FE_Nedelec of each degree on globally
refined two-cell meshes with the requested shared face orientation and writes
one table of errors and convergence rates per degree.

nedelec convergence --dim 3 --code 5 --degrees 0:3 --xlsx`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var ip *InputParameters.Study
		if ip, err = processInput(cmd); err != nil {
			return
		}
		var tm *timer.Output
		if timings, _ := cmd.Flags().GetBool("timings"); timings {
			tm = timer.New()
			tm.SetLogger(logger)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		_, err = RunConvergence(ctx, cmd.OutOrStdout(), ip, tm)
		return
	},
}

func init() {
	rootCmd.AddCommand(ConvergenceCmd)
	addDimAndCode(ConvergenceCmd)
	ConvergenceCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML study file, see InputParameters.Study")
	ConvergenceCmd.Flags().String("degrees", "", "FE degrees as a range list, e.g. 0:5 or 0,2")
	ConvergenceCmd.Flags().IntP("jobs", "j", 1, "number of projections run concurrently")
	ConvergenceCmd.Flags().Bool("xlsx", false, "also write main_tables.xlsx")
	ConvergenceCmd.Flags().Bool("vtk", false, "write the projected field of every run")
	ConvergenceCmd.Flags().Bool("timings", false, "print a wall time summary, forces sequential runs")
}

// processInput reads the study file, when given, and overlays the flags set
// on the command line.
func processInput(cmd *cobra.Command) (ip *InputParameters.Study, err error) {
	ip = InputParameters.NewStudy()
	flags := cmd.Flags()
	if file, _ := flags.GetString("inputConditionsFile"); file != "" {
		var data []byte
		if data, err = os.ReadFile(file); err != nil {
			return
		}
		if err = ip.Parse(data); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}
	if flags.Changed("dim") || flags.Changed("code") {
		var (
			dim  orientation.Dim
			code orientation.Code
		)
		if dim, code, err = dimAndCode(cmd); err != nil {
			return
		}
		ip.Dim, ip.Code = int(dim), int(code)
	}
	if flags.Changed("degrees") {
		list, _ := flags.GetString("degrees")
		if ip.Degrees, err = utils.ParseIndexList(list, MaxDegree); err != nil {
			return
		}
	}
	if flags.Changed("jobs") {
		ip.Jobs, _ = flags.GetInt("jobs")
	}
	if flags.Changed("xlsx") {
		ip.XLSX, _ = flags.GetBool("xlsx")
	}
	if flags.Changed("vtk") {
		ip.VTK, _ = flags.GetBool("vtk")
	}
	if viper.IsSet("out") {
		ip.OutDir = viper.GetString("out")
	}
	if timings, _ := flags.GetBool("timings"); timings {
		ip.Jobs = 1
	}
	err = ip.Validate()
	return
}

func RunConvergence(ctx context.Context, w io.Writer, ip *InputParameters.Study, tm *timer.Output) (tables []convergence.DegreeTable, err error) {
	var (
		dim orientation.Dim
		r   *convergence.Reporter
	)
	if dim, err = orientation.NewDim(ip.Dim); err != nil {
		return
	}
	if r, err = convergence.NewReporter(dim, orientation.Code(ip.Code),
		convergence.WithStartLevels(ip.StartLevels),
		convergence.WithLevels(ip.Levels),
		convergence.WithJobs(ip.Jobs),
		convergence.WithOutput(ip.OutDir, ip.XLSX, ip.VTK),
		convergence.WithStdout(w),
		convergence.WithLogger(logger),
		convergence.WithTimer(tm),
	); err != nil {
		return
	}
	ip.Print(w)
	fmt.Fprintf(w, "Dimensions: %d\n", ip.Dim)
	fmt.Fprintf(w, "Face orientation: %d\n", ip.Code)
	fmt.Fprint(w, "FE degree:")
	for _, p := range ip.Degrees {
		fmt.Fprintf(w, " %d", p)
	}
	fmt.Fprintln(w)
	if tables, err = r.BuildTable(ctx, ip.Degrees); err != nil {
		return
	}
	for _, dt := range tables {
		fmt.Fprintf(w, "p = %d: fitted order %.2f (R^2 %.4f)\n", dt.Degree, dt.Fit.Order, dt.Fit.RSquared)
	}
	if tm != nil {
		tm.PrintSummary(w)
	}
	return
}
