package InputParameters

import (
	"fmt"
	"io"
	"sort"

	"github.com/ghodss/yaml"

	"github.com/notargets/nedelec/orientation"
)

// Study is a convergence study obtained from a YAML input file
type Study struct {
	Title       string      `json:"Title"`
	Dim         int         `json:"Dim"`
	Code        int         `json:"Code"`
	Degrees     []int       `json:"Degrees"`
	StartLevels map[int]int `json:"StartLevels"` // Degree to coarsest refinement level
	Levels      int         `json:"Levels"`
	Jobs        int         `json:"Jobs"`
	OutDir      string      `json:"OutDir"`
	XLSX        bool        `json:"XLSX"`
	VTK         bool        `json:"VTK"`
}

func NewStudy() *Study {
	return &Study{
		Title:   "Nedelec projection",
		Dim:     2,
		Degrees: []int{0, 1, 2, 3, 4},
		Levels:  3,
		Jobs:    1,
		OutDir:  "Data",
	}
}

// Parse overlays the YAML document on the current values
func (ip *Study) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return
	}
	return ip.Validate()
}

func (ip *Study) Validate() (err error) {
	var d orientation.Dim
	if d, err = orientation.NewDim(ip.Dim); err != nil {
		return
	}
	if ip.Code < 0 || ip.Code > int(d.MaxCode()) {
		return fmt.Errorf("%w: %d is out of range 0...%d in %s",
			orientation.ErrInvalidOrientationCode, ip.Code, d.MaxCode(), d)
	}
	if err = orientation.Validate(orientation.Code(ip.Code), d); err != nil {
		return
	}
	if len(ip.Degrees) == 0 {
		return fmt.Errorf("no degrees to run")
	}
	seen := make(map[int]bool, len(ip.Degrees))
	for _, p := range ip.Degrees {
		if p < 0 {
			return fmt.Errorf("negative degree %d", p)
		}
		if seen[p] {
			return fmt.Errorf("duplicate degree %d", p)
		}
		seen[p] = true
	}
	if ip.Levels < 1 {
		return fmt.Errorf("Levels must be at least 1, have %d", ip.Levels)
	}
	return
}

func (ip *Study) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Dimensions\n", ip.Dim)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Face orientation\n", ip.Code)
	fmt.Fprintf(w, "%v\t\t= FE degrees\n", ip.Degrees)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Levels per degree\n", ip.Levels)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Jobs\n", ip.Jobs)
	fmt.Fprintf(w, "\"%s\"\t\t\t= Output directory\n", ip.OutDir)
	keys := make([]int, 0, len(ip.StartLevels))
	for k := range ip.StartLevels {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, key := range keys {
		fmt.Fprintf(w, "StartLevels[%d] = %d\n", key, ip.StartLevels[key])
	}
}
