package InputParameters

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/nedelec/orientation"
)

func TestStudyParse(t *testing.T) {
	fileInput := []byte(`
Title: Orientation sweep
Dim: 3
Code: 5
Degrees: [0, 1]
StartLevels:
  0: 1
  1: 0
Jobs: 2
XLSX: true
`)
	ip := NewStudy()
	require.NoError(t, ip.Parse(fileInput))
	assert.Equal(t, "Orientation sweep", ip.Title)
	assert.Equal(t, 3, ip.Dim)
	assert.Equal(t, 5, ip.Code)
	assert.Equal(t, []int{0, 1}, ip.Degrees)
	assert.Equal(t, map[int]int{0: 1, 1: 0}, ip.StartLevels)
	assert.Equal(t, 2, ip.Jobs)
	assert.True(t, ip.XLSX)
	assert.False(t, ip.VTK)
	// defaults survive
	assert.Equal(t, 3, ip.Levels)
	assert.Equal(t, "Data", ip.OutDir)

	var buf bytes.Buffer
	ip.Print(&buf)
	assert.Contains(t, buf.String(), "\"Orientation sweep\"\t\t= Title\n")
	assert.Contains(t, buf.String(), "[5]\t\t\t\t= Face orientation\n")
	assert.Contains(t, buf.String(), "StartLevels[0] = 1\nStartLevels[1] = 0\n")
}

func TestStudyValidate(t *testing.T) {
	for _, tc := range []struct {
		input string
		code  bool
	}{
		{"Dim: 1", false},
		{"Code: 4", true},
		{"Code: 260", true},
		{"Dim: 3\nCode: 8", true},
		{"Degrees: []", false},
		{"Degrees: [0, -1]", false},
		{"Degrees: [1, 2, 1]", false},
		{"Levels: 0", false},
	} {
		err := NewStudy().Parse([]byte(tc.input))
		require.Error(t, err, tc.input)
		assert.Equal(t, tc.code, errors.Is(err, orientation.ErrInvalidOrientationCode), tc.input)
	}
	assert.Error(t, NewStudy().Parse([]byte("Dim: [")))
	assert.EqualError(t, NewStudy().Parse([]byte("Degrees: [3, 3]")), "duplicate degree 3")
}
