package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDim converts a range phrase into loop bounds [i1, i2):
//
//	":"   = full range, from 0 to max
//	"end" = last index, from max-1 to max
//	"N"   = single index, from N to N+1
//	N     = single index, from N to N+1
//	"2:N" = range, from 2 to N
//	":N"  = range, from 0 to N
//	"N:"  = range, from N to max
func ParseDim(dimI interface{}, max int) (i1, i2 int, err error) {
	switch dim := dimI.(type) {
	case string:
		switch strings.TrimSpace(dim) {
		case "end":
			i1, i2 = max-1, max
		case ":":
			i1, i2 = 0, max
		default:
			i1, i2, err = parseRange(strings.TrimSpace(dim), max)
		}
	case int:
		i1, i2 = dim, dim+1
	default:
		err = fmt.Errorf("unsupported range type %T", dimI)
	}
	if err == nil && (i1 < 0 || i2 > max || i1 >= i2) {
		err = fmt.Errorf("range %v is outside [0, %d)", dimI, max)
	}
	return
}

func parseRange(dim string, max int) (i1, i2 int, err error) {
	splits := strings.Split(dim, ":")
	if splits[0] != "" {
		if i1, err = strconv.Atoi(splits[0]); err != nil {
			return 0, 0, fmt.Errorf("invalid range start %q: %w", splits[0], err)
		}
	}
	if len(splits) == 1 {
		i2 = i1 + 1
		return
	}
	if splits[1] == "" {
		i2 = max
		return
	}
	if i2, err = strconv.Atoi(splits[1]); err != nil {
		return 0, 0, fmt.Errorf("invalid range end %q: %w", splits[1], err)
	}
	if i2 == i1 {
		i2 = i1 + 1
	}
	return
}

// ParseIndexList expands a comma separated list of range phrases, e.g.
// "0:3,4" or ":", into the indices it covers, in order of appearance.
func ParseIndexList(list string, max int) (I []int, err error) {
	for _, part := range strings.Split(list, ",") {
		var i1, i2 int
		if i1, i2, err = ParseDim(part, max); err != nil {
			return nil, err
		}
		for i := i1; i < i2; i++ {
			I = append(I, i)
		}
	}
	return
}
