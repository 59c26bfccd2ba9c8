package ndmesh

import (
	"fmt"
	"strconv"
	"strings"
)

// Range selects positions start, start+step, ... below stop along one
// dimension. A Range built with From or All runs to the end of whatever
// extent it is resolved against.
type Range struct {
	Start int
	Stop  int
	Step  int
	toEnd bool
}

// Span selects [start, stop) with unit step.
func Span(start, stop int) Range {
	return Range{Start: start, Stop: stop, Step: 1}
}

// Stepped selects [start, stop) every step positions.
func Stepped(start, stop, step int) Range {
	return Range{Start: start, Stop: stop, Step: step}
}

// From selects start through the end of the dimension.
func From(start int) Range {
	return Range{Start: start, Step: 1, toEnd: true}
}

// FromStep selects start through the end of the dimension every step positions.
func FromStep(start, step int) Range {
	return Range{Start: start, Step: step, toEnd: true}
}

// All selects the whole dimension.
func All() Range {
	return From(0)
}

// Index selects the single position i.
func Index(i int) Range {
	return Span(i, i+1)
}

// ToEnd reports whether the range stop is resolved against the extent.
func (r Range) ToEnd() bool { return r.toEnd }

// resolve returns the concrete stop and the number of selected positions.
func (r Range) resolve(extent int) (stop, n int) {
	if r.Step <= 0 {
		violate(ErrEmptyRange, "range %s: step must be positive", r)
	}
	stop = r.Stop
	if r.toEnd {
		stop = extent
	}
	n = ceilDiv(stop-r.Start, r.Step)
	if n <= 0 {
		violate(ErrEmptyRange, "range %s selects nothing from extent %d", r, extent)
	}
	return stop, n
}

func (r Range) String() string {
	if r.toEnd {
		return fmt.Sprintf("%d::%d", r.Start, r.Step)
	}
	return fmt.Sprintf("%d:%d:%d", r.Start, r.Stop, r.Step)
}

// ParseRange reads the colon notation used on the command line:
// "i" selects one position, "start:stop", "start:stop:step", and an empty
// stop ("start:" or "start::step") runs to the end of the dimension.
func ParseRange(s string) (Range, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return Range{}, fmt.Errorf("invalid range %q: too many fields", s)
	}

	ints := make([]int, len(parts))
	present := make([]bool, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return Range{}, fmt.Errorf("invalid range %q: %w", s, err)
		}
		ints[i], present[i] = v, true
	}

	if len(parts) == 1 {
		if !present[0] {
			return All(), nil
		}
		return Index(ints[0]), nil
	}

	r := Range{Start: ints[0], Step: 1}
	if present[1] {
		r.Stop = ints[1]
	} else {
		r.toEnd = true
	}
	if len(parts) == 3 && present[2] {
		r.Step = ints[2]
	}
	if r.Step <= 0 {
		return Range{}, fmt.Errorf("invalid range %q: step must be positive", s)
	}
	return r, nil
}
