package kanon

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kyleking/kanon/internal/errors"
)

// Range is an inclusive integer range, rendered as "[min-max]" for use as a
// generalized cell value. The canonical string is cached on construction so
// repeated formatting (set membership, sort keys) never recomputes it.
type Range struct {
	min, max int
	canon    string
}

// NewRange builds a Range from two bounds in either order.
func NewRange(a, b int) Range {
	r := Range{min: a, max: b}
	if a > b {
		r.min, r.max = b, a
	}

	r.updateString()

	return r
}

// ParseRange parses a "[min-max]" string produced by Range.String.
func ParseRange(s string) (Range, error) {
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return Range{}, errors.Newf(errors.ParseError, "malformed range: %q", s)
	}

	parts := strings.SplitN(s[1:len(s)-1], "-", 2)
	if len(parts) != 2 {
		return Range{}, errors.Newf(errors.ParseError, "malformed range: %q", s)
	}

	min, err := strconv.Atoi(parts[0])
	if err != nil {
		return Range{}, errors.Wrapf(err, errors.ParseError, "malformed range bound in %q", s)
	}

	max, err := strconv.Atoi(parts[1])
	if err != nil {
		return Range{}, errors.Wrapf(err, errors.ParseError, "malformed range bound in %q", s)
	}

	return Range{min: min, max: max, canon: s}, nil
}

// String returns the canonical "[min-max]" representation.
func (r Range) String() string {
	return r.canon
}

// Width returns max-min, the span of the range.
func (r Range) Width() int {
	return r.max - r.min
}

// Contains reports whether an integer value falls within the range.
func (r Range) Contains(v int) bool {
	return v >= r.min && v <= r.max
}

// ContainsRange reports whether o is fully covered by r.
func (r Range) ContainsRange(o Range) bool {
	return o.min >= r.min && o.max <= r.max
}

// Equal reports whether two ranges share the same bounds.
func (r Range) Equal(o Range) bool {
	return r.canon == o.canon
}

// Less gives Range a stable total order, used only to sort a column's
// generated ranges deterministically.
func (r Range) Less(o Range) bool {
	return r.canon < o.canon
}

// Expand widens r to cover o, mirroring the original's sequential
// update_min/update_max: a Range with min==max, including the zero value,
// is treated as "unset" and simply adopts the other range's bounds.
func (r Range) Expand(o Range) Range {
	min, max := r.min, r.max
	if o.min < min || min == max {
		min = o.min
	}

	if o.max > max || min == max {
		max = o.max
	}

	return NewRange(min, max)
}

func (r *Range) updateString() {
	r.canon = fmt.Sprintf("[%d-%d]", r.min, r.max)
}
