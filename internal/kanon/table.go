package kanon

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/kyleking/kanon/internal/errors"
)

// ColumnType is the declared type of a column's values.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeInteger
)

// ParseColumnType converts the single-character type codes used by --types.
func ParseColumnType(code string) (ColumnType, error) {
	switch code {
	case "s":
		return TypeString, nil
	case "i":
		return TypeInteger, nil
	default:
		return 0, errors.Newf(errors.ParseError, "unrecognized type code: %q", code)
	}
}

// Sensitivity classifies how a column participates in matching and scoring.
type Sensitivity int

const (
	Quasi Sensitivity = iota
	Ignore
	Sensitive
)

// ParseSensitivity converts the single-character sensitivity codes used by
// --sensitivities.
func ParseSensitivity(code string) (Sensitivity, error) {
	switch code {
	case "q":
		return Quasi, nil
	case "i":
		return Ignore, nil
	case "s":
		return Sensitive, nil
	default:
		return 0, errors.Newf(errors.ParseError, "unrecognized sensitivity code: %q", code)
	}
}

// Column holds one column's configuration and data, plus the auxiliary
// state (unique values, numeric ranges) the engine needs to enumerate
// mutations and score generalizations.
type Column struct {
	Name        string
	Type        ColumnType
	Weight      float64
	Sensitivity Sensitivity
	Width       int
	Unique      map[string]struct{}
	Ranges      []Range
	Range       Range
	Hierarchy   *Hierarchy
	Data        []string
}

func newColumn(name string) *Column {
	return &Column{
		Name:   name,
		Weight: 1.0,
		Unique: make(map[string]struct{}),
	}
}

func (c *Column) clone() *Column {
	cp := *c
	cp.Data = append([]string(nil), c.Data...)
	cp.Unique = make(map[string]struct{}, len(c.Unique))

	for k := range c.Unique {
		cp.Unique[k] = struct{}{}
	}

	cp.Ranges = append([]Range(nil), c.Ranges...)
	// Hierarchy is immutable after load, shared by reference across clones.
	return &cp
}

// Table is an in-memory, column-oriented CSV/TSV table. Rows are scattered
// one value per column across each Column.Data slice at the same index;
// RowIterator is the abstraction that presents them as logical rows.
type Table struct {
	Header  []string
	Rows    int
	Columns map[string]*Column
}

// NewTable creates an empty table with the given column order.
func NewTable(header []string) *Table {
	t := &Table{
		Header:  append([]string(nil), header...),
		Columns: make(map[string]*Column, len(header)),
	}

	for _, name := range header {
		t.Columns[name] = newColumn(name)
	}

	return t
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.Header)
}

// ColumnAt returns the column at a positional index.
func (t *Table) ColumnAt(idx int) *Column {
	return t.Columns[t.Header[idx]]
}

// Cell returns the value at (row, col).
func (t *Table) Cell(row, col int) string {
	return t.ColumnAt(col).Data[row]
}

// Clone makes a deep copy of the table's cell data, suitable for a search's
// working copy or a random initial table. Hierarchies are read-only after
// load and shared by reference.
func (t *Table) Clone() *Table {
	cp := &Table{
		Header:  append([]string(nil), t.Header...),
		Rows:    t.Rows,
		Columns: make(map[string]*Column, len(t.Columns)),
	}

	for name, col := range t.Columns {
		cp.Columns[name] = col.clone()
	}

	return cp
}

// RowIterator walks a Table row by row, presenting each row as a freshly
// built slice of cell values. Go's strings are already cheap to copy (a
// pointer+length header), so unlike the hierarchy this engine was learned
// from, the iterator doesn't need a separate zero-copy view abstraction to
// avoid allocation pressure - the per-row slice itself is the "view".
type RowIterator struct {
	t   *Table
	row int
}

// RowBegin returns an iterator positioned at the first row.
func (t *Table) RowBegin() *RowIterator {
	return &RowIterator{t: t, row: 0}
}

// Row returns the iterator's current row index.
func (it *RowIterator) Row() int {
	return it.row
}

// Done reports whether the iterator has consumed every row.
func (it *RowIterator) Done() bool {
	return it.row >= it.t.Rows
}

// View returns the current row's cells in column order.
func (it *RowIterator) View() []string {
	view := make([]string, len(it.t.Header))
	for i, name := range it.t.Header {
		view[i] = it.t.Columns[name].Data[it.row]
	}

	return view
}

// Next advances the iterator by one row.
func (it *RowIterator) Next() error {
	if it.Done() {
		return errors.New(errors.OutOfBounds, "row iterator past end")
	}

	it.row++

	return nil
}

// AppendRow appends one row's values, in header order, to each column's
// data and its observed-value set. A short row is padded with empty
// strings for its missing trailing cells.
func (t *Table) AppendRow(values []string) {
	for i, name := range t.Header {
		v := ""
		if i < len(values) {
			v = values[i]
		}

		col := t.Columns[name]
		col.Data = append(col.Data, v)
		col.Unique[v] = struct{}{}
	}

	t.Rows++
}

// Finalize computes each column's numeric ranges and display widths. Call
// it exactly once, after every row has been appended.
func (t *Table) Finalize() {
	for _, name := range t.Header {
		t.generateRanges(t.Columns[name])
	}

	t.UpdateWidths()
}

// Mutations enumerates every generalization a cell's value can take: always
// suppression ("*"), then either every strict ancestor the column's
// hierarchy returns for value (which, because Hierarchy.Find includes the
// node itself, also re-includes value unchanged) or, absent a hierarchy,
// value itself; then, for integer columns, every observed Range that
// contains the cell's current value or range. When randomize is true the
// result is shuffled, so callers that just want "a uniformly random
// mutation" can take index 0 instead of re-implementing selection.
func (t *Table) Mutations(value string, col *Column, randomize bool) []string {
	ret := []string{"*"}

	if col.Hierarchy != nil {
		ret = append(ret, col.Hierarchy.Find(value)...)
	} else if value != "" {
		ret = append(ret, value)
	}

	if col.Type == TypeInteger {
		if strings.HasPrefix(value, "[") {
			r, err := ParseRange(value)
			if err == nil {
				for _, rg := range col.Ranges {
					if rg.ContainsRange(r) {
						ret = append(ret, rg.String())
					}
				}
			}
		} else if n, err := strconv.Atoi(value); err == nil {
			for _, rg := range col.Ranges {
				if rg.Contains(n) {
					ret = append(ret, rg.String())
				}
			}
		}
	}

	if randomize {
		rand.Shuffle(len(ret), func(i, j int) { ret[i], ret[j] = ret[j], ret[i] })
	}

	return ret
}

// generateRanges computes, for an integer column, every distinct Range
// obtainable by pairing two non-suppressed observed values (excluding the
// all-spanning range which becomes col.Range), via the same O(n^2) pairwise
// scan the engine this was learned from uses. String columns get a
// denominator Range of (0, unique count) instead, unused by scoring but
// kept for symmetry with the original's column layout.
func (t *Table) generateRanges(col *Column) {
	if col.Type != TypeInteger {
		col.Range = NewRange(0, len(col.Unique))
		return
	}

	seen := map[string]Range{}

	var overall Range

	for _, x := range col.Data {
		for _, y := range col.Data {
			if x == y || x == "*" || y == "*" {
				continue
			}

			var rg Range

			switch {
			case strings.HasPrefix(x, "["):
				rg, _ = ParseRange(x)
			case strings.HasPrefix(y, "["):
				rg, _ = ParseRange(y)
			default:
				xi, err1 := strconv.Atoi(x)
				yi, err2 := strconv.Atoi(y)

				if err1 != nil || err2 != nil {
					continue
				}

				rg = NewRange(xi, yi)
			}

			seen[rg.String()] = rg
			overall = overall.Expand(rg)
		}
	}

	delete(seen, overall.String())

	ranges := make([]Range, 0, len(seen))
	for _, rg := range seen {
		ranges = append(ranges, rg)
	}

	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Less(ranges[j]) })

	col.Range = overall
	col.Ranges = ranges
}

// DistinctStates returns the product over quasi cells of their mutation-set
// cardinalities, saturating to Unbounded once the number of quasi cells
// exceeds 64. It exists solely to label UI/verbose output, never as a
// termination bound.
const Unbounded uint64 = ^uint64(0)

func (t *Table) DistinctStates(verbose func(cell string, mutations []string)) uint64 {
	var total uint64 = 1

	var quasiCells int

	for _, name := range t.Header {
		col := t.Columns[name]
		if col.Sensitivity != Quasi {
			continue
		}

		for _, cell := range col.Data {
			quasiCells++

			mut := t.Mutations(cell, col, false)
			total *= uint64(len(mut))

			if verbose != nil {
				verbose(cell, mut)
			}
		}
	}

	if quasiCells > 64 {
		return Unbounded
	}

	return total
}

// Random returns a clone with every quasi cell replaced by a uniformly
// random mutation of itself, used to seed the genetic algorithm's initial
// population.
func (t *Table) Random() *Table {
	cp := t.Clone()

	for _, name := range cp.Header {
		col := cp.Columns[name]
		if col.Sensitivity != Quasi {
			continue
		}

		for row := range col.Data {
			col.Data[row] = cp.Mutations(col.Data[row], col, true)[0]
		}
	}

	return cp
}

// Equal reports whether two tables hold identical cell data, used to
// deduplicate tied-best results.
func (t *Table) Equal(o *Table) bool {
	for _, name := range t.Header {
		c1, c2 := t.Columns[name], o.Columns[name]

		for row := range c1.Data {
			if c1.Data[row] != c2.Data[row] {
				return false
			}
		}
	}

	return true
}

// SortKey is the key the tied-best set is sorted by: the first cell of the
// first column, matching the comparator the engine this is grounded on
// used purely to give a std::multiset something to sort by. It is not a
// total order: tables sharing that first cell compare equal under it, and
// their relative order after sorting is not defined. Deduplication is done
// by Equal, not by this key.
func (t *Table) SortKey() string {
	if len(t.Header) == 0 {
		return ""
	}

	col := t.Columns[t.Header[0]]
	if len(col.Data) == 0 {
		return ""
	}

	return col.Data[0]
}

// UpdateWidths recomputes each column's display width from its current
// data, deferred until render time so intermediate working tables never pay
// for it.
func (t *Table) UpdateWidths() {
	for _, col := range t.Columns {
		for _, cell := range col.Data {
			if len(cell) > col.Width {
				col.Width = len(cell)
			}
		}
	}
}

// Render formats the table as a Markdown-style pipe table.
func (t *Table) Render() string {
	var b strings.Builder

	for _, name := range t.Header {
		col := t.Columns[name]
		fmt.Fprintf(&b, "| %*s ", col.Width, name)
	}

	b.WriteString(" |\n")

	for it := t.RowBegin(); !it.Done(); _ = it.Next() {
		view := it.View()

		for i, name := range t.Header {
			col := t.Columns[name]
			fmt.Fprintf(&b, "| %*s ", col.Width, view[i])
		}

		b.WriteString(" |\n")
	}

	return b.String()
}
