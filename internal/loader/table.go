package loader

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/kyleking/kanon/internal/errors"
	"github.com/kyleking/kanon/internal/kanon"
	"github.com/kyleking/kanon/internal/logging"
)

// guessDelimiters are tried, in order, against the header line when --delim
// is not given. The first one present in the header wins.
var guessDelimiters = []string{"\t", " ", ","}

// TableOptions carries everything the CLI's flags can supply on top of the
// bare input path: an explicit delimiter, per-column types/weights/
// sensitivities (comma-separated, same order as the header), and the
// hierarchies parsed from --domains.
type TableOptions struct {
	Delim         string
	Types         string
	Weights       string
	Sensitivities string
	Hierarchies   []*kanon.Hierarchy
}

// LoadTable reads a delimited file into a Table, applying the column
// metadata in opts and embedding any hierarchy whose name matches a column.
func LoadTable(path string, opts TableOptions) (*kanon.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.IoError, "failed to read table file: %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, errors.Newf(errors.IoError, "table file is empty: %s", path)
	}

	headerLine := scanner.Text()

	delim := opts.Delim
	if delim == "" {
		logging.Info("guessing delimiter; use --delim to provide one explicitly")

		for _, d := range guessDelimiters {
			if strings.Contains(headerLine, d) {
				delim = d

				name := d
				if d == "\t" {
					name = "tab"
				}

				logging.Infof("assuming delimiter is: %s", name)

				break
			}
		}
	}

	header := splitRow(headerLine, delim)
	t := kanon.NewTable(header)

	hierarchyFor := map[string]*kanon.Hierarchy{}
	for _, h := range opts.Hierarchies {
		hierarchyFor[h.Name()] = h
	}

	if err := applyColumnMetadata(t, header, opts, hierarchyFor); err != nil {
		return nil, err
	}

	for scanner.Scan() {
		t.AppendRow(splitRow(scanner.Text(), delim))
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.IoError, "failed to read table file: %s", path)
	}

	for _, name := range header {
		col := t.Columns[name]
		if col.Hierarchy != nil {
			ValidateAgainstHierarchy(name, col.Hierarchy, col.Data)
		}
	}

	t.Finalize()

	return t, nil
}

// applyColumnMetadata assigns each column's type, weight, sensitivity, and
// hierarchy from opts, padding any short list with the documented default
// and logging once per padded field - mirroring the original constructor's
// three near-identical "missing X assumed to be Y" blocks.
func applyColumnMetadata(
	t *kanon.Table,
	header []string,
	opts TableOptions,
	hierarchyFor map[string]*kanon.Hierarchy,
) error {
	types := padCSV(opts.Types, len(header), "s",
		"missing types in the provided table are assumed to be strings; use --types to provide them explicitly")
	weights := padCSV(opts.Weights, len(header), "1.0",
		"missing weights in the provided table are assumed to be 1.0; use --weights to provide them explicitly")
	sensitivities := padCSV(opts.Sensitivities, len(header), "q",
		"missing sensitivities in the provided table are assumed to be quasi; use --sensitivities to provide them explicitly")

	for i, name := range header {
		col := t.Columns[name]

		colType, err := kanon.ParseColumnType(types[i])
		if err != nil {
			return err
		}

		col.Type = colType

		weight, err := strconv.ParseFloat(weights[i], 64)
		if err != nil {
			return errors.Wrapf(err, errors.ParseError, "malformed weight for column %q: %q", name, weights[i])
		}

		col.Weight = weight

		sensitivity, err := kanon.ParseSensitivity(sensitivities[i])
		if err != nil {
			return err
		}

		col.Sensitivity = sensitivity

		if h, ok := hierarchyFor[name]; ok {
			col.Hierarchy = h
			logging.Infof("embedded domain hierarchy for %s", name)
		}
	}

	return nil
}

// padCSV splits a comma-separated list and extends it with fallback until it
// covers n columns, logging warning once if any padding was needed. Extra
// entries beyond n are dropped with a warning, matching the original's
// "redundant X will be ignored" message.
func padCSV(csv string, n int, fallback, warning string) []string {
	var vals []string
	if csv != "" {
		vals = strings.Split(csv, ",")
		for i := range vals {
			vals[i] = strings.TrimSpace(vals[i])
		}
	}

	switch {
	case len(vals) < n:
		logging.Warn(warning)

		for len(vals) < n {
			vals = append(vals, fallback)
		}
	case len(vals) > n:
		logging.Warn("redundant entries in column metadata will be ignored")
		vals = vals[:n]
	}

	return vals
}

// splitRow splits one data line on delim, handling the loader's default
// single-space delimiter the same way the original's shared::split does: a
// plain substring split, not a whitespace-collapsing one.
func splitRow(line, delim string) []string {
	if delim == "" {
		return []string{line}
	}

	return strings.Split(line, delim)
}
