// Package loader builds kanon.Table and kanon.Hierarchy values from files on
// disk - the CLI-facing edge the core engine never touches directly.
package loader

import (
	"bufio"
	"os"
	"strings"

	"github.com/kyleking/kanon/internal/errors"
	"github.com/kyleking/kanon/internal/kanon"
	"github.com/kyleking/kanon/internal/logging"
)

// LoadHierarchies parses a domain file and returns one Hierarchy per root
// name encountered. Each non-empty line has the form
// "root/seg1/.../segN: leaf1, leaf2, ..."; whitespace around every path
// segment and leaf is stripped. Multiple lines sharing root accumulate into
// the same Hierarchy. A nil slice is returned with a nil error when path
// is empty, matching domain::Domain::construct's "no file given" shortcut.
func LoadHierarchies(path string) ([]*kanon.Hierarchy, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.IoError, "failed to read domain file: %s", path)
	}
	defer f.Close()

	byName := map[string]*kanon.Hierarchy{}

	var order []*kanon.Hierarchy

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		h, err := parseHierarchyLine(line, byName)
		if err != nil {
			return nil, err
		}

		if _, seen := byName[h.Name()]; !seen {
			byName[h.Name()] = h
			order = append(order, h)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.IoError, "failed to read domain file: %s", path)
	}

	return order, nil
}

// parseHierarchyLine adds every leaf named on one rule line to the named
// root's Hierarchy, creating the root if this is its first mention.
func parseHierarchyLine(line string, byName map[string]*kanon.Hierarchy) (*kanon.Hierarchy, error) {
	keypair := strings.SplitN(line, ":", 2)
	if len(keypair) != 2 {
		return nil, errors.Newf(errors.ParseError, "malformed domain rule (missing ':'): %q", line)
	}

	segments := strings.Split(keypair[0], "/")
	for i, s := range segments {
		segments[i] = strings.TrimSpace(s)
	}

	root := segments[0]
	path := segments[1:]

	h, ok := byName[root]
	if !ok {
		h = kanon.NewHierarchy(root)
	}

	for _, leaf := range strings.Split(keypair[1], ",") {
		leaf = strings.TrimSpace(leaf)
		if leaf == "" {
			continue
		}

		h.Add(append(append([]string(nil), path...), leaf))
	}

	return h, nil
}

// ValidateAgainstHierarchy logs a warning for any cell value absent from its
// column's hierarchy, without altering the cell. The cell is kept verbatim;
// mutations for it then falls back to suppression-only, since Hierarchy.Find
// returns nothing for a name it has never seen.
func ValidateAgainstHierarchy(columnName string, h *kanon.Hierarchy, values []string) {
	for _, v := range values {
		if v == "" {
			continue
		}

		if len(h.Find(v)) == 0 {
			logging.Warnf("validation warning: %q does not exist in domain hierarchy %q", v, columnName)
		}
	}
}
