// Package catalog loads ordered target lists.
//
// The text format is one target per line, three whitespace-separated
// columns: name, right ascension in hours, declination in degrees. Blank
// lines and lines starting with '#' are ignored.
package catalog

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/star/airmass/internal/sky"
)

// Parse reads a target list from r, preserving row order.
//
// Rows are never skipped: a malformed row, an out-of-domain coordinate or a
// repeated name fails the whole parse with an error naming the line.
func Parse(r io.Reader, logger *slog.Logger) ([]sky.Target, error) {
	scanner := bufio.NewScanner(r)
	seen := make(map[string]int)
	var targets []sky.Target

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		target, err := parseRow(line)
		if err != nil {
			return nil, fmt.Errorf("catalog line %d: %w", lineNo, err)
		}
		if first, dup := seen[target.Name]; dup {
			return nil, fmt.Errorf("catalog line %d: %w", lineNo,
				sky.InvalidArgument(target.Name, "name", 0, fmt.Sprintf("duplicate of line %d", first)))
		}
		seen[target.Name] = lineNo
		targets = append(targets, target)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	logger.Debug("catalog parsed", "component", "catalog", "targets", len(targets), "lines", lineNo)
	return targets, nil
}

func parseRow(line string) (sky.Target, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return sky.Target{}, fmt.Errorf("%w: want 3 columns (name ra dec), got %d",
			sky.ErrInvalidArgument, len(fields))
	}

	name := fields[0]
	ra, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return sky.Target{}, fmt.Errorf("%s: %w: ra %q is not a number", name, sky.ErrInvalidArgument, fields[1])
	}
	dec, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return sky.Target{}, fmt.Errorf("%s: %w: dec %q is not a number", name, sky.ErrInvalidArgument, fields[2])
	}

	t := sky.Target{
		Name:       name,
		Coordinate: sky.EquatorialCoordinate{RightAscension: ra, Declination: dec},
	}
	if err := t.Validate(); err != nil {
		return sky.Target{}, err
	}
	return t, nil
}
