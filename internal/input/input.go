// Package input reads the list and property files consumed by a run.
package input

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/namelens/listlens/internal/core"
	apperrors "github.com/namelens/listlens/internal/errors"
)

const (
	columnName   = "Name"
	columnListID = "ListId"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// RowWarning flags an input row that was kept but cannot be looked up as is.
type RowWarning struct {
	Line   int
	Reason string
}

// ReadTargets loads list targets from a CSV file with Name and ListId columns.
func ReadTargets(path string) ([]core.ListTarget, []RowWarning, error) {
	file, err := openInput(path, "lists file")
	if err != nil {
		return nil, nil, err
	}
	defer file.Close() // nolint:errcheck // best-effort cleanup on read-only file

	return ParseTargets(file)
}

// ParseTargets parses list targets from CSV content. The header row is required.
// Every data row becomes a target; rows with an empty ListId are also reported
// as warnings and fail at check time.
func ParseTargets(r io.Reader) ([]core.ListTarget, []RowWarning, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, apperrors.NewInvalidInputError("lists file is empty; a Name,ListId header is required")
		}
		return nil, nil, apperrors.WrapInvalidInput(err, "read lists header")
	}

	nameIdx, idIdx := -1, -1
	for i, column := range header {
		switch strings.TrimSpace(column) {
		case columnName:
			nameIdx = i
		case columnListID:
			idIdx = i
		}
	}
	if nameIdx < 0 || idIdx < 0 {
		return nil, nil, apperrors.NewInvalidInputError(fmt.Sprintf("lists file header must contain %s and %s columns", columnName, columnListID))
	}

	targets := make([]core.ListTarget, 0)
	warnings := make([]RowWarning, 0)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, nil, apperrors.WrapInvalidInput(err, fmt.Sprintf("read lists file line %d", line))
		}

		listID := cell(record, idIdx)
		if listID == "" {
			warnings = append(warnings, RowWarning{Line: line, Reason: "empty ListId"})
		}
		targets = append(targets, core.ListTarget{
			Name:   cell(record, nameIdx),
			ListID: listID,
		})
	}

	return targets, warnings, nil
}

// ReadProperties loads tracked property names, one per line.
func ReadProperties(path string) (core.PropertySet, error) {
	file, err := openInput(path, "properties file")
	if err != nil {
		return core.PropertySet{}, err
	}
	defer file.Close() // nolint:errcheck // best-effort cleanup on read-only file

	return ParseProperties(file)
}

// ParseProperties parses property names. Blank lines and # comments are skipped.
func ParseProperties(r io.Reader) (core.PropertySet, error) {
	names := make([]string, 0)
	scanner := bufio.NewScanner(stripBOM(r))
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		names = append(names, raw)
	}
	if err := scanner.Err(); err != nil {
		return core.PropertySet{}, apperrors.WrapInvalidInput(err, "read properties file")
	}

	set := core.NewPropertySet(names)
	if set.Len() == 0 {
		return core.PropertySet{}, apperrors.NewInvalidInputError("no properties found")
	}
	return set, nil
}

func openInput(path string, label string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, apperrors.NewConfigInvalidError(label + " path is required")
	}
	file, err := os.Open(trimmed)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.WrapFileNotFound(err, fmt.Sprintf("%s not found: %s", label, trimmed))
		}
		return nil, apperrors.WrapConfigInvalid(err, fmt.Sprintf("open %s", label))
	}
	return file, nil
}

func stripBOM(r io.Reader) io.Reader {
	buffered := bufio.NewReader(r)
	if peek, err := buffered.Peek(len(utf8BOM)); err == nil && bytes.Equal(peek, utf8BOM) {
		_, _ = buffered.Discard(len(utf8BOM))
	}
	return buffered
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
