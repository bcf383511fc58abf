// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package cgats reads and writes the keyword-and-table text format used for
// gamut mesh files. A file is a sequence of tables. Each table starts with an
// identifier line, carries keyword/value lines, a field list and data rows:
//
//	GAMUT
//	DESCRIPTOR "sRGB"
//	KEYWORD "GAMUT_CENTER"
//	GAMUT_CENTER "50 0 0"
//	NUMBER_OF_FIELDS 4
//	BEGIN_DATA_FORMAT
//	VERTEX_NO LAB_L LAB_A LAB_B
//	END_DATA_FORMAT
//	NUMBER_OF_SETS 1
//	BEGIN_DATA
//	0 100 0 0
//	END_DATA
package cgats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrSyntax is returned for malformed input.
var ErrSyntax = errors.New("cgats: syntax error")

// standard keywords that need no KEYWORD declaration.
var standard = map[string]bool{
	"DESCRIPTOR":       true,
	"ORIGINATOR":       true,
	"CREATED":          true,
	"NUMBER_OF_FIELDS": true,
	"NUMBER_OF_SETS":   true,
}

// Keyword is one name/value line of a table header.
type Keyword struct {
	Name  string
	Value string
}

// Table is one table of a file.
type Table struct {
	ID       string
	Keywords []Keyword
	Fields   []string
	Rows     [][]string
}

// NewTable returns an empty table with identifier id.
func NewTable(id string) *Table {
	return &Table{ID: id}
}

// Set adds or replaces keyword name.
func (t *Table) Set(name, value string) {
	for i := range t.Keywords {
		if t.Keywords[i].Name == name {
			t.Keywords[i].Value = value
			return
		}
	}
	t.Keywords = append(t.Keywords, Keyword{Name: name, Value: value})
}

// Get returns the value of keyword name.
func (t *Table) Get(name string) (string, bool) {
	for _, kw := range t.Keywords {
		if kw.Name == name {
			return kw.Value, true
		}
	}
	return "", false
}

// Floats parses the value of keyword name as a space separated list of n
// numbers. It returns false when the keyword is absent.
func (t *Table) Floats(name string, n int) ([]float64, bool, error) {
	s, ok := t.Get(name)
	if !ok {
		return nil, false, nil
	}
	parts := strings.Fields(s)
	if len(parts) != n {
		return nil, true, fmt.Errorf("%w: %s has %d values, want %d", ErrSyntax, name, len(parts), n)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, true, fmt.Errorf("%w: %s: %w", ErrSyntax, name, err)
		}
		out[i] = v
	}
	return out, true, nil
}

// Field returns the column of field name, or -1.
func (t *Table) Field(name string) int {
	for i, f := range t.Fields {
		if f == name {
			return i
		}
	}
	return -1
}

// Append adds a data row. The row must have one value per field.
func (t *Table) Append(row ...string) {
	t.Rows = append(t.Rows, row)
}

// Float parses column col of row i.
func (t *Table) Float(i, col int) (float64, error) {
	v, err := strconv.ParseFloat(t.Rows[i][col], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: row %d field %s: %w", ErrSyntax, i, t.Fields[col], err)
	}
	return v, nil
}

// Int parses column col of row i.
func (t *Table) Int(i, col int) (int, error) {
	v, err := strconv.Atoi(t.Rows[i][col])
	if err != nil {
		return 0, fmt.Errorf("%w: row %d field %s: %w", ErrSyntax, i, t.Fields[col], err)
	}
	return v, nil
}

// File is an ordered list of tables.
type File struct {
	Tables []*Table
}

// Write encodes f to w.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i, t := range f.Tables {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		if err := t.write(bw); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (t *Table) write(w *bufio.Writer) error {
	if t.ID == "" {
		return fmt.Errorf("%w: table without identifier", ErrSyntax)
	}
	fmt.Fprintln(w, t.ID)
	for _, kw := range t.Keywords {
		if !standard[kw.Name] {
			fmt.Fprintf(w, "KEYWORD %q\n", kw.Name)
		}
		fmt.Fprintf(w, "%s %s\n", kw.Name, quote(kw.Value))
	}
	fmt.Fprintf(w, "NUMBER_OF_FIELDS %d\n", len(t.Fields))
	fmt.Fprintln(w, "BEGIN_DATA_FORMAT")
	fmt.Fprintln(w, strings.Join(t.Fields, " "))
	fmt.Fprintln(w, "END_DATA_FORMAT")
	fmt.Fprintf(w, "NUMBER_OF_SETS %d\n", len(t.Rows))
	fmt.Fprintln(w, "BEGIN_DATA")
	for i, row := range t.Rows {
		if len(row) != len(t.Fields) {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrSyntax, i, len(row), len(t.Fields))
		}
		fmt.Fprintln(w, strings.Join(row, " "))
	}
	fmt.Fprintln(w, "END_DATA")
	return nil
}

// quote leaves plain numbers bare and quotes everything else.
func quote(s string) string {
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return s
	}
	return strconv.Quote(s)
}

type state int

const (
	stateID state = iota
	stateHeader
	stateFormat
	stateData
)

// Read decodes a file from r.
func Read(r io.Reader) (*File, error) {
	f := &File{}
	var t *Table
	st := stateID
	nsets := -1

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		toks, err := tokenize(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(toks) == 0 {
			continue
		}

		switch st {
		case stateID:
			t = NewTable(toks[0])
			f.Tables = append(f.Tables, t)
			nsets = -1
			st = stateHeader
		case stateHeader:
			switch toks[0] {
			case "KEYWORD", "NUMBER_OF_FIELDS":
			case "BEGIN_DATA_FORMAT":
				st = stateFormat
			case "BEGIN_DATA":
				st = stateData
			case "NUMBER_OF_SETS":
				if len(toks) != 2 {
					return nil, fmt.Errorf("%w: line %d: NUMBER_OF_SETS", ErrSyntax, line)
				}
				n, err := strconv.Atoi(toks[1])
				if err != nil || n < 0 {
					return nil, fmt.Errorf("%w: line %d: NUMBER_OF_SETS %q", ErrSyntax, line, toks[1])
				}
				nsets = n
			default:
				t.Set(toks[0], strings.Join(toks[1:], " "))
			}
		case stateFormat:
			if toks[0] == "END_DATA_FORMAT" {
				st = stateHeader
				continue
			}
			t.Fields = append(t.Fields, toks...)
		case stateData:
			if toks[0] == "END_DATA" {
				if nsets >= 0 && nsets != len(t.Rows) {
					return nil, fmt.Errorf("%w: table %s has %d sets, header says %d", ErrSyntax, t.ID, len(t.Rows), nsets)
				}
				st = stateID
				continue
			}
			if len(toks) != len(t.Fields) {
				return nil, fmt.Errorf("%w: line %d has %d values, want %d", ErrSyntax, line, len(toks), len(t.Fields))
			}
			t.Rows = append(t.Rows, toks)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if st != stateID {
		return nil, fmt.Errorf("%w: unexpected end of input", ErrSyntax)
	}
	if len(f.Tables) == 0 {
		return nil, fmt.Errorf("%w: no tables", ErrSyntax)
	}
	return f, nil
}

// tokenize splits a line on blanks, keeping double quoted strings whole.
// Text after an unquoted '#' is a comment.
func tokenize(s string) ([]string, error) {
	var toks []string
	for i := 0; i < len(s); {
		switch c := s[i]; {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#':
			return toks, nil
		case c == '"':
			j := i + 1
			for j < len(s) && s[j] != '"' {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(s) {
				return nil, fmt.Errorf("%w: unterminated string", ErrSyntax)
			}
			v, err := strconv.Unquote(s[i : j+1])
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
			}
			toks = append(toks, v)
			i = j + 1
		default:
			j := i
			for j < len(s) && s[j] != ' ' && s[j] != '\t' && s[j] != '\r' {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		}
	}
	return toks, nil
}
