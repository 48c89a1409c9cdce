// Package table renders lists of rows as sortable tables.
//
// Columns declare what they can do through capability interfaces: a column
// header is sortable only when the column implements Sortable, and a column
// controls its own cell text when it implements Renderable. Sorting is pure
// (Sort returns a new slice) and row reordering is animated with the FLIP
// helpers in flip.go.
package table

import (
	"fmt"
	"strings"
)

// Align is the horizontal alignment of a column.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Column describes one table column.
type Column interface {
	Key() string
	Header() string
	Align() Align
}

// Sortable is a Column whose header toggles row order.
// SortValue reports ok=false when the row has no value for the column.
type Sortable interface {
	Column
	SortValue(row any) (any, bool)
}

// Renderable is a Column that formats its own cells.
type Renderable interface {
	Column
	Render(row any) string
}

// Option configures a column built with Field.
type Option func(*field)

// SortableColumn marks the column as sortable.
func SortableColumn() Option {
	return func(f *field) { f.sortable = true }
}

// Accessor sets the function that extracts the column value from a row.
// Without one the column looks up its key in the row.
func Accessor(fn func(row any) any) Option {
	return func(f *field) { f.accessor = fn }
}

// Render sets a custom cell renderer.
func Render(fn func(row any) string) Option {
	return func(f *field) { f.render = fn }
}

// Right aligns the column to the right.
func Right() Option {
	return func(f *field) { f.align = AlignRight }
}

type field struct {
	key      string
	header   string
	align    Align
	sortable bool
	accessor func(row any) any
	render   func(row any) string
}

func (f *field) Key() string    { return f.key }
func (f *field) Header() string { return f.header }
func (f *field) Align() Align   { return f.align }

func (f *field) Render(row any) string {
	if f.render != nil {
		return f.render(row)
	}
	v, ok := f.value(row)
	if !ok {
		return ""
	}
	return FormatValue(v)
}

func (f *field) value(row any) (any, bool) {
	if f.accessor != nil {
		v := f.accessor(row)
		return v, !IsNull(v)
	}
	return Lookup(row, f.key)
}

type sortableField struct {
	*field
}

func (f sortableField) SortValue(row any) (any, bool) {
	return f.value(row)
}

// Field builds a column for key. The header defaults to the key.
func Field(key, header string, opts ...Option) Column {
	f := &field{key: key, header: header}
	if strings.TrimSpace(f.header) == "" {
		f.header = key
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.sortable {
		return sortableField{f}
	}
	return f
}

// Validate rejects empty and duplicate column keys.
func Validate(columns []Column) error {
	seen := make(map[string]bool, len(columns))
	for i, c := range columns {
		if c == nil {
			return fmt.Errorf("column %d is nil", i)
		}
		key := c.Key()
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("column %d has an empty key", i)
		}
		if seen[key] {
			return fmt.Errorf("duplicate column key %q", key)
		}
		seen[key] = true
	}
	return nil
}

// IsSortable reports whether c implements Sortable.
func IsSortable(c Column) bool {
	_, ok := c.(Sortable)
	return ok
}

func findColumn(columns []Column, key string) (Column, bool) {
	for _, c := range columns {
		if c != nil && c.Key() == key {
			return c, true
		}
	}
	return nil, false
}
