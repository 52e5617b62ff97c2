package dataset

import (
	"strconv"
)

// AttributeType is the kind of values a column holds.
type AttributeType int

const (
	// Numeric columns store the value itself.
	Numeric AttributeType = iota
	// Nominal columns store an index into a fixed, unordered label set.
	Nominal
	// String columns store an index into a growing string table.
	String
)

func (t AttributeType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Nominal:
		return "nominal"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// Attribute describes one column of a Dataset.
//
// For Nominal and String attributes, Values holds the labels in the order
// they were first seen; a cell stores the position of its label.
type Attribute struct {
	Name   string
	Type   AttributeType
	Values []string

	index map[string]int
}

// NewNumericAttribute creates a numeric attribute.
func NewNumericAttribute(name string) *Attribute {
	return &Attribute{Name: name, Type: Numeric}
}

// NewNominalAttribute creates a nominal attribute with the given labels.
func NewNominalAttribute(name string, values []string) *Attribute {
	a := &Attribute{Name: name, Type: Nominal}
	for _, v := range values {
		a.AddValue(v)
	}
	return a
}

// NewStringAttribute creates a string attribute with an empty table.
func NewStringAttribute(name string) *Attribute {
	return &Attribute{Name: name, Type: String}
}

// IsNumeric reports whether the attribute is numeric.
func (a *Attribute) IsNumeric() bool { return a.Type == Numeric }

// IsNominal reports whether the attribute is nominal.
func (a *Attribute) IsNominal() bool { return a.Type == Nominal }

// IsString reports whether the attribute is a string attribute.
func (a *Attribute) IsString() bool { return a.Type == String }

// NumValues returns the number of labels (0 for numeric attributes).
func (a *Attribute) NumValues() int { return len(a.Values) }

// IndexOf returns the position of label v, or -1.
func (a *Attribute) IndexOf(v string) int {
	if a.index == nil {
		a.reindex()
	}
	if i, ok := a.index[v]; ok {
		return i
	}
	return -1
}

// AddValue returns the position of v, appending it first if it is new.
func (a *Attribute) AddValue(v string) int {
	if i := a.IndexOf(v); i >= 0 {
		return i
	}
	a.Values = append(a.Values, v)
	a.index[v] = len(a.Values) - 1
	return len(a.Values) - 1
}

func (a *Attribute) reindex() {
	a.index = make(map[string]int, len(a.Values))
	for i, v := range a.Values {
		a.index[v] = i
	}
}

// Label renders a stored cell value: the label for nominal and string
// attributes, the number for numeric ones. Missing values render as "?".
func (a *Attribute) Label(v float64) string {
	if IsMissing(v) {
		return "?"
	}
	if a.Type == Numeric {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	i := int(v)
	if i < 0 || i >= len(a.Values) {
		return "?"
	}
	return a.Values[i]
}

// Copy returns a deep copy of the attribute.
func (a *Attribute) Copy() *Attribute {
	c := &Attribute{Name: a.Name, Type: a.Type}
	if a.Values != nil {
		c.Values = append([]string(nil), a.Values...)
	}
	return c
}
