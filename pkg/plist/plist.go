// Package plist encodes and decodes the XML property-list documents consumed
// by the macOS process supervisor. The encoder is generative: it renders a
// structured value tree into the exact grammar launchd expects, and the
// decoder is guaranteed to recover every field of the encoder's own output
// unchanged, including dictionary key order.
package plist

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	header = "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n" +
		"<!DOCTYPE plist PUBLIC \"-//Apple//DTD PLIST 1.0//EN\" \"http://www.apple.com/DTDs/PropertyList-1.0.dtd\">\n"

	indentUnit = "  "
)

// Value is a node in a property-list document. Implementations are the five
// leaf types plus Dict and Array; the set is closed.
type Value interface {
	encodeTo(b *strings.Builder, depth int)
}

// String is a string leaf.
type String string

// Integer is an integer leaf.
type Integer int64

// Real is a floating-point leaf.
type Real float64

// Bool renders as <true/> or <false/>.
type Bool bool

// Array is an ordered sequence of values.
type Array []Value

// Dict is a key-ordered dictionary. Keys keep insertion order so that an
// encode/decode cycle reproduces the original document byte for byte.
type Dict struct {
	keys   []string
	values map[string]Value
}

// NewDict returns an empty ordered dictionary.
func NewDict() *Dict {
	return &Dict{values: make(map[string]Value)}
}

// Set stores a value under key, appending the key on first use and keeping
// its original position on replacement.
func (d *Dict) Set(key string, v Value) {
	if d.values == nil {
		d.values = make(map[string]Value)
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = v
}

// Get returns the value stored under key.
func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Keys returns the dictionary keys in insertion order.
func (d *Dict) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Len reports the number of entries.
func (d *Dict) Len() int {
	return len(d.keys)
}

// reservedEscaper rewrites the five XML-reserved characters. Applied to keys
// and string leaves; everything else in the grammar is generated, never
// copied from input.
var reservedEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString(indentUnit)
	}
}

func (s String) encodeTo(b *strings.Builder, depth int) {
	indent(b, depth)
	b.WriteString("<string>")
	b.WriteString(reservedEscaper.Replace(string(s)))
	b.WriteString("</string>\n")
}

func (i Integer) encodeTo(b *strings.Builder, depth int) {
	indent(b, depth)
	b.WriteString("<integer>")
	b.WriteString(strconv.FormatInt(int64(i), 10))
	b.WriteString("</integer>\n")
}

func (r Real) encodeTo(b *strings.Builder, depth int) {
	indent(b, depth)
	b.WriteString("<real>")
	b.WriteString(strconv.FormatFloat(float64(r), 'g', -1, 64))
	b.WriteString("</real>\n")
}

func (v Bool) encodeTo(b *strings.Builder, depth int) {
	indent(b, depth)
	if v {
		b.WriteString("<true/>\n")
	} else {
		b.WriteString("<false/>\n")
	}
}

func (a Array) encodeTo(b *strings.Builder, depth int) {
	indent(b, depth)
	if len(a) == 0 {
		b.WriteString("<array/>\n")
		return
	}
	b.WriteString("<array>\n")
	for _, item := range a {
		item.encodeTo(b, depth+1)
	}
	indent(b, depth)
	b.WriteString("</array>\n")
}

func (d *Dict) encodeTo(b *strings.Builder, depth int) {
	indent(b, depth)
	if d == nil || len(d.keys) == 0 {
		b.WriteString("<dict/>\n")
		return
	}
	b.WriteString("<dict>\n")
	for _, key := range d.keys {
		indent(b, depth+1)
		b.WriteString("<key>")
		b.WriteString(reservedEscaper.Replace(key))
		b.WriteString("</key>\n")
		d.values[key].encodeTo(b, depth+1)
	}
	indent(b, depth)
	b.WriteString("</dict>\n")
}

// Marshal renders a document with root as its single root dictionary.
func Marshal(root *Dict) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("plist: nil root dictionary")
	}
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("<plist version=\"1.0\">\n")
	root.encodeTo(&b, 0)
	b.WriteString("</plist>\n")
	return []byte(b.String()), nil
}

// Unmarshal parses a property-list document and returns its root dictionary.
// It accepts the grammar Marshal produces (and whitespace variations of it);
// a document whose root is not a dictionary is an error.
func Unmarshal(data []byte) (*Dict, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	start, err := nextStart(dec)
	if err != nil {
		return nil, fmt.Errorf("plist: %w", err)
	}
	if start.Name.Local != "plist" {
		return nil, fmt.Errorf("plist: unexpected root element <%s>", start.Name.Local)
	}

	inner, err := nextStart(dec)
	if err != nil {
		return nil, fmt.Errorf("plist: %w", err)
	}
	if inner.Name.Local != "dict" {
		return nil, fmt.Errorf("plist: root value must be a dictionary, got <%s>", inner.Name.Local)
	}

	root, err := decodeDict(dec)
	if err != nil {
		return nil, fmt.Errorf("plist: %w", err)
	}
	return root, nil
}

// nextStart skips character data, comments and directives until the next
// opening tag.
func nextStart(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

func decodeValue(dec *xml.Decoder, start xml.StartElement) (Value, error) {
	switch start.Name.Local {
	case "dict":
		return decodeDict(dec)
	case "array":
		return decodeArray(dec)
	case "string":
		text, err := collectText(dec, start.Name.Local)
		return String(text), err
	case "integer":
		text, err := collectText(dec, start.Name.Local)
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad integer %q: %w", text, err)
		}
		return Integer(n), nil
	case "real":
		text, err := collectText(dec, start.Name.Local)
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, fmt.Errorf("bad real %q: %w", text, err)
		}
		return Real(f), nil
	case "true":
		if err := dec.Skip(); err != nil {
			return nil, err
		}
		return Bool(true), nil
	case "false":
		if err := dec.Skip(); err != nil {
			return nil, err
		}
		return Bool(false), nil
	default:
		return nil, fmt.Errorf("unsupported element <%s>", start.Name.Local)
	}
}

func decodeDict(dec *xml.Decoder) (*Dict, error) {
	d := NewDict()
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "key" {
				return nil, fmt.Errorf("expected <key>, got <%s>", t.Name.Local)
			}
			key, err := collectText(dec, "key")
			if err != nil {
				return nil, err
			}
			valStart, err := nextStart(dec)
			if err != nil {
				return nil, err
			}
			val, err := decodeValue(dec, valStart)
			if err != nil {
				return nil, err
			}
			d.Set(key, val)
		case xml.EndElement:
			if t.Name.Local == "dict" {
				return d, nil
			}
			return nil, fmt.Errorf("unexpected </%s> in dict", t.Name.Local)
		}
	}
}

func decodeArray(dec *xml.Decoder) (Array, error) {
	var a Array
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			val, err := decodeValue(dec, t)
			if err != nil {
				return nil, err
			}
			a = append(a, val)
		case xml.EndElement:
			if t.Name.Local == "array" {
				return a, nil
			}
			return nil, fmt.Errorf("unexpected </%s> in array", t.Name.Local)
		}
	}
}

// collectText reads character data until the closing tag of element name.
func collectText(dec *xml.Decoder, name string) (string, error) {
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return "", fmt.Errorf("unterminated <%s>", name)
			}
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			if t.Name.Local != name {
				return "", fmt.Errorf("expected </%s>, got </%s>", name, t.Name.Local)
			}
			return b.String(), nil
		case xml.StartElement:
			return "", fmt.Errorf("unexpected <%s> inside <%s>", t.Name.Local, name)
		}
	}
}
