// Package xmlmap converts XML documents into nested maps the same way the
// Python xmltodict module does, so JSONPath expressions written against
// Inventio responses address the same shape.
//
// Conversion rules:
//   - an element becomes a key of its parent map
//   - siblings sharing a name are collected into a []any
//   - attributes become "@name" keys
//   - namespace prefixes are kept as written ("ns:tag", "@xsi:type")
//   - text next to attributes or child elements is stored under "#text"
//   - an element holding only text becomes a string, an empty one becomes nil
package xmlmap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

const (
	// AttrPrefix is prepended to attribute names.
	AttrPrefix = "@"
	// TextKey holds the text of an element that also has attributes or children.
	TextKey = "#text"
)

// ErrEmptyDocument is returned when the input has no root element.
var ErrEmptyDocument = errors.New("xml document has no root element")

// SyntaxError wraps a decoding failure with the byte offset it happened at.
type SyntaxError struct {
	Offset int64
	Cause  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("xml decode failed at offset %d: %v", e.Offset, e.Cause)
}

func (e *SyntaxError) Unwrap() error {
	return e.Cause
}

type frame struct {
	name   string
	fields map[string]any
	text   strings.Builder
}

func (f *frame) add(key string, value any) {
	if f.fields == nil {
		f.fields = make(map[string]any)
	}
	existing, ok := f.fields[key]
	if !ok {
		f.fields[key] = value
		return
	}
	if list, isList := existing.([]any); isList {
		f.fields[key] = append(list, value)
		return
	}
	f.fields[key] = []any{existing, value}
}

func (f *frame) value() any {
	text := strings.TrimSpace(f.text.String())
	if len(f.fields) == 0 {
		if text == "" {
			return nil
		}
		return text
	}
	if text != "" {
		f.fields[TextKey] = text
	}
	return f.fields
}

// Decode reads one XML document and returns it as a map keyed by the root element name.
func Decode(r io.Reader) (map[string]any, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var stack []*frame
	var root map[string]any

	fail := func(cause error) error {
		return &SyntaxError{Offset: dec.InputOffset(), Cause: cause}
	}

	for {
		// RawToken leaves prefixes untranslated; tag matching is checked here.
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			if len(stack) > 0 {
				return nil, fail(io.ErrUnexpectedEOF)
			}
			break
		}
		if err != nil {
			return nil, fail(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && root != nil {
				return nil, fail(errors.New("junk after document element"))
			}
			f := &frame{name: qualifiedName(t.Name)}
			for _, attr := range t.Attr {
				f.add(AttrPrefix+qualifiedName(attr.Name), attr.Value)
			}
			stack = append(stack, f)

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}

		case xml.EndElement:
			name := qualifiedName(t.Name)
			if len(stack) == 0 {
				return nil, fail(fmt.Errorf("unexpected end element </%s>", name))
			}
			f := stack[len(stack)-1]
			if f.name != name {
				return nil, fail(fmt.Errorf("element <%s> closed by </%s>", f.name, name))
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				root = map[string]any{f.name: f.value()}
				continue
			}
			stack[len(stack)-1].add(f.name, f.value())
		}
	}

	if root == nil {
		return nil, ErrEmptyDocument
	}
	return root, nil
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte) (map[string]any, error) {
	return Decode(bytes.NewReader(data))
}

func qualifiedName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}
