package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Node is a parsed JSON value with object key order preserved. The set of
// implementations is closed: Object, Array and Scalar.
type Node interface {
	render(b *strings.Builder)
}

type Field struct {
	Name  string
	Value Node
}

type Object struct {
	Fields []Field
}

type Array struct {
	Items []Node
}

// Scalar holds the text of a string, number or boolean. Null renders as the
// text null.
type Scalar struct {
	Text string
	Null bool
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

func (o Object) render(b *strings.Builder) {
	for _, f := range o.Fields {
		if arr, ok := f.Value.(Array); ok {
			for _, item := range arr.Items {
				writeElement(b, f.Name, item)
			}
			continue
		}
		writeElement(b, f.Name, f.Value)
	}
}

func (a Array) render(b *strings.Builder) {
	for _, item := range a.Items {
		item.render(b)
	}
}

func (s Scalar) render(b *strings.Builder) {
	if s.Null {
		b.WriteString("null")
		return
	}
	b.WriteString(EscapeXML(s.Text))
}

func writeElement(b *strings.Builder, name string, value Node) {
	b.WriteString("<")
	b.WriteString(name)
	b.WriteString(">")
	value.render(b)
	b.WriteString("</")
	b.WriteString(name)
	b.WriteString(">")
}

// ParseJSON decodes a single JSON document. A repeated object key keeps the
// position of its first occurrence and the value of its last.
func ParseJSON(data string) (Node, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()

	node, err := parseValue(dec)
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, err
		}
		return nil, errors.New("unexpected data after top-level value")
	}
	return node, nil
}

func parseValue(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", v)
	case string:
		return Scalar{Text: v}, nil
	case json.Number:
		return Scalar{Text: v.String()}, nil
	case bool:
		if v {
			return Scalar{Text: "true"}, nil
		}
		return Scalar{Text: "false"}, nil
	case nil:
		return Scalar{Null: true}, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func parseObject(dec *json.Decoder) (Node, error) {
	obj := Object{}
	index := make(map[string]int)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key must be a string, got %v", tok)
		}

		value, err := parseValue(dec)
		if err != nil {
			return nil, err
		}

		if i, dup := index[key]; dup {
			obj.Fields[i].Value = value
			continue
		}
		index[key] = len(obj.Fields)
		obj.Fields = append(obj.Fields, Field{Name: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func parseArray(dec *json.Decoder) (Node, error) {
	arr := Array{}
	for dec.More() {
		item, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		arr.Items = append(arr.Items, item)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}
