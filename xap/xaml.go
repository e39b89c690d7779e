package xap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/reusee/relic/units"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const XAMLNamespace = "http://schemas.microsoft.com/winfx/2006/xaml"

type Attr struct {
	Space string
	Name  string
	Value string
}

// Element is one XAML element. Property elements such as
// "Deployment.Parts" keep their dotted local name.
type Element struct {
	Space    string
	Name     string
	Attrs    []Attr
	Children []*Element
	Text     string
}

func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name && a.Space != XAMLNamespace {
			return a.Value, true
		}
	}
	return "", false
}

// XName is the x:Name attribute.
func (e *Element) XName() string {
	for _, a := range e.Attrs {
		if a.Name == "Name" && a.Space == XAMLNamespace {
			return a.Value
		}
	}
	v, _ := e.Attr("Name")
	return v
}

func (e *Element) Child(name string) *Element {
	for _, c := range e.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Walk visits e and its descendants depth first until fn returns false.
func (e *Element) Walk(fn func(*Element) bool) bool {
	stack := []*Element{e}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur) {
			return false
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return true
}

// ParseXAML reads one XAML document into an element tree. A byte order
// mark selects UTF-8 or UTF-16; otherwise the XML declaration's encoding
// is honored.
func ParseXAML(data []byte) (*Element, error) {
	bom := bytes.HasPrefix(data, []byte{0xfe, 0xff}) ||
		bytes.HasPrefix(data, []byte{0xff, 0xfe})
	src := transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	decoder := xml.NewDecoder(src)
	decoder.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		if bom || strings.EqualFold(label, "utf-8") {
			return input, nil
		}
		return charset.NewReaderLabel(label, input)
	}

	var root *Element
	var stack []*Element
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &units.ParseError{
				Format: units.FormatXAP,
				Kind:   units.MalformedField,
				Offset: int(decoder.InputOffset()),
				Reason: "xaml",
				Err:    err,
			}
		}
		switch token := token.(type) {
		case xml.StartElement:
			elem := &Element{
				Space: token.Name.Space,
				Name:  token.Name.Local,
			}
			for _, attr := range token.Attr {
				if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" && attr.Name.Space == "" {
					continue
				}
				elem.Attrs = append(elem.Attrs, Attr{
					Space: attr.Name.Space,
					Name:  attr.Name.Local,
					Value: attr.Value,
				})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, units.Errorf(units.FormatXAP, units.MalformedField,
						int(decoder.InputOffset()), "multiple root elements")
				}
				root = elem
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, elem)
			}
			stack = append(stack, elem)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				cur := stack[len(stack)-1]
				cur.Text += strings.TrimSpace(string(token))
			}
		}
	}
	if root == nil {
		return nil, units.Errorf(units.FormatXAP, units.MalformedField, 0, "no root element")
	}
	return root, nil
}
