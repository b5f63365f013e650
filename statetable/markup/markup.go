// Package markup is a minimal element tree that rendering code builds and callers serialise.
package markup

import (
	"html"
	"sort"
	"strings"
)

// Element is one node of the tree. An Element with an empty Tag is a text node.
type Element struct {
	Tag      string
	Attrs    map[string]string
	Text     string
	Children []*Element
}

// New creates an element with optional children.
func New(tag string, children ...*Element) *Element {
	e := &Element{Tag: tag}
	e.Append(children...)

	return e
}

// Text creates a text node.
func Text(text string) *Element {
	return &Element{Text: text}
}

// WithText creates an element holding a single text node.
func WithText(tag, text string) *Element {
	return New(tag, Text(text))
}

// Set sets an attribute and returns the element.
func (e *Element) Set(name, value string) *Element {
	if e.Attrs == nil {
		e.Attrs = make(map[string]string)
	}
	e.Attrs[name] = value

	return e
}

// Attr returns an attribute value.
func (e *Element) Attr(name string) string {
	return e.Attrs[name]
}

// AddClass appends a class name to the class attribute.
func (e *Element) AddClass(class string) *Element {
	if existing := e.Attr("class"); existing != "" {
		return e.Set("class", existing+" "+class)
	}

	return e.Set("class", class)
}

// HasClass reports whether the class attribute contains class.
func (e *Element) HasClass(class string) bool {
	for _, name := range strings.Fields(e.Attr("class")) {
		if name == class {
			return true
		}
	}

	return false
}

// Append adds children, skipping nil ones.
func (e *Element) Append(children ...*Element) *Element {
	for _, child := range children {
		if child != nil {
			e.Children = append(e.Children, child)
		}
	}

	return e
}

// Prepend inserts a child before the existing ones.
func (e *Element) Prepend(child *Element) *Element {
	if child != nil {
		e.Children = append([]*Element{child}, e.Children...)
	}

	return e
}

// Find returns every descendant, including e, for which match is true, in document order.
func (e *Element) Find(match func(*Element) bool) []*Element {
	var found []*Element

	var walk func(*Element)
	walk = func(node *Element) {
		if match(node) {
			found = append(found, node)
		}
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(e)

	return found
}

// FindTag returns every descendant with the given tag.
func (e *Element) FindTag(tag string) []*Element {
	return e.Find(func(node *Element) bool { return node.Tag == tag })
}

// TextContent returns the concatenated text of e and its descendants.
func (e *Element) TextContent() string {
	var b strings.Builder
	for _, node := range e.Find(func(node *Element) bool { return node.Tag == "" }) {
		b.WriteString(node.Text)
	}

	return b.String()
}

var voidElements = map[string]bool{"br": true, "hr": true, "img": true, "input": true, "col": true}

// HTML serialises the tree. Attributes are written in name order.
func (e *Element) HTML() string {
	var b strings.Builder
	e.write(&b)

	return b.String()
}

func (e *Element) write(b *strings.Builder) {
	if e.Tag == "" {
		b.WriteString(html.EscapeString(e.Text))
		return
	}

	b.WriteByte('<')
	b.WriteString(e.Tag)

	names := make([]string, 0, len(e.Attrs))
	for name := range e.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b.WriteByte(' ')
		b.WriteString(name)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(e.Attrs[name]))
		b.WriteByte('"')
	}
	b.WriteByte('>')

	if voidElements[e.Tag] {
		return
	}

	if e.Text != "" {
		b.WriteString(html.EscapeString(e.Text))
	}

	for _, child := range e.Children {
		child.write(b)
	}

	b.WriteString("</")
	b.WriteString(e.Tag)
	b.WriteByte('>')
}
