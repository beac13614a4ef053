package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

const rootTag = "Format"

// parseRoot parses text and returns its Format root element.
func parseRoot(text string) (*xmlquery.Node, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty XML content", ErrInvalidRoot)
	}

	doc, err := xmlquery.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("schema: parse xml: %w", err)
	}

	root := firstElement(doc)
	if root == nil {
		return nil, fmt.Errorf("%w: cannot find XML root", ErrInvalidRoot)
	}
	if root.Data != rootTag {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidRoot, root.Data)
	}
	return root, nil
}

// walk calls fn for every direct child element of the root.
func walk(text string, fn func(n *xmlquery.Node) error) error {
	root, err := parseRoot(text)
	if err != nil {
		return err
	}
	return eachElement(root, fn)
}

func eachElement(n *xmlquery.Node, fn func(n *xmlquery.Node) error) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func firstElement(n *xmlquery.Node) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

// attr looks up an unprefixed attribute by its exact name.
func attr(n *xmlquery.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func requireAttr(n *xmlquery.Node, name string) (string, error) {
	v, ok := attr(n, name)
	if !ok {
		return "", &MissingAttributeError{Element: n.Data, Attribute: name}
	}
	return v, nil
}

func intAttr(n *xmlquery.Node, name string) (int, error) {
	s, err := requireAttr(n, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &InvalidValueError{Context: n.Data + " " + name, Value: s}
	}
	return v, nil
}

func idAttr(n *xmlquery.Node) (int, error) {
	return intAttr(n, "id")
}

// idName reads the (id, Name) pair shared by File, Thread, Module and Source.
func idName(n *xmlquery.Node) (int, string, error) {
	id, err := idAttr(n)
	if err != nil {
		return 0, "", err
	}
	name, err := requireAttr(n, "Name")
	if err != nil {
		return 0, "", err
	}
	return id, name, nil
}

func parseEvent(n *xmlquery.Node) (int, Event, error) {
	id, err := idAttr(n)
	if err != nil {
		return 0, Event{}, err
	}
	num, err := intAttr(n, "numberOfArguments")
	if err != nil {
		return 0, Event{}, err
	}
	if num < 0 {
		return 0, Event{}, &InvalidValueError{Context: "Event numberOfArguments", Value: strconv.Itoa(num)}
	}
	// An empty format is legal; only absence is an error.
	format, err := requireAttr(n, "format")
	if err != nil {
		return 0, Event{}, err
	}
	return id, Event{NumParams: num, Format: format}, nil
}

func parseSource(n *xmlquery.Node) (Source, error) {
	id, name, err := idName(n)
	if err != nil {
		return Source{}, err
	}
	src := Source{ID: id, Name: name, ModuleVerbosity: make(map[int]int)}

	err = eachElement(n, func(c *xmlquery.Node) error {
		switch c.Data {
		case "File":
			if src.ParserPath == "" {
				src.ParserPath, _ = attr(c, "Path")
			}
		case "Module":
			mid, err := idAttr(c)
			if err != nil {
				return err
			}
			raw, err := requireAttr(c, "verbosity")
			if err != nil {
				return err
			}
			v, err := ParseVerbosity(raw)
			if err != nil {
				return err
			}
			if _, dup := src.ModuleVerbosity[mid]; !dup {
				src.ModuleVerbosity[mid] = v
			}
		}
		return nil
	})
	if err != nil {
		return Source{}, err
	}
	return src, nil
}

// parseEnums reads every named enum under an Enums element into dst.
func parseEnums(n *xmlquery.Node, dst map[string][]EnumValue) error {
	return eachElement(n, func(e *xmlquery.Node) error {
		name, ok := attr(e, "Name")
		if !ok {
			name = e.Data
		}

		var values []EnumValue
		err := eachElement(e, func(v *xmlquery.Node) error {
			if v.Data != "EnumValue" {
				return nil
			}
			key, err := intAttr(v, "Key")
			if err != nil {
				return err
			}
			if key < 0 {
				return &InvalidValueError{Context: "EnumValue Key", Value: strconv.Itoa(key)}
			}
			label, err := requireAttr(v, "Value")
			if err != nil {
				return err
			}
			if label == "" {
				return &MissingAttributeError{Element: "EnumValue of " + name, Attribute: "Value"}
			}
			values = append(values, EnumValue{Key: key, Label: label})
			return nil
		})
		if err != nil {
			return err
		}
		if _, dup := dst[name]; !dup {
			dst[name] = values
		}
		return nil
	})
}
