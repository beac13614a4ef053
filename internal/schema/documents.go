package schema

import "github.com/antchfx/xmlquery"

// The functions below query a single table from a document without
// validating the rest of it.

// Events returns the Event table of a parser document.
func Events(text string) (map[int]Event, error) {
	out := make(map[int]Event)
	err := walk(text, func(n *xmlquery.Node) error {
		if n.Data != "Event" {
			return nil
		}
		id, ev, err := parseEvent(n)
		if err != nil {
			return err
		}
		insert(out, id, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Enums returns the enums declared under Enums in a parser document.
func Enums(text string) (map[string][]EnumValue, error) {
	out := make(map[string][]EnumValue)
	err := walk(text, func(n *xmlquery.Node) error {
		if n.Data != "Enums" {
			return nil
		}
		return parseEnums(n, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Files returns the File id to name table of a parser document.
func Files(text string) (map[int]string, error) { return names(text, "File") }

// Threads returns the Thread id to name table of a parser document.
func Threads(text string) (map[int]string, error) { return names(text, "Thread") }

// Modules returns the Module id to name table of a parser document.
func Modules(text string) (map[int]string, error) { return names(text, "Module") }

func names(text, tag string) (map[int]string, error) {
	out := make(map[int]string)
	err := walk(text, func(n *xmlquery.Node) error {
		if n.Data != tag {
			return nil
		}
		id, name, err := idName(n)
		if err != nil {
			return err
		}
		insert(out, id, name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListSources returns the Source id to name table of a definitions document.
func ListSources(text string) (map[int]string, error) {
	out := make(map[int]string)
	err := walk(text, func(n *xmlquery.Node) error {
		if n.Data != "Source" {
			return nil
		}
		id, name, err := idName(n)
		if err != nil {
			return err
		}
		insert(out, id, name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SourceParserPathIn returns the parser path of source id in a definitions document.
func SourceParserPathIn(id int, text string) (string, error) {
	src, err := findSource(id, text)
	if err != nil {
		return "", err
	}
	if src.ParserPath == "" {
		return "", &NotFoundError{Kind: "File 'Path' attribute of Source", ID: id}
	}
	return src.ParserPath, nil
}

// ModuleVerbosityIn returns the module verbosity table of source id in a
// definitions document.
func ModuleVerbosityIn(id int, text string) (map[int]int, error) {
	src, err := findSource(id, text)
	if err != nil {
		return nil, err
	}
	return src.ModuleVerbosity, nil
}

func findSource(id int, text string) (Source, error) {
	var (
		found Source
		ok    bool
	)
	err := walk(text, func(n *xmlquery.Node) error {
		if ok || n.Data != "Source" {
			return nil
		}
		sid, err := idAttr(n)
		if err != nil {
			return err
		}
		if sid != id {
			return nil
		}
		found, err = parseSource(n)
		ok = err == nil
		return err
	})
	if err != nil {
		return Source{}, err
	}
	if !ok {
		return Source{}, &NotFoundError{Kind: "Source", ID: id}
	}
	return found, nil
}

// FileVersion returns the version attribute of a document's root.
func FileVersion(text string) (string, error) {
	root, err := parseRoot(text)
	if err != nil {
		return "", err
	}
	v, ok := attr(root, "version")
	if !ok {
		return "", &NotFoundError{Kind: "file 'version' attribute", ID: -1}
	}
	return v, nil
}
