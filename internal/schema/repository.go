// Package schema loads the XML documents describing firmware log events.
//
// A schema has a Format root whose direct children declare:
//
//	<Source id="0" Name="HKR"><File Path="HKR.xml"/><Module id="1" verbosity="INFO|ERROR"/></Source>
//	<Event id="12" numberOfArguments="2" format="temp={0} state={1,State}"/>
//	<File id="3" Name="main.c"/>
//	<Thread id="1" Name="Main"/>
//	<Module id="1" Name="Calib"/>
//	<Enums><Enum Name="State"><EnumValue Key="0" Value="Idle"/></Enum></Enums>
//
// Names are case-sensitive; unknown elements are skipped.
package schema

import (
	"fmt"
	"os"
	"sort"

	"github.com/antchfx/xmlquery"
)

// Event describes how to format one firmware event.
type Event struct {
	NumParams int    `json:"num_params"`
	Format    string `json:"format"`
}

// EnumValue is one key/label pair of an enum.
type EnumValue struct {
	Key   int    `json:"key"`
	Label string `json:"label"`
}

// Source is a firmware subsystem with its own event namespace.
type Source struct {
	ID              int         `json:"id"`
	Name            string      `json:"name"`
	ParserPath      string      `json:"parser_path,omitempty"`
	ModuleVerbosity map[int]int `json:"module_verbosity,omitempty"`
}

// Repository holds the lookup tables of one schema document. It is
// read-only after Load and safe for concurrent use.
type Repository struct {
	version    string
	hasVersion bool

	events  map[int]Event
	files   map[int]string
	threads map[int]string
	modules map[int]string
	enums   map[string][]EnumValue
	sources map[int]Source

	// source is set when the repository was loaded for a definitions source.
	source *Source
}

func newRepository() *Repository {
	return &Repository{
		events:  make(map[int]Event),
		files:   make(map[int]string),
		threads: make(map[int]string),
		modules: make(map[int]string),
		enums:   make(map[string][]EnumValue),
		sources: make(map[int]Source),
	}
}

// Load parses a schema document. Any malformed declaration fails the
// whole load. When an id is declared twice the first declaration wins.
func Load(text string) (*Repository, error) {
	root, err := parseRoot(text)
	if err != nil {
		return nil, err
	}

	r := newRepository()
	r.version, r.hasVersion = attr(root, "version")

	err = eachElement(root, func(n *xmlquery.Node) error {
		switch n.Data {
		case "Event":
			id, ev, err := parseEvent(n)
			if err != nil {
				return err
			}
			insert(r.events, id, ev)
		case "File":
			return r.addName(r.files, n)
		case "Thread":
			return r.addName(r.threads, n)
		case "Module":
			return r.addName(r.modules, n)
		case "Source":
			src, err := parseSource(n)
			if err != nil {
				return err
			}
			insert(r.sources, src.ID, src)
		case "Enums":
			return parseEnums(n, r.enums)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// LoadFile reads and loads the schema at path.
func LoadFile(path string) (*Repository, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	r, err := Load(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// LoadSource loads the parser document declared by source id in defs.
// read resolves the declared path, typically relative to the definitions
// file. The returned repository carries the source's module verbosity.
func LoadSource(defs *Repository, id int, read func(path string) ([]byte, error)) (*Repository, error) {
	path, err := defs.SourceParserPath(id)
	if err != nil {
		return nil, err
	}
	raw, err := read(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read source %d parser %s: %w", id, path, err)
	}
	r, err := Load(string(raw))
	if err != nil {
		return nil, fmt.Errorf("source %d parser %s: %w", id, path, err)
	}
	src := defs.sources[id]
	r.source = &src
	return r, nil
}

func (r *Repository) addName(dst map[int]string, n *xmlquery.Node) error {
	id, name, err := idName(n)
	if err != nil {
		return err
	}
	insert(dst, id, name)
	return nil
}

func insert[K comparable, V any](m map[K]V, k K, v V) {
	if _, ok := m[k]; !ok {
		m[k] = v
	}
}

// Version returns the root element's version attribute.
func (r *Repository) Version() (string, bool) {
	return r.version, r.hasVersion
}

// Event returns the definition of event id.
func (r *Repository) Event(id int) (Event, bool) {
	ev, ok := r.events[id]
	return ev, ok
}

// FileName returns the name of source file id.
func (r *Repository) FileName(id int) (string, bool) {
	s, ok := r.files[id]
	return s, ok
}

// ThreadName returns the name of firmware thread id.
func (r *Repository) ThreadName(id int) (string, bool) {
	s, ok := r.threads[id]
	return s, ok
}

// ModuleName returns the name of firmware module id.
func (r *Repository) ModuleName(id int) (string, bool) {
	s, ok := r.modules[id]
	return s, ok
}

// Sources maps the id of every declared Source to its name.
func (r *Repository) Sources() map[int]string {
	out := make(map[int]string, len(r.sources))
	for id, s := range r.sources {
		out[id] = s.Name
	}
	return out
}

// SourceIDs returns the declared source ids in ascending order.
func (r *Repository) SourceIDs() []int {
	ids := make([]int, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Source returns the declaration of source id.
func (r *Repository) Source(id int) (Source, bool) {
	s, ok := r.sources[id]
	return s, ok
}

// LoadedSource returns the source this repository was loaded for by LoadSource.
func (r *Repository) LoadedSource() (Source, bool) {
	if r.source == nil {
		return Source{}, false
	}
	return *r.source, true
}

// SourceParserPath returns the File Path declared under source id.
func (r *Repository) SourceParserPath(id int) (string, error) {
	src, ok := r.sources[id]
	if !ok {
		return "", &NotFoundError{Kind: "Source", ID: id}
	}
	if src.ParserPath == "" {
		return "", &NotFoundError{Kind: "File 'Path' attribute of Source", ID: id}
	}
	return src.ParserPath, nil
}

// ModuleVerbosity returns the module id to verbosity mask table of source id.
func (r *Repository) ModuleVerbosity(id int) (map[int]int, error) {
	src, ok := r.sources[id]
	if !ok {
		return nil, &NotFoundError{Kind: "Source", ID: id}
	}
	out := make(map[int]int, len(src.ModuleVerbosity))
	for k, v := range src.ModuleVerbosity {
		out[k] = v
	}
	return out, nil
}

// Enum returns the values of enum name in declaration order.
func (r *Repository) Enum(name string) ([]EnumValue, bool) {
	v, ok := r.enums[name]
	return v, ok
}

// EnumNames returns the declared enum names, sorted.
func (r *Repository) EnumNames() []string {
	names := make([]string, 0, len(r.enums))
	for n := range r.enums {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// EnumLabel returns the label of key in enum name.
func (r *Repository) EnumLabel(name string, key int) (string, bool) {
	for _, v := range r.enums[name] {
		if v.Key == key {
			return v.Label, true
		}
	}
	return "", false
}

// Counts summarizes the table sizes, keyed by element name.
func (r *Repository) Counts() map[string]int {
	return map[string]int{
		"Event":  len(r.events),
		"File":   len(r.files),
		"Thread": len(r.threads),
		"Module": len(r.modules),
		"Source": len(r.sources),
		"Enum":   len(r.enums),
	}
}
