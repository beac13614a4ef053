package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerbosity(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "INFO|WARNING|ERROR", want: 28},
		{in: "7", want: 7},
		{in: "0", want: 0},
		{in: "NONE", want: 0},
		{in: "VERBOSE|DEBUG|INFO|WARNING|ERROR|FATAL", want: 63},
		{in: "FATAL|FATAL", want: 32},
		{in: "7x", wantErr: true},
		{in: "", wantErr: true},
		{in: "info", wantErr: true},
		{in: "INFO|", wantErr: true},
		{in: "INFO||ERROR", wantErr: true},
		{in: " INFO", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVerbosity(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocumentQueries(t *testing.T) {
	events, err := Events(parserXML)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, 3, events[100].NumParams)

	enums, err := Enums(parserXML)
	require.NoError(t, err)
	assert.Equal(t, []EnumValue{{Key: 1, Label: "On"}}, enums["Power"])

	files, err := Files(parserXML)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "main.c", 2: "depth.c"}, files)

	threads, err := Threads(parserXML)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "Idle", 3: "Stream"}, threads)

	modules, err := Modules(parserXML)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{5: "Calibration"}, modules)

	sources, err := ListSources(definitionsXML)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "HKR", 1: "RTOS"}, sources)

	path, err := SourceParserPathIn(0, definitionsXML)
	require.NoError(t, err)
	assert.Equal(t, "HKR/parser.xml", path)

	_, err = SourceParserPathIn(1, definitionsXML)
	assert.ErrorIs(t, err, ErrNotFound)

	mv, err := ModuleVerbosityIn(0, definitionsXML)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 28, 1: 7}, mv)

	_, err = ModuleVerbosityIn(5, definitionsXML)
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := FileVersion(definitionsXML)
	require.NoError(t, err)
	assert.Equal(t, "3.1", v)

	_, err = FileVersion(`<Format/>`)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentQueriesOnlyValidateTheirTable(t *testing.T) {
	doc := `<Format>
  <Event id="1" numberOfArguments="1" format="ok {0}"/>
  <Thread id="2"/>
</Format>`

	events, err := Events(doc)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	_, err = Threads(doc)
	assert.ErrorIs(t, err, ErrMissingAttribute)

	_, err = Load(doc)
	assert.ErrorIs(t, err, ErrMissingAttribute)
}

func TestEventMissingFormatInDocumentQuery(t *testing.T) {
	_, err := Events(`<Format><Event id="4" numberOfArguments="1"/></Format>`)
	var ma *MissingAttributeError
	require.ErrorAs(t, err, &ma)
	assert.Equal(t, "format", ma.Attribute)
}

func TestInvalidRootForAllQueries(t *testing.T) {
	doc := `<Root/>`
	_, err := Events(doc)
	assert.ErrorIs(t, err, ErrInvalidRoot)
	_, err = Enums(doc)
	assert.ErrorIs(t, err, ErrInvalidRoot)
	_, err = ListSources(doc)
	assert.ErrorIs(t, err, ErrInvalidRoot)
	_, err = FileVersion(doc)
	assert.ErrorIs(t, err, ErrInvalidRoot)
}
