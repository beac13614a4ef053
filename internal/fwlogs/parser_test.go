package fwlogs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/fwloom/internal/model"
	"github.com/atikulmunna/fwloom/internal/schema"
)

const testSchema = `<?xml version="1.0"?>
<Format version="1.2">
  <Event id="1" numberOfArguments="2" format="temperature {0}C, fan 0x{1:x}"/>
  <Event id="2" numberOfArguments="1" format="state {0,State}"/>
  <Event id="3" numberOfArguments="0" format=""/>
  <File id="10" Name="thermal.c"/>
  <Thread id="1" Name="Main"/>
  <Enums>
    <Enum Name="State">
      <EnumValue Key="0" Value="Idle"/>
      <EnumValue Key="1" Value="Streaming"/>
    </Enum>
  </Enums>
</Format>`

func loadTestSchema(t testing.TB) *schema.Repository {
	t.Helper()
	repo, err := schema.Load(testSchema)
	require.NoError(t, err)
	return repo
}

func buffer(recs ...model.RawRecord) []byte {
	var buf bytes.Buffer
	for _, r := range recs {
		buf.Write(Encode(r))
	}
	return buf.Bytes()
}

func TestParseKnownEvent(t *testing.T) {
	p := NewParser(loadTestSchema(t))
	var ts TimestampExtender

	lines := p.Parse(buffer(model.RawRecord{
		Severity: 3, ThreadID: 1, FileID: 10, GroupID: 4,
		EventID: 1, LineID: 88, SeqID: 2,
		P1: 41, P2: 0xA, Timestamp32: 5000,
	}), &ts)

	require.Len(t, lines, 1)
	assert.Equal(t, model.LogLine{
		Sequence:   2,
		EventID:    1,
		FileName:   "thermal.c",
		ThreadName: "Main",
		GroupID:    4,
		Severity:   3,
		LineID:     88,
		Timestamp:  5000,
		Delta:      0,
		Message:    "temperature 41C, fan 0x0a",
	}, lines[0])
}

func TestParseEnumParam(t *testing.T) {
	p := NewParser(loadTestSchema(t))
	var ts TimestampExtender

	lines := p.Parse(buffer(model.RawRecord{EventID: 2, P1: 1}), &ts)
	require.Len(t, lines, 1)
	assert.Equal(t, "state Streaming", lines[0].Message)
}

func TestParseEmptyFormat(t *testing.T) {
	p := NewParser(loadTestSchema(t))
	var ts TimestampExtender

	lines := p.Parse(buffer(model.RawRecord{EventID: 3, P1: 1}), &ts)
	require.Len(t, lines, 1)
	assert.Equal(t, "", lines[0].Message)
}

func TestParseUnrecognizedEvent(t *testing.T) {
	p := NewParser(loadTestSchema(t))
	var ts TimestampExtender

	lines := p.Parse(buffer(model.RawRecord{EventID: 9999, FileID: 5, ThreadID: 6, P1: 1, P2: 2, P3: 3}), &ts)

	require.Len(t, lines, 1)
	msg := lines[0].Message
	assert.Contains(t, msg, "9999")
	assert.Contains(t, msg, "0x01")
	assert.Contains(t, msg, "0x02")
	assert.Contains(t, msg, "0x03")
	assert.Equal(t, "*** Unrecognized Log Id: 9999! P1 = 0x01, P2 = 0x02, P3 = 0x03", msg)
	assert.Equal(t, UnknownName, lines[0].FileName)
	assert.Equal(t, UnknownName, lines[0].ThreadName)
	assert.True(t, lines[0].Unrecognized)
	assert.False(t, p.Known(9999))
	assert.True(t, p.Known(1))
}

func TestParseNilRepository(t *testing.T) {
	p := NewParser(nil)
	var ts TimestampExtender

	lines := p.Parse(buffer(model.RawRecord{EventID: 1, P1: 0xFF}), &ts)
	require.Len(t, lines, 1)
	assert.Equal(t, "*** Unrecognized Log Id: 1! P1 = 0xff, P2 = 0x00, P3 = 0x00", lines[0].Message)
	assert.Equal(t, UnknownName, lines[0].FileName)
}

func TestParseTruncatedBuffer(t *testing.T) {
	p := NewParser(loadTestSchema(t))
	var ts TimestampExtender

	buf := buffer(
		model.RawRecord{EventID: 1, Timestamp32: 10},
		model.RawRecord{EventID: 2, Timestamp32: 20},
		model.RawRecord{EventID: 3, Timestamp32: 30},
	)
	buf = append(buf, 1, 2, 3, 4, 5)
	require.Len(t, buf, RecordSize*3+5)

	lines := p.Parse(buf, &ts)
	require.Len(t, lines, 3)
	for i, l := range lines {
		assert.Equal(t, uint16(i+1), l.EventID, "order preserved")
	}
	assert.Equal(t, uint64(30), ts.Last(), "partial record must not advance timestamps")
}

func TestParseDeltaScale(t *testing.T) {
	var ts TimestampExtender
	buf := buffer(
		model.RawRecord{EventID: 1, Timestamp32: 100000},
		model.RawRecord{EventID: 1, Timestamp32: 300000},
	)

	lines := NewParser(nil).Parse(buf, &ts)
	require.Len(t, lines, 2)
	assert.Equal(t, 0.0, lines[0].Delta)
	assert.InDelta(t, 2.0, lines[1].Delta, 1e-9)

	ts.Zero()
	lines = NewParser(nil, WithDeltaScale(1)).Parse(buf, &ts)
	assert.Equal(t, 200000.0, lines[1].Delta)
}

func TestParseTimestampsAcrossCalls(t *testing.T) {
	p := NewParser(nil)
	var ts TimestampExtender

	first := p.Parse(buffer(model.RawRecord{Timestamp32: 0xFFFFFFF0}), &ts)
	second := p.Parse(buffer(model.RawRecord{Timestamp32: 0x00000005}), &ts)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, uint64(0x1_00000005), second[0].Timestamp)
	assert.InDelta(t, 21*DefaultDeltaScale, second[0].Delta, 1e-12)
}

func TestParseEmptyBuffer(t *testing.T) {
	var ts TimestampExtender
	assert.Empty(t, NewParser(nil).Parse(nil, &ts))
}

func BenchmarkParse(b *testing.B) {
	p := NewParser(loadTestSchema(b))
	recs := make([]model.RawRecord, 256)
	for i := range recs {
		recs[i] = model.RawRecord{EventID: uint16(i % 4), FileID: 10, ThreadID: 1, P1: uint16(i), Timestamp32: uint32(i * 100)}
	}
	buf := buffer(recs...)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var ts TimestampExtender
		p.Parse(buf, &ts)
	}
}
