package fwlogs

import (
	"fmt"

	"github.com/atikulmunna/fwloom/internal/model"
	"github.com/atikulmunna/fwloom/internal/schema"
)

// DefaultDeltaScale converts timer ticks between records to display units.
const DefaultDeltaScale = 0.00001

// UnknownName is used for file and thread ids missing from the schema.
const UnknownName = "Unknown"

// Parser assembles raw records into formatted log lines.
type Parser struct {
	repo   *schema.Repository
	scale  float64
	format Formatter
}

// Option configures a Parser.
type Option func(*Parser)

// WithDeltaScale sets the multiplier applied to timestamp deltas.
func WithDeltaScale(scale float64) Option {
	return func(p *Parser) { p.scale = scale }
}

// NewParser returns a Parser backed by repo. A nil repo is allowed: every
// event then renders as unrecognized and every name as Unknown.
func NewParser(repo *schema.Repository, opts ...Option) *Parser {
	p := &Parser{repo: repo, scale: DefaultDeltaScale}
	if repo != nil {
		p.format.Enums = repo
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse decodes every whole record in buf, in order. Trailing bytes that
// do not form a whole record are ignored. ts is advanced once per record.
func (p *Parser) Parse(buf []byte, ts *TimestampExtender) []model.LogLine {
	lines := make([]model.LogLine, 0, NumRecords(len(buf)))
	for off := 0; ; off += RecordSize {
		rec, err := Decode(buf[off:])
		if err != nil {
			break
		}
		lines = append(lines, p.ParseRecord(rec, ts))
	}
	return lines
}

// ParseRecord formats a single decoded record. Schema misses never fail:
// unknown events get a fallback message and unknown names read "Unknown".
func (p *Parser) ParseRecord(rec model.RawRecord, ts *TimestampExtender) model.LogLine {
	params := []uint32{uint32(rec.P1), uint32(rec.P2), rec.P3}

	ev, known := p.event(rec.EventID)
	template := ev.Format
	if !known {
		template = fallbackTemplate(rec.EventID)
	}

	ts64 := ts.Extend(rec.Timestamp32)
	return model.LogLine{
		Sequence:   rec.SeqID,
		EventID:    rec.EventID,
		FileName:   p.name(rec.FileID, (*schema.Repository).FileName),
		ThreadName: p.name(uint16(rec.ThreadID), (*schema.Repository).ThreadName),
		GroupID:    rec.GroupID,
		Severity:   rec.Severity,
		LineID:     rec.LineID,
		Timestamp:  ts64,
		Delta:      float64(ts.Delta()) * p.scale,
		Message:    p.format.Format(template, params),

		Unrecognized: !known,
	}
}

// Known reports whether the schema defines event id.
func (p *Parser) Known(id uint16) bool {
	_, ok := p.event(id)
	return ok
}

func (p *Parser) event(id uint16) (schema.Event, bool) {
	if p.repo == nil {
		return schema.Event{}, false
	}
	return p.repo.Event(int(id))
}

func (p *Parser) name(id uint16, lookup func(*schema.Repository, int) (string, bool)) string {
	if p.repo == nil {
		return UnknownName
	}
	if s, ok := lookup(p.repo, int(id)); ok {
		return s
	}
	return UnknownName
}

func fallbackTemplate(id uint16) string {
	return fmt.Sprintf("*** Unrecognized Log Id: %d! P1 = 0x{0:x}, P2 = 0x{1:x}, P3 = 0x{2:x}", id)
}
