package model

// RawRecord is one decoded 20-byte firmware log record.
type RawRecord struct {
	Magic       uint8
	Severity    uint8  // 5 bits
	ThreadID    uint8  // 3 bits
	FileID      uint16 // 11 bits
	GroupID     uint8  // 5 bits
	EventID     uint16
	LineID      uint16 // 12 bits
	SeqID       uint8  // 4 bits
	P1          uint16
	P2          uint16
	P3          uint32
	Timestamp32 uint32
}

// LogLine is a formatted, display-ready firmware log line.
type LogLine struct {
	Sequence   uint8   `json:"sequence"`
	Source     string  `json:"source,omitempty"`  // dump file the record came from
	Session    string  `json:"session,omitempty"` // timestamp session id
	EventID    uint16  `json:"event_id"`
	FileName   string  `json:"file_name"`
	ThreadName string  `json:"thread_name"`
	GroupID    uint8   `json:"group_id"`
	Severity   uint8   `json:"severity"`
	LineID     uint16  `json:"line_id"`
	Timestamp  uint64  `json:"timestamp"`
	Delta      float64 `json:"delta"`
	Message    string  `json:"message"`

	// Unrecognized is set when the schema has no definition for EventID.
	Unrecognized bool `json:"unrecognized,omitempty"`
}

// RawChunk is a run of whole records read from a dump file.
// Reset marks the start of a new timestamp session for Source.
type RawChunk struct {
	Data   []byte
	Source string
	Reset  bool
}
