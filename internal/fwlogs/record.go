// Package fwlogs decodes the binary firmware log stream into formatted lines.
package fwlogs

import (
	"encoding/binary"
	"errors"

	"github.com/atikulmunna/fwloom/internal/model"
)

// RecordSize is the size in bytes of one packed firmware log record.
const RecordSize = 20

// ErrTruncatedRecord is returned when fewer than RecordSize bytes remain.
var ErrTruncatedRecord = errors.New("fwlogs: truncated record")

// Record layout, little-endian, no padding:
//
//	DWORD1 magic[0:8) severity[8:13) thread[13:16) file[16:27) group[27:32)
//	DWORD2 event[0:16) line[16:28) seq[28:32)
//	DWORD3 p1:u16 p2:u16
//	DWORD4 p3:u32
//	DWORD5 timestamp:u32

// NumRecords returns how many whole records fit in n bytes.
func NumRecords(n int) int {
	return n / RecordSize
}

// Decode unpacks the first RecordSize bytes of b.
func Decode(b []byte) (model.RawRecord, error) {
	if len(b) < RecordSize {
		return model.RawRecord{}, ErrTruncatedRecord
	}

	dw1 := binary.LittleEndian.Uint32(b[0:4])
	dw2 := binary.LittleEndian.Uint32(b[4:8])

	return model.RawRecord{
		Magic:       uint8(dw1),
		Severity:    uint8(bits(dw1, 8, 5)),
		ThreadID:    uint8(bits(dw1, 13, 3)),
		FileID:      uint16(bits(dw1, 16, 11)),
		GroupID:     uint8(bits(dw1, 27, 5)),
		EventID:     uint16(dw2),
		LineID:      uint16(bits(dw2, 16, 12)),
		SeqID:       uint8(bits(dw2, 28, 4)),
		P1:          binary.LittleEndian.Uint16(b[8:10]),
		P2:          binary.LittleEndian.Uint16(b[10:12]),
		P3:          binary.LittleEndian.Uint32(b[12:16]),
		Timestamp32: binary.LittleEndian.Uint32(b[16:20]),
	}, nil
}

// Encode packs rec into its wire form. Fields wider than their bit slot
// are truncated to fit.
func Encode(rec model.RawRecord) []byte {
	b := make([]byte, RecordSize)

	dw1 := uint32(rec.Magic) |
		put(uint32(rec.Severity), 8, 5) |
		put(uint32(rec.ThreadID), 13, 3) |
		put(uint32(rec.FileID), 16, 11) |
		put(uint32(rec.GroupID), 27, 5)
	dw2 := uint32(rec.EventID) |
		put(uint32(rec.LineID), 16, 12) |
		put(uint32(rec.SeqID), 28, 4)

	binary.LittleEndian.PutUint32(b[0:4], dw1)
	binary.LittleEndian.PutUint32(b[4:8], dw2)
	binary.LittleEndian.PutUint16(b[8:10], rec.P1)
	binary.LittleEndian.PutUint16(b[10:12], rec.P2)
	binary.LittleEndian.PutUint32(b[12:16], rec.P3)
	binary.LittleEndian.PutUint32(b[16:20], rec.Timestamp32)
	return b
}

func bits(v uint32, shift, width uint) uint32 {
	return (v >> shift) & (1<<width - 1)
}

func put(v uint32, shift, width uint) uint32 {
	return (v & (1<<width - 1)) << shift
}
