package godbf

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding"
)

// The tests synthesize their own DBF/DBT/FPT files instead of shipping
// binaries. testFile mirrors the on-disk layout: a 32-byte header, one
// 32-byte descriptor per field, the 0x0D terminator, then fixed-length
// records each led by a deletion marker.

type testField struct {
	name    string
	typ     byte
	length  int
	decimal int
}

type testRecord struct {
	deleted bool
	marker  byte // overrides the deleted/live sentinel when non-zero
	values  [][]byte
}

type testFile struct {
	version          byte
	year, month, day byte
	languageID       byte
	fields           []testField
	records          []testRecord
	numRecords       int // 0 means len(records)
	noTerminator     bool
}

func text(s string) []byte { return []byte(s) }

func (tf *testFile) build(t *testing.T) []byte {
	t.Helper()

	headerLength := 32 + 32*len(tf.fields) + 1
	recordLength := 1
	for _, f := range tf.fields {
		recordLength += f.length
	}
	numRecords := tf.numRecords
	if numRecords == 0 {
		numRecords = len(tf.records)
	}

	buf := make([]byte, 0, headerLength+recordLength*len(tf.records)+1)

	header := make([]byte, 32)
	header[0] = tf.version
	header[1], header[2], header[3] = tf.year, tf.month, tf.day
	binary.LittleEndian.PutUint32(header[4:8], uint32(numRecords))
	binary.LittleEndian.PutUint16(header[8:10], uint16(headerLength))
	binary.LittleEndian.PutUint16(header[10:12], uint16(recordLength))
	header[29] = tf.languageID
	buf = append(buf, header...)

	for _, f := range tf.fields {
		desc := make([]byte, 32)
		require.LessOrEqual(t, len(f.name), 11, "field name too long")
		copy(desc[0:11], f.name)
		desc[11] = f.typ
		lengthByte, decimalByte := byte(f.length), byte(f.decimal)
		if tf.version == 0x30 && f.typ == 'C' && f.length > 255 {
			lengthByte = byte(f.length & 0xFF)
			decimalByte = byte(f.length >> 8)
		}
		desc[16] = lengthByte
		desc[17] = decimalByte
		buf = append(buf, desc...)
	}
	if !tf.noTerminator {
		buf = append(buf, fieldTerminator)
	} else {
		buf = append(buf, SPACE)
	}

	for _, r := range tf.records {
		marker := byte(liveMarker)
		if r.deleted {
			marker = deletedMarker
		}
		if r.marker != 0 {
			marker = r.marker
		}
		rec := make([]byte, recordLength)
		for i := range rec {
			rec[i] = SPACE
		}
		rec[0] = marker
		require.Equal(t, len(tf.fields), len(r.values), "record value count")
		pos := 1
		for i, f := range tf.fields {
			require.LessOrEqual(t, len(r.values[i]), f.length, "value overflows field %s", f.name)
			copy(rec[pos:pos+f.length], r.values[i])
			pos += f.length
		}
		buf = append(buf, rec...)
	}
	buf = append(buf, EOF)
	return buf
}

// write places the file in dir under name and returns its path.
func (tf *testFile) write(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, tf.build(t), 0o644))
	return path
}

func openTestFile(t *testing.T, tf *testFile, cfg *Config) *DBFHandler {
	t.Helper()
	path := tf.write(t, t.TempDir(), "table.dbf")
	dbf, err := Open(path, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { dbf.Close() })
	return dbf
}

// buildDBT3 lays memos out in a classic .dbt: payload at block
// index*512 followed by the 0x1A 0x1A sentinel. Indices must be chosen
// so memos do not overlap.
func buildDBT3(memos map[uint32][]byte) []byte {
	size := dbtBlockSize // block 0 is the header block
	for index, payload := range memos {
		end := int(index)*dbtBlockSize + len(payload) + 2
		if end > size {
			size = end
		}
	}
	// Round up to whole blocks.
	size = (size + dbtBlockSize - 1) / dbtBlockSize * dbtBlockSize
	buf := make([]byte, size)
	for index, payload := range memos {
		at := int(index) * dbtBlockSize
		copy(buf[at:], payload)
		copy(buf[at+len(payload):], memoSentinel)
	}
	return buf
}

// buildDBT4 lays memos out dBase IV style: an 8-byte block header
// (FF FF 08 00 + little-endian total length) before each payload.
func buildDBT4(memos map[uint32][]byte) []byte {
	size := dbtBlockSize
	for index, payload := range memos {
		end := int(index)*dbtBlockSize + 8 + len(payload)
		if end > size {
			size = end
		}
	}
	size = (size + dbtBlockSize - 1) / dbtBlockSize * dbtBlockSize
	buf := make([]byte, size)
	for index, payload := range memos {
		at := int(index) * dbtBlockSize
		buf[at], buf[at+1], buf[at+2], buf[at+3] = 0xFF, 0xFF, 0x08, 0x00
		binary.LittleEndian.PutUint32(buf[at+4:at+8], uint32(len(payload)+8))
		copy(buf[at+8:], payload)
	}
	return buf
}

// buildFPT lays memos out FoxPro style: a 512-byte file header carrying
// the block size big-endian at offset 6, then per-memo 8-byte headers of
// big-endian type and payload length.
func buildFPT(blockSize int, memos map[uint32][]byte) []byte {
	size := 512
	for index, payload := range memos {
		end := int(index)*blockSize + 8 + len(payload)
		if end > size {
			size = end
		}
	}
	size = (size + blockSize - 1) / blockSize * blockSize
	buf := make([]byte, size)
	binary.BigEndian.PutUint16(buf[6:8], uint16(blockSize))
	for index, payload := range memos {
		at := int(index) * blockSize
		binary.BigEndian.PutUint32(buf[at:at+4], 1) // text memo
		binary.BigEndian.PutUint32(buf[at+4:at+8], uint32(len(payload)))
		copy(buf[at+8:], payload)
	}
	return buf
}

func writeMemoFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

// encodeText converts UTF-8 text to the given legacy codepage.
func encodeText(t *testing.T, enc encoding.Encoding, s string) []byte {
	t.Helper()
	out, err := enc.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return out
}

// memoIndex4 renders a 4-byte little-endian memo block reference.
func memoIndex4(index uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, index)
	return b
}
