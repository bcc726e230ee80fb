package godbf

import (
	"errors"
	"fmt"
	"io"
	"iter"
)

// readChunkRecords bounds how many physical records one I/O fetches.
const readChunkRecords = 1024

// ReadRecords reads up to maxCount physical records from the cursor
// position, advances the cursor past them, and returns the decoded
// subset the handle is configured to expose (deleted records are
// filtered out unless IncludeDeleted). maxCount <= 0 reads to end of
// file. The cursor is stateful: a later call resumes where this one
// stopped.
func (dbf *DBFHandler) ReadRecords(maxCount int) ([]*Record, error) {
	var out []*Record
	remaining := maxCount
	for {
		if maxCount > 0 && remaining <= 0 {
			return out, nil
		}
		want := readChunkRecords
		if maxCount > 0 && remaining < want {
			want = remaining
		}
		buf, n, err := dbf.readChunk(want)
		if err != nil {
			return out, err
		}
		if n == 0 {
			return out, nil
		}
		recLen := int(dbf.header.RecordLength)
		for i := 0; i < n; i++ {
			raw := buf[i*recLen : (i+1)*recLen]
			if raw[0] == EOF {
				// File terminator before the header's record count ran out.
				dbf.next = dbf.header.NumRecords
				return out, nil
			}
			dbf.next++
			remaining--
			rec, err := dbf.decodeRecord(raw)
			if err != nil {
				return out, err
			}
			if rec.Deleted && !dbf.config.IncludeDeleted {
				continue
			}
			out = append(out, rec)
		}
	}
}

// Records returns a lazy, single-pass sequence of decoded records with
// the same filtering rules as ReadRecords. It shares the handle's
// cursor: records consumed here are consumed for later calls too, and
// breaking out early reads nothing beyond the chunk already fetched.
func (dbf *DBFHandler) Records() iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for {
			buf, n, err := dbf.readChunk(readChunkRecords)
			if err != nil {
				yield(nil, err)
				return
			}
			if n == 0 {
				return
			}
			recLen := int(dbf.header.RecordLength)
			for i := 0; i < n; i++ {
				raw := buf[i*recLen : (i+1)*recLen]
				if raw[0] == EOF {
					dbf.next = dbf.header.NumRecords
					return
				}
				dbf.next++
				rec, err := dbf.decodeRecord(raw)
				if err != nil {
					yield(nil, err)
					return
				}
				if rec.Deleted && !dbf.config.IncludeDeleted {
					continue
				}
				if !yield(rec, nil) {
					return
				}
			}
		}
	}
}

// readChunk fetches up to max physical records at the cursor position
// into one buffer. It does not advance the cursor; decoding loops do, so
// an early break leaves the unconsumed tail for the next call.
func (dbf *DBFHandler) readChunk(max int) ([]byte, int, error) {
	remaining := int(dbf.header.NumRecords) - int(dbf.next)
	if remaining <= 0 {
		return nil, 0, nil
	}
	n := remaining
	if n > max {
		n = max
	}
	recLen := int(dbf.header.RecordLength)
	buf := make([]byte, n*recLen)
	offset := int64(dbf.header.HeaderLength) + int64(dbf.next)*int64(recLen)
	read, err := dbf.f.ReadAt(buf, offset)
	if err != nil && err != io.EOF && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, 0, fmt.Errorf("read records: %w", err)
	}
	n = read / recLen
	return buf[:n*recLen], n, nil
}
