package godbf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// memoStore resolves memo block indices to the raw payload bytes of one
// logical memo. Implementations return the bytes of all blocks belonging
// to the memo as a single contiguous buffer; text decoding happens in
// the record decoder, never per block, so multibyte characters that
// straddle a block boundary survive intact.
type memoStore interface {
	read(index uint32) ([]byte, error)
	Close() error
}

// memoPath derives the companion memo file name: same base name, dialect
// extension, following the case of the data file's extension.
func memoPath(fileName string, dialect Dialect) string {
	ext := dialect.memoExt()
	dataExt := filepath.Ext(fileName)
	if dataExt == strings.ToUpper(dataExt) && dataExt != "" {
		ext = strings.ToUpper(ext)
	}
	return strings.TrimSuffix(fileName, dataExt) + ext
}

// openMemo opens the memo store appropriate to the dialect. Dialects
// without a memo convention report the memo file as not found, which
// loose mode turns into nil memo values.
func openMemo(fileName string, dialect Dialect) (memoStore, error) {
	ext := dialect.memoExt()
	if ext == "" {
		return nil, fmt.Errorf("%w: %s has no memo convention", ErrMemoFileNotFound, dialect)
	}
	path := memoPath(fileName, dialect)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMemoFileNotFound, path)
		}
		return nil, fmt.Errorf("open memo %s: %w", path, err)
	}
	switch dialect {
	case DialectDBase3Memo:
		return &dbase3MemoStore{f: f}, nil
	case DialectDBase4Memo:
		return &dbase4MemoStore{f: f}, nil
	case DialectFoxPro, DialectVFP:
		store, err := newFoxProMemoStore(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return store, nil
	}
	f.Close()
	return nil, fmt.Errorf("%w: %s has no memo convention", ErrMemoFileNotFound, dialect)
}

// dbtBlockSize is the fixed block size of both .dbt families.
const dbtBlockSize = 512

// memoSentinel terminates a dBase III memo payload.
var memoSentinel = []byte{EOF, EOF}

// dbase3MemoStore reads classic .dbt files: the payload starts at the
// indexed block and runs across consecutive blocks until the two-byte
// 0x1A 0x1A sentinel.
type dbase3MemoStore struct {
	f *os.File
}

func (s *dbase3MemoStore) read(index uint32) ([]byte, error) {
	var buf []byte
	offset := int64(index) * dbtBlockSize
	block := make([]byte, dbtBlockSize)
	for {
		n, err := s.f.ReadAt(block, offset)
		if n == 0 {
			if err == io.EOF {
				// File ended before the sentinel; hand back what exists.
				return bytes.TrimRight(buf, "\x1a\x00"), nil
			}
			return nil, fmt.Errorf("memo block %d: %w", index, err)
		}
		// Search one byte back across the block seam in case the sentinel
		// itself straddles two blocks.
		searchFrom := len(buf) - 1
		if searchFrom < 0 {
			searchFrom = 0
		}
		buf = append(buf, block[:n]...)
		if i := bytes.Index(buf[searchFrom:], memoSentinel); i >= 0 {
			return buf[:searchFrom+i], nil
		}
		if err == io.EOF {
			return bytes.TrimRight(buf, "\x1a\x00"), nil
		}
		offset += int64(n)
	}
}

func (s *dbase3MemoStore) Close() error { return s.f.Close() }

// dbase4MemoStore reads dBase IV/V .dbt files: each memo starts with an
// 8-byte header (FF FF 08 00 marker, then the total length including the
// header) and the payload may span any number of physical blocks.
type dbase4MemoStore struct {
	f *os.File
}

func (s *dbase4MemoStore) read(index uint32) ([]byte, error) {
	offset := int64(index) * dbtBlockSize
	header := make([]byte, 8)
	if _, err := io.ReadFull(io.NewSectionReader(s.f, offset, 8), header); err != nil {
		return nil, fmt.Errorf("memo block %d: %w", index, err)
	}
	if header[0] != 0xFF || header[1] != 0xFF {
		return nil, fmt.Errorf("memo block %d: bad block marker % X", index, header[:4])
	}
	total := binary.LittleEndian.Uint32(header[4:8])
	if total < 8 {
		return nil, fmt.Errorf("memo block %d: length %d shorter than its header", index, total)
	}
	payload := make([]byte, total-8)
	if _, err := io.ReadFull(io.NewSectionReader(s.f, offset+8, int64(total-8)), payload); err != nil {
		return nil, fmt.Errorf("memo block %d: %w", index, err)
	}
	return payload, nil
}

func (s *dbase4MemoStore) Close() error { return s.f.Close() }

// fptHeader is the leading structure of a FoxPro .fpt file, big-endian.
type fptHeader struct {
	NextFree  uint32
	Unused    [2]byte
	BlockSize uint16
}

// foxProMemoStore reads .fpt files: the block size comes from the file
// header and each memo starts with a big-endian type tag and payload
// length. Text and binary memos are fetched identically.
type foxProMemoStore struct {
	f         *os.File
	blockSize uint32
}

func newFoxProMemoStore(f *os.File) (*foxProMemoStore, error) {
	var h fptHeader
	if err := binary.Read(io.NewSectionReader(f, 0, 8), binary.BigEndian, &h); err != nil {
		return nil, fmt.Errorf("memo header: %w", err)
	}
	if h.BlockSize == 0 {
		return nil, fmt.Errorf("memo header: block size 0")
	}
	return &foxProMemoStore{f: f, blockSize: uint32(h.BlockSize)}, nil
}

func (s *foxProMemoStore) read(index uint32) ([]byte, error) {
	offset := int64(index) * int64(s.blockSize)
	header := make([]byte, 8)
	if _, err := io.ReadFull(io.NewSectionReader(s.f, offset, 8), header); err != nil {
		return nil, fmt.Errorf("memo block %d: %w", index, err)
	}
	length := binary.BigEndian.Uint32(header[4:8])
	payload := make([]byte, length)
	if _, err := io.ReadFull(io.NewSectionReader(s.f, offset+8, int64(length)), payload); err != nil {
		return nil, fmt.Errorf("memo block %d: %w", index, err)
	}
	return payload, nil
}

func (s *foxProMemoStore) Close() error { return s.f.Close() }
