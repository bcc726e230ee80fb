// Package godbf reads dBase-family database files (.DBF) and their
// companion memo files (.DBT/.FPT), covering the classic dBase III/IV
// layouts as well as the FoxPro and Visual FoxPro variants.
//
// A DBFHandler is a single-owner session: it holds the parsed header,
// the per-field codepage decoders, a lazily opened memo store and the
// read cursor. Concurrent calls on one handle are not safe; callers
// that need parallelism open independent handles, which share nothing.
package godbf

import (
	"fmt"
	"os"
	"time"
)

// ReadMode selects the error-tolerance policy for an open file.
type ReadMode int

const (
	// ReadModeStrict fails fast on unsupported versions, unknown field
	// types, missing memo files and unrecognized deletion markers.
	ReadModeStrict ReadMode = iota

	// ReadModeLoose degrades instead of failing: unknown versions fall
	// back to a generic dialect, unknown field types decode to
	// best-effort text, missing memo files yield nil memo values.
	// Structural conflicts (duplicate field names, malformed headers)
	// remain fatal.
	ReadModeLoose
)

// Config controls how a file is opened. The zero value (or a nil
// pointer) means: encoding from the header's language driver byte with a
// latin1 fallback, strict mode, deleted records hidden.
type Config struct {
	// Encoding names the file-wide default codepage ("tis620", "gb2312",
	// "big5", "latin1", ...). Empty means interpret the header's language
	// driver byte, falling back to latin1.
	Encoding string

	// FieldEncodings overrides the codepage per field name. Names that do
	// not match any field in the file are ignored.
	FieldEncodings map[string]string

	ReadMode ReadMode

	// IncludeDeleted makes reads return deleted records too, with the
	// Record.Deleted flag set.
	IncludeDeleted bool
}

// DBFHandler is an open DBF file. It exclusively owns the data file and
// the memo file and releases both on Close.
type DBFHandler struct {
	fileName string
	f        *os.File
	config   Config

	header  dbfHeader
	dialect Dialect
	fields  []FieldDescriptor

	defaultDecoder decoder
	fieldDecoders  map[string]decoder

	memo       memoStore
	memoErr    error
	memoOpened bool

	// next is the cursor: the physical index of the next record to read.
	// It only ever advances.
	next uint32
}

// Open opens fileName for reading. config may be nil.
func Open(fileName string, config *Config) (*DBFHandler, error) {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	f, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fileName, err)
	}
	dbf := &DBFHandler{
		fileName: fileName,
		f:        f,
		config:   cfg,
	}
	if err := dbf.initHeader(); err != nil {
		f.Close()
		return nil, err
	}
	if err := dbf.initFields(); err != nil {
		f.Close()
		return nil, err
	}
	if err := dbf.initDecoders(); err != nil {
		f.Close()
		return nil, err
	}
	return dbf, nil
}

// Close releases the data file and, if one was opened, the memo file.
func (dbf *DBFHandler) Close() error {
	var memoErr error
	if dbf.memo != nil {
		memoErr = dbf.memo.Close()
		dbf.memo = nil
	}
	err := dbf.f.Close()
	if err != nil {
		return err
	}
	return memoErr
}

// NumRecords reports the record count stored in the header. It includes
// physically deleted records and does not change as records are read.
func (dbf *DBFHandler) NumRecords() uint32 {
	return dbf.header.NumRecords
}

// LastUpdate reports the file's date-of-last-update header field.
func (dbf *DBFHandler) LastUpdate() time.Time {
	return time.Date(1900+int(dbf.header.LastUpdateYear),
		time.Month(dbf.header.LastUpdateMonth), int(dbf.header.LastUpdateDay),
		0, 0, 0, 0, time.UTC)
}

// Dialect reports the binary layout family detected at open time.
func (dbf *DBFHandler) Dialect() Dialect {
	return dbf.dialect
}

// Fields returns the field descriptors in declaration order.
func (dbf *DBFHandler) Fields() []FieldDescriptor {
	out := make([]FieldDescriptor, len(dbf.fields))
	copy(out, dbf.fields)
	return out
}

// memoFile resolves the lazily opened memo store. The store is opened at
// most once per handle; a failed open is sticky.
func (dbf *DBFHandler) memoFile() (memoStore, error) {
	if !dbf.memoOpened {
		dbf.memoOpened = true
		dbf.memo, dbf.memoErr = openMemo(dbf.fileName, dbf.dialect)
	}
	return dbf.memo, dbf.memoErr
}
