package godbf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Record is one decoded row: field name -> value. Values are string,
// int64, float64, bool, time.Time or nil. The key set is fixed per file
// (the field descriptor list); only values vary. Deleted is meaningful
// when the handle was opened with IncludeDeleted.
type Record struct {
	Deleted bool
	Values  map[string]interface{}
}

// unixEpochJulianDay is the Julian day number of 1970-01-01, the pivot
// for VFP datetime fields.
const unixEpochJulianDay = 2440588

const msPerDay = 24 * 60 * 60 * 1000

// decodeRecord converts one raw fixed-length record buffer into a
// Record. Aside from memo fetches delegated to the memo store, decoding
// is pure.
func (dbf *DBFHandler) decodeRecord(raw []byte) (*Record, error) {
	deleted := false
	switch raw[0] {
	case deletedMarker:
		deleted = true
	case liveMarker:
	default:
		if dbf.config.ReadMode != ReadModeLoose {
			return nil, fmt.Errorf("%w: unrecognized deletion marker 0x%02X", ErrMalformedRecord, raw[0])
		}
		// Loose: treat as live.
	}

	rec := &Record{
		Deleted: deleted,
		Values:  make(map[string]interface{}, len(dbf.fields)),
	}
	for _, f := range dbf.fields {
		v, err := dbf.decodeField(f, raw[f.Offset:f.Offset+f.Length])
		if err != nil {
			return nil, err
		}
		rec.Values[f.Name] = v
	}
	return rec, nil
}

func (dbf *DBFHandler) decodeField(f FieldDescriptor, raw []byte) (interface{}, error) {
	switch f.Type {
	case 'C':
		return dbf.decodeText(f, raw)
	case 'N':
		s := strings.TrimSpace(string(raw))
		if s == "" {
			return nil, nil
		}
		if f.DecimalCount == 0 && !strings.Contains(s, ".") {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, nil
			}
			return n, nil
		}
		return parseFloat(s)
	case 'F':
		s := strings.TrimSpace(string(raw))
		if s == "" {
			return nil, nil
		}
		return parseFloat(s)
	case 'L':
		return decodeLogical(raw), nil
	case 'D':
		s := strings.TrimSpace(string(raw))
		if s == "" {
			return nil, nil
		}
		d, err := time.ParseInLocation("20060102", s, time.UTC)
		if err != nil {
			return nil, nil
		}
		return d, nil
	case 'T':
		return decodeDateTime(raw), nil
	case 'I':
		if len(raw) < 4 {
			return nil, nil
		}
		return int64(int32(binary.LittleEndian.Uint32(raw))), nil
	case 'B':
		if dbf.dialect == DialectVFP && len(raw) == 8 {
			return math.Float64frombits(binary.LittleEndian.Uint64(raw)), nil
		}
		return dbf.unsupportedField(f, raw)
	case 'M', 'G':
		return dbf.decodeMemo(f, raw)
	default:
		return dbf.unsupportedField(f, raw)
	}
}

// decodeText decodes a character slice with the field's resolved
// decoder, trimming trailing padding only so leading content survives.
func (dbf *DBFHandler) decodeText(f FieldDescriptor, raw []byte) (interface{}, error) {
	dec := dbf.fieldDecoders[f.Name]
	s, err := dec.Decode(trimRightPadding(raw))
	if err != nil {
		return nil, fmt.Errorf("field %s: decode text: %w", f.Name, err)
	}
	return s, nil
}

func trimRightPadding(b []byte) []byte {
	end := len(b)
	for end > 0 && (b[end-1] == SPACE || b[end-1] == NUL) {
		end--
	}
	return b[:end]
}

func parseFloat(s string) (interface{}, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, nil
	}
	return v, nil
}

func decodeLogical(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case 'T', 't', 'Y', 'y':
		return true
	case 'F', 'f', 'N', 'n':
		return false
	}
	return nil
}

// decodeDateTime unpacks the VFP 8-byte datetime: a little-endian Julian
// day number followed by milliseconds since midnight.
func decodeDateTime(raw []byte) interface{} {
	if len(raw) < 8 {
		return nil
	}
	julian := binary.LittleEndian.Uint32(raw[0:4])
	msec := binary.LittleEndian.Uint32(raw[4:8])
	if julian == 0 {
		return nil
	}
	unixMs := (int64(julian)-unixEpochJulianDay)*msPerDay + int64(msec)
	return time.UnixMilli(unixMs).UTC()
}

// decodeMemo resolves a memo field: the slice holds a block index, zero
// or blank meaning no memo. The assembled raw bytes of all blocks are
// decoded in one pass with the field's decoder.
func (dbf *DBFHandler) decodeMemo(f FieldDescriptor, raw []byte) (interface{}, error) {
	var index uint32
	if f.Length == 4 {
		index = binary.LittleEndian.Uint32(raw)
	} else {
		s := strings.TrimSpace(string(raw))
		if s == "" {
			return nil, nil
		}
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, nil
		}
		index = uint32(n)
	}
	if index == 0 {
		return nil, nil
	}

	store, err := dbf.memoFile()
	if err != nil {
		if errors.Is(err, ErrMemoFileNotFound) && dbf.config.ReadMode == ReadModeLoose {
			return nil, nil
		}
		return nil, err
	}
	payload, err := store.read(index)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.Name, err)
	}
	dec := dbf.fieldDecoders[f.Name]
	s, err := dec.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("field %s: decode memo: %w", f.Name, err)
	}
	return s, nil
}

// unsupportedField applies the tolerance policy to unknown type codes:
// strict fails naming the field and type, loose falls back to trimmed
// best-effort text.
func (dbf *DBFHandler) unsupportedField(f FieldDescriptor, raw []byte) (interface{}, error) {
	if dbf.config.ReadMode != ReadModeLoose {
		return nil, fmt.Errorf("%w: field '%s' has type '%c'", ErrUnsupportedFieldType, f.Name, f.Type)
	}
	s, err := dbf.fieldDecoders[f.Name].Decode(trimRightPadding(raw))
	if err != nil || s == "" {
		return nil, nil
	}
	return s, nil
}

// Scan copies a record's values into a struct via `dbf:"column"` tags.
// Tagged fields with no matching column, and columns whose value is nil,
// are left at their zero value.
func (r *Record) Scan(model interface{}) error {
	rv := reflect.ValueOf(model)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("Scan requires a non-nil pointer to a struct")
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("Scan requires a pointer to a struct, not a %s", rv.Kind())
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		column := rt.Field(i).Tag.Get("dbf")
		if column == "" || column == "-" {
			continue
		}
		value, ok := r.Values[column]
		if !ok || value == nil {
			continue
		}
		fv := rv.Field(i)
		if !fv.CanSet() {
			continue
		}
		if err := setScanField(fv, value); err != nil {
			return fmt.Errorf("column %s: %w", column, err)
		}
	}
	return nil
}

func setScanField(fv reflect.Value, value interface{}) error {
	vv := reflect.ValueOf(value)
	if vv.Type().AssignableTo(fv.Type()) {
		fv.Set(vv)
		return nil
	}
	switch fv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch n := value.(type) {
		case int64:
			fv.SetInt(n)
			return nil
		case float64:
			fv.SetInt(int64(n))
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, ok := value.(int64); ok && n >= 0 {
			fv.SetUint(uint64(n))
			return nil
		}
	case reflect.Float32, reflect.Float64:
		switch n := value.(type) {
		case float64:
			fv.SetFloat(n)
			return nil
		case int64:
			fv.SetFloat(float64(n))
			return nil
		}
	}
	return fmt.Errorf("cannot assign %T to %s", value, fv.Type())
}
