package godbf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Dialect identifies the binary layout family of an open file. It is
// determined once from the header's version byte and never changes.
type Dialect int

const (
	// DialectDBase3 is classic dBase III without a memo file.
	DialectDBase3 Dialect = iota
	// DialectDBase3Memo is dBase III+ with a .dbt memo file whose blocks
	// run to a two-byte 0x1A 0x1A sentinel.
	DialectDBase3Memo
	// DialectDBase4Memo is dBase IV/V with a .dbt memo file whose blocks
	// carry an explicit length prefix.
	DialectDBase4Memo
	// DialectFoxPro is FoxPro 2.x with a .fpt memo file.
	DialectFoxPro
	// DialectVFP is Visual FoxPro; the .fpt memo file is only opened when
	// a field references it.
	DialectVFP
	// DialectLoose is the best-effort fallback assigned to unknown
	// version bytes in loose mode. It has no memo convention.
	DialectLoose
)

// dialectForVersion maps the supported header version bytes.
var dialectForVersion = map[byte]Dialect{
	0x02: DialectDBase3, // FoxBASE
	0x03: DialectDBase3,
	0x83: DialectDBase3Memo,
	0x8B: DialectDBase4Memo,
	0x30: DialectVFP,
	0xF5: DialectFoxPro,
}

// memoExt reports the companion memo file extension for the dialect, or
// "" when the dialect has none.
func (d Dialect) memoExt() string {
	switch d {
	case DialectDBase3Memo, DialectDBase4Memo:
		return ".dbt"
	case DialectFoxPro, DialectVFP:
		return ".fpt"
	}
	return ""
}

func (d Dialect) String() string {
	switch d {
	case DialectDBase3:
		return "dBase III"
	case DialectDBase3Memo:
		return "dBase III with memo"
	case DialectDBase4Memo:
		return "dBase IV with memo"
	case DialectFoxPro:
		return "FoxPro"
	case DialectVFP:
		return "Visual FoxPro"
	case DialectLoose:
		return "unknown (loose)"
	}
	return "invalid"
}

func (dbf *DBFHandler) initHeader() error {
	if err := binary.Read(dbf.f, binary.LittleEndian, &dbf.header); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	dialect, ok := dialectForVersion[dbf.header.Version]
	if !ok {
		if dbf.config.ReadMode != ReadModeLoose {
			return fmt.Errorf("%w: %d", ErrUnsupportedVersion, dbf.header.Version)
		}
		dialect = DialectLoose
	}
	dbf.dialect = dialect

	if dbf.header.HeaderLength < 33 {
		return fmt.Errorf("%w: header length %d", ErrMalformedHeader, dbf.header.HeaderLength)
	}
	if dbf.header.RecordLength == 0 {
		return fmt.Errorf("%w: record length 0", ErrMalformedHeader)
	}
	return nil
}

func (dbf *DBFHandler) initFields() error {
	// The descriptor array sits between the fixed header and the first
	// record; read it whole and walk it in 32-byte steps until the
	// terminator byte.
	raw := make([]byte, int(dbf.header.HeaderLength)-32)
	if _, err := io.ReadFull(dbf.f, raw); err != nil {
		return fmt.Errorf("%w: field descriptors: %v", ErrMalformedHeader, err)
	}

	var fields []FieldDescriptor
	seen := make(map[string]bool)
	offset := 1 // byte 0 of a record is the deletion marker
	pos := 0
	for {
		if pos >= len(raw) {
			return fmt.Errorf("%w: field descriptor array has no terminator", ErrMalformedHeader)
		}
		if raw[pos] == fieldTerminator {
			break
		}
		if pos+32 > len(raw) {
			return fmt.Errorf("%w: truncated field descriptor at offset %d", ErrMalformedHeader, 32+pos)
		}
		var desc rawFieldDescriptor
		if err := binary.Read(bytes.NewReader(raw[pos:pos+32]), binary.LittleEndian, &desc); err != nil {
			return fmt.Errorf("%w: field descriptor: %v", ErrMalformedHeader, err)
		}
		pos += 32

		end := bytes.IndexByte(desc.Name[:], NUL)
		if end == -1 {
			end = len(desc.Name)
		}
		name := strings.TrimSpace(string(desc.Name[:end]))
		if name == "" {
			return fmt.Errorf("%w: field %d has an empty name", ErrMalformedHeader, len(fields))
		}
		if seen[name] {
			// Structural conflict, fatal in both modes.
			return fmt.Errorf("%w: '%s'", ErrDuplicateFieldName, name)
		}
		seen[name] = true

		length := int(desc.Length)
		if dbf.dialect == DialectVFP && desc.Type == 'C' {
			// VFP packs a 16-bit character width into the length and
			// decimal bytes.
			length = int(desc.Length) | int(desc.Decimal)<<8
		}
		fields = append(fields, FieldDescriptor{
			Name:         name,
			Type:         desc.Type,
			Offset:       offset,
			Length:       length,
			DecimalCount: int(desc.Decimal),
		})
		offset += length
	}

	if offset > int(dbf.header.RecordLength) {
		return fmt.Errorf("%w: fields span %d bytes but record length is %d",
			ErrMalformedHeader, offset, dbf.header.RecordLength)
	}
	dbf.fields = fields
	return nil
}
