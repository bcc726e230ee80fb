package godbf

import (
	"fmt"
	"strings"

	"github.com/axgle/mahonia"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// decoder turns the raw bytes of one field (or one assembled memo) into
// text. Implementations hold no per-record state.
type decoder interface {
	Decode(b []byte) (string, error)
}

type xtextDecoder struct {
	dec *encoding.Decoder
}

func (d *xtextDecoder) Decode(b []byte) (string, error) {
	out, err := d.dec.Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

type mahoniaDecoder struct {
	dec mahonia.Decoder
}

func (d *mahoniaDecoder) Decode(b []byte) (string, error) {
	return d.dec.ConvertString(string(b)), nil
}

// codepages maps normalized encoding names to their implementations.
// Names are matched after lowercasing and stripping "-", "_" and spaces,
// so "tis620", "TIS-620" and "tis 620" are the same key.
var codepages = map[string]encoding.Encoding{
	"ascii":       charmap.Windows1252,
	"latin1":      charmap.ISO8859_1,
	"iso88591":    charmap.ISO8859_1,
	"tis620":      charmap.Windows874,
	"windows874":  charmap.Windows874,
	"cp874":       charmap.Windows874,
	"gb2312":      simplifiedchinese.GBK,
	"gbk":         simplifiedchinese.GBK,
	"cp936":       simplifiedchinese.GBK,
	"gb18030":     simplifiedchinese.GB18030,
	"big5":        traditionalchinese.Big5,
	"cp950":       traditionalchinese.Big5,
	"shiftjis":    japanese.ShiftJIS,
	"cp932":       japanese.ShiftJIS,
	"euckr":       korean.EUCKR,
	"cp949":       korean.EUCKR,
	"utf8":        unicode.UTF8,
	"cp437":       charmap.CodePage437,
	"cp850":       charmap.CodePage850,
	"cp852":       charmap.CodePage852,
	"cp866":       charmap.CodePage866,
	"cp1250":      charmap.Windows1250,
	"windows1250": charmap.Windows1250,
	"cp1251":      charmap.Windows1251,
	"windows1251": charmap.Windows1251,
	"cp1252":      charmap.Windows1252,
	"windows1252": charmap.Windows1252,
	"cp1253":      charmap.Windows1253,
	"cp1254":      charmap.Windows1254,
	"cp1255":      charmap.Windows1255,
	"cp1256":      charmap.Windows1256,
	"cp1257":      charmap.Windows1257,
}

// languageDrivers maps the header's language driver ID byte to the
// codepage it declares. Only used when no explicit encoding is given.
var languageDrivers = map[byte]string{
	0x01: "cp437",
	0x02: "cp850",
	0x03: "cp1252",
	0x57: "cp1252",
	0x58: "cp1252",
	0x59: "cp1252",
	0x64: "cp852",
	0x66: "cp866",
	0x78: "big5",
	0x79: "cp949",
	0x7A: "gb2312",
	0x7B: "cp932",
	0x7C: "tis620",
	0x7D: "cp1255",
	0x7E: "cp1256",
	0xC8: "cp1250",
	0xC9: "cp1251",
	0xCA: "cp1254",
	0xCB: "cp1253",
	0xCC: "cp1257",
}

func normalizeEncodingName(name string) string {
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(name))
}

// resolveEncoding builds a decoder for an encoding name. Names the
// built-in table does not know are handed to mahonia.
func resolveEncoding(name string) (decoder, error) {
	if enc, ok := codepages[normalizeEncodingName(name)]; ok {
		return &xtextDecoder{dec: enc.NewDecoder()}, nil
	}
	if dec := mahonia.NewDecoder(name); dec != nil {
		return &mahoniaDecoder{dec: dec}, nil
	}
	return nil, fmt.Errorf("unknown encoding %q", name)
}

// initDecoders resolves the file default and the per-field overrides
// into a fixed decoder table. Overrides naming fields that do not exist
// in this file are ignored.
func (dbf *DBFHandler) initDecoders() error {
	name := dbf.config.Encoding
	if name == "" {
		if driver, ok := languageDrivers[dbf.header.LanguageDriverID]; ok {
			name = driver
		} else {
			name = "latin1"
		}
	}
	def, err := resolveEncoding(name)
	if err != nil {
		return err
	}
	dbf.defaultDecoder = def

	dbf.fieldDecoders = make(map[string]decoder, len(dbf.fields))
	for _, f := range dbf.fields {
		dbf.fieldDecoders[f.Name] = def
	}
	for fieldName, encName := range dbf.config.FieldEncodings {
		if _, ok := dbf.fieldDecoders[fieldName]; !ok {
			continue
		}
		dec, err := resolveEncoding(encName)
		if err != nil {
			return fmt.Errorf("field %s: %w", fieldName, err)
		}
		dbf.fieldDecoders[fieldName] = dec
	}
	return nil
}
