package godbf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

func TestResolveEncodingNames(t *testing.T) {
	for _, name := range []string{
		"tis620", "TIS-620", "gb2312", "big5", "latin1", "cp1252",
		"Windows-1252", "utf8", "cp850",
	} {
		dec, err := resolveEncoding(name)
		require.NoError(t, err, "encoding %q", name)
		require.NotNil(t, dec)
	}

	_, err := resolveEncoding("not-a-real-encoding")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-a-real-encoding")
}

func TestTextRoundTrip(t *testing.T) {
	// Decoding with encoding E must reproduce the text whose E-encoded
	// bytes were stored, for each supported non-lossy codepage.
	tests := []struct {
		encodingName string
		enc          encoding.Encoding
		sample       string
	}{
		{"tis620", charmap.Windows874, "ภาษาไทย"},
		{"gb2312", simplifiedchinese.GBK, "简体中文"},
		{"big5", traditionalchinese.Big5, "繁體中文"},
		{"latin1", charmap.ISO8859_1, "café au lait"},
	}
	for _, tc := range tests {
		t.Run(tc.encodingName, func(t *testing.T) {
			raw := encodeText(t, tc.enc, tc.sample)
			field := testField{name: "TXT", typ: 'C', length: len(raw) + 4}
			got := decodeOne(t, 0x03, field, raw, &Config{Encoding: tc.encodingName})
			assert.Equal(t, tc.sample, got)

			// Non-lossy round trip back to the original bytes.
			again := encodeText(t, tc.enc, got.(string))
			assert.Equal(t, raw, again)
		})
	}
}

func TestPerFieldEncodingOverride(t *testing.T) {
	thai := encodeText(t, charmap.Windows874, "ไทย")
	chinese := encodeText(t, traditionalchinese.Big5, "中文")
	fixture := &testFile{
		version: 0x03,
		fields: []testField{
			{name: "THAI", typ: 'C', length: 10},
			{name: "CHINESE", typ: 'C', length: 10},
		},
		records: []testRecord{{values: [][]byte{thai, chinese}}},
	}
	dbf := openTestFile(t, fixture, &Config{
		Encoding:       "tis620",
		FieldEncodings: map[string]string{"CHINESE": "big5"},
	})

	records, err := dbf.ReadRecords(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ไทย", records[0].Values["THAI"])
	assert.Equal(t, "中文", records[0].Values["CHINESE"])
}

func TestEncodingOverrideForUnknownFieldIgnored(t *testing.T) {
	fixture := &testFile{
		version: 0x03,
		fields:  []testField{{name: "NAME", typ: 'C', length: 6}},
		records: []testRecord{{values: [][]byte{text("simple")}}},
	}
	dbf := openTestFile(t, fixture, &Config{
		FieldEncodings: map[string]string{"NO_SUCH_FIELD": "big5"},
	})

	records, err := dbf.ReadRecords(0)
	require.NoError(t, err)
	assert.Equal(t, "simple", records[0].Values["NAME"])
}

func TestLanguageDriverByteInterpreted(t *testing.T) {
	thai := encodeText(t, charmap.Windows874, "สวัสดี")
	fixture := &testFile{
		version:    0x03,
		languageID: 0x7C, // Thai
		fields:     []testField{{name: "GREETING", typ: 'C', length: 20}},
		records:    []testRecord{{values: [][]byte{thai}}},
	}

	t.Run("header byte selects the codepage", func(t *testing.T) {
		dbf := openTestFile(t, fixture, nil)
		records, err := dbf.ReadRecords(0)
		require.NoError(t, err)
		assert.Equal(t, "สวัสดี", records[0].Values["GREETING"])
	})

	t.Run("explicit encoding wins over the header byte", func(t *testing.T) {
		dbf := openTestFile(t, fixture, &Config{Encoding: "latin1"})
		records, err := dbf.ReadRecords(0)
		require.NoError(t, err)
		assert.NotEqual(t, "สวัสดี", records[0].Values["GREETING"])
	})
}

func TestUnknownEncodingFailsOpen(t *testing.T) {
	fixture := &testFile{
		version: 0x03,
		fields:  []testField{{name: "NAME", typ: 'C', length: 6}},
	}
	path := fixture.write(t, t.TempDir(), "enc.dbf")

	_, err := Open(path, &Config{Encoding: "martian"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "martian")
}
