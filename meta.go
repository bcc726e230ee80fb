package godbf

// dbfHeader is the fixed 32-byte block at the start of every DBF file.
// It is read little-endian straight into the struct.
type dbfHeader struct {
	Version          byte
	LastUpdateYear   byte
	LastUpdateMonth  byte
	LastUpdateDay    byte
	NumRecords       uint32
	HeaderLength     uint16
	RecordLength     uint16
	Reserved         [2]byte
	IncompleteTx     byte
	EncryptFlag      byte
	Reserved2        [12]byte
	MDXFlag          byte
	LanguageDriverID byte
	Reserved3        [2]byte
}

// rawFieldDescriptor is one 32-byte entry of the on-disk field descriptor
// array that follows the header.
type rawFieldDescriptor struct {
	Name       [11]byte
	Type       byte
	Reserved1  [4]byte
	Length     byte
	Decimal    byte
	Reserved2  [2]byte
	WorkAreaID byte
	Reserved3  [10]byte
	Flag       byte
}

// FieldDescriptor describes one column of an open file. Offsets are byte
// positions within a raw record buffer (position 0 is the deletion
// marker) and are derived from declaration order.
type FieldDescriptor struct {
	Name         string
	Type         byte
	Offset       int
	Length       int
	DecimalCount int
}

const (
	SPACE = 0x20
	EOF   = 0x1A
	NUL   = 0x00

	// fieldTerminator ends the field descriptor array.
	fieldTerminator = 0x0D

	// deletedMarker / liveMarker are the two documented values of a
	// record's first byte.
	deletedMarker = '*'
	liveMarker    = SPACE
)
