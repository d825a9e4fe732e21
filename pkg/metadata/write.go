package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// TIFF tags and types written by EncodeExif
const (
	tagImageDescription = 0x010E
	tagExifIFDPointer   = 0x8769
	tagUserComment      = 0x9286

	typeASCII     = 2
	typeLong      = 4
	typeUndefined = 7
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte
}

func asciiEntry(tag uint16, s string) ifdEntry {
	v := append([]byte(s), 0)
	return ifdEntry{tag: tag, typ: typeASCII, count: uint32(len(v)), value: v}
}

func longEntry(tag uint16, n uint32) ifdEntry {
	v := binary.LittleEndian.AppendUint32(nil, n)
	return ifdEntry{tag: tag, typ: typeLong, count: 1, value: v}
}

// ifdSize is the directory plus its out-of-line values, padded to even offsets
func ifdSize(entries []ifdEntry) int {
	n := 2 + 12*len(entries) + 4
	for _, e := range entries {
		if len(e.value) > 4 {
			n += len(e.value) + len(e.value)%2
		}
	}
	return n
}

// writeIFD appends a directory at the current end of buf, with no next IFD
func writeIFD(buf *bytes.Buffer, entries []ifdEntry) {
	le := binary.LittleEndian
	dataOff := buf.Len() + 2 + 12*len(entries) + 4

	var dir, data bytes.Buffer
	_ = binary.Write(&dir, le, uint16(len(entries)))
	for _, e := range entries {
		_ = binary.Write(&dir, le, e.tag)
		_ = binary.Write(&dir, le, e.typ)
		_ = binary.Write(&dir, le, e.count)
		if len(e.value) <= 4 {
			v := make([]byte, 4)
			copy(v, e.value)
			dir.Write(v)
			continue
		}
		_ = binary.Write(&dir, le, uint32(dataOff+data.Len()))
		data.Write(e.value)
		if data.Len()%2 == 1 {
			data.WriteByte(0)
		}
	}
	_ = binary.Write(&dir, le, uint32(0))
	buf.Write(dir.Bytes())
	buf.Write(data.Bytes())
}

// EncodeExif builds a little-endian TIFF block holding an ImageDescription
// in IFD0 and a UserComment in the Exif sub-IFD. Empty fields are left out.
// The result is what a PNG eXIf chunk carries.
func EncodeExif(description, userComment string) []byte {
	var ifd0 []ifdEntry
	if description != "" {
		ifd0 = append(ifd0, asciiEntry(tagImageDescription, description))
	}
	var sub []ifdEntry
	if userComment != "" {
		v := append([]byte("ASCII\x00\x00\x00"), userComment...)
		sub = append(sub, ifdEntry{tag: tagUserComment, typ: typeUndefined, count: uint32(len(v)), value: v})
		// the pointer is inline, so it does not change the size of IFD0
		ifd0 = append(ifd0, longEntry(tagExifIFDPointer, 0))
		ifd0[len(ifd0)-1] = longEntry(tagExifIFDPointer, uint32(8+ifdSize(ifd0)))
	}

	var buf bytes.Buffer
	buf.WriteString("II*\x00")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(8))
	writeIFD(&buf, ifd0)
	if len(sub) > 0 {
		writeIFD(&buf, sub)
	}
	return buf.Bytes()
}

// InsertPNGChunk returns a copy of raw with a chunk of type typ inserted
// right after IHDR.
func InsertPNGChunk(raw []byte, typ string, data []byte) ([]byte, error) {
	if !isPNG(raw) {
		return nil, errors.New("not a png")
	}
	if len(typ) != 4 {
		return nil, errors.New("chunk type must be four bytes")
	}
	pos := len(pngSignature)
	if len(raw) < pos+8 || string(raw[pos+4:pos+8]) != "IHDR" {
		return nil, errors.New("png does not start with IHDR")
	}
	end := pos + 8 + int(binary.BigEndian.Uint32(raw[pos:pos+4])) + 4
	if end > len(raw) {
		return nil, ErrTruncatedChunk
	}

	out := make([]byte, 0, len(raw)+len(data)+12)
	out = append(out, raw[:end]...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(data)))
	out = append(out, typ...)
	out = append(out, data...)
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	out = binary.BigEndian.AppendUint32(out, crc.Sum32())
	return append(out, raw[end:]...), nil
}
