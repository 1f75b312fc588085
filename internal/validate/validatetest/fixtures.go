// Package validatetest builds minimal well-formed container fixtures for
// tests that exercise the upload validation pipeline.
package validatetest

import "encoding/binary"

// MP4 builds a minimal valid MP4: an ftyp box, an empty moov box, and an
// mdat box padded to the requested payload size.
func MP4(payload int) []byte {
	out := make([]byte, 0, 36+payload)

	ftyp := make([]byte, 20)
	binary.BigEndian.PutUint32(ftyp, 20)
	copy(ftyp[4:], "ftypisom")
	copy(ftyp[12:], []byte{0, 0, 0, 1})
	copy(ftyp[16:], "mp41")
	out = append(out, ftyp...)

	moov := make([]byte, 8)
	binary.BigEndian.PutUint32(moov, 8)
	copy(moov[4:], "moov")
	out = append(out, moov...)

	mdat := make([]byte, 8+payload)
	binary.BigEndian.PutUint32(mdat, uint32(8+payload))
	copy(mdat[4:], "mdat")
	return append(out, mdat...)
}

// MOV builds a QuickTime file: an ftyp box with the qt brand and an empty
// moov box.
func MOV() []byte {
	out := make([]byte, 16)
	binary.BigEndian.PutUint32(out, 16)
	copy(out[4:], "ftypqt  ")
	copy(out[12:], []byte{0, 0, 0, 0})

	moov := make([]byte, 8)
	binary.BigEndian.PutUint32(moov, 8)
	copy(moov[4:], "moov")
	return append(out, moov...)
}

// WebM builds an EBML magic followed by a one-byte vint header length and
// that many bytes of header.
func WebM() []byte {
	out := append([]byte{}, 0x1A, 0x45, 0xDF, 0xA3)
	out = append(out, 0x9F) // vint: length 31
	return append(out, make([]byte, 31)...)
}

// Ogg builds a single valid page header with one zero-length segment.
func Ogg() []byte {
	out := make([]byte, 28)
	copy(out, "OggS")
	out[4] = 0 // version
	out[26] = 1
	out[27] = 0
	return out
}

// AVI builds a RIFF header with a matching size and the header LIST chunk.
func AVI() []byte {
	out := make([]byte, 24)
	copy(out, "RIFF")
	binary.LittleEndian.PutUint32(out[4:], 16)
	copy(out[8:], "AVI ")
	copy(out[12:], "LIST")
	return out
}
