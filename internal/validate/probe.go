package validate

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/fairwaylab/swinggate/internal/apperrors"
)

// ProbeTimeout bounds a single probe. Once started, a probe either
// completes or times out on its own; caller cancellation does not reach
// an in-flight probe.
const ProbeTimeout = 10 * time.Second

// probeUserMessage replaces internal parse errors at the user boundary.
const probeUserMessage = "There was a problem processing your video"

// Prober checks that content is structurally playable for its container
// format. The default implementation parses container structure; a
// deployment with a real decoder can substitute its own.
type Prober interface {
	Probe(mimeType string, content []byte) error
}

// DefaultProber is the structural prober used by Validate.
var DefaultProber Prober = structuralProber{}

// RunProbe executes p under the fixed probe timeout and wraps failures
// into the typed validation error surfaced to users. The timer is
// released on every exit path.
func RunProbe(ctx context.Context, p Prober, mimeType string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return probeError(err.Error())
	}

	done := make(chan error, 1)
	go func() {
		done <- p.Probe(mimeType, content)
	}()

	timer := time.NewTimer(ProbeTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return probeError(err.Error())
		}
		return nil
	case <-timer.C:
		return probeError("probe timed out")
	}
}

func probeError(detail string) error {
	return apperrors.NewValidation(apperrors.CodeProbeFailed,
		"video failed the playability probe",
		map[string]any{"detail": detail}).
		WithUserMessage(probeUserMessage)
}

type structuralProber struct{}

func (structuralProber) Probe(mimeType string, content []byte) error {
	detected, err := DetectType(truncate(content, SniffLen))
	if err != nil {
		return errors.New("unrecognized container")
	}
	switch detected {
	case "video/mp4", "video/quicktime":
		return probeMP4(content)
	case "video/webm":
		return probeEBML(content)
	case "video/ogg":
		return probeOgg(content)
	case "video/x-msvideo":
		return probeAVI(content)
	}
	return fmt.Errorf("no prober for %s", detected)
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

// probeMP4 walks the top-level box structure: boxes must tile the file
// exactly, the first box must be ftyp, and a moov or mdat box must be
// present for the file to be playable.
func probeMP4(content []byte) error {
	offset := 0
	first := true
	hasPayload := false
	for offset < len(content) {
		if len(content)-offset < 8 {
			return errors.New("truncated box header")
		}
		size := int64(binary.BigEndian.Uint32(content[offset : offset+4]))
		boxType := string(content[offset+4 : offset+8])
		headerLen := int64(8)

		switch size {
		case 0:
			// Box extends to end of file.
			size = int64(len(content) - offset)
		case 1:
			if len(content)-offset < 16 {
				return errors.New("truncated large box header")
			}
			size = int64(binary.BigEndian.Uint64(content[offset+8 : offset+16]))
			headerLen = 16
		}
		if size < headerLen || size > int64(len(content)-offset) {
			return fmt.Errorf("invalid box size %d at offset %d", size, offset)
		}
		if first && boxType != "ftyp" {
			return fmt.Errorf("first box is %q, want ftyp", boxType)
		}
		first = false
		if boxType == "moov" || boxType == "mdat" {
			hasPayload = true
		}
		offset += int(size)
	}
	if first {
		return errors.New("no boxes found")
	}
	if !hasPayload {
		return errors.New("no moov or mdat box")
	}
	return nil
}

// probeEBML validates the EBML header: magic, a well-formed header length
// vint, and a header that fits inside the file.
func probeEBML(content []byte) error {
	if len(content) < 5 || !bytes.HasPrefix(content, ebmlMagic) {
		return errors.New("missing EBML magic")
	}
	headerLen, vintLen, err := readVint(content[4:])
	if err != nil {
		return err
	}
	if headerLen <= 0 || 4+vintLen+headerLen > int64(len(content)) {
		return fmt.Errorf("EBML header length %d exceeds file", headerLen)
	}
	return nil
}

// readVint decodes an EBML variable-length integer, returning its value
// and encoded length.
func readVint(b []byte) (int64, int64, error) {
	if len(b) == 0 {
		return 0, 0, errors.New("empty vint")
	}
	first := b[0]
	if first == 0 {
		return 0, 0, errors.New("invalid vint marker")
	}
	length := 1
	for mask := byte(0x80); first&mask == 0; mask >>= 1 {
		length++
	}
	if length > 8 || len(b) < length {
		return 0, 0, errors.New("truncated vint")
	}
	value := int64(first & (0xFF >> length))
	for i := 1; i < length; i++ {
		value = value<<8 | int64(b[i])
	}
	return value, int64(length), nil
}

// probeOgg validates the first page header: capture pattern, version 0,
// and a segment table that fits inside the file.
func probeOgg(content []byte) error {
	const pageHeaderLen = 27
	if len(content) < pageHeaderLen || !bytes.HasPrefix(content, oggMagic) {
		return errors.New("truncated OGG page header")
	}
	if content[4] != 0 {
		return fmt.Errorf("unsupported OGG version %d", content[4])
	}
	segments := int(content[26])
	if len(content) < pageHeaderLen+segments {
		return errors.New("truncated OGG segment table")
	}
	return nil
}

// probeAVI validates the RIFF chunk size against the actual file size and
// requires the header LIST chunk.
func probeAVI(content []byte) error {
	if len(content) < 16 {
		return errors.New("truncated RIFF header")
	}
	riffSize := int64(binary.LittleEndian.Uint32(content[4:8]))
	if riffSize+8 != int64(len(content)) {
		return fmt.Errorf("RIFF size %d does not match file size %d", riffSize+8, len(content))
	}
	if !bytes.Equal(content[12:16], []byte("LIST")) {
		return errors.New("missing header LIST chunk")
	}
	return nil
}
