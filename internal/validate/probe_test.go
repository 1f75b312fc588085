package validate

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairwaylab/swinggate/internal/apperrors"
	"github.com/fairwaylab/swinggate/internal/validate/validatetest"
)

func TestStructuralProbeValidFixtures(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"mp4", validatetest.MP4(1024)},
		{"mov", validatetest.MOV()},
		{"webm", validatetest.WebM()},
		{"ogg", validatetest.Ogg()},
		{"avi", validatetest.AVI()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, DefaultProber.Probe("", tt.content))
		})
	}
}

func TestProbeMP4Corrupt(t *testing.T) {
	// Box size pointing past end of file.
	broken := validatetest.MP4(0)
	binary.BigEndian.PutUint32(broken[20:], 1<<30)
	assert.Error(t, probeMP4(broken))

	// Box size below the header length.
	broken = validatetest.MP4(0)
	binary.BigEndian.PutUint32(broken[20:], 4)
	assert.Error(t, probeMP4(broken))

	// ftyp not first.
	shuffled := append(validatetest.MP4(0)[20:], validatetest.MP4(0)[:20]...)
	assert.Error(t, probeMP4(shuffled))

	// No moov or mdat.
	assert.Error(t, probeMP4(validatetest.MP4(0)[:20]))
}

func TestProbeEBMLCorrupt(t *testing.T) {
	// Header length larger than the file.
	broken := validatetest.WebM()[:8]
	assert.Error(t, probeEBML(broken))

	// Invalid vint marker.
	broken = append([]byte{0x1A, 0x45, 0xDF, 0xA3}, 0x00)
	assert.Error(t, probeEBML(broken))
}

func TestProbeOggCorrupt(t *testing.T) {
	// Unsupported version.
	broken := validatetest.Ogg()
	broken[4] = 9
	assert.Error(t, probeOgg(broken))

	// Segment table truncated.
	broken = validatetest.Ogg()
	broken[26] = 200
	assert.Error(t, probeOgg(broken))
}

func TestProbeAVICorrupt(t *testing.T) {
	// RIFF size disagrees with the file size.
	broken := validatetest.AVI()
	binary.LittleEndian.PutUint32(broken[4:], 999)
	assert.Error(t, probeAVI(broken))

	// Missing header LIST chunk.
	broken = validatetest.AVI()
	copy(broken[12:], "JUNK")
	assert.Error(t, probeAVI(broken))
}

type stubProber struct{ err error }

func (s stubProber) Probe(string, []byte) error { return s.err }

func TestRunProbeWrapsFailures(t *testing.T) {
	err := RunProbe(context.Background(), stubProber{err: errors.New("decoder exploded: frame 12 corrupt")}, "video/mp4", nil)
	require.Error(t, err)

	ae, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeProbeFailed, ae.Code)
	// Internal details stay out of the user message.
	assert.Equal(t, "There was a problem processing your video", ae.UserMessage())
	assert.Contains(t, ae.Metadata["detail"], "decoder exploded")
}

func TestRunProbeSuccess(t *testing.T) {
	assert.NoError(t, RunProbe(context.Background(), stubProber{}, "video/mp4", nil))
}

func TestRunProbeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, RunProbe(ctx, stubProber{}, "video/mp4", nil))
}

func TestValidatePipeline(t *testing.T) {
	content := validatetest.MP4(4096)
	info := FileInfo{Name: "swing.mp4", Size: int64(len(content)), MimeType: "video/mp4"}
	require.NoError(t, Validate(context.Background(), info, content))

	// Declared type disagreeing with the bytes stops the pipeline.
	info.MimeType = "video/ogg"
	err := Validate(context.Background(), info, content)
	require.Error(t, err)
	ae, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeTypeMismatch, ae.Code)
}
