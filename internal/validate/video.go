// Package validate gates video uploads: a synchronous metadata check, a
// magic-byte content-type check, and a bounded structural probe. Each gate
// is a hard stop that raises a typed validation error; callers surface
// only UserMessage() to end users.
package validate

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/fairwaylab/swinggate/internal/apperrors"
)

// MaxFileSize is the upload cap: 500 MiB.
const MaxFileSize int64 = 500 << 20

// SniffLen is how many leading bytes the type-match gate inspects.
const SniffLen = 512

// AllowedTypes is the declared MIME type allow-list.
var AllowedTypes = map[string]bool{
	"video/mp4":        true,
	"video/webm":       true,
	"video/ogg":        true,
	"video/quicktime":  true,
	"video/x-msvideo":  true,
	"video/x-matroska": true,
}

// FileInfo is the metadata half of an upload, checked before any bytes
// are trusted.
type FileInfo struct {
	Name     string
	Size     int64
	MimeType string
}

// IsFileSizeValid reports whether size is within (0, MaxFileSize].
func IsFileSizeValid(size int64) bool {
	return size >= 1 && size <= MaxFileSize
}

// IsFileTypeAllowed reports whether a declared MIME type is accepted.
func IsFileTypeAllowed(mimeType string) bool {
	return AllowedTypes[strings.ToLower(strings.TrimSpace(mimeType))]
}

// FormatFileSize renders a byte count with binary prefixes and two
// decimals, e.g. "10.00 MB".
func FormatFileSize(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}
	units := []string{"KB", "MB", "GB", "TB"}
	v := float64(size)
	unit := ""
	for _, u := range units {
		v /= 1024
		unit = u
		if v < 1024 {
			break
		}
	}
	return fmt.Sprintf("%.2f %s", v, unit)
}

// QuickValidate is the synchronous metadata gate: name length, size
// bounds (zero-byte files are rejected outright) and declared type.
func QuickValidate(info FileInfo) error {
	name := strings.TrimSpace(info.Name)
	if name == "" || len([]rune(name)) > 255 {
		return apperrors.NewValidation(apperrors.CodeFileName,
			"file name must be between 1 and 255 characters",
			map[string]any{"name": info.Name, "length": len([]rune(name))})
	}
	if info.Size < 1 {
		return apperrors.NewValidation(apperrors.CodeFileEmpty,
			"file is empty",
			map[string]any{"name": name, "size": info.Size})
	}
	if info.Size > MaxFileSize {
		return apperrors.NewValidation(apperrors.CodeFileTooLarge,
			fmt.Sprintf("file exceeds the %s limit", FormatFileSize(MaxFileSize)),
			map[string]any{"name": name, "size": info.Size, "max": MaxFileSize})
	}
	if !IsFileTypeAllowed(info.MimeType) {
		return apperrors.NewValidation(apperrors.CodeFileType,
			fmt.Sprintf("file type %q is not supported", info.MimeType),
			map[string]any{"name": name, "type": info.MimeType})
	}
	return nil
}

var (
	ebmlMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}
	oggMagic  = []byte("OggS")
	riffMagic = []byte("RIFF")
	ftypBox   = []byte("ftyp")
	aviFourCC = []byte("AVI ")
	qtBrand   = []byte("qt  ")
)

// DetectType identifies the container format from the file's leading
// bytes. WebM and MKV share the EBML magic and both report
// "video/webm"; declared-type matching treats them as one class.
func DetectType(head []byte) (string, error) {
	unreadable := func() error {
		return apperrors.NewValidation(apperrors.CodeUnreadable,
			"file content is unreadable or corrupted",
			map[string]any{"sample_len": len(head)}).
			WithUserMessage("This file could not be read. It may be corrupted.")
	}

	if len(head) < 12 {
		return "", unreadable()
	}
	switch {
	case bytes.Equal(head[4:8], ftypBox):
		if bytes.Equal(head[8:12], qtBrand) {
			return "video/quicktime", nil
		}
		return "video/mp4", nil
	case bytes.HasPrefix(head, ebmlMagic):
		return "video/webm", nil
	case bytes.HasPrefix(head, oggMagic):
		return "video/ogg", nil
	case bytes.HasPrefix(head, riffMagic) && bytes.Equal(head[8:12], aviFourCC):
		return "video/x-msvideo", nil
	}
	return "", unreadable()
}

// sameTypeClass reports whether a detected type satisfies a declared
// type. WebM and Matroska are interchangeable: they share the EBML
// prefix, so the bytes cannot tell them apart.
func sameTypeClass(declared, detected string) bool {
	if declared == detected {
		return true
	}
	ebml := map[string]bool{"video/webm": true, "video/x-matroska": true}
	return ebml[declared] && ebml[detected]
}

// CheckDeclaredType is the type-match gate: the magic-byte type must
// agree with the declared MIME type.
func CheckDeclaredType(declared string, head []byte) error {
	detected, err := DetectType(head)
	if err != nil {
		return err
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if !sameTypeClass(declared, detected) {
		return apperrors.NewValidation(apperrors.CodeTypeMismatch,
			fmt.Sprintf("declared type %s does not match detected type %s", declared, detected),
			map[string]any{"declared": declared, "detected": detected})
	}
	return nil
}

// Validate runs every gate in order: metadata, magic bytes, structural
// probe. The probe is bounded by ProbeTimeout regardless of ctx.
func Validate(ctx context.Context, info FileInfo, content []byte) error {
	if err := QuickValidate(info); err != nil {
		return err
	}
	head := content
	if len(head) > SniffLen {
		head = head[:SniffLen]
	}
	if err := CheckDeclaredType(info.MimeType, head); err != nil {
		return err
	}
	return RunProbe(ctx, DefaultProber, info.MimeType, content)
}
