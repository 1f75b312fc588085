// Package sanitize provides pure normalization functions for untrusted
// input. Text, Filename, URL, HTML and Color always return a safe default
// and never fail; Email, JSON and Number return a validation error when
// the input cannot be made safe.
package sanitize

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/fairwaylab/swinggate/internal/apperrors"
)

// strictPolicy strips every element. Content of script, iframe, object and
// the rest of bluemonday's skip-content set is removed entirely; benign
// containers keep their inner text.
var strictPolicy = bluemonday.StrictPolicy()

const maxFilenameLen = 255

// HTML strips all markup and returns the remaining inner text. Dangerous
// containers (script, iframe, object) lose their content as well.
// Entity decoding can re-create markup ("&lt;b&gt;" becomes "<b>"), so the
// strip-and-decode pass repeats until the output is stable.
func HTML(s string) string {
	for s != "" {
		// The policy entity-escapes the surviving text; decode it back
		// to plain text since callers want content, not HTML.
		next := html.UnescapeString(strictPolicy.Sanitize(s))
		if next == s {
			break
		}
		s = next
	}
	return s
}

func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
}

// Text strips markup, NUL bytes and control characters (0x00-0x1F), and
// trims surrounding whitespace. Empty input stays empty. Idempotent.
// Control bytes are dropped before the markup pass (the HTML tokenizer
// would otherwise turn NUL into U+FFFD) and again after it, since entity
// decoding can reintroduce them. Dropping a decoded control byte can in
// turn fuse characters into markup ("&lt;&#1;b&gt;" ends up as "<b>"),
// so the whole pass repeats until the output is stable.
func Text(s string) string {
	for {
		next := strings.TrimSpace(dropControl(HTML(dropControl(s))))
		if next == s {
			return s
		}
		s = next
	}
}

// EscapeHTML entity-encodes <, >, &, " and ' without removing content.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}

// Filename removes path separators, parent-directory sequences, and
// NUL/control bytes, strips leading/trailing dots, and truncates to 255
// characters.
func Filename(name string) string {
	name = dropControl(name)
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", "")
	}
	name = strings.TrimSpace(name)
	name = strings.Trim(name, ".")
	runes := []rune(name)
	if len(runes) > maxFilenameLen {
		name = string(runes[:maxFilenameLen])
	}
	return name
}

var allowedSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
	"tel":    true,
}

// URL allows http, https, mailto and tel URLs plus scheme-relative,
// path-relative and fragment references. Anything else (javascript:,
// data:, vbscript:, unparseable input) yields "".
func URL(raw string) string {
	// Control bytes (CR/LF included) never belong in a URL; strip them
	// before any branch can return the input verbatim.
	raw = strings.TrimSpace(dropControl(raw))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "#") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme == "" {
		return ""
	}
	if !allowedSchemes[strings.ToLower(u.Scheme)] {
		return ""
	}
	return raw
}

// JSON round-trips its input through the JSON parser, guaranteeing
// canonical, injection-free output. Empty input yields "". Invalid JSON
// yields a validation error.
func JSON(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return "", apperrors.NewValidation(apperrors.CodeBadJSON, "invalid JSON",
			map[string]any{"parse_error": err.Error()})
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", apperrors.NewValidation(apperrors.CodeBadJSON, "invalid JSON", nil)
	}
	return string(out), nil
}

// Email lowercases, trims and validates an address. Missing @, missing
// domain, embedded whitespace, and display names are all rejected.
func Email(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	invalid := func() error {
		return apperrors.NewValidation(apperrors.CodeBadEmail, "invalid email address",
			map[string]any{"input": s})
	}
	if s == "" || strings.ContainsAny(s, " \t\r\n") || !strings.Contains(s, "@") {
		return "", invalid()
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", invalid()
	}
	return s, nil
}

type numberOpts struct {
	clamp    bool
	min, max float64
	round    bool
	decimals int
}

// NumberOption adjusts Number's post-parse behavior.
type NumberOption func(*numberOpts)

// Clamp bounds the parsed value to [min, max].
func Clamp(min, max float64) NumberOption {
	return func(o *numberOpts) { o.clamp, o.min, o.max = true, min, max }
}

// Round rounds the parsed value to the given number of decimal places.
func Round(decimals int) NumberOption {
	return func(o *numberOpts) { o.round, o.decimals = true, decimals }
}

// Number parses a string or accepts a numeric value, rejecting NaN and
// infinities with a validation error.
func Number(v any, opts ...NumberOption) (float64, error) {
	var o numberOpts
	for _, opt := range opts {
		opt(&o)
	}

	var x float64
	switch n := v.(type) {
	case float64:
		x = n
	case float32:
		x = float64(n)
	case int:
		x = float64(n)
	case int64:
		x = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, apperrors.NewValidation(apperrors.CodeBadNumber, "not a number",
				map[string]any{"input": n})
		}
		x = parsed
	default:
		return 0, apperrors.NewValidation(apperrors.CodeBadNumber, "not a number",
			map[string]any{"input": fmt.Sprint(v)})
	}

	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, apperrors.NewValidation(apperrors.CodeBadNumber, "number must be finite",
			map[string]any{"input": fmt.Sprint(v)})
	}

	if o.clamp {
		x = math.Min(math.Max(x, o.min), o.max)
	}
	if o.round {
		p := math.Pow(10, float64(o.decimals))
		x = math.Round(x*p) / p
	}
	return x, nil
}

var (
	hexColorRe = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	// Alpha accepts 0, 1, .5, 0.5 and 1.0/1.00 forms; anything above one
	// is not a color.
	rgbColorRe = regexp.MustCompile(`^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*(?:0(?:\.\d+)?|1(?:\.0+)?|\.\d+)\s*)?\)$`)
)

// DefaultColor is returned for anything that is not a recognizable color.
const DefaultColor = "#000000"

// Color accepts 3- or 6-digit hex (3-digit expands, output uppercased)
// and rgb()/rgba() forms with in-range components; everything else
// becomes DefaultColor.
func Color(s string) string {
	s = strings.TrimSpace(s)
	if m := hexColorRe.FindStringSubmatch(s); m != nil {
		hex := m[1]
		if len(hex) == 3 {
			hex = fmt.Sprintf("%c%c%c%c%c%c", hex[0], hex[0], hex[1], hex[1], hex[2], hex[2])
		}
		return "#" + strings.ToUpper(hex)
	}
	if m := rgbColorRe.FindStringSubmatch(s); m != nil {
		for _, c := range m[1:4] {
			n, err := strconv.Atoi(c)
			if err != nil || n > 255 {
				return DefaultColor
			}
		}
		return s
	}
	return DefaultColor
}
