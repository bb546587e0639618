package upload

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// maxSegmentBytes is the component length limit of common filesystems.
const maxSegmentBytes = 255

// hostileChars are rejected by at least one common filesystem.
const hostileChars = `<>:"|?*`

var driveMarker = regexp.MustCompile(`^[a-zA-Z]:`)

// reservedNames are Windows device names, unusable as a file stem on that platform.
var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// SanitizePath turns an untrusted name or folder hint into a safe,
// slash-separated relative path.
//
// Control characters are removed, both / and \ separate segments, a leading
// drive marker is dropped, and so are empty, "." and ".." segments. Each
// remaining segment loses the characters in <>:"|?*, is NFC-normalized,
// has trailing dots and spaces trimmed and is capped at 255 bytes with its
// extension kept. Windows device names get a "_" prefix.
//
// Traversal is neutralized by omission: "users/../avatar.jpg" becomes
// "users/avatar.jpg". ErrInvalidName is returned when nothing is left.
func SanitizePath(raw string) (string, error) {
	segments := cleanSegments(raw)
	if len(segments) == 0 {
		return "", fmt.Errorf("%w: %q became empty after sanitization", ErrInvalidName, raw)
	}
	return strings.Join(segments, "/"), nil
}

// SanitizeFilename applies the SanitizePath rules and flattens the result
// into a single file name, joining the segments with "_":
// "/etc/passwd" becomes "etc_passwd", "../../app.wsgi" becomes "app.wsgi".
func SanitizeFilename(raw string) (string, error) {
	segments := cleanSegments(raw)
	if len(segments) == 0 {
		return "", fmt.Errorf("%w: %q became empty after sanitization", ErrInvalidName, raw)
	}
	return strings.Join(segments, "_"), nil
}

// cleanSegments returns the surviving segments of raw, possibly none.
func cleanSegments(raw string) []string {
	s := strings.ToValidUTF8(raw, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = driveMarker.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.ReplaceAll(s, `\`, "/")

	var segments []string
	for _, seg := range strings.Split(s, "/") {
		if seg = cleanSegment(seg); seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

func cleanSegment(seg string) string {
	seg = strings.Map(func(r rune) rune {
		if strings.ContainsRune(hostileChars, r) {
			return -1
		}
		return r
	}, seg)
	seg = norm.NFC.String(seg)
	seg = strings.TrimLeft(seg, " ")
	// Covers ".", ".." and any dot-only segment.
	seg = strings.TrimRight(seg, ". ")
	if seg == "" {
		return ""
	}

	stem, _, _ := strings.Cut(seg, ".")
	if _, ok := reservedNames[strings.ToUpper(strings.TrimSpace(stem))]; ok {
		seg = "_" + seg
	}

	return truncateSegment(seg)
}

// truncateSegment caps seg at maxSegmentBytes on a rune boundary, keeping
// the extension when it is reasonably short.
func truncateSegment(seg string) string {
	if len(seg) <= maxSegmentBytes {
		return seg
	}
	ext := path.Ext(seg)
	if len(ext) > maxSegmentBytes/4 || len(ext) == len(seg) {
		ext = ""
	}
	stem := seg[:len(seg)-len(ext)]
	cut := maxSegmentBytes - len(ext)
	for cut > 0 && !utf8.RuneStart(stem[cut]) {
		cut--
	}
	return strings.TrimRight(stem[:cut], ". ") + ext
}
