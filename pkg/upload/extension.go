package upload

import (
	"path"
	"slices"
	"strings"
)

// Extension groups. Extensions are lowercase and have no leading dot.
var (
	// Text is plain text files.
	Text = []string{"txt"}
	// Documents is office documents: rich text, word processing and spreadsheets.
	Documents = []string{"rtf", "odf", "ods", "gnumeric", "abw", "doc", "docx", "xls", "xlsx"}
	// Images is common raster and vector image formats.
	Images = []string{"jpg", "jpe", "jpeg", "png", "gif", "svg", "bmp", "webp"}
	// Audio is common audio formats.
	Audio = []string{"wav", "mp3", "aac", "ogg", "oga", "flac"}
	// Data is structured data files.
	Data = []string{"csv", "ini", "json", "plist", "xml", "yaml", "yml"}
	// Scripts is interpreted source code. Dangerous when served back as-is.
	Scripts = []string{"js", "php", "pl", "py", "rb", "sh"}
	// Archives is compressed or bundled files.
	Archives = []string{"gz", "bz2", "zip", "tar", "tgz", "txz", "7z"}
	// Source is compiled-language source code.
	Source = []string{"c", "cpp", "c++", "cxx", "h", "hpp", "h++", "hxx", "cs", "go", "java", "kt", "rs", "swift"}
	// Executables is shared libraries and executables.
	Executables = []string{"so", "exe", "dll"}
	// Defaults is the policy of a set created without WithExtensions:
	// plain text, documents, images and data, no scripts or executables.
	Defaults = slices.Concat(Text, Documents, Images, Data)
)

var groups = map[string][]string{
	"text":        Text,
	"documents":   Documents,
	"images":      Images,
	"audio":       Audio,
	"data":        Data,
	"scripts":     Scripts,
	"archives":    Archives,
	"source":      Source,
	"executables": Executables,
	"defaults":    Defaults,
}

// Group returns the extensions of a named group ("images", "documents", ...).
func Group(name string) ([]string, bool) {
	exts, ok := groups[strings.ToLower(strings.TrimSpace(name))]
	return slices.Clone(exts), ok
}

// ExtensionOf returns the lowercase text after the last dot of the file name,
// or "" when it has none: "archive.tar.gz" yields "gz".
func ExtensionOf(filename string) string {
	ext := path.Ext(path.Base(strings.ReplaceAll(filename, `\`, "/")))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// rawExtension is ExtensionOf without lowercasing, for names written to disk.
func rawExtension(filename string) string {
	ext := path.Ext(path.Base(strings.ReplaceAll(filename, `\`, "/")))
	return strings.TrimPrefix(ext, ".")
}

// Extensions decides whether a file extension may be uploaded.
// Implementations receive normalized extensions: lowercase, no leading dot.
type Extensions interface {
	Allowed(ext string) bool
}

// All allows every extension, including none.
var All Extensions = allExtensions{}

type allExtensions struct{}

func (allExtensions) Allowed(string) bool { return true }

// Only allows exactly the listed extensions. Include "" to allow files
// without an extension.
func Only(exts ...string) Extensions {
	return onlyExtensions(toSet(exts))
}

type onlyExtensions map[string]struct{}

func (o onlyExtensions) Allowed(ext string) bool {
	_, ok := o[normalizeExtension(ext)]
	return ok
}

// AllExcept allows every extension but the listed ones.
func AllExcept(exts ...string) Extensions {
	return exceptExtensions(toSet(exts))
}

type exceptExtensions map[string]struct{}

func (e exceptExtensions) Allowed(ext string) bool {
	_, denied := e[normalizeExtension(ext)]
	return !denied
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func normalizeExtensions(exts []string) []string {
	if len(exts) == 0 {
		return nil
	}
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		out = append(out, normalizeExtension(ext))
	}
	return out
}

func toSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		set[normalizeExtension(ext)] = struct{}{}
	}
	return set
}
