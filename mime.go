package staticasset

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultContentType is used when neither the extension table nor content
// sniffing identify a file.
const DefaultContentType = "application/octet-stream"

// MIMETable maps lowercase file extensions, without the dot, to content types.
type MIMETable map[string]string

// DefaultMIMETypes covers the formats commonly served by web applications.
var DefaultMIMETypes = MIMETable{
	// web
	"css":         "text/css",
	"html":        "text/html",
	"htm":         "text/html",
	"js":          "application/javascript",
	"mjs":         "application/javascript",
	"json":        "application/json",
	"jsonld":      "application/ld+json",
	"map":         "application/json",
	"wasm":        "application/wasm",
	"webmanifest": "application/manifest+json",
	"xhtml":       "application/xhtml+xml",

	// config
	"yaml": "application/x-yaml",
	"yml":  "application/x-yaml",
	"toml": "application/toml",
	"ini":  "text/plain",

	// scripts
	"sh":  "application/x-sh",
	"bat": "application/x-bat",
	"cmd": "application/x-cmd",

	// images
	"avif": "image/avif",
	"apng": "image/apng",
	"bmp":  "image/bmp",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"ico":  "image/vnd.microsoft.icon",
	"svg":  "image/svg+xml",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"webp": "image/webp",
	"heic": "image/heic",
	"eps":  "application/eps",
	"ps":   "application/postscript",

	// fonts
	"eot":   "application/vnd.ms-fontobject",
	"otf":   "font/otf",
	"ttf":   "font/ttf",
	"woff":  "font/woff",
	"woff2": "font/woff2",

	// documents
	"atom": "application/atom+xml",
	"csv":  "text/csv",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"ics":  "text/calendar",
	"md":   "text/markdown",
	"odp":  "application/vnd.oasis.opendocument.presentation",
	"ods":  "application/vnd.oasis.opendocument.spreadsheet",
	"odt":  "application/vnd.oasis.opendocument.text",
	"pdf":  "application/pdf",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"rss":  "application/rss+xml",
	"rtf":  "application/rtf",
	"txt":  "text/plain",
	"vsd":  "application/vnd.visio",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"xml":  "application/xml",

	// archives
	"7z":   "application/x-7z-compressed",
	"bz2":  "application/x-bzip2",
	"gz":   "application/gzip",
	"jar":  "application/java-archive",
	"mpkg": "application/vnd.apple.installer+xml",
	"rar":  "application/vnd.rar",
	"tar":  "application/x-tar",
	"war":  "application/java-archive",
	"xz":   "application/x-xz",
	"zip":  "application/zip",

	// audio
	"aac":  "audio/aac",
	"flac": "audio/flac",
	"m4a":  "audio/mp4",
	"mid":  "audio/midi",
	"midi": "audio/midi",
	"mp3":  "audio/mpeg",
	"oga":  "audio/ogg",
	"opus": "audio/opus",
	"wav":  "audio/wav",
	"weba": "audio/webm",

	// video
	"mp4":  "video/mp4",
	"m4v":  "video/mp4",
	"mpeg": "video/mpeg",
	"mpg":  "video/mpeg",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",

	// streaming
	"m3u8": "application/x-mpegURL",
	"ogg":  "application/ogg",
	"ogx":  "application/ogg",
}

// FileExt returns the extension of the last path segment without the dot.
// It returns false for names without an extension or ending in a dot.
func FileExt(path string) (string, bool) {
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case '.':
			if i == len(path)-1 {
				return "", false
			}
			return path[i+1:], true
		case '/', '\\':
			return "", false
		}
	}
	return "", false
}

// Lookup returns the content type registered for the extension of path.
func (t MIMETable) Lookup(path string) (string, bool) {
	ext, ok := FileExt(path)
	if !ok {
		return "", false
	}
	ct, ok := t[strings.ToLower(ext)]
	return ct, ok
}

// DetectContentType resolves the content type of a file from its extension
// using table, falling back to content sniffing and finally to
// DefaultContentType. A nil table means DefaultMIMETypes.
func DetectContentType(table MIMETable, path string, data []byte) string {
	if table == nil {
		table = DefaultMIMETypes
	}
	if ct, ok := table.Lookup(path); ok {
		return ct
	}
	if len(data) == 0 {
		return DefaultContentType
	}
	detected := mimetype.Detect(data)
	if detected == nil || detected.Is(DefaultContentType) {
		return DefaultContentType
	}
	return detected.String()
}
