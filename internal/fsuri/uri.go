// Package fsuri converts between absolute filesystem paths and the
// file:// URIs LSP servers speak on the wire.
//
// go.lsp.dev/uri supplies the URI wire type; this package owns one
// encoding invariant: percent-encode exactly the set {[, ], space, #,
// ?, %} and nothing else, so that PathToURI(URIToPath(u)) == u for any
// URI this daemon produced.
package fsuri

import (
	"path/filepath"
	"strconv"
	"strings"

	lspuri "go.lsp.dev/uri"
)

const fileScheme = "file://"

// PathToURI encodes an absolute filesystem path as a file:// URI.
// Only characters in the reserved set are percent-encoded; everything
// else, including the rest of the path, is copied verbatim.
func PathToURI(path string) lspuri.URI {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	abs = filepath.ToSlash(abs)
	return lspuri.URI(fileScheme + encodePath(abs))
}

// URIToPath decodes a file:// URI back into an absolute filesystem
// path. URIs that do not carry the file scheme are returned unchanged,
// scheme included (LSP servers occasionally echo opaque
// scheme-less identifiers back; this daemon never dereferences those
// as files).
func URIToPath(u lspuri.URI) string {
	s := string(u)
	if rest, ok := strings.CutPrefix(s, fileScheme); ok {
		return filepath.FromSlash(decodePath(rest))
	}
	return s
}

// reservedEncode maps a reserved rune to its percent-encoded form.
var reservedEncode = map[rune]string{
	'[': "%5B",
	']': "%5D",
	' ': "%20",
	'#': "%23",
	'?': "%3F",
	'%': "%25",
}

func encodePath(path string) string {
	var b strings.Builder
	b.Grow(len(path))
	for _, r := range path {
		if enc, ok := reservedEncode[r]; ok {
			b.WriteString(enc)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func decodePath(path string) string {
	var b strings.Builder
	b.Grow(len(path))
	for i := 0; i < len(path); i++ {
		if path[i] == '%' && i+2 < len(path) {
			if v, err := strconv.ParseUint(path[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(path[i])
	}
	return b.String()
}

// IsEncodedURI reports whether u already went through PathToURI (or
// came from an LSP response, which this daemon treats as already
// encoded and never re-encodes).
func IsEncodedURI(u lspuri.URI) bool {
	return strings.HasPrefix(string(u), fileScheme)
}
