// Package langid supplies two small collaborators kept outside the
// dispatch core: symbol-kind enum translation, and language-tag
// detection by file extension. Both are implemented here as a default,
// swappable behind the interfaces the session registry and
// call-hierarchy formatter actually depend on, so the core stays
// decoupled from any particular language's file-type conventions.
package langid

import (
	"path/filepath"
	"strings"

	"go.lsp.dev/protocol"
)

// Detector maps an absolute file path to a session registry language
// tag and an LSP languageId string (used on textDocument/didOpen).
type Detector interface {
	Detect(path string) (tag, languageID string, ok bool)
}

// ByExtension is the default Detector, keyed on the file extension.
type ByExtension struct {
	// Extensions maps a lowercase extension (including the leading
	// dot) to a (tag, languageId) pair. Callers may extend or replace
	// this map; DefaultExtensions is only the built-in seed.
	Extensions map[string]Lang
}

// Lang names a session-registry language tag and its LSP languageId.
type Lang struct {
	Tag        string
	LanguageID string
}

// DefaultExtensions covers Go, Rust, Python, and TypeScript/JavaScript
// plus the handful of other languages any polyglot workspace is
// likely to contain.
var DefaultExtensions = map[string]Lang{
	".go":   {Tag: "go", LanguageID: "go"},
	".rs":   {Tag: "rust", LanguageID: "rust"},
	".py":   {Tag: "python", LanguageID: "python"},
	".pyi":  {Tag: "python", LanguageID: "python"},
	".ts":   {Tag: "typescript", LanguageID: "typescript"},
	".tsx":  {Tag: "typescript", LanguageID: "typescriptreact"},
	".js":   {Tag: "javascript", LanguageID: "javascript"},
	".jsx":  {Tag: "javascript", LanguageID: "javascriptreact"},
	".c":    {Tag: "c", LanguageID: "c"},
	".h":    {Tag: "c", LanguageID: "c"},
	".cpp":  {Tag: "cpp", LanguageID: "cpp"},
	".hpp":  {Tag: "cpp", LanguageID: "cpp"},
	".java": {Tag: "java", LanguageID: "java"},
	".rb":   {Tag: "ruby", LanguageID: "ruby"},
}

// NewByExtension returns a ByExtension detector seeded with
// DefaultExtensions.
func NewByExtension() *ByExtension {
	m := make(map[string]Lang, len(DefaultExtensions))
	for k, v := range DefaultExtensions {
		m[k] = v
	}
	return &ByExtension{Extensions: m}
}

func (d *ByExtension) Detect(path string) (tag, languageID string, ok bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, found := d.Extensions[ext]
	if !found {
		return "", "", false
	}
	return lang.Tag, lang.LanguageID, true
}

// KindName translates an LSP SymbolKind into the lowercase string the
// call-hierarchy walker puts in CallNode.kind.
func KindName(kind protocol.SymbolKind) string {
	switch kind {
	case protocol.SymbolKindFile:
		return "file"
	case protocol.SymbolKindModule:
		return "module"
	case protocol.SymbolKindNamespace:
		return "namespace"
	case protocol.SymbolKindPackage:
		return "package"
	case protocol.SymbolKindClass:
		return "class"
	case protocol.SymbolKindMethod:
		return "method"
	case protocol.SymbolKindProperty:
		return "property"
	case protocol.SymbolKindField:
		return "field"
	case protocol.SymbolKindConstructor:
		return "constructor"
	case protocol.SymbolKindEnum:
		return "enum"
	case protocol.SymbolKindInterface:
		return "interface"
	case protocol.SymbolKindFunction:
		return "function"
	case protocol.SymbolKindVariable:
		return "variable"
	case protocol.SymbolKindConstant:
		return "constant"
	case protocol.SymbolKindString:
		return "string"
	case protocol.SymbolKindNumber:
		return "number"
	case protocol.SymbolKindBoolean:
		return "boolean"
	case protocol.SymbolKindArray:
		return "array"
	case protocol.SymbolKindObject:
		return "object"
	case protocol.SymbolKindKey:
		return "key"
	case protocol.SymbolKindNull:
		return "null"
	case protocol.SymbolKindEnumMember:
		return "enum_member"
	case protocol.SymbolKindStruct:
		return "struct"
	case protocol.SymbolKindEvent:
		return "event"
	case protocol.SymbolKindOperator:
		return "operator"
	case protocol.SymbolKindTypeParameter:
		return "type_parameter"
	default:
		return "unknown"
	}
}
