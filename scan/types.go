// Package scan walks a project tree and extracts per-file import
// declarations and top-level symbols through pluggable language adapters.
package scan

import "fmt"

// SymbolKind classifies a top-level declaration.
type SymbolKind string

const (
	KindInterface SymbolKind = "interface"
	KindStruct    SymbolKind = "struct"
	KindFunction  SymbolKind = "function"
	KindType      SymbolKind = "type"
	KindConst     SymbolKind = "const"
	KindVar       SymbolKind = "var"
)

// ParseKind converts a config string into a SymbolKind.
func ParseKind(s string) (SymbolKind, error) {
	switch SymbolKind(s) {
	case KindInterface, KindStruct, KindFunction, KindType, KindConst, KindVar:
		return SymbolKind(s), nil
	}
	return "", fmt.Errorf("unknown symbol kind %q", s)
}

// Symbol is a top-level declaration found in a file.
type Symbol struct {
	Name string
	Kind SymbolKind
	Line int
}

// Import is a single import declaration. The alias, if any, has already been
// discarded; Path is the raw target as written in the source.
type Import struct {
	Path string
	Line int
}

// File describes one scanned source file. Path is slash-separated and
// relative to the scan root.
type File struct {
	Path     string
	Language string
	Imports  []Import
	Symbols  []Symbol
}

// Warning records a file whose imports could not be extracted. The file is
// excluded from graph edges but surfaces in run diagnostics.
type Warning struct {
	Path   string
	Reason string
}

// Result is the merged outcome of one scan: files sorted by path, plus
// extraction warnings. Completion order of the workers never affects it.
type Result struct {
	Root     string
	Files    []File
	Warnings []Warning
}
