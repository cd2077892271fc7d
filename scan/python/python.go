// Package python provides the Python language adapter using tree-sitter.
package python

import (
	"context"
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tspython "github.com/smacker/go-tree-sitter/python"

	"github.com/c360studio/archlens/scan"
)

func init() {
	scan.DefaultRegistry.Register(New())
}

// Adapter extracts imports and top-level symbols from Python source files.
type Adapter struct{}

// New creates the Python adapter.
func New() *Adapter { return &Adapter{} }

// Language returns "python".
func (a *Adapter) Language() string { return "python" }

// Extensions returns [".py"].
func (a *Adapter) Extensions() []string { return []string{".py"} }

// ParseFile parses a Python file with tree-sitter and extracts import
// statements (aliases discarded) and top-level class/def/assignment symbols.
func (a *Adapter) ParseFile(filePath string, content []byte) (*scan.File, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(tspython.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("syntax errors in %s", filePath)
	}

	result := &scan.File{Path: filePath, Language: a.Language()}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		result.Imports = append(result.Imports, a.extractImports(child, content)...)
		result.Symbols = append(result.Symbols, a.extractSymbols(child, content)...)
	}

	return result, nil
}

// NormalizeImport converts a dotted Python module path into a slash path.
// Relative imports (leading dots) resolve against the importing file's
// directory, one level up per extra dot.
func (a *Adapter) NormalizeImport(fromDir, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	dots := 0
	for dots < len(raw) && raw[dots] == '.' {
		dots++
	}
	rest := strings.ReplaceAll(raw[dots:], ".", "/")

	if dots == 0 {
		return rest
	}

	// "from . import x" → the package itself; "from ..pkg import x" → up one.
	base := fromDir
	for i := 1; i < dots; i++ {
		if base == "." || base == "" {
			return ""
		}
		base = path.Dir(base)
	}
	if rest == "" {
		return base
	}
	return path.Join(base, rest)
}

func (a *Adapter) extractImports(node *sitter.Node, content []byte) []scan.Import {
	var imports []scan.Import
	line := int(node.StartPoint().Row) + 1

	switch node.Type() {
	case "import_statement":
		// import foo, bar as b
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() != "dotted_name" && child.Type() != "aliased_import" {
				continue
			}
			target := string(content[child.StartByte():child.EndByte()])
			if idx := strings.Index(target, " as "); idx != -1 {
				target = target[:idx]
			}
			imports = append(imports, scan.Import{Path: strings.TrimSpace(target), Line: line})
		}

	case "import_from_statement":
		// from foo.bar import baz
		if module := node.ChildByFieldName("module_name"); module != nil {
			target := string(content[module.StartByte():module.EndByte()])
			imports = append(imports, scan.Import{Path: target, Line: line})
		}
	}

	return imports
}

func (a *Adapter) extractSymbols(node *sitter.Node, content []byte) []scan.Symbol {
	switch node.Type() {
	case "class_definition":
		if sym, ok := a.namedSymbol(node, content, scan.KindStruct); ok {
			return []scan.Symbol{sym}
		}

	case "function_definition":
		if sym, ok := a.namedSymbol(node, content, scan.KindFunction); ok {
			return []scan.Symbol{sym}
		}

	case "decorated_definition":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch child.Type() {
			case "class_definition", "function_definition":
				return a.extractSymbols(child, content)
			}
		}

	case "expression_statement":
		return a.extractAssignments(node, content)
	}

	return nil
}

func (a *Adapter) namedSymbol(node *sitter.Node, content []byte, kind scan.SymbolKind) (scan.Symbol, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return scan.Symbol{}, false
	}
	return scan.Symbol{
		Name: string(content[nameNode.StartByte():nameNode.EndByte()]),
		Kind: kind,
		Line: int(node.StartPoint().Row) + 1,
	}, true
}

// extractAssignments records module-level assignments: SHOUTING names count
// as constants, the rest as variables.
func (a *Adapter) extractAssignments(node *sitter.Node, content []byte) []scan.Symbol {
	var symbols []scan.Symbol
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "assignment" {
			continue
		}
		left := child.ChildByFieldName("left")
		if left == nil || left.Type() != "identifier" {
			continue
		}
		name := string(content[left.StartByte():left.EndByte()])
		kind := scan.KindVar
		if isAllCaps(name) {
			kind = scan.KindConst
		}
		symbols = append(symbols, scan.Symbol{
			Name: name,
			Kind: kind,
			Line: int(node.StartPoint().Row) + 1,
		})
	}
	return symbols
}

func isAllCaps(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
	}
	return true
}
