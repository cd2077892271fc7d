// Package ts provides the TypeScript/JavaScript language adapter using
// tree-sitter.
package ts

import (
	"context"
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/c360studio/archlens/scan"
)

func init() {
	scan.DefaultRegistry.Register(NewTypeScript())
	scan.DefaultRegistry.Register(NewJavaScript())
}

// Adapter extracts imports and top-level symbols from TypeScript or
// JavaScript source files.
type Adapter struct {
	language string
	exts     []string
	grammar  *sitter.Language
}

// NewTypeScript creates the TypeScript adapter (.ts, .mts, .cts).
func NewTypeScript() *Adapter {
	return &Adapter{
		language: "typescript",
		exts:     []string{".ts", ".mts", ".cts"},
		grammar:  typescript.GetLanguage(),
	}
}

// NewJavaScript creates the JavaScript adapter (.js, .mjs, .cjs).
func NewJavaScript() *Adapter {
	return &Adapter{
		language: "javascript",
		exts:     []string{".js", ".mjs", ".cjs"},
		grammar:  javascript.GetLanguage(),
	}
}

// Language returns the adapter's language name.
func (a *Adapter) Language() string { return a.language }

// Extensions returns the handled file extensions.
func (a *Adapter) Extensions() []string { return a.exts }

// ParseFile parses a file with tree-sitter and extracts import statements
// (including CommonJS require calls) and top-level symbols.
func (a *Adapter) ParseFile(filePath string, content []byte) (*scan.File, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(a.grammar)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("syntax errors in %s", filePath)
	}

	result := &scan.File{Path: filePath, Language: a.language}

	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()
	a.walkImports(cursor, content, result)

	for i := 0; i < int(root.NamedChildCount()); i++ {
		result.Symbols = append(result.Symbols, a.extractSymbols(root.NamedChild(i), content)...)
	}

	return result, nil
}

// NormalizeImport resolves relative specifiers against the importing file's
// directory and strips source extensions. Bare specifiers ("react") cannot
// be project paths and return unchanged; the classifier maps them to
// external modules.
func (a *Adapter) NormalizeImport(fromDir, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, ext := range []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"} {
		raw = strings.TrimSuffix(raw, ext)
	}
	if strings.HasPrefix(raw, "./") || strings.HasPrefix(raw, "../") {
		return path.Join(fromDir, raw)
	}
	return raw
}

// walkImports records import statement sources and require() arguments in
// document order.
func (a *Adapter) walkImports(cursor *sitter.TreeCursor, content []byte, result *scan.File) {
	node := cursor.CurrentNode()

	switch node.Type() {
	case "import_statement":
		if source := node.ChildByFieldName("source"); source != nil {
			result.Imports = append(result.Imports, scan.Import{
				Path: strings.Trim(nodeText(source, content), `'"`),
				Line: int(node.StartPoint().Row) + 1,
			})
		}
	case "call_expression":
		if fn := node.ChildByFieldName("function"); fn != nil && nodeText(fn, content) == "require" {
			if args := node.ChildByFieldName("arguments"); args != nil {
				for i := 0; i < int(args.ChildCount()); i++ {
					arg := args.Child(i)
					if arg.Type() == "string" {
						result.Imports = append(result.Imports, scan.Import{
							Path: strings.Trim(nodeText(arg, content), `'"`),
							Line: int(node.StartPoint().Row) + 1,
						})
					}
				}
			}
		}
	}

	if cursor.GoToFirstChild() {
		for {
			a.walkImports(cursor, content, result)
			if !cursor.GoToNextSibling() {
				break
			}
		}
		cursor.GoToParent()
	}
}

func (a *Adapter) extractSymbols(node *sitter.Node, content []byte) []scan.Symbol {
	switch node.Type() {
	case "export_statement":
		if decl := node.ChildByFieldName("declaration"); decl != nil {
			return a.extractSymbols(decl, content)
		}
		return nil

	case "interface_declaration":
		return a.namedSymbols(node, content, scan.KindInterface)

	case "class_declaration", "abstract_class_declaration":
		return a.namedSymbols(node, content, scan.KindStruct)

	case "function_declaration", "generator_function_declaration":
		return a.namedSymbols(node, content, scan.KindFunction)

	case "type_alias_declaration":
		return a.namedSymbols(node, content, scan.KindType)

	case "enum_declaration":
		return a.namedSymbols(node, content, scan.KindType)

	case "lexical_declaration", "variable_declaration":
		kind := scan.KindVar
		if strings.HasPrefix(nodeText(node, content), "const") {
			kind = scan.KindConst
		}
		var symbols []scan.Symbol
		for i := 0; i < int(node.NamedChildCount()); i++ {
			declarator := node.NamedChild(i)
			if declarator.Type() != "variable_declarator" {
				continue
			}
			if name := declarator.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
				symbols = append(symbols, scan.Symbol{
					Name: nodeText(name, content),
					Kind: kind,
					Line: int(node.StartPoint().Row) + 1,
				})
			}
		}
		return symbols
	}

	return nil
}

func (a *Adapter) namedSymbols(node *sitter.Node, content []byte, kind scan.SymbolKind) []scan.Symbol {
	name := node.ChildByFieldName("name")
	if name == nil {
		return nil
	}
	return []scan.Symbol{{
		Name: nodeText(name, content),
		Kind: kind,
		Line: int(node.StartPoint().Row) + 1,
	}}
}

func nodeText(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}
