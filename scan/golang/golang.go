// Package golang provides the Go language adapter: import extraction via
// go/parser and top-level symbol kinds via go/ast.
package golang

import (
	goast "go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/c360studio/archlens/scan"
)

func init() {
	scan.DefaultRegistry.Register(New())
}

// Adapter extracts imports and top-level declarations from Go source files.
type Adapter struct{}

// New creates the Go adapter.
func New() *Adapter { return &Adapter{} }

// Language returns "go".
func (a *Adapter) Language() string { return "go" }

// Extensions returns [".go"].
func (a *Adapter) Extensions() []string { return []string{".go"} }

// ParseFile extracts the import declarations (grouped blocks and aliases
// supported, alias discarded) and the top-level symbols of a Go file.
func (a *Adapter) ParseFile(path string, content []byte) (*scan.File, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	result := &scan.File{Path: path, Language: a.Language()}

	for _, imp := range file.Imports {
		target := strings.Trim(imp.Path.Value, `"`)
		result.Imports = append(result.Imports, scan.Import{
			Path: target,
			Line: fset.Position(imp.Pos()).Line,
		})
	}

	for _, decl := range file.Decls {
		result.Symbols = append(result.Symbols, a.extractDecl(fset, decl)...)
	}

	return result, nil
}

// NormalizeImport returns the import path unchanged: Go import paths are
// already slash-separated package directories.
func (a *Adapter) NormalizeImport(fromDir, raw string) string {
	return raw
}

func (a *Adapter) extractDecl(fset *token.FileSet, decl goast.Decl) []scan.Symbol {
	var symbols []scan.Symbol

	switch d := decl.(type) {
	case *goast.FuncDecl:
		symbols = append(symbols, scan.Symbol{
			Name: d.Name.Name,
			Kind: scan.KindFunction,
			Line: fset.Position(d.Pos()).Line,
		})

	case *goast.GenDecl:
		switch d.Tok {
		case token.TYPE:
			for _, spec := range d.Specs {
				ts, ok := spec.(*goast.TypeSpec)
				if !ok {
					continue
				}
				kind := scan.KindType
				switch ts.Type.(type) {
				case *goast.StructType:
					kind = scan.KindStruct
				case *goast.InterfaceType:
					kind = scan.KindInterface
				}
				symbols = append(symbols, scan.Symbol{
					Name: ts.Name.Name,
					Kind: kind,
					Line: fset.Position(ts.Pos()).Line,
				})
			}
		case token.CONST, token.VAR:
			kind := scan.KindConst
			if d.Tok == token.VAR {
				kind = scan.KindVar
			}
			for _, spec := range d.Specs {
				vs, ok := spec.(*goast.ValueSpec)
				if !ok {
					continue
				}
				for _, name := range vs.Names {
					if name.Name == "_" {
						continue
					}
					symbols = append(symbols, scan.Symbol{
						Name: name.Name,
						Kind: kind,
						Line: fset.Position(name.Pos()).Line,
					})
				}
			}
		}
	}

	return symbols
}
