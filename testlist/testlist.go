// Package testlist discovers test functions by parsing Go sources. It lets
// the harness verify a plan before spending time compiling and running test
// binaries for entries that could never exist.
package testlist

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

// FindTestFunctions returns the names of the test functions declared in the
// given package. The package may be referenced relative to workDir ("./...")
// or by its import path within the module rooted at workDir.
func FindTestFunctions(pkgPath string, workDir string) ([]string, error) {
	pkgDir, err := resolveDir(pkgPath, workDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read package directory: %w", err)
	}

	var testFunctions []string
	fset := token.NewFileSet()

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}

		f, err := parser.ParseFile(fset, filepath.Join(pkgDir, entry.Name()), nil, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}

		for _, decl := range f.Decls {
			funcDecl, ok := decl.(*ast.FuncDecl)
			if !ok {
				continue
			}
			if isTestFunction(funcDecl) {
				testFunctions = append(testFunctions, funcDecl.Name.Name)
			}
		}
	}

	return testFunctions, nil
}

// resolveDir maps a package reference onto a directory under workDir.
func resolveDir(pkgPath string, workDir string) (string, error) {
	if pkgPath == "." || strings.HasPrefix(pkgPath, "./") {
		return filepath.Join(workDir, pkgPath), nil
	}

	goModPath := filepath.Join(workDir, "go.mod")
	goModContent, err := os.ReadFile(goModPath)
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}

	modFile, err := modfile.Parse(goModPath, goModContent, nil)
	if err != nil {
		return "", fmt.Errorf("failed to parse go.mod: %w", err)
	}

	moduleName := modFile.Module.Mod.Path
	if moduleName == "" {
		return "", fmt.Errorf("could not find module name in go.mod")
	}

	if !strings.HasPrefix(pkgPath, moduleName) {
		return "", fmt.Errorf("package %s is not in module %s", pkgPath, moduleName)
	}

	relPath := strings.TrimPrefix(pkgPath, moduleName)
	if relPath == "" {
		relPath = "."
	}
	return filepath.Join(workDir, relPath), nil
}

// isTestFunction reports whether decl is a function `go test` would run:
// named Test* but not TestMain, with a single parameter.
func isTestFunction(decl *ast.FuncDecl) bool {
	name := decl.Name.Name
	if !strings.HasPrefix(name, "Test") || name == "TestMain" {
		return false
	}
	if decl.Recv != nil {
		return false
	}
	params := decl.Type.Params
	if params == nil || len(params.List) != 1 {
		return false
	}
	// A single field can still declare several parameters ("a, b int").
	return len(params.List[0].Names) <= 1
}
