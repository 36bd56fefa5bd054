// Package testutil provides reusable testing helpers for enforcing architectural
// and import boundaries across the repository.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// ModulePath is the import path prefix of every package in this repository.
const ModulePath = "timetable"

// AssertNoTransitiveDependency loads the packages matching pattern (e.g. "." or
// "timetable/internal/export") with their full dependency graph and fails the
// test if any reachable package path satisfies the forbidden predicate.
func AssertNoTransitiveDependency(t testing.TB, pattern string, forbidden func(path string) bool, reason string) {
	t.Helper()
	viols, err := transitiveDependencyViolations(pattern, forbidden)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	failIfTransitiveViolations(t, reason, viols)
}

// AssertNoDirectImports scans all non-test .go files in dir (typically "." from within the package)
// and fails if any import path satisfies the forbidden predicate. It does not follow build tags.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	failIfDirectViolations(t, reason, viols)
}

// AssertImportedOnlyBy loads the packages matching pattern (including their
// tests) and fails when a package outside owners imports target or one of its
// subpackages. Packages under target itself are exempt.
func AssertImportedOnlyBy(t testing.TB, pattern, target string, owners ...string) {
	t.Helper()
	viols, err := ownershipViolations(pattern, target, owners)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if len(viols) > 0 {
		t.Fatalf("%s may only be imported by %s:\n%s", target, strings.Join(owners, ", "), strings.Join(viols, "\n"))
	}
}

// InternalImportForbidden matches any package of this module under internal/.
func InternalImportForbidden(path string) bool {
	return strings.HasPrefix(path, ModulePath+"/internal/")
}

// InfraImportForbidden matches the concrete persistence and blob backends.
func InfraImportForbidden(path string) bool {
	return path == ModulePath+"/internal/infra" || strings.HasPrefix(path, ModulePath+"/internal/infra/")
}

// NonStdlibImportForbidden matches every import outside the standard library,
// including this module's own packages.
func NonStdlibImportForbidden(path string) bool {
	first, _, _ := strings.Cut(path, "/")
	return strings.Contains(first, ".") || first == ModulePath
}

var loadPackages = func(pattern string) ([]*packages.Package, error) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports | packages.NeedDeps}
	return packages.Load(cfg, pattern)
}

var loadImports = func(pattern string) ([]*packages.Package, error) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	return packages.Load(cfg, pattern)
}

func within(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func ownershipViolations(pattern, target string, owners []string) ([]string, error) {
	pkgs, err := loadImports(pattern)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		// Test variants carry suffixes such as "pkg [pkg.test]" or "pkg_test".
		path, _, _ := strings.Cut(pkg.PkgPath, " ")
		path = strings.TrimSuffix(path, "_test")
		if within(path, target) || slices.ContainsFunc(owners, func(owner string) bool { return within(path, owner) }) {
			continue
		}
		for imp := range pkg.Imports {
			if within(imp, target) {
				seen[path+": "+imp] = struct{}{}
			}
		}
	}
	viols := make([]string, 0, len(seen))
	for v := range seen {
		viols = append(viols, v)
	}
	sort.Strings(viols)
	return viols, nil
}

func transitiveDependencyViolations(pattern string, forbidden func(path string) bool) ([]string, error) {
	roots, err := loadPackages(pattern)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	packages.Visit(roots, nil, func(pkg *packages.Package) {
		if forbidden(pkg.PkgPath) {
			seen[pkg.PkgPath] = struct{}{}
		}
	})
	viols := make([]string, 0, len(seen))
	for path := range seen {
		viols = append(viols, path)
	}
	sort.Strings(viols)
	return viols, nil
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		fileAst, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range fileAst.Imports {
			ip, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				return nil, err
			}
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfTransitiveViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden transitive dependency detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}

func failIfDirectViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden direct imports detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}
