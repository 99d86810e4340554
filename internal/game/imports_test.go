package game

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Core packages are replayed from inputs alone on both ends of the wire, so
// they import neither the wall clock nor the network.
var (
	transportImports = []string{
		"net",
		"arena/internal/net",
		"arena/internal/server",
		"arena/internal/client",
		"arena/internal/sim",
		"arena/logging",
		"github.com/gorilla/websocket",
	}
	nondeterministicImports = []string{
		"time",
		"math/rand",
		"os",
	}
)

func forbiddenImports(t *testing.T, dir string, forbidden []string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*.go"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "no sources in %s", dir)

	var violations []string
	fset := token.NewFileSet()
	for _, file := range files {
		if strings.HasSuffix(file, "_test.go") {
			continue
		}
		parsed, err := parser.ParseFile(fset, file, nil, parser.ImportsOnly)
		require.NoError(t, err)
		for _, spec := range parsed.Imports {
			path, err := strconv.Unquote(spec.Path.Value)
			require.NoError(t, err)
			for _, prefix := range forbidden {
				if path == prefix || strings.HasPrefix(path, prefix+"/") {
					violations = append(violations, filepath.Base(file)+" -> "+path)
				}
			}
		}
	}
	sort.Strings(violations)
	return violations
}

func TestCoreImportsStayDeterministic(t *testing.T) {
	strict := append(append([]string(nil), transportImports...), nondeterministicImports...)
	for _, dir := range []string{".", "../geom", "../predict"} {
		require.Empty(t, forbiddenImports(t, dir, strict), "forbidden imports in %s", dir)
	}
	for _, dir := range []string{"../clock", "../stats"} {
		require.Empty(t, forbiddenImports(t, dir, transportImports), "forbidden imports in %s", dir)
	}
}
