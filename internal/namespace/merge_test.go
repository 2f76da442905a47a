package namespace

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMergeResources_LaterResourceWins(t *testing.T) {
	scope := NewScope(nil,
		handlersRoot("a", "a=X\n"),
		handlersRoot("b", "a=Y\nb=Z\n"),
	)

	table, err := MergeResources(DefaultResourcePath, scope)

	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "Y", "b": "Z"}, table)
}

func TestMergeResources_PropertiesSyntax(t *testing.T) {
	content := strings.Join([]string{
		"# comment line",
		"! also a comment",
		"",
		`https\://nsresolve.dev/schema/util = example.com/handlers.Util   `,
		`dup=first`,
		`dup=second`,
		`colon:example.com/handlers.Colon`,
		`long=example.com/\`,
		`     handlers.Long`,
		`  spaced    example.com/handlers.Spaced`,
	}, "\n")

	table, err := MergeResources(DefaultResourcePath, NewScope(nil, handlersRoot("jar", content)))

	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"https://nsresolve.dev/schema/util": "example.com/handlers.Util",
		"dup":                               "second",
		"colon":                             "example.com/handlers.Colon",
		"long":                              "example.com/handlers.Long",
		"spaced":                            "example.com/handlers.Spaced",
	}, table)
}

func TestMergeResources_NoExpansion(t *testing.T) {
	table, err := MergeResources(DefaultResourcePath, NewScope(nil, handlersRoot("jar", "a=${b}\nb=c\n")))

	require.NoError(t, err)
	require.Equal(t, "${b}", table["a"])
}

func TestMergeResources_NoResources(t *testing.T) {
	table, err := MergeResources(DefaultResourcePath, NewScope(nil, mapRoot("empty", nil)))

	require.NoError(t, err)
	require.Empty(t, table)
}

func TestMergeResources_SkipsDirectories(t *testing.T) {
	root := mapRoot("dir", map[string]string{DefaultResourcePath + "/nested": "a=b"})

	table, err := MergeResources(DefaultResourcePath, NewScope(nil, root))

	require.NoError(t, err)
	require.Empty(t, table)
}

type failingLocator struct{ err error }

func (l failingLocator) Locate(string) ([]Resource, error) { return nil, l.err }

func TestMergeResources_LocatorErrorsAreResourceLoadErrors(t *testing.T) {
	_, err := MergeResources("x", failingLocator{err: errors.New("network down")})

	require.ErrorIs(t, err, ErrResourceLoad)
	var rle *ResourceLoadError
	require.ErrorAs(t, err, &rle)
	require.Equal(t, "x", rle.Path)
	require.Contains(t, err.Error(), "network down")

	wrapped := &ResourceLoadError{Path: "y", Origin: "o", Err: errors.New("bad")}
	_, err = MergeResources("x", failingLocator{err: wrapped})
	require.Same(t, wrapped, err)
}

func TestMergeResources_UnreadableResource(t *testing.T) {
	loc := locatorFunc(func(path string) ([]Resource, error) {
		return []Resource{NewResource("ghost", path, nil)}, nil
	})

	_, err := MergeResources(DefaultResourcePath, loc)

	var rle *ResourceLoadError
	require.ErrorAs(t, err, &rle)
	require.Equal(t, "ghost", rle.Origin)
}

type locatorFunc func(string) ([]Resource, error)

func (f locatorFunc) Locate(path string) ([]Resource, error) { return f(path) }

func TestMergeResources_InvalidPath(t *testing.T) {
	_, err := MergeResources("../outside", NewScope(nil, mapRoot("jar", nil)))

	require.ErrorIs(t, err, ErrResourceLoad)
}

func TestProperty_MergeMatchesOrderedOverride(t *testing.T) {
	keyGen := rapid.StringMatching(`[a-z][a-z0-9./]{0,12}`)
	valueGen := rapid.StringMatching(`[A-Za-z][A-Za-z0-9._/]{0,20}`)

	rapid.Check(t, func(rt *rapid.T) {
		resources := rapid.SliceOfN(rapid.MapOfN(keyGen, valueGen, 0, 8), 0, 5).Draw(rt, "resources")

		want := make(map[string]string)
		roots := make([]Root, 0, len(resources))
		for i, res := range resources {
			var b strings.Builder
			for k, v := range res {
				fmt.Fprintf(&b, "%s=%s\n", k, v)
				want[k] = v
			}
			roots = append(roots, handlersRoot(fmt.Sprintf("root-%d", i), b.String()))
		}

		got, err := MergeResources(DefaultResourcePath, NewScope(nil, roots...))
		require.NoError(rt, err)
		require.Equal(rt, want, got)
	})
}
