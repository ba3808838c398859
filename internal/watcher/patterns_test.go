package watcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, ignores ...string) *registry {
	t.Helper()
	r, err := newRegistry("/proj", ignores)
	require.NoError(t, err)
	return r
}

func TestContains(t *testing.T) {
	tests := []struct {
		dir, path string
		want      bool
	}{
		{"/a", "/a", true},
		{"/a", "/a/b", true},
		{"/a", "/a/b/c", true},
		{"/a", "/ab", false},
		{"/a/b", "/a", false},
		{"/a", "/b", false},
		{"/", "/x", true},
	}

	for _, tt := range tests {
		t.Run(tt.dir+"|"+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, contains(tt.dir, tt.path))
		})
	}
}

func TestRegistry_AddResolvesAgainstBase(t *testing.T) {
	r := newTestRegistry(t)

	root, added := r.Add("src/*.go")
	assert.Equal(t, "/proj", root)
	assert.True(t, added)
	assert.Equal(t, []string{"/proj/src/*.go"}, r.Patterns())
	assert.Equal(t, []string{"/proj"}, r.Roots())
}

func TestRegistry_AddDuplicate(t *testing.T) {
	r := newTestRegistry(t)
	r.Add("*.txt")

	root, added := r.Add("/proj/*.txt")
	assert.Empty(t, root)
	assert.False(t, added)
	assert.Len(t, r.Patterns(), 1)
}

func TestRegistry_AddUnderTrackedRoot(t *testing.T) {
	// Given: the base dir is tracked
	r := newTestRegistry(t)
	r.Add("*.txt")

	// When: another pattern under it is added
	root, added := r.Add("/proj/lib/**/*.go")

	// Then: the existing root serves it
	assert.Equal(t, "/proj", root)
	assert.False(t, added)
	assert.Equal(t, []string{"/proj"}, r.Roots())
}

func TestRegistry_AddOutsideBase(t *testing.T) {
	r := newTestRegistry(t)
	r.Add("*.txt")

	root, added := r.Add("/other/*.log")
	assert.Equal(t, "/other", root)
	assert.True(t, added)
	assert.Equal(t, []string{"/other", "/proj"}, r.Roots())
}

func TestRegistry_TrackRootAbsorbsContained(t *testing.T) {
	r := newTestRegistry(t)

	assert.True(t, r.TrackRoot("/x/y"))
	assert.True(t, r.TrackRoot("/z"))
	assert.False(t, r.TrackRoot("/x/y/z"))
	assert.True(t, r.TrackRoot("/x"))

	assert.Equal(t, []string{"/x", "/z"}, r.Roots())
	assert.False(t, r.TrackRoot("/x/y"))
}

func TestRegistry_TrackRootIsComponentWise(t *testing.T) {
	r := newTestRegistry(t)
	assert.True(t, r.TrackRoot("/src"))
	assert.True(t, r.TrackRoot("/src2"))
	assert.Equal(t, []string{"/src", "/src2"}, r.Roots())
}

func TestRegistry_InScope(t *testing.T) {
	r := newTestRegistry(t, "**/vendor", "**/vendor/**")
	r.Add("src/**/*.go")

	tests := []struct {
		path string
		want bool
	}{
		{"/proj", true},
		{"/proj/src", true},
		{"/proj/src/a", true},
		{"/proj/src/a/b.go", true},
		{"/proj/docs", false},
		{"/proj/README.md", false},
		{"/proj/src/vendor", false},
		{"/proj/src/vendor/x.go", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, r.InScope(tt.path))
		})
	}
}

func TestRegistry_DirInScope(t *testing.T) {
	r := newTestRegistry(t)
	r.Add("*.txt")
	r.Add("src/**/*.go")

	assert.True(t, r.DirInScope("/proj"))
	assert.True(t, r.DirInScope("/proj/src/deep/er"))
	assert.False(t, r.DirInScope("/proj/docs"))
	assert.False(t, r.DirInScope("/elsewhere"))
}

func TestRegistry_FileInScope(t *testing.T) {
	r := newTestRegistry(t, "**/*.tmp.txt")
	r.Add("*.txt")

	assert.True(t, r.FileInScope("/proj/a.txt"))
	assert.False(t, r.FileInScope("/proj/a.md"))
	assert.False(t, r.FileInScope("/proj/sub/a.txt"))
	assert.False(t, r.FileInScope("/proj/x.tmp.txt"))
}

func TestRegistry_SkipHook(t *testing.T) {
	// Given: a hook that skips build dirs and log files
	r := newTestRegistry(t)
	var calls []string
	r.skip = func(path string, isDir bool) bool {
		calls = append(calls, path)
		return (isDir && filepath.Base(path) == "build") || (!isDir && filepath.Ext(path) == ".log")
	}
	r.Add("**/*")

	// Then: the hook vetoes by kind
	assert.True(t, r.DirInScope("/proj/src"))
	assert.False(t, r.DirInScope("/proj/build"))
	assert.True(t, r.FileInScope("/proj/build.txt"))
	assert.False(t, r.FileInScope("/proj/app.log"))

	// And: a tracked root is never handed to the hook
	calls = nil
	assert.True(t, r.DirInScope("/proj"))
	assert.Empty(t, calls)
}

func TestRegistry_FileInScopeCacheFollowsPatterns(t *testing.T) {
	// Given: a cached miss
	r := newTestRegistry(t)
	r.Add("*.txt")
	require.False(t, r.FileInScope("/proj/a.md"))

	// When: a pattern covering it is added
	r.Add("*.md")

	// Then: the cache does not hide the new match
	assert.True(t, r.FileInScope("/proj/a.md"))

	// When: everything is cleared
	r.Clear()

	// Then: the cached hit is gone too
	assert.False(t, r.FileInScope("/proj/a.md"))
}

func TestRegistry_Reportable(t *testing.T) {
	r := newTestRegistry(t)
	r.Add("src/**/*.go")

	assert.False(t, r.Reportable("/proj"), "crawled only to reach the pattern root")
	assert.False(t, r.Reportable("/proj/src"), "the pattern root itself")
	assert.True(t, r.Reportable("/proj/src/app"))
	assert.True(t, r.Reportable("/proj/src/app/util"))
	assert.False(t, r.Reportable("/proj/docs"))
}

func TestRegistry_ReportableNeedsPrefixMatch(t *testing.T) {
	r := newTestRegistry(t)
	r.Add("*.txt")

	assert.False(t, r.Reportable("/proj/sub"), "no match can live below it")
}

func TestRegistry_DepthOf(t *testing.T) {
	r := newTestRegistry(t)
	r.Add("**/*.txt")
	r.Add("/other/**")

	assert.Equal(t, 0, r.DepthOf("/proj"))
	assert.Equal(t, 1, r.DepthOf("/proj/a"))
	assert.Equal(t, 2, r.DepthOf("/proj/a/b.txt"))
	assert.Equal(t, 1, r.DepthOf("/other/x"))
	assert.Equal(t, 0, r.DepthOf("/elsewhere/y"))
}

func TestRegistry_ClearKeepsIgnores(t *testing.T) {
	r := newTestRegistry(t, "**/.git")
	r.Add("*.txt")

	r.Clear()

	assert.Empty(t, r.Patterns())
	assert.Empty(t, r.Roots())
	assert.True(t, r.Ignored("/proj/.git"))
	assert.False(t, r.InScope("/proj/a.txt"))

	root, added := r.Add("*.txt")
	assert.Equal(t, "/proj", root)
	assert.True(t, added)
}
