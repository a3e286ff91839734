package filex

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureDir_CreatesRelativeToCWD(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	got, err := EnsureDir("uploads/avatars")
	require.NoError(t, err)

	want := filepath.Join(tmp, "uploads", "avatars")
	wantResolved, _ := filepath.EvalSymlinks(want)
	gotResolved, _ := filepath.EvalSymlinks(got)
	require.Equal(t, wantResolved, gotResolved)

	fi, err := os.Stat(got)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureDir_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "staging")

	first, err := EnsureDir(dir)
	require.NoError(t, err)
	second, err := EnsureDir(dir)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnsureDir_FileInTheWay(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := EnsureDir(filepath.Join(blocker, "sub"))
	require.Error(t, err)
}

func TestUniqueName(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	got := UniqueName("photo.png", now)
	require.Regexp(t, regexp.MustCompile(`^photo\.png-1700000000123-\d+$`), got)

	require.Regexp(t, `^passwd-1700000000123-\d+$`, UniqueName("../../etc/passwd", now))
	require.Regexp(t, `^evil\.jpg-1700000000123-\d+$`, UniqueName(`C:\temp\evil.jpg`, now))
	require.Regexp(t, `^upload-1700000000123-\d+$`, UniqueName("", now))
}

func TestCreateUnique(t *testing.T) {
	dir := t.TempDir()

	f, err := CreateUnique(dir, "me.jpg")
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, dir, filepath.Dir(f.Name()))
	_, err = f.WriteString("data")
	require.NoError(t, err)

	_, err = CreateUnique(filepath.Join(dir, "missing"), "me.jpg")
	require.Error(t, err)
}
