package tempfs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/airenas/transcribo/internal/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDirs(t *testing.T) {
	_, err := NewDirs("")
	assert.NotNil(t, err)
	root := filepath.Join(t.TempDir(), "a", "b")
	_, err = NewDirs(root)
	require.Nil(t, err)
	assert.DirExists(t, root)
}

func TestCreate(t *testing.T) {
	d, err := NewDirs(t.TempDir())
	require.Nil(t, err)
	got, err := d.Create("../doc/1")
	require.Nil(t, err)
	assert.DirExists(t, got)
	name := filepath.Base(got)
	assert.True(t, strings.HasPrefix(name, "job-_doc_1-"), name)
	got2, err := d.Create("../doc/1")
	require.Nil(t, err)
	assert.NotEqual(t, got, got2)
}

func TestGetExpired(t *testing.T) {
	root := t.TempDir()
	d, _ := NewDirs(root)
	_, err := d.GetExpired(test.Ctx(t))
	assert.NotNil(t, err)

	d.WithExpire(time.Hour)
	old, _ := d.Create("old")
	fresh, _ := d.Create("fresh")
	require.Nil(t, os.Mkdir(filepath.Join(root, "other"), 0755))
	past := time.Now().Add(-2 * time.Hour)
	require.Nil(t, os.Chtimes(old, past, past))
	require.Nil(t, os.Chtimes(filepath.Join(root, "other"), past, past))

	got, err := d.GetExpired(test.Ctx(t))
	require.Nil(t, err)
	assert.Equal(t, []string{filepath.Base(old)}, got)
	assert.DirExists(t, fresh)
}

func TestClean(t *testing.T) {
	root := t.TempDir()
	d, _ := NewDirs(root)
	dir, _ := d.Create("1")
	require.Nil(t, os.WriteFile(filepath.Join(dir, "source.mp3"), []byte("a"), 0644))
	require.Nil(t, d.Clean(test.Ctx(t), filepath.Base(dir)))
	assert.NoDirExists(t, dir)

	assert.NotNil(t, d.Clean(test.Ctx(t), "other"))
	assert.NotNil(t, d.Clean(test.Ctx(t), "job-../../x"))
}

func TestCleanAll(t *testing.T) {
	root := t.TempDir()
	d, _ := NewDirs(root)
	_, _ = d.Create("1")
	_, _ = d.Create("2")
	require.Nil(t, os.Mkdir(filepath.Join(root, "other"), 0755))
	got, err := d.CleanAll(test.Ctx(t))
	require.Nil(t, err)
	assert.Equal(t, 2, got)
	assert.DirExists(t, filepath.Join(root, "other"))
}
