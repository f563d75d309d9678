package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromFile(t *testing.T) {
	rcFile := filepath.Join(t.TempDir(), rcFileName)
	contents := "# comment\nNODESHIM_ROOT=/opt/node\nNODESHIM_VERBOSE=1\nexport NODESHIM_KILL_GRACE=\"5s\"\n"
	require.NoError(t, os.WriteFile(rcFile, []byte(contents), 0600))

	c, err := FromFile(rcFile)
	require.NoError(t, err)

	assert.Equal(t, "/opt/node", c.Get("NODESHIM_ROOT"))
	assert.Equal(t, "1", c.Get("NODESHIM_VERBOSE"))
	assert.Equal(t, "5s", c.Get("NODESHIM_KILL_GRACE"))
	assert.Equal(t, "", c.Get("# comment"))
}

func TestFromMissingFile(t *testing.T) {
	c, err := FromFile(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Equal(t, "", c.Get("NODESHIM_ROOT"))
}

func TestFromEnv(t *testing.T) {
	t.Setenv("NODESHIM_TEST_VALUE", "from-env")
	assert.Equal(t, "from-env", FromEnv().Get("NODESHIM_TEST_VALUE"))
}

func TestLayered(t *testing.T) {
	c := Layered(
		Static(map[string]string{"A": "first"}),
		Static(nil),
		Static(map[string]string{"A": "second", "B": "second"}),
	)

	assert.Equal(t, "first", c.Get("A"))
	assert.Equal(t, "second", c.Get("B"))
	assert.Equal(t, "", c.Get("C"))
}

func TestLocateProjectConfigFile(t *testing.T) {
	projectDir := t.TempDir()
	nested := filepath.Join(projectDir, "src")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, rcFileName), []byte("A=1\n"), 0600))
	t.Chdir(nested)

	path, err := LocateProjectConfigFile()
	require.NoError(t, err)

	resolvedWant, err := filepath.EvalSymlinks(filepath.Join(projectDir, rcFileName))
	require.NoError(t, err)
	resolvedGot, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	assert.Equal(t, resolvedWant, resolvedGot)
}

func TestStaticWithoutValues(t *testing.T) {
	assert.Equal(t, "", Static(nil).Get("NODESHIM_ROOT"))
}

func TestFunc(t *testing.T) {
	var asked []string
	c := Func(func(name string) string {
		asked = append(asked, name)
		return "value"
	})

	assert.Equal(t, "value", c.Get("NODESHIM_ROOT"))
	assert.Equal(t, []string{"NODESHIM_ROOT"}, asked)
}
