package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "nested path", input: filepath.Join("GameMechanics", "Creature", "Angel.xdb"), want: "GameMechanics/Creature/Angel.xdb"},
		{name: "already normalized", input: "a/b/c", want: "a/b/c"},
		{name: "dot segments collapse", input: "a/./b/../c", want: "a/c"},
		{name: "empty string becomes dot", input: "", want: "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestDenormalize(t *testing.T) {
	want := "a" + string(filepath.Separator) + "b" + string(filepath.Separator) + "c.xdb"
	assert.Equal(t, want, Denormalize("a/b/c.xdb"))
}

func TestFirstSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Academy/Angel.xdb", want: "Academy"},
		{in: "Academy/Sub/Angel.xdb", want: "Academy"},
		{in: "Angel.xdb", want: "Angel.xdb"},
		{in: "./Dungeon/Hydra.xdb", want: "Dungeon"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FirstSegment(tt.in))
		})
	}
}

func TestFindActual(t *testing.T) {
	dir := t.TempDir()
	actual := filepath.Join(dir, "Universe_mod.pak")
	require.NoError(t, os.WriteFile(actual, []byte("pak"), 0o644))

	got, err := FindActual(filepath.Join(dir, "universe_MOD.pak"))
	require.NoError(t, err)
	assert.Equal(t, actual, got)

	missing := filepath.Join(dir, "nothing.pak")
	got, err = FindActual(missing)
	require.NoError(t, err)
	assert.Equal(t, missing, got)
}

func TestJoin_PreventTraversal(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name    string
		entry   string
		wantErr bool
	}{
		{name: "file in base", entry: "file.txt"},
		{name: "nested file", entry: "GameMechanics/Creature/Angel.xdb"},
		{name: "directory entry", entry: "GameMechanics/"},
		{name: "parent escape", entry: "../outside.txt", wantErr: true},
		{name: "deep escape", entry: "a/b/../../../outside.txt", wantErr: true},
		{name: "sibling with shared prefix", entry: "../" + filepath.Base(base) + "-evil/x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Join(base, tt.entry)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrTraversal)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, Within(base, got))
		})
	}
}
