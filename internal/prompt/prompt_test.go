package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct{ played []string }

func (r *recorder) Play(name string) { r.played = append(r.played, name) }

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"maybe\n", false},
		{"", false},
		{"y", true},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			p := New(strings.NewReader(tt.input), &out, false)
			assert.Equal(t, tt.want, p.Confirm("Replace?"))
			assert.Equal(t, "Replace? (y/n): ", out.String())
		})
	}
}

func TestConfirm_NonInteractive(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader(""), &out, true)
	assert.True(t, p.Confirm("Replace?"))
	assert.Empty(t, out.String())

	ok, err := p.ConfirmOverwrite("data/Universe_mod.pak")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestChoose(t *testing.T) {
	var out bytes.Buffer
	sound := &recorder{}
	p := New(strings.NewReader("7\nabc\n2\n"), &out, false)
	p.Sound = sound

	idx, err := p.Choose("Package", []string{"Universe_mod", "H5AI_31"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Contains(t, out.String(), "  2. H5AI_31")
	assert.Equal(t, 2, strings.Count(out.String(), "Invalid choice"))
	assert.Equal(t, []string{"select"}, sound.played)

	p = New(strings.NewReader("0\n"), &out, false)
	_, err = p.Choose("Package", []string{"a"})
	assert.ErrorIs(t, err, ErrCancelled)

	p = New(strings.NewReader(""), &out, false)
	_, err = p.Choose("Package", []string{"a"})
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestAskAndSelectFolderFallback(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("\n"), &out, false)
	assert.Equal(t, "C:/Games/H5", p.Ask("Game folder", "C:/Games/H5"))

	p = New(strings.NewReader(""), &out, true)
	got, err := p.SelectFolder("Game folder", "/games/h5")
	require.NoError(t, err)
	assert.Equal(t, "/games/h5", got)
}
