package patch

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const angel = `<?xml version="1.0" encoding="UTF-8"?>
<Creature>
	<AttackSkill>27</AttackSkill>
	<WeeklyGrowth>3</WeeklyGrowth>
	<Upgrades>
		<Item>Archangel</Item>
	</Upgrades>
</Creature>
`

func writeDescriptor(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func engine(t *testing.T, factor float64) Engine {
	t.Helper()
	e, err := NewEngine(DefaultField, factor)
	require.NoError(t, err)
	return e
}

func TestApply_RewritesOnlyTheField(t *testing.T) {
	path := writeDescriptor(t, "Angel.xdb", angel)

	res, err := engine(t, 1.5).Apply(path)
	require.NoError(t, err)

	assert.Equal(t, StatusChanged, res.Status)
	require.NotNil(t, res.Sample)
	assert.Equal(t, Change{Name: "Angel", Old: 3, New: 5}, *res.Sample)
	assert.Equal(t, "Angel 3→5", res.Sample.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Replace(angel, "<WeeklyGrowth>3<", "<WeeklyGrowth>5<", 1), string(data))
}

func TestPreview_DoesNotWrite(t *testing.T) {
	path := writeDescriptor(t, "Angel.xdb", angel)
	before, err := os.Stat(path)
	require.NoError(t, err)

	res, err := engine(t, 2.0).Preview(path)
	require.NoError(t, err)
	assert.Equal(t, StatusChanged, res.Status)
	assert.Equal(t, int64(6), res.Sample.New)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, angel, string(data))

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestApply_NoOpFactor(t *testing.T) {
	path := writeDescriptor(t, "Angel.xdb", angel)

	res, err := engine(t, 1.0).Apply(path)
	require.NoError(t, err)
	assert.Equal(t, StatusUnchanged, res.Status)
	assert.Nil(t, res.Sample)
	assert.Equal(t, 1, res.Fields)
}

func TestEvaluate_Statuses(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		status Status
		fields int
	}{
		{name: "no field", doc: `<Creature><Speed>7</Speed></Creature>`, status: StatusNoField},
		{name: "empty field", doc: `<Creature><WeeklyGrowth/></Creature>`, status: StatusNoField},
		{name: "negative value", doc: `<Creature><WeeklyGrowth>-4</WeeklyGrowth></Creature>`, status: StatusNoField},
		{name: "fractional value", doc: `<Creature><WeeklyGrowth>1.5</WeeklyGrowth></Creature>`, status: StatusNoField},
		{name: "text value", doc: `<Creature><WeeklyGrowth>many</WeeklyGrowth></Creature>`, status: StatusNoField},
		{name: "zero value", doc: `<Creature><WeeklyGrowth>0</WeeklyGrowth></Creature>`, status: StatusUnchanged, fields: 1},
		{name: "unclosed tag", doc: `<Creature><WeeklyGrowth>4</Creature>`, status: StatusMalformed},
		{name: "not xml", doc: `growth = 4`, status: StatusMalformed},
		{name: "two roots", doc: `<A/><B/>`, status: StatusMalformed},
		{name: "empty file", doc: ``, status: StatusMalformed},
		{name: "unknown charset", doc: `<?xml version="1.0" encoding="x-klingon"?><A/>`, status: StatusMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDescriptor(t, "X.xdb", tt.doc)
			res, err := engine(t, 2.0).Apply(path)
			require.NoError(t, err)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.fields, res.Fields)
			if tt.status == StatusMalformed {
				assert.Error(t, res.Err)
			} else {
				assert.NoError(t, res.Err)
			}

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.doc, string(data), "unchanged files are never rewritten")
		})
	}
}

func TestApply_EveryOccurrence(t *testing.T) {
	doc := `<Creature>
  <WeeklyGrowth> 4 </WeeklyGrowth>
  <Alt><WeeklyGrowth>10</WeeklyGrowth></Alt>
  <WeeklyGrowth>abc</WeeklyGrowth>
</Creature>`
	path := writeDescriptor(t, "Hydra.xdb", doc)

	res, err := engine(t, 1.25).Apply(path)
	require.NoError(t, err)
	assert.Equal(t, StatusChanged, res.Status)
	assert.Equal(t, 2, res.Fields)
	assert.Equal(t, 2, res.Changed)
	assert.Equal(t, Change{Name: "Hydra", Old: 4, New: 5}, *res.Sample)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got := string(data)
	assert.True(t, strings.HasPrefix(got, declaration+"\n"), "declaration added")
	assert.Contains(t, got, "<WeeklyGrowth> 5 </WeeklyGrowth>")
	assert.Contains(t, got, "<WeeklyGrowth>13</WeeklyGrowth>")
	assert.Contains(t, got, "<WeeklyGrowth>abc</WeeklyGrowth>")
}

func TestApply_EntityAndCDATA(t *testing.T) {
	doc := `<Creature><WeeklyGrowth>&#52;</WeeklyGrowth><B><WeeklyGrowth><![CDATA[6]]></WeeklyGrowth></B></Creature>`
	path := writeDescriptor(t, "Imp.xdb", doc)

	res, err := engine(t, 2.0).Apply(path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<WeeklyGrowth>8</WeeklyGrowth>")
	assert.Contains(t, string(data), "<WeeklyGrowth>12</WeeklyGrowth>")
}

func TestApply_TranscodesLegacyCharset(t *testing.T) {
	// 0xC0 is Cyrillic capital A in windows-1251.
	doc := "<?xml version=\"1.0\" encoding=\"windows-1251\"?>\n<Creature><Name>\xC0</Name><WeeklyGrowth>2</WeeklyGrowth></Creature>"
	path := writeDescriptor(t, "Orc.xdb", doc)

	res, err := engine(t, 1.5).Apply(path)
	require.NoError(t, err)
	require.Equal(t, StatusChanged, res.Status)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got := string(data)
	assert.True(t, strings.HasPrefix(got, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, got, "<Name>А</Name>")
	assert.Contains(t, got, "<WeeklyGrowth>3</WeeklyGrowth>")
}

func TestApply_StripsBOM(t *testing.T) {
	doc := "\xEF\xBB\xBF<Creature><WeeklyGrowth>2</WeeklyGrowth></Creature>"
	path := writeDescriptor(t, "Bom.xdb", doc)

	res, err := engine(t, 2.0).Apply(path)
	require.NoError(t, err)
	require.Equal(t, StatusChanged, res.Status)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, declaration+"\n<Creature><WeeklyGrowth>4</WeeklyGrowth></Creature>", string(data))
}

func encodeUTF16(s string, order binary.ByteOrder) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(units))
	for i, u := range units {
		order.PutUint16(out[2*i:], u)
	}
	return out
}

func TestApply_TranscodesUTF16(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-16"?>` + "\n<Creature><WeeklyGrowth>4</WeeklyGrowth></Creature>"
	tests := []struct {
		name  string
		bom   []byte
		order binary.ByteOrder
	}{
		{"little endian", []byte{0xFF, 0xFE}, binary.LittleEndian},
		{"big endian", []byte{0xFE, 0xFF}, binary.BigEndian},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := append(append([]byte{}, tt.bom...), encodeUTF16(doc, tt.order)...)
			path := writeDescriptor(t, "Titan.xdb", string(raw))

			res, err := engine(t, 1.5).Apply(path)
			require.NoError(t, err)
			require.Equal(t, StatusChanged, res.Status)
			assert.Equal(t, Change{Name: "Titan", Old: 4, New: 6}, *res.Sample)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>`+"\n<Creature><WeeklyGrowth>6</WeeklyGrowth></Creature>", string(data))
		})
	}
}

func TestApply_ResolvesDeclaredEntities(t *testing.T) {
	doc := `<!DOCTYPE Creature [<!ENTITY growth "4">]>
<Creature><WeeklyGrowth>&growth;</WeeklyGrowth></Creature>`
	path := writeDescriptor(t, "Djinn.xdb", doc)

	res, err := engine(t, 1.5).Apply(path)
	require.NoError(t, err)
	require.Equal(t, StatusChanged, res.Status)
	assert.Equal(t, Change{Name: "Djinn", Old: 4, New: 6}, *res.Sample)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got := string(data)
	assert.Contains(t, got, `<!DOCTYPE Creature [<!ENTITY growth "4">]>`)
	assert.Contains(t, got, "<WeeklyGrowth>6</WeeklyGrowth>")
}

func TestApply_MissingFileIsIOError(t *testing.T) {
	_, err := engine(t, 2.0).Apply(filepath.Join(t.TempDir(), "gone.xdb"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestApply_Idempotence(t *testing.T) {
	t.Run("factor 1.00 never changes", func(t *testing.T) {
		path := writeDescriptor(t, "Angel.xdb", angel)
		for i := 0; i < 2; i++ {
			res, err := engine(t, 1.0).Apply(path)
			require.NoError(t, err)
			assert.Equal(t, StatusUnchanged, res.Status)
		}
	})

	t.Run("factor 2.00 compounds deterministically", func(t *testing.T) {
		for _, x := range []int64{1, 3, 10} {
			doc := "<Creature><WeeklyGrowth>" + strconv.FormatInt(x, 10) + "</WeeklyGrowth></Creature>"
			path := writeDescriptor(t, "C.xdb", doc)

			first, err := engine(t, 2.0).Apply(path)
			require.NoError(t, err)
			second, err := engine(t, 2.0).Apply(path)
			require.NoError(t, err)

			assert.Equal(t, x*2, first.Sample.New)
			assert.Equal(t, first.Sample.New, second.Sample.Old)
			assert.Equal(t, x*4, second.Sample.New)
		}
	})
}
