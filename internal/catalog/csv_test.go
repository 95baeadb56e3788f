package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTextRoundTrip(t *testing.T) {
	text := FormatText("Knight", "{2}{w}", "unit", "human soldier", []string{"guard", "", "{q}: heal 1"}, "2", "3")
	assert.Equal(t, "Knight {2}{w}\nunit - human soldier\nguard\n{q}: heal 1\n2 / 3", text)

	def, err := ParseText(text)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "w"}, def.Costs)
	assert.Equal(t, []string{"human", "soldier"}, def.Subtypes)
	assert.Equal(t, []string{"guard"}, def.Keywords)
	assert.Equal(t, []string{"{q}: heal 1"}, def.Activated)
	assert.Equal(t, &Stats{Power: "2", Health: "3"}, def.Stats)
}

func TestFormatTextWithoutStats(t *testing.T) {
	text := FormatText("Bolt", "{r}", "spell", "", []string{"Deal 3 damage."}, "", "")
	assert.Equal(t, "Bolt {r}\nspell\nDeal 3 damage.", text)
}

func TestReadCSV(t *testing.T) {
	export := `Name,Costs,Type,Subtypes,Rules,Power,Health
Knight,{2}{w},unit,soldier,guard|{q}: heal 1,2,2
Bolt,{r},spell,,Deal 3 damage.,,
,{1},unit,,,1,1
`
	defs, skipped, err := ReadCSV(strings.NewReader(export))
	require.NoError(t, err)
	require.Len(t, defs, 2)
	require.Len(t, skipped, 1)
	assert.ErrorIs(t, skipped[0], ErrMalformedDefinition)
	assert.Contains(t, skipped[0].Error(), "row 4")

	assert.Equal(t, "Knight", defs[0].Name)
	assert.True(t, defs[0].HasKeyword("guard"))
	assert.Equal(t, "Bolt", defs[1].Name)
	assert.Nil(t, defs[1].Stats)
}

func TestReadCSVHeaderErrors(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, _, err = ReadCSV(strings.NewReader("title,costs\nKnight,{1}\n"))
	assert.Error(t, err)
}

func TestReadCSVMissingOptionalColumns(t *testing.T) {
	defs, skipped, err := ReadCSV(strings.NewReader("name\nWisp\n"))
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, defs, 1)
	assert.Equal(t, "Wisp", defs[0].Name)
	assert.Empty(t, defs[0].Costs)
}

func TestMarshalPayloadRoundTrip(t *testing.T) {
	def, err := ParseText("Knight {2}{w}\nunit - soldier\nguard\nWhen this enters, draw.\n{q}: heal 1\nX / 2")
	require.NoError(t, err)

	raw, err := MarshalPayload(def)
	require.NoError(t, err)

	back, err := ParsePayload(raw)
	require.NoError(t, err)
	assert.Equal(t, def, back)
}
