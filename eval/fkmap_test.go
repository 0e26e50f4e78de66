package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleconroy/sqlmatch/schema"
)

func TestBuildForeignKeyMap(t *testing.T) {
	fkMap, err := BuildForeignKeyMap(testSchema(t))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"__concert.stadium_id__":           "__concert.stadium_id__",
		"__stadium.stadium_id__":           "__concert.stadium_id__",
		"__concert.concert_id__":           "__concert.concert_id__",
		"__singer_in_concert.concert_id__": "__concert.concert_id__",
		"__singer.singer_id__":             "__singer.singer_id__",
		"__singer_in_concert.singer_id__":  "__singer.singer_id__",
	}, fkMap)
}

func TestBuildForeignKeyMapChain(t *testing.T) {
	// b.x -> a.x and c.x -> b.x form a single equivalence class.
	s, err := schema.New("chain",
		[]string{"a", "b", "c"},
		[]schema.Column{
			{TableIndex: -1, Name: "*"},
			{TableIndex: 0, Name: "x"},
			{TableIndex: 1, Name: "x"},
			{TableIndex: 2, Name: "x"},
		},
		[][2]int{{2, 1}, {3, 2}},
	)
	require.NoError(t, err)

	fkMap, err := BuildForeignKeyMap(s)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"__a.x__": "__a.x__",
		"__b.x__": "__a.x__",
		"__c.x__": "__a.x__",
	}, fkMap)
}

func TestBuildForeignKeyMapEmpty(t *testing.T) {
	s, err := schema.New("flat", []string{"t"},
		[]schema.Column{{TableIndex: -1, Name: "*"}, {TableIndex: 0, Name: "c"}}, nil)
	require.NoError(t, err)

	fkMap, err := BuildForeignKeyMap(s)
	require.NoError(t, err)
	assert.Empty(t, fkMap)
}
