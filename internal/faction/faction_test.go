package faction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T) (*Table, ID, ID, ID) {
	tbl := NewTable()
	empire, err := tbl.Add(Faction{Name: "Empire", Enemies: []string{"Pirate"}, Allies: []string{"Dvaered"}, Standing: 10})
	require.NoError(t, err)
	pirate, err := tbl.Add(Faction{Name: "Pirate", Standing: -20})
	require.NoError(t, err)
	dvaered, err := tbl.Add(Faction{Name: "Dvaered", Standing: 80})
	require.NoError(t, err)
	require.NoError(t, tbl.Link())
	return tbl, empire, pirate, dvaered
}

func TestTable_Relations(t *testing.T) {
	tbl, empire, pirate, dvaered := newTestTable(t)

	assert.True(t, tbl.AreEnemies(empire, pirate))
	assert.True(t, tbl.AreEnemies(pirate, empire), "Вражда симметрична")
	assert.True(t, tbl.AreAllies(dvaered, empire))
	assert.False(t, tbl.AreEnemies(empire, empire))

	assert.True(t, tbl.AreEnemies(Player, pirate), "Отрицательная репутация — враг игрока")
	assert.False(t, tbl.AreEnemies(Player, empire))
	assert.True(t, tbl.AreAllies(Player, dvaered))
}

func TestTable_ModPlayerClamps(t *testing.T) {
	tbl, empire, _, _ := newTestTable(t)

	tbl.ModPlayer(empire, -500)
	assert.Equal(t, -100.0, tbl.Standing(empire))
	assert.True(t, tbl.IsPlayerEnemy(empire))

	tbl.ModPlayer(Player, -500)
	assert.Equal(t, 100.0, tbl.Standing(Player), "Репутация игрока к себе не меняется")
}

func TestTable_LinkUnknown(t *testing.T) {
	tbl := NewTable()
	_, err := tbl.Add(Faction{Name: "A", Enemies: []string{"Nobody"}})
	require.NoError(t, err)
	assert.Error(t, tbl.Link())

	_, err = tbl.Add(Faction{Name: "A"})
	assert.Error(t, err, "Повторное имя должно отклоняться")
}
