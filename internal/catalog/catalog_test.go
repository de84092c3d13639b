package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/pilotsim/internal/faction"
	"github.com/annel0/pilotsim/internal/outfit"
	"github.com/annel0/pilotsim/internal/pilot"
	"github.com/annel0/pilotsim/internal/vec"
)

const minimal = `
factions:
  - name: Pirate
    standing: -50
    enemies: [Trader]
  - name: Trader
    standing: 20
outfits:
  - name: Mini Missile
    kind: ammo
    damage: 5
    speed: 300
    range: 600
  - name: Mini Launcher
    kind: launcher
    slot: medium
    cpu: 1
    ammo: Mini Missile
    max_ammo: 4
ships:
  - name: Scout
    mass: 20
    armour: 30
    cpu: 5
    radius: 8
    slots:
      - type: medium
        default: Mini Launcher
systems:
  - name: A
    jumps: [B]
  - name: B
    faction: Trader
    jumps: [A]
`

func TestParse_ResolvesReferences(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	sh, ok := c.Ship("Scout")
	require.True(t, ok)
	launcher := sh.Slots[0].DefaultOutfit
	require.NotNil(t, launcher, "Снаряжение по умолчанию разрешено")
	assert.Equal(t, outfit.KindLauncher, launcher.Kind)
	require.NotNil(t, launcher.Ammo)
	assert.Equal(t, "Mini Missile", launcher.Ammo.Name)

	pirate, ok := c.Factions.Lookup("Pirate")
	require.True(t, ok)
	trader, _ := c.Factions.Lookup("Trader")
	assert.True(t, c.Factions.AreEnemies(pirate, trader), "Враги связаны после Link")

	systems := c.Systems()
	require.Len(t, systems, 2)
	assert.Equal(t, []string{"B"}, systems[0].Jumps)

	_, ok = c.Ship("Nope")
	assert.False(t, ok)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"неизвестный боеприпас": `
outfits:
  - name: L
    kind: launcher
    slot: medium
    ammo: Ghost
`,
		"боеприпас неверного вида": `
outfits:
  - name: Gun
    kind: bolt
    slot: high
  - name: L
    kind: launcher
    slot: medium
    ammo: Gun
`,
		"слот не того типа": `
outfits:
  - name: Gun
    kind: bolt
    slot: high
ships:
  - name: S
    mass: 1
    armour: 1
    slots:
      - type: low
        default: Gun
`,
		"неизвестный враг": `
factions:
  - name: A
    enemies: [Ghost]
`,
		"прыжок в никуда": `
systems:
  - name: A
    jumps: [Ghost]
`,
		"дубликат корабля": `
ships:
  - name: S
    mass: 1
    armour: 1
  - name: S
    mass: 1
    armour: 1
`,
		"неизвестный вид": `
outfits:
  - name: X
    kind: teleporter
    slot: low
`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestRearm(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)
	sh, _ := c.Ship("Scout")

	p := pilot.New(2, sh, "scout", 1, nil, 0, vec.Zero(), vec.Zero(), 0)
	n, err := c.Rearm(p)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	s, _ := p.Slot(0)
	a, ok := s.Ammo()
	require.True(t, ok)
	assert.Equal(t, 4, a.Quantity)

	// Полный слот пропускается
	n, err = c.Rearm(p)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoad_SampleCatalog(t *testing.T) {
	c, err := Load("../../configs/catalog.yml")
	require.NoError(t, err)

	assert.Equal(t, []string{"Hyena", "Kestrel", "Lancelot"}, c.ShipNames())

	bay, ok := c.Outfit("Lancelot Bay")
	require.True(t, ok)
	require.NotNil(t, bay.Ammo)
	assert.Equal(t, outfit.KindFighter, bay.Ammo.Kind)

	food, ok := c.Commodity("Food")
	require.True(t, ok)
	assert.Equal(t, 80, food.Price)

	id, ok := c.Factions.Lookup("Pirate")
	require.True(t, ok)
	assert.True(t, c.Factions.IsPlayerEnemy(id))
	assert.NotEqual(t, faction.Player, id)

	kestrel, _ := c.Ship("Kestrel")
	p := pilot.New(3, kestrel, "carrier", id, nil, 0, vec.Zero(), vec.Zero(), 0)
	n, err := c.Rearm(p)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "Ангар заполняется истребителями")
}
