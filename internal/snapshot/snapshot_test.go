package snapshot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/pilotsim/internal/pilot"
	"github.com/annel0/pilotsim/internal/pilot/pilottest"
	"github.com/annel0/pilotsim/internal/vec"
)

func TestBuild(t *testing.T) {
	reg := pilottest.Registry()
	pl := pilottest.Spawn(reg, "Игрок", vec.New(10, 20), pilot.FlagPlayer)
	npc := pilottest.Spawn(reg, "Торговец", vec.New(-5, 0), 0)
	npc.SetTarget(pl.ID())
	npc.SetComm("Привет", 3)

	f := Build(12, 0.5, "Sol", reg, nil, nil)

	assert.Equal(t, uint64(12), f.Frame)
	assert.Equal(t, "Sol", f.System)
	assert.Equal(t, pilot.PlayerID, f.Player)
	require.Len(t, f.Pilots, 2)
	assert.Empty(t, f.Projectiles)

	got, ok := f.Pilot(npc.ID())
	require.True(t, ok)
	assert.Equal(t, "Торговец", got.Name)
	assert.Equal(t, pl.ID(), got.Target)
	assert.Equal(t, "Привет", got.Comm)
	assert.InDelta(t, 1.0, got.Armour, 1e-9)
	assert.Equal(t, -5.0, got.Pos.X())

	_, ok = f.Pilot(999)
	assert.False(t, ok)
}

func TestBuild_IsCopy(t *testing.T) {
	reg := pilottest.Registry()
	p := pilottest.Spawn(reg, "Пилот", vec.New(1, 1), 0)

	f := Build(1, 0, "Sol", reg, nil, nil)
	p.Name = "Другой"
	p.Solid.Pos = vec.New(100, 100)

	got, _ := f.Pilot(p.ID())
	assert.Equal(t, "Пилот", got.Name, "Снимок не меняется вместе с пилотом")
	assert.Equal(t, 1.0, got.Pos.X())
}

func TestFrame_JSON(t *testing.T) {
	reg := pilottest.Registry()
	pilottest.Spawn(reg, "Пилот", vec.New(3, 4), 0)

	data, err := json.Marshal(Build(7, 1, "Sol", reg, nil, nil))
	require.NoError(t, err)

	var back Frame
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, uint64(7), back.Frame)
	require.Len(t, back.Pilots, 1)
	assert.InDelta(t, 5.0, back.Pilots[0].Pos.Mod(), 1e-9, "Полярная форма восстанавливается из x, y")
}
