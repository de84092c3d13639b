package outfit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestKindPredicates(t *testing.T) {
	assert.True(t, KindBeam.IsBeam())
	assert.True(t, KindTurretBeam.IsTurret())
	assert.True(t, KindLauncher.UsesAmmo())
	assert.True(t, KindFighterBay.UsesAmmo())
	assert.False(t, KindBolt.UsesAmmo())
	assert.False(t, KindAfterburner.IsWeapon())
	assert.True(t, KindTurretLauncher.IsSecondary())
}

func TestOutfit_YAMLDecode(t *testing.T) {
	src := `
name: Laser Cannon
kind: bolt
slot: high
mass: 2
cpu: 5
damage: 12
damage_type: energy
delay: 0.5
mods:
  thrust: 0
`
	var o Outfit
	require.NoError(t, yaml.Unmarshal([]byte(src), &o))
	assert.Equal(t, KindBolt, o.Kind)
	assert.Equal(t, SlotHigh, o.Slot)
	assert.Equal(t, DamageEnergy, o.DamageType)
	assert.NoError(t, o.Validate())
}

func TestOutfit_YAMLRejectsUnknownSlot(t *testing.T) {
	var o Outfit
	err := yaml.Unmarshal([]byte("name: X\nkind: bolt\nslot: huge\n"), &o)
	assert.Error(t, err)
}

func TestOutfit_Validate(t *testing.T) {
	cases := []struct {
		name string
		o    Outfit
		ok   bool
	}{
		{"без имени", Outfit{Kind: KindBolt, Slot: SlotHigh}, false},
		{"без слота", Outfit{Name: "a", Kind: KindBolt}, false},
		{"боеприпас без слота", Outfit{Name: "a", Kind: KindAmmo}, true},
		{"пусковая без боеприпаса", Outfit{Name: "a", Kind: KindLauncher, Slot: SlotHigh}, false},
		{"истребитель без корабля", Outfit{Name: "a", Kind: KindFighter}, false},
		{"отрицательная масса", Outfit{Name: "a", Kind: KindModification, Slot: SlotLow, Mass: -1}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.o.Validate()
			if c.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDamageTable_Calc(t *testing.T) {
	table := DefaultDamageTable()

	s, a, k := table.Calc(DamageRaw, 70)
	assert.Equal(t, 70.0, s)
	assert.Equal(t, 70.0, a)
	assert.Equal(t, 0.0, k)

	s, a, _ = table.Calc(DamageKinetic, 10)
	assert.InDelta(t, 8.0, s, 1e-9)
	assert.InDelta(t, 12.0, a, 1e-9)

	// Неизвестный тип: сырой урон
	s, a, _ = DamageTable{}.Calc(DamageEMP, 5)
	assert.Equal(t, 5.0, s)
	assert.Equal(t, 5.0, a)
}
