package main

import "testing"

func newTestEntity() *EntityState {
	return NewEntityState("e1", "tester", SpawnPoint{X: 2.5, Y: 2.5})
}

func TestTakeDamageKillsExactlyOnce(t *testing.T) {
	e := newTestEntity()

	if killed := e.TakeDamage(60); killed {
		t.Error("first hit should not kill")
	}
	if e.Health != 40 {
		t.Errorf("health = %d, want 40", e.Health)
	}

	if killed := e.TakeDamage(60); !killed {
		t.Error("lethal hit should report the kill")
	}
	if e.Health != 0 || e.Alive {
		t.Errorf("dead entity: health=%d alive=%v", e.Health, e.Alive)
	}
	if e.Deaths != 1 {
		t.Errorf("deaths = %d, want 1", e.Deaths)
	}
	if e.RespawnT != RespawnTime {
		t.Errorf("respawn timer = %v, want %v", e.RespawnT, RespawnTime)
	}

	// The alive flag is sticky: more damage changes nothing.
	if killed := e.TakeDamage(50); killed {
		t.Error("damage to a dead entity should not kill again")
	}
	if e.Health != 0 || e.Deaths != 1 {
		t.Errorf("post-death state changed: health=%d deaths=%d", e.Health, e.Deaths)
	}
}

func TestTakeDamageIgnoresNonPositive(t *testing.T) {
	e := newTestEntity()
	e.TakeDamage(0)
	e.TakeDamage(-10)
	if e.Health != PlayerMaxHP {
		t.Errorf("health = %d, want %d", e.Health, PlayerMaxHP)
	}
}

func TestArmorAbsorbsHalfDamage(t *testing.T) {
	e := newTestEntity()
	e.Armor = 50
	e.TakeDamage(30)
	if e.Armor != 35 {
		t.Errorf("armor = %d, want 35", e.Armor)
	}
	if e.Health != 85 {
		t.Errorf("health = %d, want 85", e.Health)
	}
}

func TestArmorAbsorptionLimitedByPool(t *testing.T) {
	e := newTestEntity()
	e.Armor = 5
	e.TakeDamage(30)
	if e.Armor != 0 {
		t.Errorf("armor = %d, want 0", e.Armor)
	}
	if e.Health != 75 {
		t.Errorf("health = %d, want 75 (only 5 absorbed)", e.Health)
	}
}

func TestHealAndArmorClampAtCap(t *testing.T) {
	e := newTestEntity()
	e.Health = 90
	e.Heal(25)
	if e.Health != PlayerMaxHP {
		t.Errorf("health = %d, want %d", e.Health, PlayerMaxHP)
	}
	e.Armor = 90
	e.AddArmor(50)
	if e.Armor != PlayerMaxArmor {
		t.Errorf("armor = %d, want %d", e.Armor, PlayerMaxArmor)
	}

	e.TakeDamage(500)
	e.Heal(50)
	if e.Health != 0 {
		t.Error("healing a dead entity should be a no-op")
	}
}

func TestRespawnResetsLoadout(t *testing.T) {
	e := newTestEntity()
	e.Weapon = WeaponShotgun
	e.Ammo[WeaponShotgun] = 1
	e.TakeDamage(500)

	sp := SpawnPoint{X: 7.5, Y: 8.5}
	e.Respawn(sp)
	if !e.Alive {
		t.Fatal("respawned entity should be alive")
	}
	if e.X != sp.X || e.Y != sp.Y {
		t.Errorf("position (%v, %v), want spawn (%v, %v)", e.X, e.Y, sp.X, sp.Y)
	}
	if e.Health != PlayerMaxHP || e.Armor != 0 {
		t.Errorf("health=%d armor=%d, want full health and no armor", e.Health, e.Armor)
	}
	if e.Weapon != WeaponPistol {
		t.Errorf("weapon = %v, want pistol", e.Weapon)
	}
	for w := WeaponKind(0); w < WeaponCount; w++ {
		if e.Ammo[w] != WeaponTable[w].MaxAmmo {
			t.Errorf("ammo[%v] = %d, want %d", w, e.Ammo[w], WeaponTable[w].MaxAmmo)
		}
	}

	// Respawning while alive is a no-op.
	e.X = 1.5
	e.Respawn(SpawnPoint{X: 9.5, Y: 9.5})
	if e.X != 1.5 {
		t.Error("respawn of a live entity moved it")
	}
}

func TestSwitchWeaponCancelsReload(t *testing.T) {
	e := newTestEntity()
	e.Ammo[WeaponPistol] = 2
	if !StartReload(e) {
		t.Fatal("reload should start with a partial magazine")
	}
	e.SwitchWeapon(WeaponRifle)
	if e.ReloadingT != 0 {
		t.Error("switching weapons should cancel the reload")
	}
	if e.Weapon != WeaponRifle {
		t.Errorf("weapon = %v, want rifle", e.Weapon)
	}

	e.SwitchWeapon(WeaponCount) // out of range, ignored
	if e.Weapon != WeaponRifle {
		t.Error("out-of-range switch should be ignored")
	}
}

func TestAddAmmoClampsToMagazine(t *testing.T) {
	e := newTestEntity()
	e.Ammo[WeaponPistol] = 10
	e.AddAmmo(WeaponPistol, 50)
	if e.Ammo[WeaponPistol] != WeaponTable[WeaponPistol].MaxAmmo {
		t.Errorf("ammo = %d, want clamped %d", e.Ammo[WeaponPistol], WeaponTable[WeaponPistol].MaxAmmo)
	}
	e.AddAmmo(WeaponCount, 5) // out of range, ignored
}
