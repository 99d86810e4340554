package game

import (
	"math"

	"arena/internal/geom"
)

// EntityKind enumerates the entity variants.
type EntityKind string

const (
	EntityPlayer    EntityKind = "player"
	EntityBullet    EntityKind = "bullet"
	EntityDangerGuy EntityKind = "dangerGuy"
	EntityTurret    EntityKind = "turret"
)

// Entity is a tagged union: Kind selects which of the variant fields is set.
type Entity struct {
	Kind      EntityKind    `json:"kind" msgpack:"kind" jsonschema:"enum=player,enum=bullet,enum=dangerGuy,enum=turret"`
	Player    *PlayerEntity `json:"player,omitempty" msgpack:"player,omitempty"`
	Bullet    *Bullet       `json:"bullet,omitempty" msgpack:"bullet,omitempty"`
	DangerGuy *DangerGuy    `json:"dangerGuy,omitempty" msgpack:"dangerGuy,omitempty"`
	Turret    *Turret       `json:"turret,omitempty" msgpack:"turret,omitempty"`
}

// PlayerEntity is the in-world body of a live player.
type PlayerEntity struct {
	Owner        PlayerID   `json:"owner" msgpack:"owner"`
	Pos          geom.Point `json:"pos" msgpack:"pos"`
	Angle        *float64   `json:"angle,omitempty" msgpack:"angle,omitempty"`
	LastShotTime *GameTime  `json:"lastShotTime,omitempty" msgpack:"lastShotTime,omitempty"`
}

// Bullet travels in a straight line; its position is a function of time only.
type Bullet struct {
	Owner     PlayerID    `json:"owner" msgpack:"owner"`
	StartTime GameTime    `json:"startTime" msgpack:"startTime"`
	StartPos  geom.Point  `json:"startPos" msgpack:"startPos"`
	Vel       geom.Vector `json:"vel" msgpack:"vel"`
}

// DangerGuy patrols between two points, pausing WaitTime at each end.
type DangerGuy struct {
	StartPos geom.Point  `json:"startPos" msgpack:"startPos"`
	EndPos   geom.Point  `json:"endPos" msgpack:"endPos"`
	Size     geom.Vector `json:"size" msgpack:"size"`
	Speed    float64     `json:"speed" msgpack:"speed"`
	WaitTime GameTime    `json:"waitTime" msgpack:"waitTime"`
}

// Turret is a static emplacement. It has no collision rules yet.
type Turret struct {
	Pos   geom.Point `json:"pos" msgpack:"pos"`
	Angle float64    `json:"angle" msgpack:"angle"`
	Range float64    `json:"range" msgpack:"range"`
}

// NewPlayerEntity wraps a player body.
func NewPlayerEntity(p PlayerEntity) Entity {
	return Entity{Kind: EntityPlayer, Player: &p}
}

// NewBulletEntity wraps a bullet.
func NewBulletEntity(b Bullet) Entity {
	return Entity{Kind: EntityBullet, Bullet: &b}
}

// NewDangerGuyEntity wraps a danger guy.
func NewDangerGuyEntity(d DangerGuy) Entity {
	return Entity{Kind: EntityDangerGuy, DangerGuy: &d}
}

// NewTurretEntity wraps a turret.
func NewTurretEntity(t Turret) Entity {
	return Entity{Kind: EntityTurret, Turret: &t}
}

// AsPlayer returns the player variant or ErrUnexpectedEntityType.
func (e Entity) AsPlayer() (*PlayerEntity, error) {
	if e.Kind != EntityPlayer || e.Player == nil {
		return nil, unexpectedType(EntityPlayer, e.Kind)
	}
	return e.Player, nil
}

// AsBullet returns the bullet variant or ErrUnexpectedEntityType.
func (e Entity) AsBullet() (*Bullet, error) {
	if e.Kind != EntityBullet || e.Bullet == nil {
		return nil, unexpectedType(EntityBullet, e.Kind)
	}
	return e.Bullet, nil
}

// AsDangerGuy returns the danger guy variant or ErrUnexpectedEntityType.
func (e Entity) AsDangerGuy() (*DangerGuy, error) {
	if e.Kind != EntityDangerGuy || e.DangerGuy == nil {
		return nil, unexpectedType(EntityDangerGuy, e.Kind)
	}
	return e.DangerGuy, nil
}

// AsTurret returns the turret variant or ErrUnexpectedEntityType.
func (e Entity) AsTurret() (*Turret, error) {
	if e.Kind != EntityTurret || e.Turret == nil {
		return nil, unexpectedType(EntityTurret, e.Kind)
	}
	return e.Turret, nil
}

// Pos resolves the entity position at time t.
func (e Entity) Pos(t GameTime) (geom.Point, bool) {
	switch e.Kind {
	case EntityPlayer:
		if e.Player != nil {
			return e.Player.Pos, true
		}
	case EntityBullet:
		if e.Bullet != nil {
			return e.Bullet.Pos(t), true
		}
	case EntityDangerGuy:
		if e.DangerGuy != nil {
			return e.DangerGuy.Pos(t), true
		}
	case EntityTurret:
		if e.Turret != nil {
			return e.Turret.Pos, true
		}
	}
	return geom.Point{}, false
}

// Clone returns a deep copy so snapshots never share variant pointers.
func (e Entity) Clone() Entity {
	cloned := Entity{Kind: e.Kind}
	if e.Player != nil {
		p := *e.Player
		if e.Player.Angle != nil {
			angle := *e.Player.Angle
			p.Angle = &angle
		}
		if e.Player.LastShotTime != nil {
			shot := *e.Player.LastShotTime
			p.LastShotTime = &shot
		}
		cloned.Player = &p
	}
	if e.Bullet != nil {
		b := *e.Bullet
		cloned.Bullet = &b
	}
	if e.DangerGuy != nil {
		d := *e.DangerGuy
		cloned.DangerGuy = &d
	}
	if e.Turret != nil {
		t := *e.Turret
		cloned.Turret = &t
	}
	return cloned
}

// Pos returns StartPos + Vel*(t-StartTime).
func (b Bullet) Pos(t GameTime) geom.Point {
	return b.StartPos.Add(b.Vel.Mul(t - b.StartTime))
}

// Pos returns the patrol position at absolute time t.
func (d DangerGuy) Pos(t GameTime) geom.Point {
	delta := d.EndPos.Sub(d.StartPos)
	dist := delta.Len()
	if dist == 0 || d.Speed <= 0 {
		return d.StartPos
	}
	wait := math.Max(d.WaitTime, 0)
	travel := dist / d.Speed
	period := 2 * (travel + wait)

	phase := math.Mod(t, period)
	if phase < 0 {
		phase += period
	}

	switch {
	case phase < wait:
		return d.StartPos
	case phase < wait+travel:
		tau := (phase - wait) / travel
		return d.StartPos.Add(delta.Mul(tau))
	case phase < 2*wait+travel:
		return d.EndPos
	default:
		tau := (phase - 2*wait - travel) / travel
		return d.EndPos.Sub(delta.Mul(tau))
	}
}

// AaRect returns the hazard extent at time t.
func (d DangerGuy) AaRect(t GameTime) geom.AaRect {
	return geom.NewCenter(d.Pos(t), d.Size)
}
