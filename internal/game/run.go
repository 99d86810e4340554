package game

import (
	"errors"
	"fmt"
	"math"

	"arena/internal/geom"
)

const (
	PlayerMoveSpeed   = 300.0
	PlayerSitW        = 50.0
	PlayerSitL        = 50.0
	PlayerShootPeriod = 0.3
	BulletMoveSpeed   = 400.0
	TurretRange       = 300.0

	// cooldownSlack absorbs rounding in tick-period products.
	cooldownSlack = 1e-9
)

// RunContext collects the effects of one tick. Rules write intents here and
// Commit applies them once every rule has read the pre-tick snapshot.
type RunContext struct {
	Events          []Event
	NewEntities     []Entity
	RemovedEntities map[EntityID]struct{}
	KilledPlayers   map[PlayerID]DeathReason
	SpawnedPlayers  map[PlayerID]geom.Point
}

// NewRunContext returns an empty accumulator.
func NewRunContext() *RunContext {
	return &RunContext{
		RemovedEntities: make(map[EntityID]struct{}),
		KilledPlayers:   make(map[PlayerID]DeathReason),
		SpawnedPlayers:  make(map[PlayerID]geom.Point),
	}
}

func (c *RunContext) remove(id EntityID) {
	c.RemovedEntities[id] = struct{}{}
}

// kill records a death. A later write for the same player replaces an earlier one.
func (c *RunContext) kill(id PlayerID, reason DeathReason) {
	c.KilledPlayers[id] = reason
}

// PlayerHitbox is the collision rectangle of a player body. It does not
// depend on facing.
func PlayerHitbox(pos geom.Point) geom.AaRect {
	return geom.NewCenter(pos, geom.Vector{PlayerSitW, PlayerSitL})
}

// RunTick evaluates the bullet rules against the current entity map.
func (g *Game) RunTick(ctx *RunContext) error {
	time := g.CurrentGameTime()
	world := g.Settings.AaRect()
	ids := g.SortedEntityIDs()
	var errs []error

	for _, id := range ids {
		entity := g.Entities[id]
		if entity.Kind != EntityBullet {
			continue
		}
		bullet, err := entity.AsBullet()
		if err != nil {
			errs = append(errs, fmt.Errorf("entity %d: %w", id, err))
			continue
		}
		pos := bullet.Pos(time)
		if !world.ContainsPoint(pos) {
			ctx.remove(id)
			continue
		}

		for _, otherID := range ids {
			if otherID == id {
				continue
			}
			other := g.Entities[otherID]
			switch other.Kind {
			case EntityDangerGuy:
				danger, err := other.AsDangerGuy()
				if err != nil {
					continue
				}
				if danger.AaRect(time).ContainsPoint(pos) {
					ctx.remove(id)
				}
			case EntityPlayer:
				target, err := other.AsPlayer()
				if err != nil || target.Owner == bullet.Owner {
					continue
				}
				if PlayerHitbox(target.Pos).ContainsPoint(pos) {
					ctx.remove(id)
					ctx.kill(target.Owner, ShotByPlayer(bullet.Owner))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// RunPlayerInput applies one input to the player's body. Cooldown and hazard
// checks use the game time of inputTick so that client replays reproduce the
// server result.
func (g *Game) RunPlayerInput(playerID PlayerID, input Input, inputTick TickNum, ctx *RunContext) error {
	_, player, ok := g.PlayerEntity(playerID)
	if !ok {
		return nil
	}

	deltaS := g.Settings.TickPeriod()
	inputTime := g.TickGameTime(inputTick)
	size := g.Settings.Size

	delta := inputDelta(input)
	moving := delta.Len() > 0
	if moving {
		dir := delta.Normalize()
		player.Pos = player.Pos.Add(dir.Mul(PlayerMoveSpeed * deltaS))
		angle := math.Atan2(delta[1], delta[0])
		player.Angle = &angle
	} else {
		player.Angle = nil
	}

	player.Pos[0] = geom.Clamp(player.Pos[0], PlayerSitW/2, size[0]-PlayerSitW/2)
	player.Pos[1] = geom.Clamp(player.Pos[1], PlayerSitL/2, size[1]-PlayerSitL/2)

	if moving && input.UseItem && g.shotCooledDown(player.LastShotTime, inputTick) {
		shotTime := inputTime
		player.LastShotTime = &shotTime
		dir := delta.Normalize()
		ctx.NewEntities = append(ctx.NewEntities, NewBulletEntity(Bullet{
			Owner:     playerID,
			StartTime: inputTime,
			StartPos:  player.Pos,
			Vel:       dir.Mul(BulletMoveSpeed),
		}))
		ctx.Events = append(ctx.Events, PlayerShotGun(playerID, dir))
	}

	for _, id := range g.SortedEntityIDs() {
		danger, err := g.Entities[id].AsDangerGuy()
		if err != nil {
			continue
		}
		if danger.AaRect(inputTime).ContainsPoint(player.Pos) {
			ctx.kill(playerID, TouchedTheDanger())
		}
	}
	return nil
}

// shotCooledDown reports whether a shot tagged inputTick is allowed after a
// shot at lastShot. Elapsed time is counted in whole ticks, so equal tick gaps
// give equal results anywhere in the game.
func (g *Game) shotCooledDown(lastShot *GameTime, inputTick TickNum) bool {
	if lastShot == nil {
		return true
	}
	period := g.Settings.TickPeriod()
	lastTick := math.Round(*lastShot / period)
	elapsed := period * (float64(inputTick) - lastTick)
	return elapsed >= PlayerShootPeriod-cooldownSlack
}

// RunRespawns schedules a spawn for every respawning player whose timer has
// elapsed.
func (g *Game) RunRespawns(ctx *RunContext) {
	points := g.Settings.SpawnPoints
	if len(points) == 0 {
		return
	}
	now := g.CurrentGameTime()
	for _, id := range g.SortedPlayerIDs() {
		player := g.Players[id]
		if player.State.Kind != PlayerRespawning || player.State.RespawnTime > now {
			continue
		}
		idx := (uint64(id) + uint64(g.TickNum)) % uint64(len(points))
		ctx.SpawnedPlayers[id] = points[idx]
	}
}

func inputDelta(input Input) geom.Vector {
	var delta geom.Vector
	if input.MoveLeft {
		delta[0] -= 1
	}
	if input.MoveRight {
		delta[0] += 1
	}
	if input.MoveUp {
		delta[1] -= 1
	}
	if input.MoveDown {
		delta[1] += 1
	}
	return delta
}
