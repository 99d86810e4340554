package game

import (
	"fmt"
	"maps"
	"slices"
	"sort"
)

// PlayerInput is an input tagged with the tick it was generated for.
type PlayerInput struct {
	PlayerID PlayerID `json:"playerId" msgpack:"playerId"`
	Tick     TickNum  `json:"tick" msgpack:"tick"`
	Input    Input    `json:"input" msgpack:"input"`
}

// StepResult reports what one call to Step produced.
type StepResult struct {
	Tick   TickNum
	Events []Event
	Errors []error
}

// Step runs one full tick: respawns, bullet rules, every input, commit, and
// finally advances TickNum. Rule errors are collected and the step continues.
func (g *Game) Step(inputs []PlayerInput) StepResult {
	ctx := NewRunContext()
	var errs []error

	g.RunRespawns(ctx)
	if err := g.RunTick(ctx); err != nil {
		errs = append(errs, err)
	}

	ordered := append([]PlayerInput(nil), inputs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].PlayerID != ordered[j].PlayerID {
			return ordered[i].PlayerID < ordered[j].PlayerID
		}
		return ordered[i].Tick < ordered[j].Tick
	})
	for _, in := range ordered {
		if err := g.RunPlayerInput(in.PlayerID, in.Input, in.Tick, ctx); err != nil {
			errs = append(errs, fmt.Errorf("player %d input: %w", in.PlayerID, err))
		}
	}

	events, commitErrs := g.Commit(ctx)
	errs = append(errs, commitErrs...)
	g.TickNum = g.TickNum.Next()

	return StepResult{Tick: g.TickNum, Events: events, Errors: errs}
}

// Commit applies the accumulated intents to the world and returns the events
// of the tick in emission order: rule events, deaths, spawns.
func (g *Game) Commit(ctx *RunContext) ([]Event, []error) {
	var errs []error
	events := append([]Event(nil), ctx.Events...)
	now := g.CurrentGameTime()

	for _, id := range slices.Sorted(maps.Keys(ctx.RemovedEntities)) {
		if _, err := g.Entity(id); err != nil {
			errs = append(errs, err)
			continue
		}
		delete(g.Entities, id)
	}

	for _, entity := range ctx.NewEntities {
		g.insertEntity(entity)
	}

	for _, playerID := range slices.Sorted(maps.Keys(ctx.KilledPlayers)) {
		player, ok := g.Players[playerID]
		if !ok || player.State.Kind != PlayerAlive {
			continue
		}
		if entityID, _, found := g.PlayerEntity(playerID); found {
			delete(g.Entities, entityID)
		}
		if g.Settings.RespawnDelay > 0 {
			player.State = PlayerState{Kind: PlayerRespawning, RespawnTime: now + g.Settings.RespawnDelay}
		} else {
			player.State = PlayerState{Kind: PlayerDead}
		}
		g.Players[playerID] = player
		events = append(events, PlayerDied(playerID, ctx.KilledPlayers[playerID]))
	}

	for _, playerID := range slices.Sorted(maps.Keys(ctx.SpawnedPlayers)) {
		player, ok := g.Players[playerID]
		if !ok || player.State.Kind != PlayerRespawning {
			continue
		}
		pos := ctx.SpawnedPlayers[playerID]
		g.insertEntity(NewPlayerEntity(PlayerEntity{Owner: playerID, Pos: pos}))
		player.State = PlayerState{Kind: PlayerAlive}
		g.Players[playerID] = player
		events = append(events, PlayerSpawned(playerID, pos))
	}

	return events, errs
}
