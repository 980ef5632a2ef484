package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"github.com/wayfarer-rpg/wayfarer/internal/game/world"
	"go.uber.org/zap"
)

var (
	errNotNumber    = errors.New("that is not a number")
	errUnknownPlace = fmt.Errorf("no such place: %w", world.ErrUnknownLocation)
)

// cmdCheat runs a debugging shortcut. Cheats only work with the cheats
// feature on.
func (g *Game) cmdCheat(_ context.Context, args string) CommandResult {
	if !g.Feature(FeatureCheats) {
		return fail("Cheats are disabled.")
	}
	code, rest := parseCommand(args)
	if code == "" {
		return fail("Cheat codes: gold [n], xp [n], heal, level, points [n], teleport <place>, item <name>, god")
	}
	p := g.players.Player()
	if p == nil {
		return fail("%s", describe(ErrNoGame))
	}
	g.logger.Warn("cheat used", zap.String("code", code), zap.String("args", rest))

	switch code {
	case "gold":
		n, err := intArg(rest, 100)
		if err != nil {
			return fail("%s", err)
		}
		if !g.players.ModifyGold(n, "cheat") {
			return fail("You can't have negative gold.")
		}
		return ok("You now have %d gold.", p.Gold)
	case "xp":
		n, err := intArg(rest, 100)
		if err != nil {
			return fail("%s", err)
		}
		if n <= 0 {
			return fail("Experience must be positive.")
		}
		levels := g.players.AddExperience(n, "cheat")
		if levels > 0 {
			return ok("You gain %d experience and reach level %d.", n, p.Level)
		}
		return ok("You gain %d experience.", n)
	case "heal":
		if g.players.IsDead() {
			g.players.Revive(p.MaxHealth)
		} else {
			g.players.Heal(p.MaxHealth)
		}
		g.players.RestoreMana(p.MaxMana)
		return ok("You are fully restored.")
	case "level":
		g.players.LevelUp()
		return ok("You are now level %d.", p.Level)
	case "points":
		n, err := intArg(rest, 5)
		if err != nil {
			return fail("%s", err)
		}
		if !g.players.AddSkillPoints(n) {
			return fail("Skill points must be positive.")
		}
		return ok("You now have %d skill points.", p.SkillPoints)
	case "teleport":
		if g.combat.InCombat() {
			return fail("%s", describe(ErrInCombat))
		}
		key, found := g.resolveLocation(rest)
		if !found {
			return fail("%s", describe(errUnknownPlace))
		}
		if _, err := g.world.MoveTo(key); err != nil {
			return fail("%s", describe(err))
		}
		return ok("You teleport.\n%s", g.describeLocation())
	case "item":
		it, found := g.catalog.Item(rest)
		if !found {
			return fail("There is no item called %q.", strings.TrimSpace(rest))
		}
		if err := g.inventory.AddItem(it); err != nil {
			return fail("%s", describe(err))
		}
		return ok("A %s appears in your pack.", it.Name)
	case "god":
		g.SetGodMode(!g.god)
		if g.god {
			g.message("God mode enabled.", events.SeverityWarning)
			return ok("God mode on.")
		}
		return ok("God mode off.")
	}
	return fail("Unknown cheat %q.", code)
}

func intArg(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errNotNumber
	}
	return n, nil
}
