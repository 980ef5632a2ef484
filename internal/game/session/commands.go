package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wayfarer-rpg/wayfarer/internal/catalog"
	"github.com/wayfarer-rpg/wayfarer/internal/game/combat"
	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"github.com/wayfarer-rpg/wayfarer/internal/game/inventory"
	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"github.com/wayfarer-rpg/wayfarer/internal/game/skills"
	"github.com/wayfarer-rpg/wayfarer/internal/game/world"
	"github.com/wayfarer-rpg/wayfarer/internal/persist"
	"go.uber.org/zap"
)

// CommandResult is the outcome of one command. Failed commands never change
// game state unless the message says so.
type CommandResult struct {
	Success bool
	Message string
	State   State
	Quit    bool
}

func ok(format string, args ...any) CommandResult {
	return CommandResult{Success: true, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) CommandResult {
	return CommandResult{Message: fmt.Sprintf(format, args...)}
}

type handler func(ctx context.Context, args string) CommandResult

var shortDirections = map[string]string{
	"n": "north",
	"s": "south",
	"e": "east",
	"w": "west",
	"u": "up",
	"d": "down",
}

var directions = map[string]bool{
	"north": true, "south": true, "east": true, "west": true,
	"up": true, "down": true, "in": true, "out": true,
	"northeast": true, "northwest": true, "southeast": true, "southwest": true,
}

var aliases = map[string]string{
	"l":       "look",
	"i":       "inventory",
	"inv":     "inventory",
	"status":  "stats",
	"get":     "take",
	"fight":   "attack",
	"cast":    "skill",
	"exit":    "quit",
	"unpause": "resume",
	"walk":    "go",
	"move":    "go",
	"?":       "help",
	"respec":  "skills reset",
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Commands accepted outside Running. Help and quit work everywhere.
var stateCommands = map[State]map[string]bool{
	StateNotStarted: set("new", "load", "saves"),
	StateGameOver:   set("new", "load", "saves", "stats"),
	StatePaused:     set("resume", "stats"),
	StateInMenu:     set("new", "back", "save", "load", "saves", "delete", "stats", "inventory", "skills", "learn", "feature"),
	StateInCombat:   set("attack", "defend", "flee", "use", "skill", "look", "stats", "inventory", "skills", "cheat", "feature"),
}

func (g *Game) commandTable() map[string]handler {
	return map[string]handler{
		"help":      g.cmdHelp,
		"new":       g.cmdNew,
		"look":      g.cmdLook,
		"go":        g.cmdGo,
		"inventory": g.cmdInventory,
		"stats":     g.cmdStats,
		"take":      g.cmdTake,
		"drop":      g.cmdDrop,
		"use":       g.cmdUse,
		"equip":     g.cmdEquip,
		"unequip":   g.cmdUnequip,
		"skills":    g.cmdSkills,
		"learn":     g.cmdLearn,
		"skill":     g.cmdSkill,
		"search":    g.cmdSearch,
		"map":       g.cmdMap,
		"path":      g.cmdPath,
		"attack":    g.cmdAttack,
		"defend":    g.cmdDefend,
		"flee":      g.cmdFlee,
		"save":      g.cmdSave,
		"load":      g.cmdLoad,
		"saves":     g.cmdSaves,
		"delete":    g.cmdDelete,
		"pause":     g.cmdPause,
		"resume":    g.cmdResume,
		"menu":      g.cmdMenu,
		"back":      g.cmdBack,
		"feature":   g.cmdFeature,
		"quit":      g.cmdQuit,
		"cheat":     g.cmdCheat,
	}
}

// ProcessCommand parses and runs one line of player input. It never panics:
// unknown input and invalid actions come back as a failed result, and a panic
// inside a manager is reported as a system error.
func (g *Game) ProcessCommand(ctx context.Context, input string) (res CommandResult) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("command panicked",
				zap.String("input", input),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			g.bus.Publish(&events.SystemError{
				Component: g.Name(),
				Message:   fmt.Sprintf("command %q failed: %v", input, r),
				Severity:  events.SeverityCritical,
			})
			res = fail("Something went wrong and the command was abandoned.")
		}
		res.State = g.state
		g.bus.Publish(&events.CommandProcessed{Input: input, Success: res.Success, Message: res.Message})
	}()

	verb, args := parseCommand(input)
	if verb == "" {
		return fail("Please enter a command. Type 'help' for a list.")
	}
	if d, ok := shortDirections[verb]; ok {
		verb, args = "go", d
	} else if directions[verb] {
		verb, args = "go", verb
	}
	if a, ok := aliases[verb]; ok {
		var sub string
		verb, sub, _ = strings.Cut(a, " ")
		if sub != "" {
			args = strings.TrimSpace(sub + " " + args)
		}
	}
	h, ok := g.handlers[verb]
	if !ok {
		return fail("I don't understand %q. Type 'help' for a list of commands.", verb)
	}
	if msg, allowed := g.allowed(verb); !allowed {
		return fail("%s", msg)
	}
	g.logger.Debug("command", zap.String("verb", verb), zap.String("args", args), zap.Stringer("state", g.state))
	return h(ctx, args)
}

func parseCommand(input string) (verb, args string) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return "", ""
	}
	return strings.ToLower(fields[0]), strings.Join(fields[1:], " ")
}

// allowed gates a verb on the current state and explains a refusal.
func (g *Game) allowed(verb string) (string, bool) {
	if verb == "help" || verb == "quit" {
		return "", true
	}
	if g.state == StateRunning {
		return "", true
	}
	if g.state.transient() {
		return "Please wait for the current save or load to finish.", false
	}
	if stateCommands[g.state][verb] {
		return "", true
	}
	switch g.state {
	case StateNotStarted:
		return "No game in progress. Start a new game or load a save.", false
	case StateGameOver:
		return "The game is over. Load a save to continue.", false
	case StatePaused:
		return "The game is paused. Type 'resume' to continue.", false
	case StateInMenu:
		return "You are in the menu. Type 'back' to return to the game.", false
	case StateInCombat:
		switch verb {
		case "go":
			return "You cannot leave while in combat! Try to flee.", false
		case "save", "load":
			return "You cannot save or load during combat.", false
		}
		return "You can't do that during combat.", false
	}
	return fmt.Sprintf("You can't do that now (%s).", g.state), false
}

// describe turns a manager error into a message for the player.
func describe(err error) string {
	var le *skills.LearnError
	switch {
	case errors.As(err, &le):
		return fmt.Sprintf("You cannot learn %s: %s.", le.SkillID, le.Reason)
	case errors.Is(err, inventory.ErrInventoryFull):
		return "Your inventory is full."
	case errors.Is(err, inventory.ErrItemNotFound):
		return "You don't have that."
	case errors.Is(err, inventory.ErrNotUsable):
		return "You can't use that."
	case errors.Is(err, inventory.ErrNotEquippable):
		return "You can't equip that."
	case errors.Is(err, inventory.ErrNothingEquipped):
		return "You have nothing equipped there."
	case errors.Is(err, inventory.ErrCancelled), errors.Is(err, world.ErrCancelled):
		return "Something stops you."
	case errors.Is(err, world.ErrNoExit):
		return "You can't go that way."
	case errors.Is(err, world.ErrDanglingExit):
		return "That path fades into nothing. You stay where you are."
	case errors.Is(err, world.ErrItemNotHere):
		return "There is no such item here."
	case errors.Is(err, world.ErrNoPath):
		return "You don't know a way there."
	case errors.Is(err, world.ErrUnknownLocation):
		return "There is no such place."
	case errors.Is(err, combat.ErrNotInCombat):
		return "You are not in combat."
	case errors.Is(err, combat.ErrAlreadyInCombat), errors.Is(err, ErrInCombat):
		return "You are in the middle of a fight."
	case errors.Is(err, skills.ErrNotLearned):
		return "You haven't learned that skill."
	case errors.Is(err, skills.ErrUnknownSkill):
		return "There is no such skill."
	case errors.Is(err, skills.ErrOnCooldown):
		return "That skill is still recovering."
	case errors.Is(err, skills.ErrNoMana):
		return "You don't have enough mana."
	case errors.Is(err, skills.ErrWrongType):
		return "That skill can't be used that way."
	case errors.Is(err, persist.ErrNotFound):
		return "There is no save in that slot."
	case errors.Is(err, persist.ErrCorrupt):
		return "That save is damaged and cannot be loaded."
	case errors.Is(err, persist.ErrInvalidSlot):
		return "Save slot names may only use letters, digits, '-' and '_'."
	case errors.Is(err, ErrNoStore):
		return "Saving is not available."
	case errors.Is(err, ErrNoGame):
		return "No game in progress."
	}
	return err.Error()
}

func (g *Game) cmdHelp(_ context.Context, _ string) CommandResult {
	var lines []string
	switch g.state {
	case StateNotStarted, StateGameOver:
		lines = []string{"new <name> <class>, load [slot], saves, quit"}
	case StatePaused:
		lines = []string{"resume, stats, quit"}
	case StateInMenu:
		lines = []string{
			"save [slot], load [slot], saves, delete <slot>, new <name> <class>",
			"stats, inventory, skills [reset], learn <skill>, feature [name] [on|off]",
			"back, quit",
		}
	case StateInCombat:
		lines = []string{
			"attack, defend, flee, use <item>, skill <skill>",
			"look, stats, inventory, skills, quit",
		}
	default:
		lines = []string{
			"look, go <direction> (or n/s/e/w), search, map, path <place>",
			"inventory [sort], take <item>, drop <item>, use <item>, equip <item>, unequip <slot>",
			"stats, skills [reset], learn <skill>, skill <skill>",
			"attack [enemy], defend, flee",
			"save [slot], load [slot], saves, menu, pause, quit",
		}
	}
	return ok("Commands:\n  %s", strings.Join(lines, "\n  "))
}

func (g *Game) cmdNew(_ context.Context, args string) CommandResult {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		var classes []string
		for _, def := range g.catalog.ClassList() {
			classes = append(classes, string(def.Class))
		}
		return fail("Usage: new <name> <class>. Classes: %s.", strings.Join(classes, ", "))
	}
	name := strings.Join(fields[:len(fields)-1], " ")
	class := fields[len(fields)-1]
	if err := g.NewGame(name, class); err != nil {
		if errors.Is(err, catalog.ErrUnknownClass) {
			return fail("There is no %s class.", class)
		}
		return fail("%s", describe(err))
	}
	p := g.players.Player()
	return ok("Welcome, %s the %s.\n%s", p.Name, p.Class, g.describeLocation())
}

func (g *Game) cmdLook(_ context.Context, _ string) CommandResult {
	text := g.describeLocation()
	if e, in := g.combat.Enemy(); in {
		text += fmt.Sprintf("\nYou are fighting the %s (%d/%d HP).", e.Name, e.Health, e.MaxHealth)
	}
	return ok("%s", text)
}

func (g *Game) describeLocation() string {
	loc := g.world.Current()
	if loc == nil {
		return "You are nowhere."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", loc.Name)
	if loc.Description != "" {
		b.WriteString(loc.Description)
		b.WriteByte('\n')
	}
	if dirs := loc.Directions(); len(dirs) > 0 {
		fmt.Fprintf(&b, "Exits: %s\n", strings.Join(dirs, ", "))
	} else {
		b.WriteString("There are no exits.\n")
	}
	if len(loc.Items) > 0 {
		fmt.Fprintf(&b, "You see: %s\n", itemNames(loc.Items))
	}
	if len(loc.Enemies) > 0 {
		names := make([]string, len(loc.Enemies))
		for i, e := range loc.Enemies {
			names[i] = e.Name
		}
		fmt.Fprintf(&b, "Enemies: %s\n", strings.Join(names, ", "))
	}
	if len(loc.NPCs) > 0 {
		fmt.Fprintf(&b, "People: %s\n", strings.Join(loc.NPCs, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func itemNames(items []model.Item) string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return strings.Join(names, ", ")
}

func (g *Game) cmdGo(ctx context.Context, args string) CommandResult {
	dir := strings.ToLower(strings.TrimSpace(args))
	if d, ok := shortDirections[dir]; ok {
		dir = d
	}
	if dir == "" {
		return fail("Go where?")
	}
	tr, err := g.coordinator.Travel(dir)
	if err != nil {
		return fail("%s", describe(err))
	}

	lines := []string{fmt.Sprintf("You travel %s.", dir), g.describeLocation()}
	if tr.Move.Discovered {
		lines = append(lines, "You have discovered a new place.")
	}
	if tr.Combat {
		lines = append(lines, fmt.Sprintf("A wild %s appears! Prepare to fight.", tr.Enemy.Name))
	} else {
		g.autosave(ctx)
	}
	return ok("%s", strings.Join(lines, "\n"))
}

func (g *Game) isEquipped(it model.Item) bool {
	p := g.players.Player()
	for _, eq := range []*model.Item{p.EquippedWeapon, p.EquippedArmor} {
		if eq != nil && eq.Name == it.Name && eq.Acquired == it.Acquired {
			return true
		}
	}
	return false
}

func (g *Game) cmdInventory(_ context.Context, args string) CommandResult {
	if key := strings.ToLower(strings.TrimSpace(args)); key != "" {
		if err := g.inventory.Sort(inventory.SortKey(key)); err != nil {
			return fail("Unknown sort order. Use name, type, value, quantity or recency.")
		}
	}
	items := g.inventory.Items()
	if len(items) == 0 {
		return ok("Your inventory is empty.")
	}
	lines := []string{fmt.Sprintf("Inventory (%d/%d):", len(items), g.inventory.Capacity())}
	for _, it := range items {
		line := fmt.Sprintf("- %s (%s)", it.Name, strings.ToLower(string(it.Type)))
		if g.isEquipped(it) {
			line += " [equipped]"
		}
		lines = append(lines, line)
	}
	lines = append(lines, fmt.Sprintf("Total value: %d gold", g.inventory.TotalValue()))
	return ok("%s", strings.Join(lines, "\n"))
}

func (g *Game) cmdStats(_ context.Context, _ string) CommandResult {
	p := g.players.Player()
	if p == nil {
		return fail("No game in progress.")
	}
	equipped := func(it *model.Item) string {
		if it == nil {
			return "none"
		}
		return fmt.Sprintf("%s (+%d)", it.Name, it.Value)
	}
	lines := []string{
		fmt.Sprintf("%s the %s, level %d", p.Name, p.Class, p.Level),
		fmt.Sprintf("Health %d/%d  Mana %d/%d", p.Health, p.MaxHealth, p.Mana, p.MaxMana),
		fmt.Sprintf("Attack %d  Defense %d", p.EffectiveAttack(), p.EffectiveDefense()),
		fmt.Sprintf("Experience %d/%d  Gold %d  Skill points %d", p.Experience, p.ExperienceToNextLevel, p.Gold, p.SkillPoints),
		fmt.Sprintf("Weapon: %s  Armor: %s", equipped(p.EquippedWeapon), equipped(p.EquippedArmor)),
		fmt.Sprintf("Play time: %s", g.PlayTime().Round(time.Second)),
	}
	for _, s := range g.stats.Summary() {
		if s.Value != 0 {
			lines = append(lines, fmt.Sprintf("%s: %d", s.Label, s.Value))
		}
	}
	return ok("%s", strings.Join(lines, "\n"))
}

func (g *Game) cmdTake(_ context.Context, args string) CommandResult {
	if strings.TrimSpace(args) == "" {
		return fail("Take what?")
	}
	it, err := g.coordinator.PickUp(args)
	if err != nil {
		return fail("%s", describe(err))
	}
	return ok("You pick up the %s.", it.Name)
}

func (g *Game) cmdDrop(_ context.Context, args string) CommandResult {
	if strings.TrimSpace(args) == "" {
		return fail("Drop what?")
	}
	it, err := g.coordinator.Drop(args)
	if err != nil {
		return fail("%s", describe(err))
	}
	return ok("You drop the %s.", it.Name)
}

func (g *Game) cmdUse(_ context.Context, args string) CommandResult {
	if strings.TrimSpace(args) == "" {
		return fail("Use what?")
	}
	if g.combat.InCombat() {
		return g.combatResult(g.combat.UseItem(args))
	}
	res, err := g.inventory.UseItem(args)
	if err != nil {
		return fail("%s", describe(err))
	}
	return ok("%s", res.Message)
}

func (g *Game) cmdEquip(_ context.Context, args string) CommandResult {
	if strings.TrimSpace(args) == "" {
		return fail("Equip what?")
	}
	it, found := g.inventory.FindItem(args)
	if !found {
		return fail("%s", describe(inventory.ErrItemNotFound))
	}
	prev, err := g.inventory.Equip(args)
	if err != nil {
		return fail("%s", describe(err))
	}
	if prev != nil {
		return ok("You equip the %s, replacing the %s.", it.Name, prev.Name)
	}
	return ok("You equip the %s.", it.Name)
}

func (g *Game) cmdUnequip(_ context.Context, args string) CommandResult {
	arg := strings.ToLower(strings.TrimSpace(args))
	var slot model.EquipmentSlot
	switch arg {
	case "":
		return fail("Unequip what? Name a slot (weapon or armor) or an item.")
	case string(model.SlotWeapon), string(model.SlotArmor):
		slot = model.EquipmentSlot(arg)
	default:
		it, found := g.inventory.FindItem(arg)
		if !found {
			return fail("%s", describe(inventory.ErrItemNotFound))
		}
		s, equippable := it.Slot()
		if !equippable || !g.isEquipped(it) {
			return fail("You don't have the %s equipped.", it.Name)
		}
		slot = s
	}
	it, err := g.inventory.Unequip(slot)
	if err != nil {
		return fail("%s", describe(err))
	}
	return ok("You unequip the %s.", it.Name)
}

func (g *Game) cmdSkills(_ context.Context, args string) CommandResult {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "":
	case "reset":
		return g.resetSkills()
	default:
		return fail("Usage: skills [reset]")
	}
	lines := []string{fmt.Sprintf("Skill points: %d", g.skills.AvailablePoints())}
	if learned := g.skills.Learned(); len(learned) > 0 {
		lines = append(lines, "Learned:")
		p := g.players.Player()
		for _, s := range learned {
			line := fmt.Sprintf("- %s [%s] %s", s.Name, s.ID, strings.ToLower(string(s.Type)))
			switch {
			case s.Type == model.SkillToggle && p.Toggles[s.ID]:
				line += " (on)"
			case g.skills.OnCooldown(s.ID):
				line += fmt.Sprintf(" (ready in %d turns)", g.skills.CooldownRemaining(s.ID))
			}
			lines = append(lines, line)
		}
	}
	if learnable := g.skills.Learnable(); len(learnable) > 0 {
		lines = append(lines, "Can learn:")
		for _, s := range learnable {
			lines = append(lines, fmt.Sprintf("- %s [%s] costs %d", s.Name, s.ID, s.Cost))
		}
	}
	return ok("%s", strings.Join(lines, "\n"))
}

func (g *Game) resetSkills() CommandResult {
	if g.state == StateInCombat {
		return fail("You can't do that during combat.")
	}
	if len(g.skills.Learned()) == 0 {
		return fail("You have no skills to forget.")
	}
	refund := g.skills.ResetSkills(g.cfg.SkillResetRefund)
	return ok("You forget your skills and recover %d skill points (%d%% refund). Skill points: %d.",
		refund, min(max(g.cfg.SkillResetRefund, 0), 100), g.skills.AvailablePoints())
}

// findSkill resolves a skill by ID or display name.
func (g *Game) findSkill(query string) (model.Skill, bool) {
	query = strings.TrimSpace(query)
	if s, found := g.skills.Get(strings.ToLower(query)); found {
		return s, true
	}
	id := strings.ReplaceAll(strings.ToLower(query), " ", "_")
	if s, found := g.skills.Get(id); found {
		return s, true
	}
	for _, s := range g.catalog.Skills {
		if strings.EqualFold(s.Name, query) {
			return s, true
		}
	}
	return model.Skill{}, false
}

func (g *Game) cmdLearn(_ context.Context, args string) CommandResult {
	if strings.TrimSpace(args) == "" {
		return fail("Learn what? Type 'skills' to see what you can learn.")
	}
	id := strings.ToLower(strings.TrimSpace(args))
	if s, found := g.findSkill(args); found {
		id = s.ID
	}
	if err := g.skills.Learn(id); err != nil {
		return fail("%s", describe(err))
	}
	s, _ := g.skills.Get(id)
	return ok("You learn %s.", s.Name)
}

func (g *Game) cmdSkill(_ context.Context, args string) CommandResult {
	s, found := g.findSkill(args)
	if !found {
		return fail("%s", describe(skills.ErrUnknownSkill))
	}
	switch s.Type {
	case model.SkillToggle:
		on, err := g.skills.Toggle(s.ID)
		if err != nil {
			return fail("%s", describe(err))
		}
		if on {
			return ok("%s is now active.", s.Name)
		}
		return ok("%s is now inactive.", s.Name)
	case model.SkillPassive:
		return fail("%s is passive and always in effect.", s.Name)
	}
	if !g.combat.InCombat() {
		return fail("You can only use %s in combat.", s.Name)
	}
	return g.combatResult(g.combat.UseSkill(s.ID))
}

func (g *Game) cmdSearch(_ context.Context, _ string) CommandResult {
	found := g.world.Search()
	if len(found) == 0 {
		return ok("You search the area but find nothing.")
	}
	return ok("You search the area and find: %s.", itemNames(found))
}

func (g *Game) cmdMap(_ context.Context, _ string) CommandResult {
	lines := []string{"Known places:"}
	for _, key := range g.world.Keys() {
		loc, _ := g.world.Location(key)
		if !loc.Visited {
			continue
		}
		marker := " "
		if key == g.world.CurrentKey() {
			marker = "*"
		}
		var exits []string
		for _, dir := range loc.Directions() {
			dest := "?"
			if to, known := g.world.Location(loc.Exits[dir]); known && to.Visited {
				dest = to.Name
			}
			exits = append(exits, fmt.Sprintf("%s: %s", dir, dest))
		}
		lines = append(lines, fmt.Sprintf("%s %s (%s)", marker, loc.Name, strings.Join(exits, ", ")))
	}
	return ok("%s", strings.Join(lines, "\n"))
}

// resolveLocation finds a location by key or display name.
func (g *Game) resolveLocation(query string) (string, bool) {
	query = strings.TrimSpace(query)
	if g.world.HasLocation(query) {
		return query, true
	}
	for _, key := range g.world.Keys() {
		loc, _ := g.world.Location(key)
		if strings.EqualFold(key, query) || strings.EqualFold(loc.Name, query) {
			return key, true
		}
	}
	return "", false
}

func (g *Game) cmdPath(_ context.Context, args string) CommandResult {
	if strings.TrimSpace(args) == "" {
		return fail("Path to where?")
	}
	key, found := g.resolveLocation(args)
	if !found {
		return fail("%s", describe(world.ErrUnknownLocation))
	}
	if loc, _ := g.world.Location(key); !loc.Visited {
		return fail("%s", describe(world.ErrNoPath))
	}
	steps, err := g.world.ShortestPath(g.world.CurrentKey(), key)
	if err != nil {
		return fail("%s", describe(err))
	}
	if len(steps) == 0 {
		return ok("You are already there.")
	}
	return ok("Route: %s (%d steps).", strings.Join(steps, ", "), len(steps))
}

func (g *Game) cmdAttack(_ context.Context, args string) CommandResult {
	if g.combat.InCombat() {
		return g.combatResult(g.combat.Attack())
	}
	enemy, found := g.world.FindEnemy(args)
	if !found {
		if strings.TrimSpace(args) == "" {
			return fail("There is nothing here to fight.")
		}
		return fail("There is no %s here.", strings.TrimSpace(args))
	}
	if err := g.combat.Start(enemy, g.world.CurrentKey(), false); err != nil {
		return fail("%s", describe(err))
	}
	res := g.combatResult(g.combat.Attack())
	res.Message = fmt.Sprintf("You engage the %s!\n%s", enemy.Name, res.Message)
	return res
}

func (g *Game) cmdDefend(_ context.Context, _ string) CommandResult {
	return g.combatResult(g.combat.Defend())
}

func (g *Game) cmdFlee(_ context.Context, _ string) CommandResult {
	return g.combatResult(g.combat.Flee())
}

// combatResult renders a combat report and appends the standing of both
// sides while the fight goes on.
func (g *Game) combatResult(rep combat.Report, err error) CommandResult {
	if err != nil {
		return fail("%s", describe(err))
	}
	if g.god {
		p := g.players.Player()
		g.players.Heal(p.MaxHealth)
	}
	lines := append([]string(nil), rep.Lines...)
	if rep.Result == combat.ResultNone {
		if e, in := g.combat.Enemy(); in {
			p := g.players.Player()
			lines = append(lines, fmt.Sprintf("[%s %d/%d HP | You %d/%d HP]", e.Name, e.Health, e.MaxHealth, p.Health, p.MaxHealth))
		}
	}
	return ok("%s", strings.Join(lines, "\n"))
}

func (g *Game) cmdSave(ctx context.Context, args string) CommandResult {
	slot, err := persist.NormalizeSlot(args)
	if err != nil {
		return fail("%s", describe(err))
	}
	if err := g.Save(ctx, slot); err != nil {
		return fail("Save failed: %s", describe(err))
	}
	return ok("Game saved to %q.", slot)
}

func (g *Game) cmdLoad(ctx context.Context, args string) CommandResult {
	slot, err := persist.NormalizeSlot(args)
	if err != nil {
		return fail("%s", describe(err))
	}
	if err := g.Load(ctx, slot); err != nil {
		return fail("Load failed: %s", describe(err))
	}
	return ok("Game loaded from %q.\n%s", slot, g.describeLocation())
}

func (g *Game) cmdSaves(ctx context.Context, _ string) CommandResult {
	slots, err := g.Saves(ctx)
	if err != nil {
		return fail("%s", describe(err))
	}
	if len(slots) == 0 {
		return ok("There are no saved games.")
	}
	return ok("Saved games: %s", strings.Join(slots, ", "))
}

func (g *Game) cmdDelete(ctx context.Context, args string) CommandResult {
	if strings.TrimSpace(args) == "" {
		return fail("Delete which save?")
	}
	if err := g.DeleteSave(ctx, args); err != nil {
		return fail("%s", describe(err))
	}
	return ok("Save %q deleted.", strings.ToLower(strings.TrimSpace(args)))
}

func (g *Game) cmdPause(_ context.Context, _ string) CommandResult {
	if err := g.Pause(); err != nil {
		return fail("%s", err)
	}
	return ok("Game paused. Type 'resume' to continue.")
}

func (g *Game) cmdResume(_ context.Context, _ string) CommandResult {
	if err := g.Resume(); err != nil {
		return fail("%s", err)
	}
	return ok("Game resumed.")
}

func (g *Game) cmdMenu(_ context.Context, _ string) CommandResult {
	if err := g.OpenMenu(); err != nil {
		return fail("%s", err)
	}
	return ok("Menu: save [slot], load [slot], saves, delete <slot>, feature, back, quit")
}

func (g *Game) cmdBack(_ context.Context, _ string) CommandResult {
	if err := g.CloseMenu(); err != nil {
		return fail("%s", err)
	}
	return ok("Back to the game.")
}

func (g *Game) cmdFeature(_ context.Context, args string) CommandResult {
	fields := strings.Fields(strings.ToLower(args))
	if len(fields) == 0 {
		lines := []string{"Features:"}
		for _, name := range g.FeatureNames() {
			state := "off"
			if g.Feature(name) {
				state = "on"
			}
			lines = append(lines, fmt.Sprintf("- %s: %s", name, state))
		}
		return ok("%s", strings.Join(lines, "\n"))
	}
	name := fields[0]
	on := !g.Feature(name)
	if len(fields) > 1 {
		switch fields[1] {
		case "on", "true", "yes":
			on = true
		case "off", "false", "no":
			on = false
		default:
			return fail("Say 'on' or 'off'.")
		}
	}
	g.SetFeature(name, on)
	if on {
		return ok("%s enabled.", name)
	}
	return ok("%s disabled.", name)
}

func (g *Game) cmdQuit(_ context.Context, _ string) CommandResult {
	g.Quit()
	res := ok("Farewell, traveller.")
	res.Quit = true
	return res
}
