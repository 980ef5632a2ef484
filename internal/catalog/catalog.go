// Package catalog loads the static game data: classes, items, enemies,
// locations and skills.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultData []byte

var (
	ErrNoStart      = errors.New("catalog has no valid start location")
	ErrNoClasses    = errors.New("catalog defines no classes")
	ErrUnknownItem  = errors.New("unknown item")
	ErrUnknownEnemy = errors.New("unknown enemy")
	ErrUnknownClass = errors.New("unknown class")
)

// Catalog is the resolved, read-only game data.
type Catalog struct {
	Start     string
	Classes   map[model.Class]model.ClassDef
	Items     map[string]model.Item
	Enemies   map[string]model.Enemy
	Locations map[string]*model.Location
	Skills    []model.Skill
}

type lootDoc struct {
	Item       string  `yaml:"item"`
	DropChance float64 `yaml:"drop_chance"`
}

type enemyDoc struct {
	model.Enemy `yaml:",inline"`
	Loot        []lootDoc `yaml:"loot"`
}

type locationDoc struct {
	Key             string            `yaml:"key"`
	Name            string            `yaml:"name"`
	Description     string            `yaml:"description"`
	Exits           map[string]string `yaml:"exits"`
	Items           []string          `yaml:"items"`
	HiddenItems     []string          `yaml:"hidden_items"`
	Enemies         []string          `yaml:"enemies"`
	NPCs            []string          `yaml:"npcs"`
	EncounterChance *float64          `yaml:"encounter_chance"`
}

type document struct {
	Start     string           `yaml:"start"`
	Classes   []model.ClassDef `yaml:"classes"`
	Items     []model.Item     `yaml:"items"`
	Enemies   []enemyDoc       `yaml:"enemies"`
	Locations []locationDoc    `yaml:"locations"`
	Skills    []model.Skill    `yaml:"skills"`
}

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Load reads and resolves a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// LoadOrDefault loads path, falling back to the built-in catalog when path is
// empty or unusable.
func LoadOrDefault(path string, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return Default()
	}
	c, err := Load(path)
	if err != nil {
		logger.Warn("catalog load failed, using built-in data", zap.String("path", path), zap.Error(err))
		return Default()
	}
	logger.Info("catalog loaded",
		zap.String("path", path),
		zap.Int("locations", len(c.Locations)),
		zap.Int("enemies", len(c.Enemies)),
		zap.Int("skills", len(c.Skills)),
	)
	return c
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultData)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return c
}

// Parse decodes YAML catalog data and resolves item and enemy references.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		Start:     doc.Start,
		Classes:   make(map[model.Class]model.ClassDef, len(doc.Classes)),
		Items:     make(map[string]model.Item, len(doc.Items)),
		Enemies:   make(map[string]model.Enemy, len(doc.Enemies)),
		Locations: make(map[string]*model.Location, len(doc.Locations)),
		Skills:    doc.Skills,
	}

	for _, def := range doc.Classes {
		class, err := model.ParseClass(string(def.Class))
		if err != nil {
			return nil, err
		}
		def.Class = class
		c.Classes[class] = def
	}
	if len(c.Classes) == 0 {
		return nil, ErrNoClasses
	}

	for _, it := range doc.Items {
		t, err := model.ParseItemType(string(it.Type))
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", it.Name, err)
		}
		it.Type = t
		c.Items[key(it.Name)] = it
	}
	for class, def := range c.Classes {
		for _, name := range def.StartItems {
			if _, ok := c.Items[key(name)]; !ok {
				return nil, fmt.Errorf("class %s start item %q: %w", class, name, ErrUnknownItem)
			}
		}
	}

	for _, ed := range doc.Enemies {
		e := ed.Enemy
		e.Level = max(e.Level, 1)
		if e.MaxHealth <= 0 {
			e.MaxHealth = e.Health
		}
		if e.Health <= 0 || e.Health > e.MaxHealth {
			e.Health = e.MaxHealth
		}
		if e.ExperienceReward <= 0 {
			e.ExperienceReward = e.Level * 10
		}
		if e.GoldReward <= 0 {
			e.GoldReward = 12 * e.Level
		}
		for _, l := range ed.Loot {
			it, ok := c.Items[key(l.Item)]
			if !ok {
				return nil, fmt.Errorf("enemy %s loot %q: %w", e.Name, l.Item, ErrUnknownItem)
			}
			it.DropChance = l.DropChance
			e.Loot = append(e.Loot, it)
		}
		c.Enemies[key(e.Name)] = e
	}

	for _, ld := range doc.Locations {
		loc := &model.Location{
			Key:             ld.Key,
			Name:            ld.Name,
			Description:     strings.TrimSpace(ld.Description),
			Exits:           make(map[string]string, len(ld.Exits)),
			NPCs:            ld.NPCs,
			EncounterChance: ld.EncounterChance,
		}
		for dir, dest := range ld.Exits {
			loc.Exits[key(dir)] = dest
		}
		var err error
		if loc.Items, err = c.resolveItems(ld.Items); err != nil {
			return nil, fmt.Errorf("location %s: %w", ld.Key, err)
		}
		if loc.HiddenItems, err = c.resolveItems(ld.HiddenItems); err != nil {
			return nil, fmt.Errorf("location %s: %w", ld.Key, err)
		}
		for _, name := range ld.Enemies {
			e, ok := c.Enemies[key(name)]
			if !ok {
				return nil, fmt.Errorf("location %s enemy %q: %w", ld.Key, name, ErrUnknownEnemy)
			}
			loc.Enemies = append(loc.Enemies, e.Clone())
		}
		c.Locations[loc.Key] = loc
	}
	if _, ok := c.Locations[c.Start]; !ok {
		return nil, fmt.Errorf("start %q: %w", c.Start, ErrNoStart)
	}

	for i, s := range c.Skills {
		t, err := model.ParseSkillType(string(s.Type))
		if err != nil {
			return nil, fmt.Errorf("skill %s: %w", s.ID, err)
		}
		c.Skills[i].Type = t
		if s.RequiredClass != "" {
			class, err := model.ParseClass(string(s.RequiredClass))
			if err != nil {
				return nil, fmt.Errorf("skill %s: %w", s.ID, err)
			}
			c.Skills[i].RequiredClass = class
		}
	}
	return c, nil
}

func (c *Catalog) resolveItems(names []string) ([]model.Item, error) {
	var out []model.Item
	for _, name := range names {
		it, ok := c.Items[key(name)]
		if !ok {
			return nil, fmt.Errorf("%q: %w", name, ErrUnknownItem)
		}
		out = append(out, it)
	}
	return out, nil
}

// Item looks up an item by name, ignoring case.
func (c *Catalog) Item(name string) (model.Item, bool) {
	it, ok := c.Items[key(name)]
	return it, ok
}

// Enemy looks up an enemy template by name, ignoring case.
func (c *Catalog) Enemy(name string) (model.Enemy, bool) {
	e, ok := c.Enemies[key(name)]
	if !ok {
		return model.Enemy{}, false
	}
	return e.Clone(), true
}

// EncounterPool returns the enemies eligible for random encounters, in name
// order.
func (c *Catalog) EncounterPool() []model.Enemy {
	var pool []model.Enemy
	for _, k := range sortedKeys(c.Enemies) {
		if e := c.Enemies[k]; e.RandomEncounter {
			pool = append(pool, e.Clone())
		}
	}
	return pool
}

// ClassList returns the defined classes in the canonical order.
func (c *Catalog) ClassList() []model.ClassDef {
	var out []model.ClassDef
	for _, class := range model.Classes {
		if def, ok := c.Classes[class]; ok {
			out = append(out, def)
		}
	}
	return out
}

// NewPlayer creates a level 1 character of the given class with its starting
// gear.
func (c *Catalog) NewPlayer(name string, class model.Class) (*model.Player, error) {
	def, ok := c.Classes[class]
	if !ok {
		return nil, fmt.Errorf("%q: %w", class, ErrUnknownClass)
	}
	p := model.NewPlayer(name, def)
	for _, itemName := range def.StartItems {
		it, ok := c.Item(itemName)
		if !ok {
			return nil, fmt.Errorf("%q: %w", itemName, ErrUnknownItem)
		}
		p.ItemCounter++
		it.Acquired = p.ItemCounter
		p.Inventory = append(p.Inventory, it)
	}
	return p, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
