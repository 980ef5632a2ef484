package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wayfarer-rpg/wayfarer/internal/catalog"
	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"gopkg.in/yaml.v3"
)

// itemColumns is the expected CSV header.
var itemColumns = []string{"name", "type", "value", "price", "stackable", "description"}

// importItems merges CSV item rows into a catalog document. Rows replace
// existing items with the same name, ignoring case. It returns the number of
// added and replaced items.
func importItems(doc map[string]any, records [][]string) (added, replaced int, err error) {
	if len(records) < 2 {
		return 0, 0, fmt.Errorf("CSV has no data rows")
	}
	for i, col := range itemColumns[:3] {
		if i >= len(records[0]) || !strings.EqualFold(strings.TrimSpace(records[0][i]), col) {
			return 0, 0, fmt.Errorf("CSV header must start with %s", strings.Join(itemColumns[:3], ","))
		}
	}

	existing, _ := doc["items"].([]any)
	index := make(map[string]int, len(existing))
	for i, raw := range existing {
		if m, ok := raw.(map[string]any); ok {
			name, _ := m["name"].(string)
			index[strings.ToLower(name)] = i
		}
	}

	for row, record := range records[1:] {
		line := row + 2
		if len(record) < 3 {
			log.Printf("Warning: skipping row %d - insufficient columns", line)
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			log.Printf("Warning: skipping row %d - empty name", line)
			continue
		}
		itemType, err := model.ParseItemType(record[1])
		if err != nil {
			return added, replaced, fmt.Errorf("row %d: %w", line, err)
		}
		value, err := strconv.Atoi(strings.TrimSpace(record[2]))
		if err != nil {
			return added, replaced, fmt.Errorf("row %d: value %q is not a number", line, record[2])
		}

		item := map[string]any{"name": name, "type": string(itemType), "value": value}
		if len(record) > 3 && strings.TrimSpace(record[3]) != "" {
			if price, err := strconv.Atoi(strings.TrimSpace(record[3])); err == nil {
				item["price"] = price
			}
		}
		if len(record) > 4 && parseBool(record[4]) {
			item["stackable"] = true
		}
		if len(record) > 5 && strings.TrimSpace(record[5]) != "" {
			item["description"] = strings.TrimSpace(record[5])
		}

		if i, ok := index[strings.ToLower(name)]; ok {
			existing[i] = item
			replaced++
			continue
		}
		index[strings.ToLower(name)] = len(existing)
		existing = append(existing, item)
		added++
	}
	doc["items"] = existing
	return added, replaced, nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}

func main() {
	if len(os.Args) < 3 {
		log.Fatalf("usage: %s <items.csv> <catalog.yaml>", filepath.Base(os.Args[0]))
	}
	csvPath, catalogPath := os.Args[1], os.Args[2]

	fmt.Println("=== Wayfarer Item Import ===")
	fmt.Printf("CSV file: %s\nCatalog:  %s\n", csvPath, catalogPath)

	file, err := os.Open(csvPath)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		log.Fatalf("Failed to read CSV: %v", err)
	}

	data, err := os.ReadFile(catalogPath)
	if err != nil {
		log.Fatalf("Failed to read catalog: %v", err)
	}
	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		log.Fatalf("Failed to decode catalog: %v", err)
	}

	added, replaced, err := importItems(doc, records)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		log.Fatalf("Failed to encode catalog: %v", err)
	}
	c, err := catalog.Parse(out)
	if err != nil {
		log.Fatalf("Merged catalog is invalid, nothing written: %v", err)
	}
	if err := os.WriteFile(catalogPath, out, 0o644); err != nil {
		log.Fatalf("Failed to write catalog: %v", err)
	}

	fmt.Printf("✓ Added %d items, replaced %d\n", added, replaced)
	fmt.Printf("✓ Catalog now has %d items, %d enemies, %d locations\n", len(c.Items), len(c.Enemies), len(c.Locations))
}
