// Package inventory loads activity databases described in YAML.
package inventory

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"lcaparam/internal/store"
)

type Inventory struct {
	Databases []Database `yaml:"databases"`
}

type Database struct {
	Name       string     `yaml:"name"`
	Activities []Activity `yaml:"activities"`
}

type Activity struct {
	Code      string     `yaml:"code"`
	Name      string     `yaml:"name"`
	Location  string     `yaml:"location"`
	Unit      string     `yaml:"unit"`
	Exchanges []Exchange `yaml:"exchanges"`
}

type Exchange struct {
	// Input is "database/code"; empty for exchanges without a linked input.
	Input   string  `yaml:"input"`
	Amount  float64 `yaml:"amount"`
	Type    string  `yaml:"type"`
	Formula *string `yaml:"formula"`
	Group   string  `yaml:"group"`
}

type Writer interface {
	CreateDatabase(ctx context.Context, name string) error
	UpsertActivity(ctx context.Context, a store.ActivityInput) error
}

type Result struct {
	Databases  int
	Activities int
	Exchanges  int
}

func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading inventory: %w", err)
	}

	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("loading inventory: %w", err)
	}

	assignCodes(&inv)

	if err := validateInventory(&inv); err != nil {
		return nil, fmt.Errorf("loading inventory: %w", err)
	}

	return &inv, nil
}

// NewCode returns a fresh activity code: a random UUID as 32 hex digits.
func NewCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func assignCodes(inv *Inventory) {
	for i := range inv.Databases {
		for j := range inv.Databases[i].Activities {
			if strings.TrimSpace(inv.Databases[i].Activities[j].Code) == "" {
				inv.Databases[i].Activities[j].Code = NewCode()
			}
		}
	}
}

func validateInventory(inv *Inventory) error {
	if len(inv.Databases) == 0 {
		return fmt.Errorf("at least one database is required")
	}

	databases := make(map[string]struct{})
	for i, db := range inv.Databases {
		if strings.TrimSpace(db.Name) == "" {
			return fmt.Errorf("database %d name is required", i)
		}
		if _, exists := databases[db.Name]; exists {
			return fmt.Errorf("duplicate database name: %s", db.Name)
		}
		databases[db.Name] = struct{}{}

		codes := make(map[string]struct{})
		for _, activity := range db.Activities {
			if _, exists := codes[activity.Code]; exists {
				return fmt.Errorf("duplicate activity code in %s: %s", db.Name, activity.Code)
			}
			codes[activity.Code] = struct{}{}

			for k, exchange := range activity.Exchanges {
				if _, _, err := splitInput(exchange.Input); err != nil {
					return fmt.Errorf("activity %s/%s exchange %d: %w", db.Name, activity.Code, k, err)
				}
			}
		}
	}

	return nil
}

func splitInput(input string) (string, string, error) {
	if input == "" {
		return "", "", nil
	}
	database, code, ok := strings.Cut(input, "/")
	if !ok || database == "" || code == "" {
		return "", "", fmt.Errorf("invalid input %q, expected database/code", input)
	}
	return database, code, nil
}

// Write creates every database of inv and upserts its activities in order.
func Write(ctx context.Context, inv *Inventory, w Writer) (*Result, error) {
	result := &Result{}
	for _, db := range inv.Databases {
		if err := w.CreateDatabase(ctx, db.Name); err != nil {
			return result, err
		}
		result.Databases++

		for _, activity := range db.Activities {
			input := store.ActivityInput{
				Database: db.Name,
				Code:     activity.Code,
				Name:     activity.Name,
				Location: activity.Location,
				Unit:     activity.Unit,
			}
			for _, exchange := range activity.Exchanges {
				inputDB, inputCode, _ := splitInput(exchange.Input)
				input.Exchanges = append(input.Exchanges, store.ExchangeInput{
					InputDatabase: inputDB,
					InputCode:     inputCode,
					Type:          exchange.Type,
					Amount:        exchange.Amount,
					Formula:       exchange.Formula,
					Group:         exchange.Group,
				})
			}
			if err := w.UpsertActivity(ctx, input); err != nil {
				return result, err
			}
			result.Activities++
			result.Exchanges += len(input.Exchanges)
		}
	}
	return result, nil
}
