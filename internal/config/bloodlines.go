package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Bloodline is one entry of the ranked reference list. Lower index ranks higher.
type Bloodline struct {
	Name string `yaml:"name"`
	Qi   string `yaml:"qi"`
}

// UnmarshalYAML also accepts the older ["Name", "Qi"] pair form
func (b *Bloodline) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var pair []string
		if err := node.Decode(&pair); err != nil {
			return err
		}
		if len(pair) == 0 || len(pair) > 2 {
			return fmt.Errorf("line %d: bloodline entry needs a name and an optional qi label", node.Line)
		}
		b.Name = pair[0]
		if len(pair) == 2 {
			b.Qi = pair[1]
		}
		return nil
	}

	type plain Bloodline
	return node.Decode((*plain)(b))
}

// DefaultBloodlines is the shipped ranking, best first
func DefaultBloodlines() []Bloodline {
	return []Bloodline{
		{"Celestial Dragon", "20x Qi"}, {"Buddha", "10x Qi"},
		{"The Sealed Demon", "5x Qi"}, {"Heaven Devourer", "5x Qi"},
		{"Unbounded Astral Body", "4x Qi"}, {"Primordial Phoenix", "4x Qi"},
		{"Bounded Astral Body", "3.5x Qi"}, {"Martial Emperor", "3.45x Qi"},
		{"Golden Kirin", "3x Qi"}, {"Eclipse Serpent", "3x Qi"},
		{"Celestial", "3x Qi"}, {"Silver Wolf", "3x Qi"},
		{"Abyssal Monarch", "2.5x Qi"}, {"Vengeful Ghost", "2.5x Qi"},
		{"Demon Sovereign", "2.5x Qi"}, {"Azure Dragon", "2x Qi"},
		{"Chaos Fiend", "2x Qi"}, {"Red Tiger", "2x Qi"},
		{"Spirit Fox", "2x Qi"}, {"Demon King", "1.5x Qi"},
		{"Crimson Demon", "1.5x Qi"}, {"Fallen Saint", "1.25x Qi"},
		{"Martial King", "1.2x Qi"}, {"Hero", "1.2x Qi"},
		{"Frost Wyvern", "No Qi"}, {"Heavenly Tiger", "No Qi"},
		{"Invincible Vajra", "No Qi"}, {"High-tier Demon", "No Qi"},
		{"Middle-tier Demon", "No Qi"}, {"Low-tier Demon", "No Qi"},
		{"High-tier Saint", "No Qi"}, {"Middle-tier Saint", "No Qi"},
		{"Low-tier Saint", "No Qi"}, {"Ancient Mortal", "No Qi"},
		{"Mortal", "No Qi"}, {"Default Body", "No Qi"},
	}
}

// LoadBloodlines reads the ranking, creating the file with the default list if absent.
// An empty file falls back to the defaults.
func LoadBloodlines(path string) ([]Bloodline, error) {
	list := DefaultBloodlines()
	if err := loadOrCreate(path, &list); err != nil {
		return DefaultBloodlines(), err
	}
	if len(list) == 0 {
		return DefaultBloodlines(), nil
	}
	return list, nil
}

// SaveBloodlines writes the ranking
func SaveBloodlines(path string, list []Bloodline) error {
	return save(path, list)
}
