package config

import "sort"

// Presets maps a plant to tuning variants. Every preset runs on a
// synthetic recording of its plant.
var Presets = map[string]map[string]*Config{
	"oven": {
		"zn":     preset(oven, "ziegler-nichols", 100),
		"cc":     preset(oven, "cohen-coon", 100),
		"gentle": manual(oven, 100, 0.8, 60, 0),
	},
	"tank": {
		"zn":     preset(tank, "ziegler-nichols", 1),
		"cc":     preset(tank, "cohen-coon", 1),
		"manual": manual(tank, 1, 2, 20, 1),
	},
	"motor": {
		"zn":     preset(motor, "ziegler-nichols", 1),
		"cc":     preset(motor, "cohen-coon", 1),
		"sundaresan": func() *Config {
			c := preset(motor, "ziegler-nichols", 1)
			c.Identification.Method = "sundaresan"
			return c
		}(),
	},
}

var (
	oven = PlantConfig{
		Gain: 2.5, TimeConstant: 120, DeadTime: 15,
		Duration: 1200, Samples: 1200, UF: 1, Noise: 0.05, Seed: 1,
	}
	tank = PlantConfig{
		Gain: 1.2, TimeConstant: 30, DeadTime: 3,
		Duration: 300, Samples: 600, UF: 1,
	}
	motor = PlantConfig{
		Gain: 0.8, TimeConstant: 2, DeadTime: 0.2,
		Duration: 20, Samples: 1000, UF: 1,
	}
)

func preset(plant PlantConfig, rule string, setpoint float64) *Config {
	c := DefaultConfig()
	c.Plant = plant
	c.Tuning.Rule = rule
	c.Setpoint = setpoint
	c.Analysis.Reference = setpoint
	return c
}

func manual(plant PlantConfig, setpoint, kp, ti, td float64) *Config {
	c := preset(plant, "manual", setpoint)
	c.Tuning.Kp, c.Tuning.Ti, c.Tuning.Td = kp, ti, td
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(plant, name string) *Config {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	cfg, ok := plantPresets[name]
	if !ok {
		return nil
	}
	cp := *cfg
	return &cp
}

func ListPresets(plant string) []string {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(plantPresets))
	for name := range plantPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListPlants returns the plants that carry presets.
func ListPlants() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
