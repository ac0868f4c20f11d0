package trace

import (
	"math"
	"sort"
)

// Summary condenses one character's samples.
type Summary struct {
	Name          string  `yaml:"name"`
	Samples       int     `yaml:"samples"`
	FirstTick     uint64  `yaml:"first_tick"`
	LastTick      uint64  `yaml:"last_tick"`
	PathLength    float64 `yaml:"path_length"` // planar, between consecutive samples
	SprintSamples int     `yaml:"sprint_samples"`
	Unsticks      int     `yaml:"unsticks"` // entries into UNSTICK
}

// Summarize groups samples by character and walks each group in tick order.
// The result is sorted by name.
func Summarize(samples []Sample) []Summary {
	byName := make(map[string][]Sample)
	for _, s := range samples {
		byName[s.Name] = append(byName[s.Name], s)
	}

	out := make([]Summary, 0, len(byName))
	for name, group := range byName {
		sort.SliceStable(group, func(i, j int) bool { return group[i].Tick < group[j].Tick })
		sum := Summary{
			Name:      name,
			Samples:   len(group),
			FirstTick: group[0].Tick,
			LastTick:  group[len(group)-1].Tick,
		}
		for i, s := range group {
			if s.Sprint {
				sum.SprintSamples++
			}
			if i == 0 {
				if s.State == "UNSTICK" {
					sum.Unsticks++
				}
				continue
			}
			prev := group[i-1]
			sum.PathLength += math.Hypot(s.X-prev.X, s.Z-prev.Z)
			if s.State == "UNSTICK" && prev.State != "UNSTICK" {
				sum.Unsticks++
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
