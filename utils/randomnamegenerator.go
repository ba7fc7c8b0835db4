package utils

import (
	"math/rand"

	"github.com/Pallinder/go-randomdata"
)

// RandomNameGenerator hands out silly names, never the same one twice.
// Names depend only on the seed.
type RandomNameGenerator struct {
	used map[string]struct{}
}

func NewRandomNameGenerator(seed int64) *RandomNameGenerator {
	randomdata.CustomRand(rand.New(rand.NewSource(seed)))
	return &RandomNameGenerator{used: make(map[string]struct{})}
}

func (rng *RandomNameGenerator) RandomName() string {
	for {
		name := randomdata.SillyName()
		if _, exists := rng.used[name]; !exists {
			rng.used[name] = struct{}{}
			return name
		}
	}
}

// Reserve marks name as taken.
func (rng *RandomNameGenerator) Reserve(name string) {
	rng.used[name] = struct{}{}
}
