package main

import (
	"math"
	"strings"
)

// Craziness levels run from tame (1) to wild (100)
const (
	MinCraziness = 1
	MaxCraziness = 100
)

// Craziness is the generator style derived from a 1-100 level
type Craziness struct {
	Level            int
	Description      string
	Temperature      float64
	TopP             float64
	InspirationIntro string
}

type crazinessBand struct {
	upTo        int
	description string
	intro       string
}

var crazinessBands = []crazinessBand{
	{15, "extremely conventional, traditional, safe, and very professional-sounding",
		"Subtly draw upon these common concepts if directly relevant:"},
	{30, "conventional, established, clear, and professional-sounding, with a hint of creativity",
		"Consider these established concepts for gentle inspiration:"},
	{45, "moderately creative, memorable, and broadly appealing, balancing tradition with novelty",
		"Draw moderate creative inspiration from these concepts:"},
	{60, "creative, imaginative, and unique, aiming for marketability with a distinct flair",
		"Creatively weave in elements inspired by these diverse concepts:"},
	{75, "highly imaginative, unconventional, and boldly unique, pushing some stylistic boundaries",
		"Boldly incorporate or twist ideas inspired by these eclectic concepts:"},
	{90, "wildly creative, abstract, avant-garde, and very unconventional, even bizarre but catchy",
		"Daringly fuse or draw wild and unexpected inspiration from these abstract concepts:"},
	{100, "extremely experimental, surreal, boundary-shattering, provocative, and potentially nonsensical but highly memorable",
		"Explode conventions! Conjure surreal names from the ether, perhaps bizarrely inspired by:"},
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ClampCraziness forces level into 1..100
func ClampCraziness(level int) int {
	if level < MinCraziness {
		return MinCraziness
	}
	if level > MaxCraziness {
		return MaxCraziness
	}
	return level
}

// CrazinessFor maps a level to sampling settings and prompt wording.
// Temperature rises linearly 0.4 -> 1.4 while top_p narrows 0.95 -> 0.65.
func CrazinessFor(level int) Craziness {
	level = ClampCraziness(level)
	norm := float64(level-1) / 99.0

	c := Craziness{
		Level:       level,
		Temperature: round2(0.4 + norm*1.0),
		TopP:        round2(0.95 - norm*0.30),
	}
	for _, b := range crazinessBands {
		if level <= b.upTo {
			c.Description = b.description
			c.InspirationIntro = b.intro
			break
		}
	}
	return c
}

// Flair is the last comma-separated clause of the description
func (c Craziness) Flair() string {
	parts := strings.Split(c.Description, ",")
	return parts[len(parts)-1]
}

// IntroWord is the first word of the inspiration intro, used in progress output
func (c Craziness) IntroWord() string {
	if f := strings.Fields(c.InspirationIntro); len(f) > 0 {
		return f[0]
	}
	return ""
}
