// Package questions serves the static interview question bank.
package questions

import (
	_ "embed"
	"fmt"
	"math/rand/v2"

	"gopkg.in/yaml.v3"
)

//go:embed bank.yaml
var bankYAML []byte

// Question is one interview question attributed to a company and role.
type Question struct {
	Company  string `yaml:"company" json:"company"`
	Role     string `yaml:"role" json:"role"`
	Question string `yaml:"question" json:"question"`
}

type bankFile struct {
	RoleBasedQuestions []Question `yaml:"role_based_questions"`
}

// Bank is the loaded, immutable question bank.
type Bank struct {
	all []Question
}

// Load parses the embedded question bank.
func Load() (*Bank, error) {
	var f bankFile
	if err := yaml.Unmarshal(bankYAML, &f); err != nil {
		return nil, fmt.Errorf("op=questions.Load: %w", err)
	}
	if len(f.RoleBasedQuestions) == 0 {
		return nil, fmt.Errorf("op=questions.Load: empty bank")
	}
	return &Bank{all: f.RoleBasedQuestions}, nil
}

// All returns every question in bank order.
func (b *Bank) All() []Question {
	out := make([]Question, len(b.all))
	copy(out, b.all)
	return out
}

// Random picks a random question for the role. An empty role, or a role with
// no questions, falls back to the whole bank.
func (b *Bank) Random(role string) Question {
	pool := b.all
	if role != "" {
		filtered := make([]Question, 0, len(b.all))
		for _, q := range b.all {
			if q.Role == role {
				filtered = append(filtered, q)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		}
	}
	return pool[rand.IntN(len(pool))]
}
