package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona is one isolated document corpus with its own search defaults.
type Persona struct {
	Slug        string   `yaml:"slug"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	TopicTags   []string `yaml:"topic_tags"`

	ExpandEntities bool    `yaml:"expand_entities"`
	TagBoost       float64 `yaml:"tag_boost"`
}

type PersonaRegistry struct {
	personas map[string]Persona
}

// LoadPersonas reads the persona registry from a YAML file. Every slug must
// be unique and non-empty.
func LoadPersonas(path string) (*PersonaRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read personas file: %w", err)
	}
	return ParsePersonas(raw)
}

func ParsePersonas(raw []byte) (*PersonaRegistry, error) {
	var doc struct {
		Personas []Persona `yaml:"personas"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse personas yaml: %w", err)
	}
	if len(doc.Personas) == 0 {
		return nil, fmt.Errorf("personas file defines no personas")
	}

	personas := make(map[string]Persona, len(doc.Personas))
	for _, p := range doc.Personas {
		slug := strings.TrimSpace(p.Slug)
		if slug == "" {
			return nil, fmt.Errorf("persona %q has empty slug", p.Name)
		}
		if _, dup := personas[slug]; dup {
			return nil, fmt.Errorf("duplicate persona slug %q", slug)
		}
		p.Slug = slug
		personas[slug] = p
	}
	return &PersonaRegistry{personas: personas}, nil
}

func (r *PersonaRegistry) Get(slug string) (Persona, bool) {
	p, ok := r.personas[slug]
	return p, ok
}

func (r *PersonaRegistry) Slugs() []string {
	out := make([]string, 0, len(r.personas))
	for slug := range r.personas {
		out = append(out, slug)
	}
	return out
}
