package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"

	"studytrack/internal/models"
	"studytrack/internal/progress"
)

//go:embed achievements.yaml
var achievementsYAML []byte

//go:embed syllabus.yaml
var syllabusYAML []byte

// AchievementCatalog decodes the built-in achievement definitions.
func AchievementCatalog() ([]models.Achievement, error) {
	var doc struct {
		Achievements []models.Achievement `yaml:"achievements"`
	}
	if err := yaml.Unmarshal(achievementsYAML, &doc); err != nil {
		return nil, fmt.Errorf("decode achievement catalog: %w", err)
	}
	seen := make(map[string]bool, len(doc.Achievements))
	for _, a := range doc.Achievements {
		switch a.RequirementType {
		case models.RequirementStreak, models.RequirementMinutes, models.RequirementModules:
		default:
			return nil, fmt.Errorf("achievement %q: unknown requirement type %q", a.Name, a.RequirementType)
		}
		if a.RequirementValue <= 0 {
			return nil, fmt.Errorf("achievement %q: requirement value must be positive", a.Name)
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("achievement %q defined twice", a.Name)
		}
		seen[a.Name] = true
	}
	return doc.Achievements, nil
}

// UpsertAchievements keys the catalog by name, so editing a threshold in the
// YAML updates the row in place and earned rows keep pointing at it.
func UpsertAchievements(ctx context.Context, db *sqlx.DB, catalog []models.Achievement) error {
	for _, a := range catalog {
		_, err := db.NamedExecContext(ctx, `
			INSERT INTO achievements (name, description, icon, requirement_type, requirement_value)
			VALUES (:name, :description, :icon, :requirement_type, :requirement_value)
			ON CONFLICT (name) DO UPDATE SET
				description = EXCLUDED.description,
				icon = EXCLUDED.icon,
				requirement_type = EXCLUDED.requirement_type,
				requirement_value = EXCLUDED.requirement_value`, a)
		if err != nil {
			return fmt.Errorf("upsert achievement %q: %w", a.Name, err)
		}
	}
	return nil
}

type SeedSubject struct {
	Name   string      `yaml:"subject"`
	Topics []SeedTopic `yaml:"topics"`
}

type SeedTopic struct {
	Name     string
	Estimate int
}

// UnmarshalYAML accepts a bare topic name or a {name, estimate} mapping where
// estimate is a time string like "12h".
func (t *SeedTopic) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		t.Name = n.Value
		return nil
	}
	var raw struct {
		Name     string `yaml:"name"`
		Estimate string `yaml:"estimate"`
	}
	if err := n.Decode(&raw); err != nil {
		return err
	}
	t.Name = raw.Name
	t.Estimate = progress.ParseTime(raw.Estimate)
	return nil
}

// DefaultSyllabus is the syllabus loaded by the seed command.
func DefaultSyllabus() ([]SeedSubject, error) {
	var doc struct {
		DefaultEstimate string        `yaml:"default_estimate"`
		Subjects        []SeedSubject `yaml:"subjects"`
	}
	if err := yaml.Unmarshal(syllabusYAML, &doc); err != nil {
		return nil, fmt.Errorf("decode default syllabus: %w", err)
	}
	def := progress.ParseTime(doc.DefaultEstimate)
	for i := range doc.Subjects {
		for j := range doc.Subjects[i].Topics {
			if doc.Subjects[i].Topics[j].Estimate == 0 {
				doc.Subjects[i].Topics[j].Estimate = def
			}
		}
	}
	return doc.Subjects, nil
}
