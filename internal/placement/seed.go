package placement

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// seedFile is the YAML document used to populate a MemoryStore in dev mode.
type seedFile struct {
	Students []struct {
		ID     string `yaml:"id"`
		Tokens int    `yaml:"tokens"`
	} `yaml:"students"`
	Companies []struct {
		ID    string `yaml:"id"`
		Quota int    `yaml:"quota"`
	} `yaml:"companies"`
	Jobs []struct {
		ID          string `yaml:"id"`
		Company     string `yaml:"company"`
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		Location    string `yaml:"location"`
		Inactive    bool   `yaml:"inactive"`
	} `yaml:"jobs"`
}

// Seed is a validated set of rows for a fresh MemoryStore.
type Seed struct {
	Students  []Student
	Companies []Company
	Jobs      []Job
}

// LoadSeed reads and validates the seed file at path.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(data, time.Now().UTC())
}

// ParseSeed validates a seed document. Jobs are stamped at now, one second
// apart in file order, so the first listed job is the oldest.
func ParseSeed(data []byte, now time.Time) (Seed, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}

	var seed Seed
	seen := map[string]bool{}
	for _, s := range f.Students {
		id := strings.TrimSpace(s.ID)
		if id == "" || s.Tokens < 0 || seen["s:"+id] {
			return Seed{}, fmt.Errorf("seed student %q: %w", s.ID, ErrInvalidInput)
		}
		seen["s:"+id] = true
		seed.Students = append(seed.Students, Student{ID: id, TokensRemaining: s.Tokens, MaxTokens: s.Tokens})
	}
	for _, c := range f.Companies {
		id := strings.TrimSpace(c.ID)
		if id == "" || c.Quota < 0 || seen["c:"+id] {
			return Seed{}, fmt.Errorf("seed company %q: %w", c.ID, ErrInvalidInput)
		}
		seen["c:"+id] = true
		seed.Companies = append(seed.Companies, Company{ID: id, InterviewQuota: c.Quota})
	}
	for i, j := range f.Jobs {
		id := strings.TrimSpace(j.ID)
		title := strings.TrimSpace(j.Title)
		company := strings.TrimSpace(j.Company)
		if id == "" || title == "" || seen["j:"+id] {
			return Seed{}, fmt.Errorf("seed job %q: %w", j.ID, ErrInvalidInput)
		}
		if !seen["c:"+company] {
			return Seed{}, fmt.Errorf("seed job %q: company %q: %w", j.ID, j.Company, ErrNotFound)
		}
		seen["j:"+id] = true
		seed.Jobs = append(seed.Jobs, Job{
			ID:          id,
			CompanyID:   company,
			Title:       title,
			Description: j.Description,
			Location:    strings.TrimSpace(j.Location),
			IsActive:    !j.Inactive,
			CreatedAt:   now.Add(time.Duration(i-len(f.Jobs)) * time.Second),
		})
	}
	return seed, nil
}

// Apply writes the seed rows into the store, replacing rows with the same id.
func (s Seed) Apply(store *MemoryStore) {
	for _, st := range s.Students {
		store.PutStudent(st)
	}
	for _, c := range s.Companies {
		store.PutCompany(c)
	}
	for _, j := range s.Jobs {
		store.PutJob(j)
	}
}
