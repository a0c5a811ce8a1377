// Package dataset reads the YAML files used by the offline CLI: the roster,
// a week's program and imported participation history.
package dataset

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/rvm-assignment-api/internal/dto"
	"github.com/noah-isme/rvm-assignment-api/internal/models"
)

type rosterFile struct {
	Members []member `yaml:"members"`
}

// member decodes a roster entry on top of the defaults for a new member:
// serving, every section allowed and always available.
type member models.Person

func (m *member) UnmarshalYAML(node *yaml.Node) error {
	type plain models.Person
	p := plain(models.Person{
		Serving:      true,
		Sections:     models.AllSections(),
		Availability: models.Availability{Mode: models.AvailabilityAlways},
	})
	if err := node.Decode(&p); err != nil {
		return err
	}
	*m = member(p)
	return nil
}

// RosterFromReader decodes and checks a roster document.
func RosterFromReader(r io.Reader) ([]models.Person, error) {
	var file rosterFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	persons := make([]models.Person, 0, len(file.Members))
	seen := make(map[string]struct{}, len(file.Members))
	for i, m := range file.Members {
		p := models.Person(m)
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("member %d: id and name are required", i+1)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("member %d: duplicate id %q", i+1, p.ID)
		}
		seen[p.ID] = struct{}{}
		switch p.Sex {
		case models.SexA, models.SexB:
		default:
			return nil, fmt.Errorf("member %q: sex must be A or B", p.Name)
		}
		switch p.Availability.Mode {
		case models.AvailabilityAlways, models.AvailabilityNever:
		default:
			return nil, fmt.Errorf("member %q: unknown availability mode %q", p.Name, p.Availability.Mode)
		}
		persons = append(persons, p)
	}
	return persons, nil
}

// RosterFromFile reads a roster document from disk.
func RosterFromFile(path string) ([]models.Person, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return RosterFromReader(f)
}

// ProgramFromReader decodes a week program into a generate request.
// Validation is left to the generation service.
func ProgramFromReader(r io.Reader) (dto.GenerateWeekRequest, error) {
	var req dto.GenerateWeekRequest
	if err := yaml.NewDecoder(r).Decode(&req); err != nil {
		return dto.GenerateWeekRequest{}, fmt.Errorf("decode program: %w", err)
	}
	return req, nil
}

// ProgramFromFile reads a week program from disk.
func ProgramFromFile(path string) (dto.GenerateWeekRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return dto.GenerateWeekRequest{}, err
	}
	defer f.Close()
	return ProgramFromReader(f)
}

// HistoryFromReader decodes an import document.
func HistoryFromReader(r io.Reader) (dto.ImportHistoryRequest, error) {
	var req dto.ImportHistoryRequest
	if err := yaml.NewDecoder(r).Decode(&req); err != nil {
		return dto.ImportHistoryRequest{}, fmt.Errorf("decode history: %w", err)
	}
	return req, nil
}

// HistoryFromFile reads an import document from disk.
func HistoryFromFile(path string) (dto.ImportHistoryRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return dto.ImportHistoryRequest{}, err
	}
	defer f.Close()
	return HistoryFromReader(f)
}
