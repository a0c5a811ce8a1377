package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
)

// PersonRepository reads the roster maintained by roster management.
type PersonRepository struct {
	db *sqlx.DB
}

// NewPersonRepository constructs the repository.
func NewPersonRepository(db *sqlx.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

type personRow struct {
	ID                    string         `db:"id"`
	Name                  string         `db:"name"`
	Sex                   string         `db:"sex"`
	Baptized              bool           `db:"baptized"`
	Serving               bool           `db:"serving"`
	AgeGroup              string         `db:"age_group"`
	ParentIDs             types.JSONText `db:"parent_ids"`
	Privileges            types.JSONText `db:"privileges"`
	Sections              types.JSONText `db:"sections"`
	Availability          types.JSONText `db:"availability"`
	HelperOnly            bool           `db:"helper_only"`
	NotQualified          bool           `db:"not_qualified"`
	DeclinedParticipation bool           `db:"declined_participation"`
	NeedsApproval         bool           `db:"needs_approval"`
}

func (row personRow) toModel() (models.Person, error) {
	person := models.Person{
		ID:                    row.ID,
		Name:                  row.Name,
		Sex:                   models.SexCategory(row.Sex),
		Baptized:              row.Baptized,
		Serving:               row.Serving,
		AgeGroup:              models.AgeGroup(row.AgeGroup),
		HelperOnly:            row.HelperOnly,
		NotQualified:          row.NotQualified,
		DeclinedParticipation: row.DeclinedParticipation,
		NeedsApproval:         row.NeedsApproval,
		Sections:              models.AllSections(),
		Availability:          models.Availability{Mode: models.AvailabilityAlways},
	}
	targets := []struct {
		raw  types.JSONText
		dest interface{}
	}{
		{row.ParentIDs, &person.ParentIDs},
		{row.Privileges, &person.Privileges},
		{row.Sections, &person.Sections},
		{row.Availability, &person.Availability},
	}
	for _, target := range targets {
		if len(target.raw) == 0 || string(target.raw) == "{}" || string(target.raw) == "null" {
			continue
		}
		if err := json.Unmarshal(target.raw, target.dest); err != nil {
			return models.Person{}, fmt.Errorf("decode person %s: %w", row.ID, err)
		}
	}
	return person, nil
}

// ListPersons returns the full roster ordered by name.
func (r *PersonRepository) ListPersons(ctx context.Context) ([]models.Person, error) {
	const query = `SELECT id, name, sex, baptized, serving, age_group, parent_ids, privileges, sections, availability,
       helper_only, not_qualified, declined_participation, needs_approval
	FROM persons ORDER BY name ASC, id ASC`
	var rows []personRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	persons := make([]models.Person, 0, len(rows))
	for _, row := range rows {
		person, err := row.toModel()
		if err != nil {
			return nil, err
		}
		persons = append(persons, person)
	}
	return persons, nil
}
