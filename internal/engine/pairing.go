package engine

import "github.com/noah-isme/rvm-assignment-api/internal/models"

// PairingResult is the chosen assistant, if any, with the justification.
type PairingResult struct {
	Helper *RankedCandidate
	Reason string
}

// PairHelper picks an assistant for principal from pool. The pool is ranked
// with the HELPER weight; a guardian listed in the principal's ParentIDs
// comes first, then members of the same sex category, then the top-ranked
// candidate.
func PairHelper(principal models.Person, pool []models.Person, index *HistoryIndex, cfg Config) PairingResult {
	candidates := make([]models.Person, 0, len(pool))
	for _, person := range pool {
		if samePerson(person, principal) {
			continue
		}
		candidates = append(candidates, person)
	}
	if len(candidates) == 0 {
		return PairingResult{Reason: "no eligible helper"}
	}

	ranked := Rank(candidates, index, HelperProfile(), models.RoleCategoryHelper, cfg)

	if cfg.PreferFamily {
		for i := range ranked {
			if isFamily(principal, ranked[i].Person) {
				return PairingResult{Helper: &ranked[i], Reason: "guardian/relative of principal"}
			}
		}
	}
	if cfg.PreferSameSex {
		for i := range ranked {
			if ranked[i].Person.Sex == principal.Sex {
				return PairingResult{Helper: &ranked[i], Reason: "same sex category"}
			}
		}
	}
	return PairingResult{Helper: &ranked[0], Reason: ranked[0].Reason}
}

// isFamily only looks from the principal to its guardians, not the reverse.
func isFamily(principal, candidate models.Person) bool {
	if candidate.ID == "" || len(principal.ParentIDs) == 0 {
		return false
	}
	return principal.HasParent(candidate.ID)
}

func samePerson(a, b models.Person) bool {
	if a.ID != "" && a.ID == b.ID {
		return true
	}
	return models.NormalizeName(a.Name) != "" && models.NormalizeName(a.Name) == models.NormalizeName(b.Name)
}
