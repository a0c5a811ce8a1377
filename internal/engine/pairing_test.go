package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
)

func TestPairHelperPrefersGuardian(t *testing.T) {
	principal := member("kid", "Kim", models.SexB)
	principal.ParentIDs = []string{"h"}
	guardian := member("h", "Hal", models.SexA)
	other := member("o", "Olga", models.SexB)

	index := NewHistoryIndex([]models.HistoryEntry{entry("Hal", "Assistant", 1)})
	result := PairHelper(principal, []models.Person{principal, other, guardian}, index, fixedConfig())

	require.NotNil(t, result.Helper)
	assert.Equal(t, "Hal", result.Helper.Person.Name)
	assert.Contains(t, result.Reason, "guardian/relative")
}

func TestPairHelperIgnoresPrincipalsOwnChildren(t *testing.T) {
	principal := member("h", "Hal", models.SexA)
	child := member("kid", "Kim", models.SexB)
	child.ParentIDs = []string{"h"}
	man := member("m", "Max", models.SexA)

	index := NewHistoryIndex([]models.HistoryEntry{entry("Max", "Assistant", 1)})
	result := PairHelper(principal, []models.Person{child, man}, index, fixedConfig())

	require.NotNil(t, result.Helper)
	assert.Equal(t, "Max", result.Helper.Person.Name)
	assert.Equal(t, "same sex category", result.Reason)
}

func TestPairHelperSameSexWhenNoFamily(t *testing.T) {
	principal := member("p", "Pia", models.SexB)
	man := member("m", "Max", models.SexA)
	woman := member("w", "Wen", models.SexB)

	index := NewHistoryIndex([]models.HistoryEntry{entry("Wen", "Assistant", 2)})
	result := PairHelper(principal, []models.Person{man, woman}, index, fixedConfig())

	require.NotNil(t, result.Helper)
	assert.Equal(t, "Wen", result.Helper.Person.Name)
	assert.Equal(t, "same sex category", result.Reason)
}

func TestPairHelperFallsBackToTopRanked(t *testing.T) {
	principal := member("p", "Pia", models.SexB)
	cfg := fixedConfig()
	cfg.PreferFamily = false
	cfg.PreferSameSex = false

	result := PairHelper(principal, []models.Person{member("m", "Max", models.SexA), member("n", "Ned", models.SexA)}, nil, cfg)

	require.NotNil(t, result.Helper)
	assert.Equal(t, "Max", result.Helper.Person.Name)
	assert.Equal(t, "never participated", result.Reason)
}

func TestPairHelperEmptyPool(t *testing.T) {
	principal := member("p", "Pia", models.SexB)

	result := PairHelper(principal, []models.Person{principal}, nil, fixedConfig())

	assert.Nil(t, result.Helper)
	assert.Equal(t, "no eligible helper", result.Reason)
}
