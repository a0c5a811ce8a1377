package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rvm-assignment-api/internal/dto"
	"github.com/noah-isme/rvm-assignment-api/internal/models"
	"github.com/noah-isme/rvm-assignment-api/internal/service"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestGenerateThenReviewOnSQLite(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "assignments.db")
	roster := writeFile(t, dir, "roster.yaml", `
members:
  - {id: a, name: Alan, sex: A, baptized: true, privileges: {talks: true}}
  - {id: b, name: Bruno, sex: A, baptized: true}
`)
	program := writeFile(t, dir, "program.yaml", `
weekId: 2024-w10
date: 2024-03-07
parts:
  - {title: Talk, type: TREASURES}
`)

	out, err := runCLI(t, "--db", db, "generate", "--roster", roster, "--program", program)
	require.NoError(t, err)
	var generated dto.GenerateWeekResponse
	require.NoError(t, json.Unmarshal([]byte(out), &generated))
	require.Len(t, generated.Assignments, 1)
	assignment := generated.Assignments[0]
	assert.Equal(t, "Alan", assignment.PrincipalName)
	assert.Equal(t, models.AssignmentStatusPendingApproval, assignment.Status)

	out, err = runCLI(t, "--db", db, "pending")
	require.NoError(t, err)
	assert.Contains(t, out, assignment.ID)

	_, err = runCLI(t, "--db", db, "act", assignment.ID, "APPROVE", "--as", "Elder Smith")
	require.NoError(t, err)
	_, err = runCLI(t, "--db", db, "act", assignment.ID, "COMPLETE")
	require.NoError(t, err)

	out, err = runCLI(t, "--db", db, "promote")
	require.NoError(t, err)
	var result models.PromotionResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{assignment.ID}, result.Promoted)

	out, err = runCLI(t, "--db", db, "stats")
	require.NoError(t, err)
	var stats []models.PersonStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Len(t, stats, 2)
	assert.Equal(t, "Alan", stats[1].PersonName)
	assert.Equal(t, 1, stats[1].TotalAssignments)
}

func TestActRejectsUnknownAction(t *testing.T) {
	_, err := runCLI(t, "--store", "memory", "act", "missing", "ARCHIVE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action")
}

func TestTokenCommandIssuesVerifiableToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	out, err := runCLI(t, "--store", "memory", "token", "--user", "u-9", "--name", "Elder Smith", "--role", "approver")
	require.NoError(t, err)

	var payload struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "cli-secret", Issuer: "rvm-assignment-api"})
	claims, err := auth.ValidateToken(payload.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-9", claims.UserID)
	assert.Equal(t, models.RoleApprover, claims.Role)
}
