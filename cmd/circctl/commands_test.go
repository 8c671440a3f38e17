package main

import (
	"bytes"
	"testing"

	"github.com/librahub/backend/internal/services"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{{"migrate"}, {"sweep"}, {"member", "create"}} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestMemberCreate_RejectsUnknownRole(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--config", t.TempDir() + "/none.env", "member", "create", "--username", "jdoe", "--role", "janitor"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown role "janitor"`)
}

func TestPrintSweepResults(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	printSweepResults(cmd, []services.SweepResult{
		{Name: services.SweepCheckOverdue, Affected: 3},
		{Name: services.SweepExpirePickups, Skipped: true},
		{Name: services.SweepAssignCopies, Error: "db down"},
	})

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Contains(t, string(lines[1]), "check-overdue-loans")
	assert.Contains(t, string(lines[1]), "ok")
	assert.Contains(t, string(lines[2]), "skipped")
	assert.Contains(t, string(lines[3]), "failed: db down")
}
