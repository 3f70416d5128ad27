package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, dsn string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--db-driver", "sqlite", "--db-dsn", dsn}, args...))
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func TestSeedLedgerAndNotify(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "rentctl.db")

	out := run(t, dsn, "seed", "--migrate", "--file", "testdata/fixtures.yaml")
	assert.Contains(t, out, "users=3 delegations=1 apartments=2 tenants=2 payments=25 marked_paid=2")

	// 再次导入不会产生重复数据
	out = run(t, dsn, "seed", "--file", "testdata/fixtures.yaml")
	assert.Contains(t, out, "users=0 delegations=0 apartments=0 tenants=0 payments=0 marked_paid=0")

	out = run(t, dsn, "ledger", "regenerate")
	assert.Contains(t, out, "Created 0 payment rows.")

	out = run(t, dsn, "notify", "--date", "2025-06-01")
	assert.Contains(t, out, "2025-06-01: contract_starting=1")

	out = run(t, dsn, "migrate")
	assert.Contains(t, out, "Schema is up to date.")
}

func TestNotifyRejectsBadDate(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "rentctl.db")
	run(t, dsn, "migrate")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--db-driver", "sqlite", "--db-dsn", dsn, "notify", "--date", "06/01/2025"})
	assert.Error(t, cmd.Execute())
}

func TestReadFixtures(t *testing.T) {
	f, err := readFixtures("testdata/fixtures.yaml")
	require.NoError(t, err)
	require.Len(t, f.Apartments, 2)
	assert.Equal(t, "eleni", f.Apartments[0].Owner)
	assert.Equal(t, []string{"2025-06", "2025-07"}, f.Apartments[0].Tenants[0].PaidMonths)

	_, err = readFixtures("testdata/missing.yaml")
	assert.Error(t, err)
}
