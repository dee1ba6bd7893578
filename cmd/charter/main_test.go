package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/charter/pkg/api"
	"github.com/Mindburn-Labs/charter/pkg/config"
	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/money"
	"github.com/Mindburn-Labs/charter/pkg/observability"
)

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := Run(append([]string{"charter"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// isolate points every setting at a temp dir so the host environment does
// not leak in.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for k, v := range map[string]string{
		"DATA_DIR":                dir,
		"SQLITE_PATH":             filepath.Join(dir, "journal", "charter.db"),
		"JOURNAL_DRIVER":          "sqlite",
		"CHARTER_OWNER":           "",
		"CHARTER_INITIAL_BALANCE": "10000000000000000000",
		"CHARTER_POLICY_FILE":     "",
		"ARCHIVE_TYPE":            "fs",
		"OTEL_ENABLED":            "",
		"REDIS_ADDR":              "",
		"JWT_SECRET":              "",
		"PORT":                    "0",
		"LOG_LEVEL":               "error",
	} {
		t.Setenv(k, v)
	}
	return dir
}

func TestRun_Help(t *testing.T) {
	code, out, _ := run("help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "USAGE")
	assert.Contains(t, out, "replay")
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, errOut := run("launch")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Unknown command: launch")
}

func TestRun_Version(t *testing.T) {
	code, out, _ := run("version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "charter 1.0.0\n", out)
}

func TestAccounts(t *testing.T) {
	code, out, _ := run("accounts", "-n", "2")
	require.Equal(t, 0, code)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1  "+identity.DevAccounts(2)[1].String(), lines[1])

	code, _, _ = run("accounts", "-n", "0")
	assert.Equal(t, 2, code)
}

func TestDemo(t *testing.T) {
	code, out, errOut := run("demo")
	require.Equal(t, 0, code, errOut)

	for _, want := range []string{
		"Contract deployed successfully: owner " + identity.DevAccounts(1)[0].String() + ", balance 10000000000000000000",
		"User registered successfully: Alice",
		"User registered successfully: Bob",
		"Data stored successfully: key1=value1",
		"Data retrieved successfully: key1=value1",
		"Proposal created successfully: Proposal 1 (id 0)",
		"Vote cast successfully for proposal ID: 0",
		`Proposal retrieved successfully: id=0 description="Proposal 1" votes=1`,
		"Funds distributed successfully: 7500000000000000000 to each of 2 accounts, 0 retained",
		"Journal verified: 6 entries",
	} {
		assert.Contains(t, out, want)
	}
	// the whole balance was distributed, so the final transfer is rejected
	assert.Contains(t, errOut, "Error executing conditional transfer: INSUFFICIENT_FUNDS: ")
}

// seedJournal writes a few committed calls to the configured sqlite journal.
func seedJournal(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	cfg := config.Load()
	d, err := loadDeployment(cfg)
	require.NoError(t, err)

	j, closer, err := openJournal(ctx, cfg.JournalDriver, journalDSN(cfg))
	require.NoError(t, err)
	defer closer.Close()

	e, err := bootEngine(ctx, d, j, observability.NewLogger("error", "text", os.Stderr), nil)
	require.NoError(t, err)

	ids := identity.DevAccounts(3)
	_, err = e.Register(ctx, ids[1], "Alice")
	require.NoError(t, err)
	require.NoError(t, e.StoreData(ctx, ids[1], "key1", "value1"))
	require.NoError(t, e.Deposit(ctx, ids[2], money.Ether(1)))
	return e.StateHash()
}

func TestBootEngine_ResumesFromJournal(t *testing.T) {
	isolate(t)
	want := seedJournal(t)

	ctx := context.Background()
	cfg := config.Load()
	d, err := loadDeployment(cfg)
	require.NoError(t, err)
	j, closer, err := openJournal(ctx, cfg.JournalDriver, journalDSN(cfg))
	require.NoError(t, err)
	defer closer.Close()

	e, err := bootEngine(ctx, d, j, observability.NewLogger("error", "text", os.Stderr), nil)
	require.NoError(t, err)
	assert.Equal(t, want, e.StateHash())

	// appends continue the existing chain
	require.NoError(t, e.Deposit(ctx, identity.DevAccounts(4)[3], money.FromUint64(1)))
	entries, err := j.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestReplayCmd(t *testing.T) {
	isolate(t)
	want := seedJournal(t)

	code, out, errOut := run("replay", "--json")
	require.Equal(t, 0, code, errOut)
	var rep replayReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 3, rep.Entries)
	assert.Equal(t, want, rep.StateHash)
	assert.Len(t, rep.Head, 64)

	code, out, _ = run("replay")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Journal verified: 3 entries")
}

func TestReplayCmd_WrongDeployment(t *testing.T) {
	isolate(t)
	seedJournal(t)
	t.Setenv("CHARTER_INITIAL_BALANCE", "1")

	code, _, errOut := run("replay")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Replay failed")
}

func TestReplayCmd_BadDriver(t *testing.T) {
	isolate(t)
	code, _, errOut := run("replay", "--driver", "oracle", "--journal", "x")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unsupported journal driver")
}

func TestSnapshotCmd(t *testing.T) {
	dir := isolate(t)
	seedJournal(t)

	code, out, errOut := run("snapshot")
	require.Equal(t, 0, code, errOut)
	hash := strings.TrimSpace(out)
	require.True(t, strings.HasPrefix(hash, "sha256:"), hash)

	data, err := os.ReadFile(filepath.Join(dir, "snapshots", strings.TrimPrefix(hash, "sha256:")+".json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"display_name":"Alice"`)

	// identical state archives to the same address
	code, again, _ := run("snapshot")
	require.Equal(t, 0, code)
	assert.Equal(t, out, again)
}

func TestRestoreCmd(t *testing.T) {
	dir := isolate(t)
	want := seedJournal(t)

	code, out, errOut := run("snapshot")
	require.Equal(t, 0, code, errOut)
	hash := strings.TrimSpace(out)
	assert.Equal(t, "sha256:"+want, hash, "archive address is the state hash")

	code, out, errOut = run("restore", "--json", hash)
	require.Equal(t, 0, code, errOut)
	var rep restoreReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, want, rep.StateHash)
	assert.Equal(t, 1, rep.Accounts)
	assert.Equal(t, "11000000000000000000", rep.Balance)

	// a snapshot edited after archiving no longer matches its address
	path := filepath.Join(dir, "snapshots", want+".json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(data), "value1", "forged", 1)), 0o600))
	code, _, errOut = run("restore", hash)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Restore failed")

	code, _, _ = run("restore")
	assert.Equal(t, 2, code)
	code, _, _ = run("restore", "sha256:"+strings.Repeat("0", 64))
	assert.Equal(t, 1, code)
}

func TestTokenCmd(t *testing.T) {
	isolate(t)
	id := identity.DevAccounts(2)[1]

	code, _, errOut := run("token", id.String())
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	code, out, _ := run("token", "--ttl", "5m", id.String())
	require.Equal(t, 0, code)

	req := httptest.NewRequest("POST", "/v1/calls/register", nil)
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(out))
	got, err := api.NewAuthenticator("s3cret").Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	code, _, _ = run("token", "not-an-address")
	assert.Equal(t, 2, code)
}

func TestServe_GracefulShutdown(t *testing.T) {
	isolate(t)
	t.Setenv("JOURNAL_DRIVER", "memory")
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	var stdout, stderr bytes.Buffer
	err := serve(ctx, cfg, &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Charter listening on")
}

func TestLoadDeployment_Errors(t *testing.T) {
	isolate(t)

	t.Setenv("CHARTER_OWNER", "0x1234")
	_, err := loadDeployment(config.Load())
	assert.ErrorContains(t, err, "CHARTER_OWNER")

	t.Setenv("CHARTER_OWNER", "")
	t.Setenv("CHARTER_INITIAL_BALANCE", "-5")
	_, err = loadDeployment(config.Load())
	assert.ErrorContains(t, err, "CHARTER_INITIAL_BALANCE")
}
