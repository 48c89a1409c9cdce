package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salmonumbrella/pms-cli/internal/api"
	"github.com/salmonumbrella/pms-cli/internal/apitest"
	"github.com/salmonumbrella/pms-cli/internal/secrets"
	"github.com/salmonumbrella/pms-cli/internal/table"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// cliEnv describes the surroundings of one CLI run.
type cliEnv struct {
	srv    *apitest.Server
	config string
	// store replaces the keyring. Without it the keyring is unavailable
	// and runs against srv authenticate with --token.
	store secrets.Store
	stdin string
	env   map[string]string
}

// runCLI executes the root command against srv with a plain token and an
// isolated config file. configYAML is written to that file.
func runCLI(t *testing.T, srv *apitest.Server, configYAML string, args ...string) cliResult {
	t.Helper()
	return runCLIEnv(t, cliEnv{srv: srv, config: configYAML}, args...)
}

func runCLIEnv(t *testing.T, e cliEnv, args ...string) cliResult {
	t.Helper()
	restore := snapshotCLIState()
	defer restore()

	out := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	in := bytes.NewBufferString(e.stdin)

	rootCmd.SetOut(out)
	rootCmd.SetErr(errBuf)
	rootCmd.SetIn(in)
	rootCmd.SetContext(withIO(context.Background(), in, out, errBuf))

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(e.config), 0o644))

	prevEnvGet := envGet
	envGet = func(key string) string { return e.env[key] }
	defer func() { envGet = prevEnvGet }()

	prevDotEnv := loadDotEnvFunc
	loadDotEnvFunc = func() error { return nil }
	defer func() { loadDotEnvFunc = prevDotEnv }()

	prevStore := openSecretsStore
	openSecretsStore = func() (secrets.Store, error) {
		if e.store == nil {
			return nil, errors.New("no keyring in tests")
		}
		return e.store, nil
	}
	defer func() { openSecretsStore = prevStore }()

	full := []string{"--config", cfgPath}
	if e.srv != nil {
		full = append(full, "--base-url", e.srv.URL)
		if e.store == nil {
			full = append(full, "--token", "tok")
		}
	}
	rootCmd.SetArgs(append(full, args...))

	err := rootCmd.Execute()
	return cliResult{stdout: out.String(), stderr: errBuf.String(), err: err}
}

func decodeRowsOutput(t *testing.T, s string) []map[string]interface{} {
	t.Helper()
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &rows), "output: %s", s)
	return rows
}

func TestCLIListJSONSortsRows(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Seed("rooms",
		map[string]interface{}{"id": 1, "number": "102", "status": "clean"},
		map[string]interface{}{"id": 2, "number": "101", "status": "dirty"},
		map[string]interface{}{"id": 3, "status": "clean"},
	)

	res := runCLI(t, srv, "", "--output", "json", "list", "rooms", "--sort", "number")
	require.NoError(t, res.err)

	rows := decodeRowsOutput(t, res.stdout)
	require.Len(t, rows, 3)
	// Rows without a number come first.
	assert.EqualValues(t, 3, rows[0]["id"])
	assert.Equal(t, "101", rows[1]["number"])
	assert.Equal(t, "102", rows[2]["number"])

	reqs := srv.Requests()
	require.NotEmpty(t, reqs)
	assert.Equal(t, "50", reqs[0].Query.Get("page_size"))
}

func TestCLIListTextUsesSchemaHeaders(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Seed("rooms", map[string]interface{}{"id": 1, "number": "101", "floor": 1, "status": "clean"})

	res := runCLI(t, srv, "", "--output", "text", "list", "rooms")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Número")
	assert.Contains(t, res.stdout, "Estado")
	assert.Contains(t, res.stdout, "clean")
}

func TestCLIListTextShowsEmptyPlaceholder(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Seed("rooms")

	res := runCLI(t, srv, "", "--output", "text", "list", "rooms")
	require.NoError(t, res.err)

	lines := strings.Split(strings.TrimRight(res.stdout, "\n"), "\n")
	require.Len(t, lines, 2, "output: %q", res.stdout)
	assert.Contains(t, lines[0], "Número")
	assert.Equal(t, table.DefaultEmptyMessage, strings.TrimSpace(lines[1]))

	res = runCLI(t, srv, "", "--output", "json", "list", "rooms")
	require.NoError(t, res.err)
	assert.NotContains(t, res.stdout, table.DefaultEmptyMessage)
}

func TestCLIListFiltersAndSearch(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Seed("rooms",
		map[string]interface{}{"id": 1, "number": "101", "status": "clean"},
		map[string]interface{}{"id": 2, "number": "201", "status": "dirty"},
		map[string]interface{}{"id": 3, "number": "202", "status": "clean"},
	)

	res := runCLI(t, srv, "", "-o", "json", "list", "rooms", "--param", "status=clean", "--search", "20")
	require.NoError(t, res.err)
	rows := decodeRowsOutput(t, res.stdout)
	require.Len(t, rows, 1)
	assert.Equal(t, "202", rows[0]["number"])
}

func TestCLIListAllFollowsPages(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Seed("guests",
		map[string]interface{}{"id": 1, "last_name": "Ruiz"},
		map[string]interface{}{"id": 2, "last_name": "Paz"},
		map[string]interface{}{"id": 3, "last_name": "Soto"},
	)

	res := runCLI(t, srv, "page_size: 1\n", "-o", "json", "list", "guests")
	require.NoError(t, res.err)
	assert.Len(t, decodeRowsOutput(t, res.stdout), 1)

	res = runCLI(t, srv, "page_size: 1\n", "-o", "json", "list", "guests", "--all")
	require.NoError(t, res.err)
	assert.Len(t, decodeRowsOutput(t, res.stdout), 3)
}

func TestCLIListRejectsUnknownSortKey(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Seed("rooms", map[string]interface{}{"id": 1, "number": "101"})

	res := runCLI(t, srv, "", "-o", "json", "list", "rooms", "--sort", "price")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "cannot sort rooms")
}

func TestCLIGetNotFound(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Seed("rooms", map[string]interface{}{"id": 1, "number": "101"})

	res := runCLI(t, srv, "", "-o", "json", "get", "rooms", "99")
	require.Error(t, res.err)
	var nf api.NotFoundError
	assert.True(t, errors.As(res.err, &nf))
}

func TestCLICreateUpdateDelete(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Seed("guests")

	res := runCLI(t, srv, "", "-o", "json", "create", "guests", "--data", `{"first_name":"Ana","last_name":"Ruiz"}`)
	require.NoError(t, res.err)
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &created))
	assert.EqualValues(t, 1, created["id"])
	assert.Equal(t, "Ana", created["first_name"])

	res = runCLI(t, srv, "", "-o", "json", "update", "guests", "1", "--data", `{"last_name":"Paz"}`)
	require.NoError(t, res.err)
	guests := srv.Entities("guests")
	require.Len(t, guests, 1)
	assert.Equal(t, "Paz", guests[0]["last_name"])
	assert.Equal(t, "Ana", guests[0]["first_name"])

	res = runCLI(t, srv, "", "-o", "json", "--yes", "delete", "guests", "1")
	require.NoError(t, res.err)
	assert.Empty(t, srv.Entities("guests"))
	assert.Contains(t, res.stdout, `"deleted"`)
}

func TestCLICreateRequiresData(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	res := runCLI(t, srv, "", "-o", "json", "create", "guests")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "--data is required")
	assert.Zero(t, srv.CountRequests("POST", "/api/guests/"))
}

func TestCLIDeleteShowsUnwrappedServerMessage(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Seed("rooms", map[string]interface{}{"id": 42, "number": "101"})
	srv.Fail("DELETE", "/api/rooms/42/", 400, `{"message":"['Cannot delete room with active reservation']"}`)

	res := runCLI(t, srv, "", "-o", "json", "--yes", "delete", "rooms", "42")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "Cannot delete room with active reservation")
	assert.NotContains(t, res.stderr, "['")
	assert.Len(t, srv.Entities("rooms"), 1)
}

func TestCLIDeleteAbortsWithoutConfirmation(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Seed("rooms", map[string]interface{}{"id": 42, "number": "101"})

	res := runCLI(t, srv, "", "-o", "json", "delete", "rooms", "42")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "Aborted.")
	assert.Zero(t, srv.CountRequests("DELETE", "/api/rooms/42/"))
}

func TestCLIActionDispatch(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Seed("reservations", map[string]interface{}{"id": 5, "status": "confirmed"})
	srv.HandleAction("reservations", "check-in", true, func(entity, body map[string]interface{}) (int, interface{}) {
		entity["status"] = "checked_in"
		return 200, entity
	})

	res := runCLI(t, srv, "", "-o", "json", "action", "reservations", "5", "check-in")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "checked_in")
	assert.Equal(t, 1, srv.CountRequests("POST", "/api/reservations/5/check-in/"))

	res = runCLI(t, srv, "", "-o", "json", "action", "reservations", "check-in")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "requires an id")
}

func TestCLIPaymentsSummary(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Seed("reservations", map[string]interface{}{"id": 7, "total_amount": "100.00"})
	srv.Seed("payments",
		map[string]interface{}{"id": 1, "reservation": 7, "amount": "60.00", "status": "completed", "is_deposit": true},
		map[string]interface{}{"id": 2, "reservation": 7, "amount": "25.00", "status": "failed"},
		map[string]interface{}{"id": 3, "reservation": 8, "amount": "99.00", "status": "completed"},
	)
	srv.Seed("refunds")

	res := runCLI(t, srv, "", "-o", "json", "payments", "summary", "7")
	require.NoError(t, res.err)

	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &summary))
	assert.Equal(t, "partial", summary["status"])
	assert.Equal(t, "40", summary["balance"])
	assert.Equal(t, "60", summary["deposit_paid"])
}

func TestCLIRequiresAuthentication(t *testing.T) {
	res := runCLI(t, nil, "", "-o", "json", "list", "rooms")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "authentication required")
}

func TestCLIResourcesWorksOffline(t *testing.T) {
	res := runCLI(t, nil, "", "-o", "json", "resources")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "housekeeping/tasks")

	res = runCLI(t, nil, "", "-o", "json", "resources", "notifications")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "mark-all-read")
	assert.Contains(t, res.stdout, "/api/notifications/mark-all-read/")

	res = runCLI(t, nil, "", "resources", "spaceships")
	require.Error(t, res.err)
}

func snapshotCLIState() func() {
	prevBaseURL := baseURL
	prevToken := apiToken
	prevOutputFmt := outputFmt
	prevOutputType := outputType
	prevDebug := debug
	prevConfig := configFile
	prevQueryExpr := queryExpr
	prevQueryFile := queryFile
	prevErrorFmt := errorFmt
	prevQuiet := quietFlag
	prevYes := yesFlag
	prevResultLimit := resultLimit
	prevResultSort := resultSort
	prevResultDesc := resultDesc
	prevClient := client
	prevPageSize := pageSize

	prevOut := rootCmd.OutOrStdout()
	prevErr := rootCmd.ErrOrStderr()
	prevIn := rootCmd.InOrStdin()
	prevCtx := rootCmd.Context()

	return func() {
		baseURL = prevBaseURL
		apiToken = prevToken
		outputFmt = prevOutputFmt
		outputType = prevOutputType
		debug = prevDebug
		configFile = prevConfig
		queryExpr = prevQueryExpr
		queryFile = prevQueryFile
		errorFmt = prevErrorFmt
		quietFlag = prevQuiet
		yesFlag = prevYes
		resultLimit = prevResultLimit
		resultSort = prevResultSort
		resultDesc = prevResultDesc
		client = prevClient
		pageSize = prevPageSize

		// Command flags keep their values between executions.
		listParamFlags, listSearch, listSort, listDesc, listAll, listPage = nil, "", "", false, false, 0
		browseParamFlags, browseSearch = nil, ""
		createData, updateData, actionData, actionMethod = "", "", "", ""
		loginUsername, passwordStdin, authProfile, verifyAuth = "", false, defaultProfile, false

		rootCmd.SetOut(prevOut)
		rootCmd.SetErr(prevErr)
		rootCmd.SetIn(prevIn)
		rootCmd.SetContext(prevCtx)
		rootCmd.SetArgs(nil)
		resetAllFlagChanges(rootCmd)
	}
}

func resetAllFlagChanges(cmd *cobra.Command) {
	resetFlagChanges(cmd)
	for _, sub := range cmd.Commands() {
		resetAllFlagChanges(sub)
	}
}

func resetFlagChanges(cmdFlagSet interface {
	Flags() *pflag.FlagSet
	PersistentFlags() *pflag.FlagSet
	InheritedFlags() *pflag.FlagSet
},
) {
	if cmdFlagSet == nil {
		return
	}
	cmdFlagSet.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
	})
	cmdFlagSet.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
	})
	cmdFlagSet.InheritedFlags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
	})
}

func TestRunCLIIsolatesCommandFlags(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Seed("rooms", map[string]interface{}{"id": 1, "number": "101", "status": "clean"})

	res := runCLI(t, srv, "", "-o", "json", "list", "rooms", "--param", "status=dirty")
	require.NoError(t, res.err)
	assert.Empty(t, decodeRowsOutput(t, res.stdout))

	res = runCLI(t, srv, "", "-o", "json", "list", "rooms")
	require.NoError(t, res.err)
	assert.Len(t, decodeRowsOutput(t, res.stdout), 1)
	assert.False(t, strings.Contains(res.stdout, "dirty"))
}
