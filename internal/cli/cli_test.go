package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/stowage/internal/core/domain"
	"github.com/artpar/stowage/internal/core/validation"
)

const cliTestPlan = `{
  "vesselId": "CLI-1",
  "bayDetails": [
    {"bayNumber": "01", "isReeferReady": true, "rows": [
      {"rowNumber": "01", "maxTiers": 3, "maxWeightKg": 20000},
      {"rowNumber": "02", "maxTiers": 3, "maxWeightKg": 20000}
    ]},
    {"bayNumber": "02", "rows": [
      {"rowNumber": "01", "maxTiers": 2, "maxWeightKg": 20000}
    ]}
  ],
  "assignment": [
    {"containerId": "C1", "bay": "01", "row": "01", "tier": 3, "pod": "1", "weightKg": 8000},
    {"containerId": "L1", "bay": "01", "row": "01", "tier": 2, "pod": "1", "weightKg": 500},
    {"containerId": "C2", "bay": "01", "row": "02", "tier": 3, "pod": "1", "weightKg": 15000},
    {"containerId": "H1", "bay": "02", "row": "01", "tier": 2, "pod": "1", "weightKg": 1000, "isHazardous": true}
  ]
}`

const cliTestPlanYAML = `vesselId: CLI-Y
bayDetails:
  - bayNumber: "01"
    rows:
      - rowNumber: "01"
        maxTiers: 2
        maxWeightKg: 10000
assignment:
  - containerId: R1
    bay: "01"
    row: "01"
    tier: 2
    pod: A
    weightKg: 100
`

// =============================================================================
// Test Helpers
// =============================================================================

func writePlan(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

type result struct {
	stdout string
	stderr string
	code   int
}

func run(t *testing.T, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	code := Execute(root)
	return result{stdout: out.String(), stderr: errOut.String(), code: code}
}

// =============================================================================
// lint
// =============================================================================

func TestLint(t *testing.T) {
	path := writePlan(t, "plan.json", cliTestPlan)

	res := run(t, "lint", path)
	assert.Equal(t, int(ExitOK), res.code, res.stderr)
	assert.Equal(t, "OK CLI-1: 2 bays, 8 slots, 4 containers\n", res.stdout)
}

func TestLint_JSON(t *testing.T) {
	path := writePlan(t, "plan.yaml", cliTestPlanYAML)

	res := run(t, "lint", path, "--json")
	require.Equal(t, int(ExitOK), res.code, res.stderr)

	var report lintReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	assert.Equal(t, lintReport{
		Valid:      true,
		VesselID:   "CLI-Y",
		Bays:       1,
		Slots:      2,
		Containers: 1,
	}, report)
}

func TestLint_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		code     ExitCode
		contains string
	}{
		{
			name:     "malformed json",
			file:     "plan.json",
			content:  `{"vesselId": `,
			code:     ExitInvalidPlan,
			contains: "cannot decode plan",
		},
		{
			name:     "missing vessel id",
			file:     "plan.json",
			content:  `{"bayDetails": [{"bayNumber": "01", "rows": [{"rowNumber": "01", "maxTiers": 1, "maxWeightKg": 10}]}], "assignment": []}`,
			code:     ExitInvalidPlan,
			contains: "vesselId",
		},
		{
			name: "colliding location codes",
			file: "plan.json",
			content: `{"vesselId": "X", "bayDetails": [
			  {"bayNumber": 1, "rows": [{"rowNumber": 23, "maxTiers": 1, "maxWeightKg": 10}]},
			  {"bayNumber": 12, "rows": [{"rowNumber": 3, "maxTiers": 1, "maxWeightKg": 10}]}], "assignment": []}`,
			code:     ExitInvalidPlan,
			contains: "location codes collide",
		},
		{
			name: "assignment outside the vessel",
			file: "plan.json",
			content: `{"vesselId": "X", "bayDetails": [{"bayNumber": "01", "rows": [{"rowNumber": "01", "maxTiers": 1, "maxWeightKg": 10}]}],
			  "assignment": [{"containerId": "A", "bay": "09", "row": "01", "tier": 1, "pod": "1", "weightKg": 1}]}`,
			code:     ExitInvalidPlan,
			contains: "plan integrity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePlan(t, tt.file, tt.content)

			res := run(t, "lint", path)
			assert.Equal(t, int(tt.code), res.code)
			assert.Empty(t, res.stdout)
			assert.Contains(t, res.stderr, tt.contains)
		})
	}
}

func TestLint_StackingWarnings(t *testing.T) {
	path := writePlan(t, "plan.json", `{"vesselId": "W", "bayDetails": [{"bayNumber": "01", "rows": [{"rowNumber": "01", "maxTiers": 2, "maxWeightKg": 30000}]}],
	  "assignment": [
	    {"containerId": "HEAVY", "bay": "01", "row": "01", "tier": 1, "pod": "1", "weightKg": 20000},
	    {"containerId": "LIGHT", "bay": "01", "row": "01", "tier": 2, "pod": "1", "weightKg": 1000}
	  ]}`)

	res := run(t, "lint", path)
	require.Equal(t, int(ExitOK), res.code, res.stderr)
	assert.Contains(t, res.stdout, "OK W: 1 bays, 2 slots, 2 containers\n")
	assert.Contains(t, res.stdout, "warning: HEAVY at 0101001:")
	assert.Contains(t, res.stdout, "(WeightStackViolationBelow)")

	res = run(t, "lint", path, "--json")
	require.Equal(t, int(ExitOK), res.code, res.stderr)
	var report lintReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	assert.True(t, report.Valid)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "LIGHT", report.Warnings[0].Rejection.BlockingContainerID)
}

func TestLint_MissingFile(t *testing.T) {
	res := run(t, "lint", filepath.Join(t.TempDir(), "absent.json"))
	assert.Equal(t, int(ExitGeneralError), res.code)
	assert.Contains(t, res.stderr, "cannot open plan")
}

func TestLint_RequiresArgument(t *testing.T) {
	res := run(t, "lint")
	assert.Equal(t, int(ExitGeneralError), res.code)
	assert.Contains(t, res.stderr, "Error:")
}

// =============================================================================
// check
// =============================================================================

func TestCheck(t *testing.T) {
	path := writePlan(t, "plan.json", cliTestPlan)

	tests := []struct {
		name       string
		args       []string
		code       ExitCode
		wantReason validation.Reason
	}{
		{"accepted", []string{"--container", "C1", "--bay", "01", "--row", "02", "--tier", "2"}, ExitOK, ""},
		{"cumulative column weight", []string{"--container", "C1", "--bay", "01", "--row", "02", "--tier", "2", "--cumulative-weight"}, ExitMoveRejected, validation.ReasonRowWeightExceeded},
		{"occupied", []string{"--container", "C1", "--bay", "01", "--row", "02", "--tier", "3"}, ExitMoveRejected, validation.ReasonSlotOccupied},
		{"unknown bay", []string{"--container", "C1", "--bay", "09", "--row", "01", "--tier", "1"}, ExitMoveRejected, validation.ReasonUnknownBay},
		{"tier out of range", []string{"--container", "C1", "--bay", "01", "--row", "01", "--tier", "4"}, ExitMoveRejected, validation.ReasonTierOutOfRange},
		{"next to hazardous", []string{"--container", "L1", "--bay", "02", "--row", "01", "--tier", "1"}, ExitMoveRejected, validation.ReasonAdjacentHazardViolation},
		{"unknown container", []string{"--container", "X9", "--bay", "01", "--row", "02", "--tier", "1"}, ExitMoveRejected, validation.ReasonUnknownContainer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"check", path, "--json"}, tt.args...)
			res := run(t, args...)
			assert.Equal(t, int(tt.code), res.code, res.stderr)

			var report checkReport
			require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
			assert.Equal(t, tt.code == ExitOK, report.Accepted)
			if tt.wantReason == "" {
				assert.Nil(t, report.Rejection)
				return
			}
			require.NotNil(t, report.Rejection)
			assert.Equal(t, tt.wantReason, report.Rejection.Reason)
			assert.Contains(t, res.stderr, "move rejected")
		})
	}
}

func TestCheck_TextOutput(t *testing.T) {
	path := writePlan(t, "plan.json", cliTestPlan)

	res := run(t, "check", path, "--container", "C1", "--bay", "01", "--row", "02", "--tier", "2")
	assert.Equal(t, int(ExitOK), res.code)
	assert.Equal(t, "accepted: C1 -> bay 01 row 02 tier 2\n", res.stdout)

	res = run(t, "check", path, "--container", "C1", "--bay", "01", "--row", "02", "--tier", "3")
	assert.Equal(t, int(ExitMoveRejected), res.code)
	assert.Contains(t, res.stdout, "rejected: C1 -> bay 01 row 02 tier 3")
	assert.Contains(t, res.stdout, "SlotOccupied")
	assert.Contains(t, res.stderr, "Error: move rejected")
}

func TestCheck_ReportsCode(t *testing.T) {
	path := writePlan(t, "plan.json", cliTestPlan)

	res := run(t, "check", path, "--json", "--container", "C1", "--bay", "01", "--row", "02", "--tier", "2")
	require.Equal(t, int(ExitOK), res.code)

	var report checkReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	assert.Equal(t, "0102002", report.Code)
	assert.Equal(t, "C1", report.ContainerID)
}

func TestCheck_RequiresFlags(t *testing.T) {
	path := writePlan(t, "plan.json", cliTestPlan)

	res := run(t, "check", path, "--container", "C1")
	assert.Equal(t, int(ExitGeneralError), res.code)
	assert.Contains(t, res.stderr, "required flag")
}

// =============================================================================
// render
// =============================================================================

func TestRender(t *testing.T) {
	path := writePlan(t, "plan.json", cliTestPlan)

	res := run(t, "render", path)
	require.Equal(t, int(ExitOK), res.code, res.stderr)

	assert.Contains(t, res.stdout, "Vessel CLI-1")
	assert.Contains(t, res.stdout, "Bay 01 (reefer)")
	assert.Contains(t, res.stdout, "Bay 02\n")
	assert.Contains(t, res.stdout, "C1")
	assert.Contains(t, res.stdout, "H1!")
	assert.Contains(t, res.stdout, "moves 0, restows 0, cost 0")
}

func TestRender_SingleBay(t *testing.T) {
	path := writePlan(t, "plan.json", cliTestPlan)

	res := run(t, "render", path, "--bay", "02")
	require.Equal(t, int(ExitOK), res.code, res.stderr)
	assert.Contains(t, res.stdout, "H1!")
	assert.NotContains(t, res.stdout, "C1")

	res = run(t, "render", path, "--bay", "07")
	assert.Equal(t, int(ExitGeneralError), res.code)
	assert.Contains(t, res.stderr, `bay "07" not found`)
}

func TestRender_JSON(t *testing.T) {
	path := writePlan(t, "plan.json", cliTestPlan)

	res := run(t, "render", path, "--json", "--bay", "01")
	require.Equal(t, int(ExitOK), res.code, res.stderr)

	var views []domain.BayView
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "01", views[0].Bay)
	require.Len(t, views[0].Rows, 2)

	slot := views[0].Rows[0].Slots[2]
	assert.Equal(t, "0101003", slot.Code)
	require.NotNil(t, slot.Container)
	assert.Equal(t, "C1", slot.Container.ID)
}

func TestRenderCell(t *testing.T) {
	rv := domain.RowView{Row: "01", MaxTiers: 2, Slots: []domain.SlotView{
		{Tier: 1, Container: &domain.Container{ID: "R", Reefer: true}},
		{Tier: 2},
	}}

	tests := []struct {
		tier int
		want string
	}{
		{1, "R*"},
		{2, "."},
		{3, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cell(rv, tt.tier))
	}
}

// =============================================================================
// Errors
// =============================================================================

func TestPrintError_JSON(t *testing.T) {
	res := run(t, "lint", filepath.Join(t.TempDir(), "absent.json"), "--json")
	require.Equal(t, int(ExitGeneralError), res.code)

	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.stderr), &body))
	assert.Equal(t, "cannot open plan", body["error"]["message"])
	assert.NotEmpty(t, body["error"]["detail"])
}

func TestCLIError(t *testing.T) {
	inner := &validation.Rejection{Reason: validation.ReasonSlotOccupied, Message: "taken"}
	err := &CLIError{Code: ExitMoveRejected, Message: "move rejected", Err: inner}

	assert.Equal(t, "move rejected: SlotOccupied: taken", err.Error())
	assert.ErrorIs(t, err, error(inner))
	assert.Equal(t, "plain", (&CLIError{Message: "plain"}).Error())
}
