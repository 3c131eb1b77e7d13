package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/keepithuman/netconfig-automation/internal/backup"
	"github.com/keepithuman/netconfig-automation/internal/compliance"
	neterrors "github.com/keepithuman/netconfig-automation/internal/errors"
	"github.com/keepithuman/netconfig-automation/internal/inventory"
	"github.com/keepithuman/netconfig-automation/internal/logger"
	"github.com/keepithuman/netconfig-automation/internal/storage"
	"github.com/keepithuman/netconfig-automation/internal/template"
	"github.com/keepithuman/netconfig-automation/internal/transport"
	"github.com/keepithuman/netconfig-automation/pkg/config"
	"github.com/keepithuman/netconfig-automation/pkg/types"
)

const baseTemplate = "hostname {{.hostname}}\n!\nntp server {{.ntp_server}}\nend\n"

var baseVariables = map[string]string{"ntp_server": "192.0.2.50"}

type fixture struct {
	orch        *Orchestrator
	mock        *transport.Mock
	store       *storage.MemoryStore
	inventory   *inventory.Service
	templateDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mock := transport.NewMock()
	store := storage.NewMemoryStore()
	inv := inventory.NewService(store, nil)

	cfg := config.DefaultConfig()
	cfg.Orchestrator.Workers = 5
	cfg.Templates.Dir = t.TempDir()
	cfg.Backup.OutputDir = t.TempDir()

	orch := New(Deps{
		Inventory:  inv,
		Templates:  template.NewStore(cfg.Templates.Dir),
		Compliance: compliance.NewChecker(compliance.DefaultPolicies(), nil),
		Backups:    backup.NewService(mock, store, cfg.Transport, nil),
		Gateway:    mock,
		Store:      store,
		Config:     cfg,
		Logger:     logger.NewNop(),
	})

	return &fixture{
		orch:        orch,
		mock:        mock,
		store:       store,
		inventory:   inv,
		templateDir: cfg.Templates.Dir,
	}
}

func seedFleet(t *testing.T, f *fixture, names ...string) []*types.Device {
	t.Helper()
	devices := make([]*types.Device, len(names))
	for i, name := range names {
		device := &types.Device{
			Name:       name,
			Host:       fmt.Sprintf("10.0.0.%d", i+1),
			DeviceType: types.PlatformCiscoIOS,
			Username:   "admin",
			Password:   "secret",
		}
		if err := f.inventory.Add(context.Background(), device); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
		devices[i] = device
	}
	return devices
}

func writeTemplate(t *testing.T, f *fixture, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(f.templateDir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write template %s: %v", name, err)
	}
}

func TestDeployAppliesConfiguration(t *testing.T) {
	f := newFixture(t)
	devices := seedFleet(t, f, "edge-01")
	writeTemplate(t, f, "base.tmpl", baseTemplate)

	batch, err := f.orch.Deploy(context.Background(), DeployRequest{
		Template:  "base.tmpl",
		Devices:   []string{"edge-01"},
		Variables: baseVariables,
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	if !batch.Success {
		t.Error("expected batch success")
	}
	if batch.Operation != types.OperationDeploy {
		t.Errorf("unexpected operation %q", batch.Operation)
	}
	if batch.DeploymentID == "" {
		t.Error("expected a deployment id")
	}
	if got := batch.Summary; got.TotalDevices != 1 || got.Successful != 1 || got.Failed != 0 {
		t.Errorf("unexpected summary %+v", got)
	}

	result := batch.Results[0]
	if result.BackupID == nil {
		t.Error("expected a pre-change backup id")
	}
	if result.SnapshotID == "" {
		t.Fatal("expected an applied snapshot id")
	}

	pushes := f.mock.Pushes(devices[0].Host)
	if len(pushes) != 1 {
		t.Fatalf("expected one push, got %d", len(pushes))
	}
	if !strings.Contains(pushes[0], "hostname edge-01") || !strings.Contains(pushes[0], "ntp server 192.0.2.50") {
		t.Errorf("unexpected rendered config:\n%s", pushes[0])
	}

	applied, err := f.store.GetSnapshot(context.Background(), result.SnapshotID)
	if err != nil {
		t.Fatalf("get applied snapshot: %v", err)
	}
	if !applied.Applied || applied.DeploymentID != batch.DeploymentID {
		t.Errorf("unexpected applied snapshot %+v", applied)
	}
	if applied.ContentHash != types.HashContent(applied.Content) {
		t.Error("snapshot hash does not match content")
	}

	record, err := f.store.GetDeploymentRecord(context.Background(), batch.DeploymentID)
	if err != nil {
		t.Fatalf("get deployment record: %v", err)
	}
	if record.Operation != types.OperationDeploy || record.Template != "base.tmpl" {
		t.Errorf("unexpected record %+v", record)
	}
	if record.SuccessRate != 100 {
		t.Errorf("expected success rate 100, got %v", record.SuccessRate)
	}
	if len(record.Devices) != 1 || record.Devices[0] != "edge-01" {
		t.Errorf("unexpected record devices %v", record.Devices)
	}
}

func TestDeployPartialFailure(t *testing.T) {
	f := newFixture(t)
	devices := seedFleet(t, f, "edge-01", "edge-02", "edge-03")
	writeTemplate(t, f, "base.tmpl", baseTemplate)

	f.mock.PushErrs[devices[1].Host] = errors.New("connection reset by peer")

	batch, err := f.orch.Deploy(context.Background(), DeployRequest{
		Template:  "base.tmpl",
		Devices:   []string{"edge-01", "edge-02", "edge-03"},
		Variables: baseVariables,
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	if !batch.Success {
		t.Error("one successful device must make the batch succeed")
	}
	if got := batch.Summary; got.TotalDevices != 3 || got.Successful != 2 || got.Failed != 1 {
		t.Errorf("unexpected summary %+v", got)
	}

	if !batch.Results[0].Success || !batch.Results[2].Success {
		t.Error("healthy devices must not be affected by a neighbor's failure")
	}
	failed := batch.Results[1]
	if failed.Success {
		t.Error("expected edge-02 to fail")
	}
	if !strings.Contains(failed.Error, "connection reset") {
		t.Errorf("unexpected error %q", failed.Error)
	}

	record, err := f.store.GetDeploymentRecord(context.Background(), batch.DeploymentID)
	if err != nil {
		t.Fatalf("get deployment record: %v", err)
	}
	if record.SuccessRate != 66.7 {
		t.Errorf("expected success rate 66.7, got %v", record.SuccessRate)
	}
}

func TestDeployNoTargets(t *testing.T) {
	f := newFixture(t)
	writeTemplate(t, f, "base.tmpl", baseTemplate)

	// empty inventory
	_, err := f.orch.Deploy(context.Background(), DeployRequest{
		Template:  "base.tmpl",
		Variables: baseVariables,
	})
	if !errors.Is(err, neterrors.ErrNoTargets) {
		t.Errorf("expected ErrNoTargets, got %v", err)
	}

	// only unknown names
	seedFleet(t, f, "edge-01")
	_, err = f.orch.Deploy(context.Background(), DeployRequest{
		Template:  "base.tmpl",
		Devices:   []string{"ghost-01", "ghost-02"},
		Variables: baseVariables,
	})
	if !errors.Is(err, neterrors.ErrNoTargets) {
		t.Errorf("expected ErrNoTargets, got %v", err)
	}

	if calls := f.mock.Calls(); calls != 0 {
		t.Errorf("no device may be contacted when resolution fails, saw %d calls", calls)
	}
	records, err := f.store.ListDeploymentRecords(context.Background(), 10)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no history for an aborted batch, got %d records", len(records))
	}
}

func TestDeployMissingTemplate(t *testing.T) {
	f := newFixture(t)
	seedFleet(t, f, "edge-01")

	_, err := f.orch.Deploy(context.Background(), DeployRequest{
		Template: "missing.tmpl",
		Devices:  []string{"edge-01"},
	})
	if !errors.Is(err, template.ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", err)
	}
	if got := neterrors.TypeOf(err); got != neterrors.ErrorTypeNotFound {
		t.Errorf("expected NotFound error type, got %q", got)
	}
	if calls := f.mock.Calls(); calls != 0 {
		t.Errorf("a missing template must abort before any device contact, saw %d calls", calls)
	}
}

func TestDeployDryRun(t *testing.T) {
	f := newFixture(t)
	writeTemplate(t, f, "base.tmpl", "hostname {{.hostname}}\nip ssh version 2\nend\n")

	batch, err := f.orch.Deploy(context.Background(), DeployRequest{
		Template: "base.tmpl",
		DryRun:   true,
		// ignored for the keys the sample set provides
		Variables: map[string]string{"hostname": "operator-value"},
	})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}

	if batch.DryRun == nil {
		t.Fatal("expected a dry-run preview")
	}
	if !batch.Success || !batch.DryRun.Valid {
		t.Errorf("expected a valid preview, errors: %v", batch.DryRun.Errors)
	}
	if !strings.Contains(batch.DryRun.Preview, "hostname sample-device") {
		t.Errorf("sample variables must win over caller values:\n%s", batch.DryRun.Preview)
	}

	if calls := f.mock.Calls(); calls != 0 {
		t.Errorf("dry run must not contact devices, saw %d calls", calls)
	}
	records, err := f.store.ListDeploymentRecords(context.Background(), 10)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("dry run must not write history, got %d records", len(records))
	}
}

func TestDeployDryRunRenderFailure(t *testing.T) {
	f := newFixture(t)
	writeTemplate(t, f, "base.tmpl", "hostname {{.hostname}}\nsnmp-server community {{.snmp_community}}\n")

	batch, err := f.orch.Deploy(context.Background(), DeployRequest{
		Template: "base.tmpl",
		DryRun:   true,
	})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}

	if batch.Success {
		t.Error("a render failure must fail the dry run")
	}
	if batch.DryRun == nil || len(batch.DryRun.Errors) == 0 {
		t.Fatal("expected render errors in the preview")
	}
	if !strings.Contains(batch.DryRun.Errors[0], "snmp_community") {
		t.Errorf("expected the missing variable in the error, got %q", batch.DryRun.Errors[0])
	}
}

func TestDeployValidationGate(t *testing.T) {
	f := newFixture(t)
	seedFleet(t, f, "edge-01")
	writeTemplate(t, f, "banner.tmpl", "hostname {{.hostname}}\nbanner motd ^unauthorized access prohibited\nend\n")

	batch, err := f.orch.Deploy(context.Background(), DeployRequest{
		Template: "banner.tmpl",
		Devices:  []string{"edge-01"},
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	if batch.Success {
		t.Error("an invalid rendered config must not count as success")
	}
	result := batch.Results[0]
	if !strings.Contains(result.Error, "validation failed") {
		t.Errorf("unexpected error %q", result.Error)
	}
	if calls := f.mock.Calls(); calls != 0 {
		t.Errorf("validation must gate before any device contact, saw %d calls", calls)
	}
}

func TestDeployRepeatProducesSameHash(t *testing.T) {
	f := newFixture(t)
	seedFleet(t, f, "edge-01")
	writeTemplate(t, f, "base.tmpl", baseTemplate)

	req := DeployRequest{Template: "base.tmpl", Devices: []string{"edge-01"}, Variables: baseVariables}

	first, err := f.orch.Deploy(context.Background(), req)
	if err != nil {
		t.Fatalf("first deploy: %v", err)
	}
	second, err := f.orch.Deploy(context.Background(), req)
	if err != nil {
		t.Fatalf("second deploy: %v", err)
	}

	a, err := f.store.GetSnapshot(context.Background(), first.Results[0].SnapshotID)
	if err != nil {
		t.Fatalf("get first snapshot: %v", err)
	}
	b, err := f.store.GetSnapshot(context.Background(), second.Results[0].SnapshotID)
	if err != nil {
		t.Fatalf("get second snapshot: %v", err)
	}
	if a.ContentHash != b.ContentHash {
		t.Errorf("identical inputs must render to the same hash: %s vs %s", a.ContentHash, b.ContentHash)
	}
}

func TestConcurrencyCeiling(t *testing.T) {
	f := newFixture(t)
	names := make([]string, 12)
	for i := range names {
		names[i] = fmt.Sprintf("edge-%02d", i+1)
	}
	seedFleet(t, f, names...)
	f.mock.Delay = 25 * time.Millisecond

	batch, err := f.orch.CheckCompliance(context.Background(), ComplianceRequest{})
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}

	if got := batch.Summary.TotalDevices; got != 12 {
		t.Errorf("expected 12 results, got %d", got)
	}
	if got := f.mock.MaxInFlight(); got > 5 {
		t.Errorf("worker ceiling exceeded: %d sessions in flight", got)
	}
}

func TestResultOrderMatchesTargets(t *testing.T) {
	f := newFixture(t)
	devices := seedFleet(t, f, "edge-01", "edge-02", "edge-03", "edge-04")

	// the first target is the slowest; its result must still come first
	f.mock.Delays[devices[2].Host] = 80 * time.Millisecond
	for _, d := range []*types.Device{devices[0], devices[1], devices[3]} {
		f.mock.Delays[d.Host] = 2 * time.Millisecond
	}

	order := []string{"edge-03", "edge-01", "edge-04", "edge-02"}
	batch, err := f.orch.CheckCompliance(context.Background(), ComplianceRequest{Devices: order})
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}

	if len(batch.Results) != len(order) {
		t.Fatalf("expected %d results, got %d", len(order), len(batch.Results))
	}
	for i, want := range order {
		if batch.Results[i].Device != want {
			t.Errorf("result %d: got %s, want %s", i, batch.Results[i].Device, want)
		}
	}
}

func TestRollbackDerivesTargets(t *testing.T) {
	f := newFixture(t)
	devices := seedFleet(t, f, "edge-01", "edge-02", "edge-03", "spare-04")
	writeTemplate(t, f, "base.tmpl", baseTemplate)

	deployed, err := f.orch.Deploy(context.Background(), DeployRequest{
		Template:  "base.tmpl",
		Devices:   []string{"edge-01", "edge-02", "edge-03"},
		Variables: baseVariables,
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if deployed.Summary.Successful != 3 {
		t.Fatalf("deploy did not succeed: %+v", deployed.Summary)
	}

	snapID := deployed.Results[1].SnapshotID
	snapshot, err := f.store.GetSnapshot(context.Background(), snapID)
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}

	batch, err := f.orch.Rollback(context.Background(), RollbackRequest{ConfigID: snapID})
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if got := batch.Summary; got.TotalDevices != 3 || got.Successful != 3 {
		t.Errorf("expected all three deployment devices targeted, got %+v", got)
	}

	got := make(map[string]bool, len(batch.Results))
	for _, r := range batch.Results {
		got[r.Device] = true
		if !r.Success {
			t.Errorf("%s: %s", r.Device, r.Error)
		}
		if r.SnapshotID != snapID {
			t.Errorf("%s restored %s, want %s", r.Device, r.SnapshotID, snapID)
		}
		if r.BackupID == nil {
			t.Errorf("%s has no pre-rollback backup", r.Device)
		}
	}
	for _, want := range []string{"edge-01", "edge-02", "edge-03"} {
		if !got[want] {
			t.Errorf("missing target %s", want)
		}
	}
	if got["spare-04"] {
		t.Error("spare-04 never received the deployment and must not be rolled back")
	}

	// every target receives the named snapshot's exact content
	for _, d := range devices[:3] {
		pushes := f.mock.Pushes(d.Host)
		if len(pushes) == 0 || pushes[len(pushes)-1] != snapshot.Content {
			t.Errorf("%s did not receive the snapshot content", d.Name)
		}
	}
}

func TestRollbackExplicitTargets(t *testing.T) {
	f := newFixture(t)
	devices := seedFleet(t, f, "edge-01", "edge-02")
	writeTemplate(t, f, "base.tmpl", baseTemplate)

	deployed, err := f.orch.Deploy(context.Background(), DeployRequest{
		Template:  "base.tmpl",
		Devices:   []string{"edge-01", "edge-02"},
		Variables: baseVariables,
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	batch, err := f.orch.Rollback(context.Background(), RollbackRequest{
		ConfigID: deployed.Results[0].SnapshotID,
		Devices:  []string{"edge-01"},
	})
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if got := batch.Summary.TotalDevices; got != 1 {
		t.Fatalf("expected the explicit list to narrow the targets, got %d", got)
	}
	if batch.Results[0].Device != "edge-01" {
		t.Errorf("unexpected target %s", batch.Results[0].Device)
	}
	if pushes := f.mock.Pushes(devices[1].Host); len(pushes) != 1 {
		t.Errorf("edge-02 must keep only its deploy push, saw %d", len(pushes))
	}
}

func TestRollbackMissingConfig(t *testing.T) {
	f := newFixture(t)
	seedFleet(t, f, "edge-01")

	_, err := f.orch.Rollback(context.Background(), RollbackRequest{ConfigID: "no-such-snapshot"})
	if !errors.Is(err, neterrors.ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
	if calls := f.mock.Calls(); calls != 0 {
		t.Errorf("a missing snapshot must abort before any device contact, saw %d calls", calls)
	}
}

func TestRollbackAdHocSnapshot(t *testing.T) {
	f := newFixture(t)
	devices := seedFleet(t, f, "edge-01", "edge-02")

	golden := "hostname edge-01\nip ssh version 2\nend\n"
	f.mock.RunningConfigs[devices[0].Host] = golden

	backedUp, err := f.orch.Backup(context.Background(), BackupRequest{Devices: []string{"edge-01"}})
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	snapID := backedUp.Results[0].SnapshotID

	snapshot, err := f.store.GetSnapshot(context.Background(), snapID)
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if !snapshot.IsAdHoc() {
		t.Fatal("backup snapshots must not carry a deployment id")
	}

	// the device drifts after the backup
	f.mock.RunningConfigs[devices[0].Host] = "hostname edge-01-drifted\nend\n"

	batch, err := f.orch.Rollback(context.Background(), RollbackRequest{ConfigID: snapID})
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if got := batch.Summary.TotalDevices; got != 1 {
		t.Fatalf("an ad-hoc snapshot targets exactly its own device, got %d", got)
	}
	if batch.Results[0].Device != "edge-01" {
		t.Errorf("unexpected target %s", batch.Results[0].Device)
	}
	if got := f.mock.RunningConfigs[devices[0].Host]; got != golden {
		t.Errorf("device config not restored:\n%s", got)
	}
	if pushes := f.mock.Pushes(devices[1].Host); len(pushes) != 0 {
		t.Errorf("edge-02 must be untouched, saw %d pushes", len(pushes))
	}
}

func TestComplianceScoring(t *testing.T) {
	f := newFixture(t)
	devices := seedFleet(t, f, "edge-01", "edge-02")

	f.mock.RunningConfigs[devices[0].Host] = strings.Join([]string{
		"hostname edge-01",
		"ip ssh version 2",
		"banner login ^authorized personnel only^",
		"line vty 0 4",
		" transport input ssh",
		"end",
	}, "\n")
	f.mock.RunningConfigs[devices[1].Host] = strings.Join([]string{
		"hostname edge-02",
		"ip ssh version 2",
		"line vty 0 4",
		" transport input ssh",
		"end",
	}, "\n")

	batch, err := f.orch.CheckCompliance(context.Background(), ComplianceRequest{})
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}

	if !batch.Success {
		t.Error("expected batch success")
	}
	if got := batch.Summary; got.TotalDevices != 2 || got.Successful != 2 || got.Compliant != 1 {
		t.Errorf("unexpected summary %+v", got)
	}

	byName := make(map[string]types.DeviceResult, len(batch.Results))
	for _, r := range batch.Results {
		byName[r.Device] = r
	}

	clean := byName["edge-01"]
	if clean.Compliance == nil || !clean.Compliance.Compliant {
		t.Fatalf("expected edge-01 compliant, got %+v", clean.Compliance)
	}
	if clean.Compliance.Score != 100 {
		t.Errorf("expected score 100, got %v", clean.Compliance.Score)
	}
	if clean.Message != "compliant" {
		t.Errorf("unexpected message %q", clean.Message)
	}

	dirty := byName["edge-02"]
	if dirty.Compliance == nil || dirty.Compliance.Compliant {
		t.Fatalf("expected edge-02 violations, got %+v", dirty.Compliance)
	}
	if dirty.Compliance.Score != 66.7 {
		t.Errorf("expected score 66.7, got %v", dirty.Compliance.Score)
	}
	if len(dirty.Compliance.Issues) != 1 || dirty.Compliance.Issues[0].Policy != "banner_configured" {
		t.Errorf("unexpected issues %+v", dirty.Compliance.Issues)
	}
	if !dirty.Success {
		t.Error("violations are audit findings, not device failures")
	}
}

func TestComplianceUnreachableDeviceFails(t *testing.T) {
	f := newFixture(t)
	devices := seedFleet(t, f, "edge-01", "edge-02")
	f.mock.ExecuteErrs[devices[1].Host] = errors.New("connection refused")

	batch, err := f.orch.CheckCompliance(context.Background(), ComplianceRequest{})
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}

	if got := batch.Summary; got.TotalDevices != 2 || got.Successful != 1 || got.Failed != 1 {
		t.Errorf("unexpected summary %+v", got)
	}
	failed := batch.Results[1]
	if failed.Success || !strings.Contains(failed.Error, "connection refused") {
		t.Errorf("expected a transport failure for edge-02, got %+v", failed)
	}
	if failed.Compliance != nil {
		t.Error("an unreachable device has no compliance report")
	}
}

func TestBackupWritesFiles(t *testing.T) {
	f := newFixture(t)
	devices := seedFleet(t, f, "edge-01", "edge-02")
	f.mock.RunningConfigs[devices[0].Host] = "hostname edge-01\nend\n"
	f.mock.RunningConfigs[devices[1].Host] = "hostname edge-02\nend\n"

	outDir := t.TempDir()
	batch, err := f.orch.Backup(context.Background(), BackupRequest{OutputDir: outDir})
	if err != nil {
		t.Fatalf("backup: %v", err)
	}

	if batch.BackupDir != outDir {
		t.Errorf("unexpected backup dir %q", batch.BackupDir)
	}
	if got := batch.Summary; got.TotalDevices != 2 || got.Successful != 2 {
		t.Errorf("unexpected summary %+v", got)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read backup dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 backup files, got %d", len(entries))
	}

	for _, r := range batch.Results {
		snapshot, err := f.store.GetSnapshot(context.Background(), r.SnapshotID)
		if err != nil {
			t.Fatalf("get snapshot for %s: %v", r.Device, err)
		}
		if !snapshot.IsAdHoc() {
			t.Errorf("%s: backup snapshots must not carry a deployment id", r.Device)
		}
	}

	record, err := f.store.GetDeploymentRecord(context.Background(), batch.DeploymentID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Operation != types.OperationBackup {
		t.Errorf("unexpected record operation %q", record.Operation)
	}
}

func TestWorkerPanicIsolated(t *testing.T) {
	f := newFixture(t)
	devices := seedFleet(t, f, "edge-01", "edge-02", "edge-03")

	task := func(ctx context.Context, device *types.Device) types.DeviceResult {
		if device.Name == "edge-02" {
			panic("boom")
		}
		return types.DeviceResult{Device: device.Name, Success: true}
	}

	results := f.orch.runBatch(context.Background(), types.OperationDeploy, devices, task)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[1].Success {
		t.Error("the panicking worker must fail its device")
	}
	if !strings.Contains(results[1].Error, "worker fault") {
		t.Errorf("unexpected error %q", results[1].Error)
	}
	if !results[0].Success || !results[2].Success {
		t.Error("a panic in one worker must not affect its neighbors")
	}
}

func TestHistoryWrittenEvenWhenAllFail(t *testing.T) {
	f := newFixture(t)
	devices := seedFleet(t, f, "edge-01", "edge-02")
	writeTemplate(t, f, "base.tmpl", baseTemplate)

	f.mock.PushErrs[devices[0].Host] = errors.New("device unreachable")
	f.mock.PushErrs[devices[1].Host] = errors.New("device unreachable")

	batch, err := f.orch.Deploy(context.Background(), DeployRequest{
		Template:  "base.tmpl",
		Variables: baseVariables,
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	if batch.Success {
		t.Error("expected the batch to fail with zero successes")
	}
	if batch.HistoryError != "" {
		t.Errorf("unexpected history error %q", batch.HistoryError)
	}

	record, err := f.store.GetDeploymentRecord(context.Background(), batch.DeploymentID)
	if err != nil {
		t.Fatalf("an all-fail batch must still be recorded: %v", err)
	}
	if record.SuccessRate != 0 {
		t.Errorf("expected success rate 0, got %v", record.SuccessRate)
	}
}

func TestCancelledContextStillWritesHistory(t *testing.T) {
	f := newFixture(t)
	seedFleet(t, f, "edge-01", "edge-02")
	writeTemplate(t, f, "base.tmpl", baseTemplate)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := f.orch.Deploy(ctx, DeployRequest{
		Template:  "base.tmpl",
		Variables: baseVariables,
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	if batch.Success {
		t.Error("no device can succeed under a cancelled context")
	}
	for _, r := range batch.Results {
		if r.Error == "" {
			t.Errorf("%s: expected a failure outcome", r.Device)
		}
	}

	if _, err := f.store.GetDeploymentRecord(context.Background(), batch.DeploymentID); err != nil {
		t.Errorf("expected history despite cancellation: %v", err)
	}
}
