package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/rideops/callcenter/internal/config"
)

func useMemoryStore(t *testing.T) {
	t.Helper()
	orig := loadConfig
	loadConfig = func() (*config.Config, error) {
		return &config.Config{
			App:    config.AppConfig{Name: "callcenter-console", StoreDriver: "memory"},
			Logger: config.LoggerConfig{Level: "error"},
			Auth:   config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 15, Issuer: "test"},
		}, nil
	}
	t.Cleanup(func() { loadConfig = orig })
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.2.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	for _, want := range []string{"consolectl 1.2.0", "commit: abc123", "built: 2026-01-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got: %s", want, out)
		}
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"version": false, "migrate": false, "token": false, "account": false, "backfill": false, "export": false}
	for _, sub := range root.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("root command missing %q subcommand", name)
		}
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		name  string
		cmd   *cobra.Command
		flags []string
	}{
		{"token issue", newTokenIssueCmd(), []string{"realm", "account"}},
		{"account bootstrap", newAccountBootstrapCmd(), []string{"realm", "email", "name"}},
		{"backfill categories", newBackfillCategoriesCmd(), []string{"dry-run"}},
		{"export", newExportCmd(), []string{"out"}},
		{"migrate", newMigrateCmd(), []string{"list"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, flag := range tt.flags {
				if tt.cmd.Flags().Lookup(flag) == nil {
					t.Errorf("expected --%s flag", flag)
				}
			}
		})
	}
}

func TestArgumentValidation(t *testing.T) {
	useMemoryStore(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"invalid realm", []string{"token", "issue", "--realm", "ops", "--account", "a1"}, "invalid realm"},
		{"missing account", []string{"token", "issue"}, "--account is required"},
		{"bootstrap missing email", []string{"account", "bootstrap", "--name", "Root"}, "--email and --name are required"},
		{"unknown export kind", []string{"export", "drivers"}, "invalid argument"},
		{"export without kind", []string{"export"}, "accepts 1 arg"},
		{"migrate on memory store", []string{"migrate"}, "has no schema"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestMigrateList(t *testing.T) {
	out, err := run(t, "migrate", "--list")
	if err != nil {
		t.Fatalf("migrate --list failed: %v", err)
	}
	if !strings.Contains(out, "001_init.sql") {
		t.Errorf("expected bundled migration in output, got: %s", out)
	}
}

func TestAccountBootstrap(t *testing.T) {
	useMemoryStore(t)

	out, err := run(t, "account", "bootstrap", "--realm", "dashboard", "--email", "root@example.com", "--name", "Root")
	if err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if !strings.Contains(out, "Created dashboard account") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestTokenIssue_UnknownAccount(t *testing.T) {
	useMemoryStore(t)

	_, err := run(t, "token", "issue", "--realm", "call_center", "--account", "missing")
	if err == nil {
		t.Fatal("expected error for unknown account")
	}
	if !strings.HasPrefix(err.Error(), "token issue:") {
		t.Errorf("error = %q, want token issue prefix", err.Error())
	}
}

func TestBackfillCategories_DryRun(t *testing.T) {
	useMemoryStore(t)

	out, err := run(t, "backfill", "categories", "--dry-run")
	if err != nil {
		t.Fatalf("backfill failed: %v", err)
	}
	if !strings.Contains(out, "0 ticket(s) would be recategorized") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestExportTickets(t *testing.T) {
	useMemoryStore(t)
	outPath := filepath.Join(t.TempDir(), "tickets.xlsx")

	out, err := run(t, "export", "tickets", "--out", outPath)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(out, "Wrote "+outPath) {
		t.Errorf("unexpected output: %s", out)
	}

	f, err := excelize.OpenFile(outPath)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected header row only, got %d rows", len(rows))
	}
}
