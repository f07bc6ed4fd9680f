package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"ink/api/internal/store"
)

func TestPrintMigrations(t *testing.T) {
	applied := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	var out bytes.Buffer
	err := printMigrations(&out, []store.Migration{
		{Version: "0001_readers", AppliedAt: &applied},
		{Version: "0002_notes"},
	})
	if err != nil {
		t.Fatalf("printMigrations() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", out.String())
	}
	if !strings.Contains(lines[1], "2026-03-04 05:06:07") || !strings.Contains(lines[2], "pending") {
		t.Fatalf("unexpected rows %q", lines[1:])
	}
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"migrate", "up"},
		{"migrate", "status"},
		{"migrate", "down"},
		{"reindex"},
		{"note", "get"},
		{"note", "delete"},
		{"token", "issue"},
	} {
		cmd, rest, err := rootCmd.Find(path)
		if err != nil || len(rest) != 0 {
			t.Fatalf("%v: not found (%v)", path, err)
		}
		if cmd.Name() != path[len(path)-1] {
			t.Fatalf("%v resolved to %q", path, cmd.Name())
		}
	}
}

func TestNoteGetRequiresID(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"note", "get"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected an argument error")
	}
}

func TestHardDeleteIsMarkedOperatorOnly(t *testing.T) {
	flag := noteDeleteCmd.Flags().Lookup("hard")
	if flag == nil {
		t.Fatal("note delete has no --hard flag")
	}
	if flag.DefValue != "false" {
		t.Fatalf("--hard must default to false, got %s", flag.DefValue)
	}
	if !strings.Contains(flag.Usage, "Operator only") || !strings.Contains(noteDeleteCmd.Long, "operator-only") {
		t.Fatalf("--hard must be documented as operator only: %q / %q", flag.Usage, noteDeleteCmd.Long)
	}
}
