package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"basket-go/internal/app"
	"basket-go/internal/basket"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: errors.New("boom"), want: 1},
		{err: fmt.Errorf("loading: %w", basket.ErrNotFound), want: 3},
		{err: fmt.Errorf("upload: %w", basket.ErrMalformedDocument), want: 4},
		{err: fmt.Errorf("purge: %w", basket.ErrIneligibleType), want: 5},
		{err: fmt.Errorf("purge: %w", basket.ErrRefusedEmptyPurge), want: 6},
		{err: fmt.Errorf("create: %w", basket.ErrValidation), want: 7},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestReadInput(t *testing.T) {
	stdin := strings.NewReader(`{"Command": {}}`)
	for _, path := range []string{"", "-"} {
		data, err := readInput(stdin, path)
		if err != nil {
			t.Fatalf("readInput(%q) error = %v", path, err)
		}
		stdin = strings.NewReader(string(data))
		if string(data) != `{"Command": {}}` {
			t.Errorf("readInput(%q) = %q", path, data)
		}
	}

	file := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(file, []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}
	data, err := readInput(nil, file)
	if err != nil || string(data) != `{}` {
		t.Errorf("readInput(file) = %q, %v", data, err)
	}

	if _, err := readInput(nil, filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("readInput() expected error for a missing file")
	}
}

func TestPromptPassphrase(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	readPassword = func(int) ([]byte, error) { return []byte("s3cret"), nil }
	got, err := promptPassphrase("Passphrase: ")()
	if err != nil || got != "s3cret" {
		t.Errorf("promptPassphrase() = %q, %v", got, err)
	}

	readPassword = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }
	if _, err := promptPassphrase("Passphrase: ")(); err == nil {
		t.Error("promptPassphrase() expected error")
	}
}

func TestCommands_ErrorKinds(t *testing.T) {
	dir := t.TempDir()
	defaults := &app.Defaults{
		ConfigPath: filepath.Join(dir, "basket.toml"),
		BaseDir:    dir,
		LogDir:     filepath.Join(dir, "log"),
		DataDir:    filepath.Join(dir, "data"),
	}
	cfg := app.DefaultConfig("host-1", defaults)
	cfg.Encryption.Type = "none"
	if err := app.Initialize(defaults.ConfigPath, cfg, nil); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Setenv("BASKET_CONFIG_PATH", defaults.ConfigPath)
	t.Setenv("BASKET_HOME", dir)

	doc := filepath.Join(dir, "doc.json")
	if err := os.WriteFile(doc, []byte(`{"Command": {"check_http": {}}}`), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "unknown basket", args: []string{"dump", "missing"}, want: 3},
		{name: "ineligible purge type", args: []string{"restore", "--purge", "Datafield", doc}, want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd.SetArgs(tt.args)
			err := rootCmd.Execute()
			if err == nil {
				t.Fatalf("%v: expected error", tt.args)
			}
			if got := exitCode(err); got != tt.want {
				t.Errorf("%v: exit code = %d, want %d (%v)", tt.args, got, tt.want, err)
			}
		})
	}
}
