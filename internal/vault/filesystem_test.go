package vault

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"basket-go/internal/basket"
)

func newTestFileSystemVault(t *testing.T) *FileSystemVault {
	t.Helper()

	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}
	return v
}

func TestNewFileSystemVault(t *testing.T) {
	t.Run("creates directory structure", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "vault")

		v, err := NewFileSystemVault("test", root)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		for _, dir := range []string{"snapshots", "metadata"} {
			if _, err := os.Stat(filepath.Join(root, dir)); err != nil {
				t.Errorf("%s directory not created: %v", dir, err)
			}
		}
		if v.Name() != "test" {
			t.Errorf("Name() = %q, want %q", v.Name(), "test")
		}
	})

	t.Run("works with existing directory", func(t *testing.T) {
		if _, err := NewFileSystemVault("test", t.TempDir()); err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
	})
}

func TestFileSystemVault_PutContent(t *testing.T) {
	tests := []struct {
		name     string
		checksum string
		data     string
		size     int64
		wantErr  bool
	}{
		{
			name:     "store content successfully",
			checksum: checksumOf("hello world"),
			data:     "hello world",
			size:     11,
		},
		{
			name:     "size mismatch",
			checksum: checksumOf("hello"),
			data:     "hello",
			size:     100,
			wantErr:  true,
		},
		{
			name:     "not a checksum",
			checksum: "../escape",
			data:     "x",
			size:     1,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestFileSystemVault(t)

			err := v.PutContent(tt.checksum, strings.NewReader(tt.data), tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PutContent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			path := filepath.Join(v.snapshotsDir, tt.checksum[:2], tt.checksum)
			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("failed to read stored file: %v", err)
			}
			if string(got) != tt.data {
				t.Errorf("stored content = %q, want %q", got, tt.data)
			}
		})
	}
}

func TestFileSystemVault_PutContent_Idempotent(t *testing.T) {
	v := newTestFileSystemVault(t)

	data := "test data"
	checksum := checksumOf(data)

	for i := 0; i < 2; i++ {
		if err := v.PutContent(checksum, strings.NewReader(data), int64(len(data))); err != nil {
			t.Fatalf("PutContent() call %d error = %v", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := v.GetContent(checksum, &buf); err != nil {
		t.Fatalf("GetContent() error = %v", err)
	}
	if buf.String() != data {
		t.Errorf("GetContent() = %q, want %q", buf.String(), data)
	}
}

func TestFileSystemVault_GetContent(t *testing.T) {
	t.Run("missing content", func(t *testing.T) {
		v := newTestFileSystemVault(t)

		var buf bytes.Buffer
		err := v.GetContent(checksumOf("nope"), &buf)
		if !errors.Is(err, basket.ErrNotFound) {
			t.Errorf("GetContent() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("invalid checksum", func(t *testing.T) {
		v := newTestFileSystemVault(t)

		var buf bytes.Buffer
		if err := v.GetContent("zz", &buf); !errors.Is(err, basket.ErrValidation) {
			t.Errorf("GetContent() error = %v, want ErrValidation", err)
		}
	})
}

func TestFileSystemVault_Metadata(t *testing.T) {
	t.Run("put, get and version", func(t *testing.T) {
		v := newTestFileSystemVault(t)

		for version, data := range []string{"first copy", "second copy"} {
			err := v.PutMetadata("host-1", "db", strings.NewReader(data), int64(len(data)), int64(version+1))
			if err != nil {
				t.Fatalf("PutMetadata() error = %v", err)
			}
		}

		var buf bytes.Buffer
		if err := v.GetMetadata("host-1", "db", &buf); err != nil {
			t.Fatalf("GetMetadata() error = %v", err)
		}
		if buf.String() != "second copy" {
			t.Errorf("GetMetadata() = %q, want second copy", buf.String())
		}

		version, err := v.GetMetadataVersion("host-1", "db")
		if err != nil {
			t.Fatalf("GetMetadataVersion() error = %v", err)
		}
		if version != 2 {
			t.Errorf("GetMetadataVersion() = %d, want 2", version)
		}
	})

	t.Run("missing metadata", func(t *testing.T) {
		v := newTestFileSystemVault(t)

		var buf bytes.Buffer
		if err := v.GetMetadata("host-1", "db", &buf); !errors.Is(err, basket.ErrNotFound) {
			t.Errorf("GetMetadata() error = %v, want ErrNotFound", err)
		}

		version, err := v.GetMetadataVersion("host-1", "db")
		if err != nil || version != 0 {
			t.Errorf("GetMetadataVersion() = %d, %v, want 0, nil", version, err)
		}
	})

	t.Run("rejects path elements", func(t *testing.T) {
		v := newTestFileSystemVault(t)

		err := v.PutMetadata("../host", "db", strings.NewReader("x"), 1, 1)
		if !errors.Is(err, basket.ErrValidation) {
			t.Errorf("PutMetadata() error = %v, want ErrValidation", err)
		}
	})
}

func TestFileSystemVault_ValidateSetup(t *testing.T) {
	t.Run("valid setup", func(t *testing.T) {
		v := newTestFileSystemVault(t)

		if err := v.ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("missing root directory", func(t *testing.T) {
		v := &FileSystemVault{
			name:         "test",
			root:         "/nonexistent/path",
			snapshotsDir: "/nonexistent/path/snapshots",
			metadataDir:  "/nonexistent/path/metadata",
		}

		if err := v.ValidateSetup(); err == nil {
			t.Error("ValidateSetup() expected error for missing root")
		}
	})
}

func TestFileSystemVault_AtomicWrite(t *testing.T) {
	v := newTestFileSystemVault(t)

	data := "hello world"
	checksum := checksumOf(data)
	if err := v.PutContent(checksum, strings.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("PutContent() error = %v", err)
	}

	// No temp files are left after a successful write
	entries, err := os.ReadDir(filepath.Join(v.snapshotsDir, checksum[:2]))
	if err != nil {
		t.Fatalf("failed to read snapshot dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}
