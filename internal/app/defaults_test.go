package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("BASKET_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("BASKET_HOME", "/custom/basket")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		want := Defaults{
			ConfigPath: "/custom/config.toml",
			BaseDir:    "/custom/basket",
			LogDir:     "/custom/basket/log",
			DataDir:    "/custom/basket/data",
		}
		if *defaults != want {
			t.Errorf("GetDefaults() = %+v, want %+v", *defaults, want)
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("BASKET_CONFIG_PATH", "")
		t.Setenv("BASKET_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "basket.toml")
		if defaults.ConfigPath != wantConfig {
			t.Errorf("ConfigPath = %q, want %q", defaults.ConfigPath, wantConfig)
		}

		wantBase := filepath.Join(homeDir, ".local", "share", "basket")
		if defaults.BaseDir != wantBase {
			t.Errorf("BaseDir = %q, want %q", defaults.BaseDir, wantBase)
		}
		if defaults.LogDir != filepath.Join(wantBase, "log") {
			t.Errorf("LogDir = %q, want %q", defaults.LogDir, filepath.Join(wantBase, "log"))
		}
	})
}
