package cli

import (
	"strings"
	"testing"

	"github.com/fincontrol/attachd/internal/version"
)

func TestNewRootCmd_VersionFromVersionPackage(t *testing.T) {
	orig := version.Version
	version.Version = "v9.9.9-test"
	defer func() { version.Version = orig }()

	rootCmd := NewRootCmd()
	if !strings.Contains(rootCmd.Version, "v9.9.9-test") {
		t.Errorf("rootCmd.Version = %q, want it built from version.Version", rootCmd.Version)
	}
	if !strings.Contains(rootCmd.Long, "v9.9.9-test") {
		t.Errorf("rootCmd.Long does not carry version.Version")
	}
}

func TestAddCommands_RegistersAllSubcommands(t *testing.T) {
	rootCmd := NewRootCmd()
	AddCommands(rootCmd)

	want := []string{"serve", "upload", "delete", "presign"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered: %v", name, err)
		}
	}
}

func TestLoadConfig_RetriesFlagOverride(t *testing.T) {
	t.Setenv("ATTACHD_RETRIES", "2")

	retries = -1
	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Retries != 2 {
		t.Errorf("retries = %d, want env value 2 when flag unset", cfg.Retries)
	}

	retries = 5
	defer func() { retries = -1 }()
	cfg, err = loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Retries != 5 {
		t.Errorf("retries = %d, want flag value 5", cfg.Retries)
	}
}

func TestNewStore_FailsFastWithoutCredentials(t *testing.T) {
	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Storage.AccessKey = ""
	cfg.Storage.SecretKey = ""
	cfg.Storage.Bucket = ""
	cfg.Storage.Endpoint = ""

	if _, err := newStore(cfg); err == nil {
		t.Error("expected credential error before any network call")
	}
}
