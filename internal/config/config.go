package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"tabward/internal/reaper"
)

// Config is the daemon configuration. The [policy] section is the auto-close
// settings singleton; the remaining sections configure the surrounding
// infrastructure.
type Config struct {
	LogDir     string           `toml:"log_dir"`
	Policy     reaper.Settings  `toml:"policy"`
	Database   DatabaseConfig   `toml:"database"`
	Browser    BrowserConfig    `toml:"browser"`
	API        APIConfig        `toml:"api"`
	Vault      VaultConfig      `toml:"vault"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// DatabaseConfig configures the local-state store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// BrowserConfig configures the tab directory backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type BrowserConfig struct {
	Type        string `toml:"type"`                   // "cdp" or "memory"
	DevtoolsURL string `toml:"devtools_url,omitempty"` // only used for type=cdp
}

// APIConfig configures the local control API.
type APIConfig struct {
	Listen string `toml:"listen"`
	Token  string `toml:"token,omitempty"` // empty disables auth (loopback-only setups)
}

// VaultConfig configures the archive snapshot vault.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// EncryptionConfig selects how archive snapshots are sealed.
type EncryptionConfig struct {
	Type string `toml:"type"` // "age" (default) or "none"
}

// NewConfig creates a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		LogDir: filepath.Join(baseDir, "log"),
		Policy: reaper.DefaultSettings(),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Browser: BrowserConfig{
			Type:        "cdp",
			DevtoolsURL: "http://127.0.0.1:9222",
		},
		API: APIConfig{
			Listen: "127.0.0.1:8377",
		},
		Vault: VaultConfig{
			Type:        "filesystem",
			Name:        "local",
			FSVaultRoot: filepath.Join(baseDir, "vault"),
		},
		Encryption: EncryptionConfig{Type: "age"},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// fileConfig mirrors Config but defers the policy section so malformed policy
// values degrade to defaults instead of failing the whole load.
type fileConfig struct {
	LogDir     string           `toml:"log_dir"`
	Policy     toml.Primitive   `toml:"policy"`
	Database   DatabaseConfig   `toml:"database"`
	Browser    BrowserConfig    `toml:"browser"`
	API        APIConfig        `toml:"api"`
	Vault      VaultConfig      `toml:"vault"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// Read decodes a Config from the provided reader, merging stored values over
// defaults: missing keys keep their default. A malformed [policy] section is
// coerced to default policy settings rather than surfaced as an error.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	def := NewConfig("")
	fc := fileConfig{
		LogDir:     def.LogDir,
		Database:   def.Database,
		Browser:    def.Browser,
		API:        def.API,
		Vault:      def.Vault,
		Encryption: def.Encryption,
	}

	md, err := toml.NewDecoder(r).Decode(&fc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	policy := reaper.DefaultSettings()
	if md.IsDefined("policy") {
		if err := md.PrimitiveDecode(fc.Policy, &policy); err != nil {
			policy = reaper.DefaultSettings()
		}
	}

	return &Config{
		LogDir:     fc.LogDir,
		Policy:     policy.Normalize(),
		Database:   fc.Database,
		Browser:    fc.Browser,
		API:        fc.API,
		Vault:      fc.Vault,
		Encryption: fc.Encryption,
	}, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
