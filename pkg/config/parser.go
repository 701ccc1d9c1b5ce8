package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFile = "config.toml"

func defaultSystemCfg() *SystemCfg {
	return &SystemCfg{
		Log: LogCfg{
			Level: "info",
		},
		Proxy: ProxyCfg{
			ListenAddr:   ":9091",
			MetricsAddr:  ":9092",
			UpstreamURL:  "https://minusx.metabaseapp.com",
			ExtensionURL: "https://web.minusxapi.com/extension-build",
			Mode:         ModeProd,
			ExtensionDir: "../extension/build",
			Files: map[string]string{
				"/minusx.css": "custom.css",
			},
			CSP: CSPCfg{
				ExtensionOrigin: "https://web.minusxapi.com",
				DevOrigin:       "http://localhost:3005",
			},
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
		Cache: CacheCfg{
			Enabled:  true,
			Capacity: 512,
		},
		Host: HostCfg{
			ListenAddr:    ":9090",
			ProxyURL:      "http://localhost:9091",
			SessionSecret: "shhhh, very secret",
			StaticDir:     ".",
			EmbedQuery:    "header=false&action_buttons=false&top_nav=false&side_nav=false",
			TokenTTL:      10 * time.Minute,
			Pages: []PageCfg{
				{Name: "Dashboard Q&A", Path: "/dashboard", IframePath: "/dashboard/36-sales-overview", Icon: "bar-chart-2"},
				{Name: "Question Builder", Path: "/mbql", IframePath: "/question/139-demo-mbql", Icon: "edit-3"},
				{Name: "Edit SQL Query", Path: "/sql-edit", IframePath: "/question/138-demo-sql", Icon: "database"},
				{Name: "New SQL Query", Path: "/sql-new", IframePath: "/question#eyJkYXRhc2V0X3F1ZXJ5Ijp7ImRhdGFiYXNlIjoxLCJ0eXBlIjoibmF0aXZlIiwibmF0aXZlIjp7InF1ZXJ5IjoiIiwidGVtcGxhdGUtdGFncyI6e319fSwiZGlzcGxheSI6InRhYmxlIiwidmlzdWFsaXphdGlvbl9zZXR0aW5ncyI6e30sInR5cGUiOiJxdWVzdGlvbiJ9", Icon: "plus-circle"},
			},
		},
	}
}

// Default returns the built in configuration.
func Default() *SystemCfg {
	return defaultSystemCfg()
}

// LoadConfig layers defaults, the config file, a .env file next to the
// working directory and finally the process environment. A missing file is
// only an error when required is set.
func LoadConfig(configFile string, required bool) (*SystemCfg, error) {
	config := defaultSystemCfg()

	if configFile != "" {
		err := decodeFile(configFile, config)
		switch {
		case errors.Is(err, fs.ErrNotExist) && !required:
		case err != nil:
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(config, os.LookupEnv)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func decodeFile(configFile string, config *SystemCfg) error {
	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".yaml", ".yml":
		raw, err := os.ReadFile(configFile)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, config); err != nil {
			return fmt.Errorf("decode %s: %w", configFile, err)
		}
	default:
		if _, err := toml.DecodeFile(configFile, config); err != nil {
			return fmt.Errorf("decode %s: %w", configFile, err)
		}
	}
	return nil
}
