package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds per-host defaults for the provisioning workflow. Every field
// can be overridden by a command-line flag; the file only saves retyping.
type Config struct {
	// WorkDir is the scratch directory for downloaded and extracted images.
	WorkDir string `yaml:"workdir,omitempty"`
	// ImageURL is the default remote image archive to fetch when no local
	// image is given.
	ImageURL string `yaml:"image_url,omitempty"`
	// MountDesignator is requested for the data partition. On hosts that
	// assign drive letters this is a single letter; elsewhere the mount
	// service picks the path and this value is advisory.
	MountDesignator string `yaml:"mount_designator,omitempty"`
	// VolumeLabel is applied to the data partition when it has none.
	VolumeLabel string `yaml:"volume_label,omitempty"`
	// BIOSDir and ROMDir point at personal file trees copied onto the card.
	BIOSDir string `yaml:"bios_dir,omitempty"`
	ROMDir  string `yaml:"rom_dir,omitempty"`
	// HistoryPath overrides the run-history database location.
	HistoryPath string `yaml:"history_path,omitempty"`
}

var defaultConfig = Config{
	MountDesignator: "R",
	VolumeLabel:     "SHARE",
}

// Load reads the config file at path, or the first of the default candidate
// locations when path is empty. A missing file is not an error; defaults
// apply.
func Load(path string) (*Config, error) {
	if path == "" {
		candidates := []string{
			"/etc/batoprep/config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/batoprep/config.yaml"),
			"config.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	cfg := defaultConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, err
			}
		}
	}

	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(os.TempDir(), "batoprep")
	}
	if cfg.MountDesignator == "" {
		cfg.MountDesignator = defaultConfig.MountDesignator
	}
	if cfg.VolumeLabel == "" {
		cfg.VolumeLabel = defaultConfig.VolumeLabel
	}

	return &cfg, nil
}
