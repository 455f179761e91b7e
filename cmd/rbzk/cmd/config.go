package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the persisted CLI config shape of spec.md §6: a YAML
// key/value file, independent of the protocol engine itself.
type fileConfig struct {
	IP       string `yaml:"ip"`
	Port     int    `yaml:"port"`
	Timeout  int    `yaml:"timeout"`
	Password int    `yaml:"password"`
	Verbose  bool   `yaml:"verbose"`
	ForceUDP bool   `yaml:"force_udp"`
	NoPing   bool   `yaml:"no_ping"`
	Encoding string `yaml:"encoding"`
}

// configSearchPaths returns the candidate config file locations in the
// order spec.md §6 names them: $XDG_CONFIG_HOME/rbzk/config.yml, falling
// back to $HOME/.config/rbzk/config.yml, then ./.rbzk.yml.
func configSearchPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "rbzk", "config.yml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "rbzk", "config.yml"))
	}
	paths = append(paths, filepath.Join(".", ".rbzk.yml"))
	return paths
}

// resolveConfigPath returns the first existing candidate, or the first
// candidate (for writing a new file) if none exist.
func resolveConfigPath() string {
	paths := configSearchPaths()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return paths[0]
}

// initConfig wires viper to the resolved config file, plus flag/env
// binding, following blacktop/ipsw's cmd/ipsw/cmd/root.go pattern.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		for _, p := range configSearchPaths() {
			if _, err := os.Stat(p); err == nil {
				viper.SetConfigFile(p)
				break
			}
		}
	}
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("rbzk")
	viper.AutomaticEnv()

	if viper.ConfigFileUsed() != "" {
		if err := viper.ReadInConfig(); err == nil {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := fileConfig{
			IP:       viper.GetString("ip"),
			Port:     viper.GetInt("port"),
			Timeout:  viper.GetInt("timeout"),
			Password: viper.GetInt("password"),
			Verbose:  viper.GetBool("verbose"),
			ForceUDP: viper.GetBool("force_udp"),
			NoPing:   viper.GetBool("no_ping"),
			Encoding: viper.GetString("encoding"),
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", resolveConfigPath(), out)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "config-set KEY VALUE",
	Short: "Persist a single configuration key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveConfigPath()
		cfg, err := loadFileConfig(path)
		if err != nil {
			return err
		}
		if err := setConfigField(cfg, args[0], args[1]); err != nil {
			return err
		}
		return saveFileConfig(path, cfg)
	},
}

var configResetCmd = &cobra.Command{
	Use:   "config-reset",
	Short: "Delete the persisted configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveConfigPath()
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "removed", path)
		return nil
	},
}

func loadFileConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{Port: 4370, Timeout: 60, Encoding: "UTF-8"}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func saveFileConfig(path string, cfg *fileConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func setConfigField(cfg *fileConfig, key, value string) error {
	switch key {
	case "ip":
		cfg.IP = value
	case "port":
		return scanInto(value, &cfg.Port)
	case "timeout":
		return scanInto(value, &cfg.Timeout)
	case "password":
		return scanInto(value, &cfg.Password)
	case "verbose":
		return scanBool(value, &cfg.Verbose)
	case "force_udp":
		return scanBool(value, &cfg.ForceUDP)
	case "no_ping":
		return scanBool(value, &cfg.NoPing)
	case "encoding":
		cfg.Encoding = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func scanInto(s string, dst *int) error {
	_, err := fmt.Sscanf(s, "%d", dst)
	return err
}

func scanBool(s string, dst *bool) error {
	switch s {
	case "true", "1", "yes":
		*dst = true
	case "false", "0", "no":
		*dst = false
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	return nil
}
