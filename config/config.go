package config

import (
	"fmt"
	"github.com/ouywm/confrs/constants/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"strings"
	"sync"
	"time"
)

// configCacheEntry holds cached configuration with metadata
type configCacheEntry struct {
	config  *Config
	modTime time.Time
}

// Global cache for configuration files
var (
	configCache = make(map[string]*configCacheEntry)
	cacheMutex  sync.RWMutex
)

// Config represents the structure of the configuration file
type Config struct {
	Version         string   `mapstructure:"version"`
	Theme           string   `mapstructure:"theme"`
	WorkspaceRoot   string   `mapstructure:"workspace_root"`
	DependencyRoots []string `mapstructure:"dependency_roots"`
	Features        []string `mapstructure:"features"`
	EnableCache     bool     `mapstructure:"enable_cache"`
	CacheDir        string   `mapstructure:"cache_dir"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:         "0.3.0",
	Theme:           "dracula",
	WorkspaceRoot:   ".",
	DependencyRoots: nil,
	Features:        nil,
	EnableCache:     true,
	CacheDir:        ".confrs-cache",
}

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs initializes the configuration from file, flags, and environment variables, and returns the final config.
func LoadConfigs(rootCmd *cobra.Command, cwd string) *Config {
	var config *Config

	// Set default values using Viper
	setDefaults()

	// Automatically read environment variables
	viper.AutomaticEnv()

	// Explicitly bind environment variables to config keys
	bindEnv()

	// Check if the user provided a config file
	if cfgFile != "" {
		// Use the config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Look for configuration files in the current directory
		viper.SetConfigName("confrs-config") // Name of config file (without extension)
		viper.AddConfigPath(cwd)             // Look in the current working directory

		// Support both JSON and YAML formats
		viper.SetConfigType("yaml") // Set default type
		if err := viper.ReadInConfig(); err != nil {
			// If YAML fails, try JSON
			viper.SetConfigType("json")
			if err := viper.ReadInConfig(); err != nil {
				// If both fail, we'll continue with defaults
				fmt.Println(lipgloss.Yellow.Render("No configuration file found, using defaults"))
			}
		}
	}

	// Read the explicitly specified config file (if any)
	if cfgFile != "" {
		if err := viper.ReadInConfig(); err != nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error reading config file: %v", err)))
			os.Exit(1)
		}
	}

	// Bind CLI flags to override config values
	bindFlags(rootCmd)

	// Unmarshal the configuration into the Config struct
	if err := viper.Unmarshal(&config); err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Unable to decode into struct: %v", err)))
		os.Exit(1)
	}

	return config
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("version", DefaultConfig.Version)
	viper.SetDefault("theme", DefaultConfig.Theme)
	viper.SetDefault("workspace_root", DefaultConfig.WorkspaceRoot)
	viper.SetDefault("dependency_roots", DefaultConfig.DependencyRoots)
	viper.SetDefault("features", DefaultConfig.Features)
	viper.SetDefault("enable_cache", DefaultConfig.EnableCache)
	viper.SetDefault("cache_dir", DefaultConfig.CacheDir)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv() {
	_ = viper.BindEnv("theme", "THEME")
	_ = viper.BindEnv("workspace_root", "WORKSPACE_ROOT")
	_ = viper.BindEnv("features", "FEATURES")
	_ = viper.BindEnv("enable_cache", "ENABLE_CACHE")
	_ = viper.BindEnv("cache_dir", "CACHE_DIR")
}

// bindFlags binds the CLI flags to configuration values. Flags() rather
// than PersistentFlags() so subcommands see the inherited root flags.
func bindFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("theme", cmd.Flags().Lookup("theme"))
	_ = viper.BindPFlag("workspace_root", cmd.Flags().Lookup("workspace_root"))
	_ = viper.BindPFlag("dependency_roots", cmd.Flags().Lookup("dependency_roots"))
	_ = viper.BindPFlag("features", cmd.Flags().Lookup("features"))
	_ = viper.BindPFlag("enable_cache", cmd.Flags().Lookup("enable_cache"))
	_ = viper.BindPFlag("cache_dir", cmd.Flags().Lookup("cache_dir"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	// Workspace configuration
	rootCmd.PersistentFlags().String("workspace_root", DefaultConfig.WorkspaceRoot, "Root directory of the Rust workspace to analyze.")
	rootCmd.PersistentFlags().StringSlice("dependency_roots", DefaultConfig.DependencyRoots, "Directories holding dependency crate sources (vendor dirs, registry checkouts).")
	rootCmd.PersistentFlags().StringSlice("features", DefaultConfig.Features, "Enabled cargo features used when evaluating cfg predicates.")

	// Theme configuration
	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Color theme for highlighted source output. (e.g., 'dracula', 'light')")

	// Cache configuration
	rootCmd.PersistentFlags().Bool("enable_cache", DefaultConfig.EnableCache, "Enable or disable snapshot caching for improved performance")
	rootCmd.PersistentFlags().String("cache_dir", DefaultConfig.CacheDir, "Directory for persisted index snapshots")

	// Version flag
	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")
}

// GetConfigFileType returns the type of the configuration file based on its extension
func GetConfigFileType(filename string) string {
	if strings.HasSuffix(filename, ".json") {
		return "json"
	} else if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return "yaml"
	}
	return ""
}

// LoadConfigWithCache loads configuration with caching support
func LoadConfigWithCache(rootCmd *cobra.Command, cwd string) *Config {
	var configFilePath string

	// Determine config file path
	if cfgFile != "" {
		configFilePath = cfgFile
	} else {
		// Check for default config files
		yamlPath := fmt.Sprintf("%s/confrs-config.yaml", cwd)
		ymlPath := fmt.Sprintf("%s/confrs-config.yml", cwd)
		jsonPath := fmt.Sprintf("%s/confrs-config.json", cwd)

		if _, err := os.Stat(yamlPath); err == nil {
			configFilePath = yamlPath
		} else if _, err := os.Stat(ymlPath); err == nil {
			configFilePath = ymlPath
		} else if _, err := os.Stat(jsonPath); err == nil {
			configFilePath = jsonPath
		}
	}

	// If no config file exists, return default configuration loading
	if configFilePath == "" {
		return LoadConfigs(rootCmd, cwd)
	}

	// Check file modification time
	fileInfo, err := os.Stat(configFilePath)
	if err != nil {
		// File doesn't exist or error, fallback to regular loading
		return LoadConfigs(rootCmd, cwd)
	}

	// Check cache first
	cacheMutex.RLock()
	if cached, exists := configCache[configFilePath]; exists {
		// Check if file has been modified since cache
		if fileInfo.ModTime().Equal(cached.modTime) {
			cacheMutex.RUnlock()
			return cached.config
		}
	}
	cacheMutex.RUnlock()

	// Load configuration normally
	config := LoadConfigs(rootCmd, cwd)

	// Update cache
	cacheMutex.Lock()
	configCache[configFilePath] = &configCacheEntry{
		config:  config,
		modTime: fileInfo.ModTime(),
	}
	cacheMutex.Unlock()

	return config
}

// ClearConfigCache clears all cached configuration files
func ClearConfigCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	configCache = make(map[string]*configCacheEntry)
}

// InvalidateConfigCache removes a specific config file from cache
func InvalidateConfigCache(configPath string) {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	delete(configCache, configPath)
}
