// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the heicconv CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/heicconv/internal/codec"
	"github.com/pdiddy/heicconv/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is configured in PersistentPreRunE once flags and config are read.
var logger = logrus.New()

// rootCmd is the base command for the heicconv CLI.
var rootCmd = &cobra.Command{
	Use:   "heicconv",
	Short: "Convert HEIC photos to JPEG",
	Long: `heicconv converts HEIC/HEIF images to JPEG, one file or a whole photo
tree at a time. Each JPEG is written next to its source with the same base
name. Existing JPEGs are left alone unless --overwrite is given, and sources
are only removed (--remove) after their JPEG is safely on disk.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configureLogger(logger, cmd.ErrOrStderr(), viper.GetString("log.level"))
		if used := viper.ConfigFileUsed(); used != "" {
			logger.WithField("file", used).Debug("Using config file")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./heicconv.yaml or ~/.config/heicconv/heicconv.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "diagnostic log level: debug, info, warn, error")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	setDefaults()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("heicconv")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "heicconv"))
		}
	}

	viper.SetEnvPrefix("HEICCONV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "Reading config:", err)
		}
	}
}

func setDefaults() {
	viper.SetDefault("conversion.recursive", true)
	viper.SetDefault("conversion.overwrite", false)
	viper.SetDefault("conversion.remove_source", false)
	viper.SetDefault("conversion.workers", 1)
	viper.SetDefault("conversion.include_heif", true)
	viper.SetDefault("conversion.codec", string(types.CodecNative))
	viper.SetDefault("conversion.jpeg_quality", codec.DefaultQuality)
	viper.SetDefault("conversion.preserve_exif", true)
	viper.SetDefault("conversion.container_image", codec.DefaultContainerImage)
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.dir", "")
	viper.SetDefault("log.level", "warn")
}

// loadConfig assembles the effective configuration from defaults, the
// config file, HEICCONV_* variables and bound flags.
func loadConfig() types.Config {
	return types.Config{
		Conversion: types.ConversionConfig{
			Recursive:      viper.GetBool("conversion.recursive"),
			Overwrite:      viper.GetBool("conversion.overwrite"),
			RemoveSource:   viper.GetBool("conversion.remove_source"),
			Workers:        viper.GetInt("conversion.workers"),
			IncludeHEIF:    viper.GetBool("conversion.include_heif"),
			Codec:          types.CodecBackend(strings.ToLower(viper.GetString("conversion.codec"))),
			JPEGQuality:    viper.GetInt("conversion.jpeg_quality"),
			PreserveExif:   viper.GetBool("conversion.preserve_exif"),
			ContainerImage: viper.GetString("conversion.container_image"),
		},
		History: types.HistoryConfig{
			Enabled: viper.GetBool("history.enabled"),
			Dir:     viper.GetString("history.dir"),
		},
		Log: types.LogConfig{
			Level: viper.GetString("log.level"),
		},
	}
}

// configureLogger sets up l for stderr diagnostics. Unknown levels fall
// back to warn.
func configureLogger(l *logrus.Logger, w io.Writer, level string) {
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	l.SetLevel(parseLogLevel(level))
}

func parseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.WarnLevel
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
