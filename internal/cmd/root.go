package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pressroom",
	Short: "Image editing and template rendering for publishing workflows",
	Long: `Pressroom crops, filters, watermarks and annotates images before they are
published, and renders design templates built from text, image slots and shapes.

Edits run through a fixed pipeline (crop, filter, watermark, overlay, encode)
and finished images are stored in a local media library that the HTTP API
serves alongside the editor endpoints.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pressroom.yaml)")
	rootCmd.PersistentFlags().String("database", "pressroom.db", "SQLite database for templates, settings and media")
	rootCmd.PersistentFlags().String("media-dir", "./media", "Directory for stored images")
	rootCmd.PersistentFlags().String("media-url", "/media", "Public URL prefix of the media directory")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	for _, name := range []string{"database", "media-dir", "media-url", "verbose", "log-format"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pressroom"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("pressroom")
	}

	viper.SetEnvPrefix("PRESSROOM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
