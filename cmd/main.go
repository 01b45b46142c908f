package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zzenonn/dstream/internal/config"
	"github.com/zzenonn/dstream/internal/logging"
	"github.com/zzenonn/dstream/internal/repository/objectstore"
)

var (
	cfg        *config.Config
	store      *objectstore.Router
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "dstream",
	Short: "Stream object store datasets into training pipelines",
	Long: "dstream resolves s3://, gs:// and mem:// locations into object keys, " +
		"shards them deterministically across ranks and workers, and streams " +
		"records (demultiplexing tar/zip archives) with optional shuffling",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (trace, debug, info, warn, error)")
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	var err error
	cfg, err = config.LoadConfig(configPath, rootCmd)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logging.InitLogger(cfg)

	factory := objectstore.NewObjectRepositoryFactory(cfg.AwsConfig, cfg.GcsClient)
	store = objectstore.NewRouter(factory)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
