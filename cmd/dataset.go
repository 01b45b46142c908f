package main

import (
	"context"
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/zzenonn/dstream/internal/dataset"
)

var (
	quiet       bool
	shuffleKeys bool
	shuffleBuf  int
	epoch       int
	rank        int
	worldSize   int
	workerID    int
	workerCount int
)

var lsCmd = &cobra.Command{
	Use:   "ls [location...]",
	Short: "Resolve locations and print the assigned object keys",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ds, err := dataset.New(context.Background(), store, args, datasetOptions()...)
		if err != nil {
			fmt.Printf("Error resolving locations: %v\n", err)
			return
		}
		ds.SetEpoch(epoch)

		assigned := dataset.Plan(ds.EpochKeys(), shardSpec())
		for _, key := range assigned {
			fmt.Println(key)
		}
		fmt.Printf("%d of %d keys assigned to this shard\n", len(assigned), ds.Len())
	},
}

var statCmd = &cobra.Command{
	Use:   "stat [url]",
	Short: "Show whether an object exists and its size",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		url := args[0]
		ctx := context.Background()

		exists, err := store.Exists(ctx, url)
		if err != nil {
			fmt.Printf("Error checking object: %v\n", err)
			return
		}
		if !exists {
			fmt.Printf("%s: not found\n", url)
			return
		}

		size, err := store.Size(ctx, url)
		if err != nil {
			fmt.Printf("Error checking object size: %v\n", err)
			return
		}
		fmt.Printf("%s: %d bytes\n", url, size)
	},
}

var streamCmd = &cobra.Command{
	Use:   "stream [location...]",
	Short: "Stream all records in this shard and print their names",
	Args:  cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		locations := args
		if len(locations) == 0 {
			locations = cfg.Locations
		}
		if len(locations) == 0 {
			fmt.Println("Error: no locations given on the command line or in config")
			return
		}

		ds, err := dataset.New(context.Background(), store, locations, datasetOptions()...)
		if err != nil {
			fmt.Printf("Error resolving locations: %v\n", err)
			return
		}
		ds.SetEpoch(epoch)

		it := ds.Iterate(context.Background(), shardSpec())
		if buffer := effectiveShuffleBuffer(cmd.Flags().Changed("shuffle-buffer"), shuffleBuf, cfg.ShuffleBuffer); buffer > 0 {
			it = dataset.Shuffle(it, buffer)
		}
		defer it.Close()

		var bar *progressbar.ProgressBar
		if !quiet {
			bar = progressbar.Default(-1, "streaming records")
		}

		var records, bytes int64
		for {
			record, err := it.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				fmt.Printf("Error during streaming: %v\n", err)
				return
			}
			records++
			bytes += int64(len(record.Payload))
			if bar != nil {
				bar.Add(1)
			}
		}
		if bar != nil {
			bar.Finish()
			fmt.Println()
		}
		fmt.Printf("Streamed %d records (%d bytes) from shard %d/%d worker %d/%d\n",
			records, bytes, rank, worldSize, workerID, workerCount)
	},
}

// effectiveShuffleBuffer resolves the reservoir size: an explicit flag wins,
// otherwise the configured value applies, matching how locations and
// shuffle_keys fall back to config.
func effectiveShuffleBuffer(flagSet bool, flagValue int, configValue int) int {
	if flagSet {
		return flagValue
	}
	if configValue > 0 {
		return configValue
	}
	return flagValue
}

func datasetOptions() []dataset.Option {
	var opts []dataset.Option
	if shuffleKeys || cfg.ShuffleKeys {
		opts = append(opts, dataset.WithKeyShuffle())
	}
	return opts
}

func shardSpec() dataset.ShardSpec {
	return dataset.ShardSpec{
		Rank:        rank,
		WorldSize:   worldSize,
		WorkerID:    workerID,
		WorkerCount: workerCount,
	}
}

func addShardFlags(cmd *cobra.Command) {
	env := dataset.ShardSpecFromEnv()
	cmd.Flags().IntVar(&rank, "rank", env.Rank, "Distributed rank of this process")
	cmd.Flags().IntVar(&worldSize, "world-size", env.WorldSize, "Total number of distributed ranks")
	cmd.Flags().IntVar(&workerID, "worker-id", env.WorkerID, "Worker index within this rank")
	cmd.Flags().IntVar(&workerCount, "num-workers", env.WorkerCount, "Number of workers per rank")
	cmd.Flags().BoolVar(&shuffleKeys, "shuffle", false, "Shuffle key order with the epoch-seeded permutation")
	cmd.Flags().IntVar(&epoch, "epoch", 0, "Epoch number seeding the key permutation")
}

func init() {
	addShardFlags(lsCmd)
	addShardFlags(streamCmd)
	streamCmd.Flags().IntVar(&shuffleBuf, "shuffle-buffer", 0, "Reservoir size for record-level shuffling (0 disables)")
	streamCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress the progress bar")
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(streamCmd)
}
