package dataset

import (
	"os"
	"strconv"
)

// ShardSpec identifies one consumer of a dataset along the two independent
// sharding dimensions: distributed rank across the cluster and worker
// process within one rank. The zero value disables both dimensions.
//
// Callers pass the spec explicitly into Iterate rather than having the
// planner read ambient global state, so planning stays a pure function.
type ShardSpec struct {
	Rank        int
	WorldSize   int
	WorkerID    int
	WorkerCount int
}

// ShardSpecFromEnv builds a ShardSpec from the torchrun-style environment
// variables RANK, WORLD_SIZE, WORKER_ID and NUM_WORKERS. Unset or malformed
// variables fall back to the non-distributed, single-worker defaults.
func ShardSpecFromEnv() ShardSpec {
	return ShardSpec{
		Rank:        envInt("RANK", 0),
		WorldSize:   envInt("WORLD_SIZE", 1),
		WorkerID:    envInt("WORKER_ID", 0),
		WorkerCount: envInt("NUM_WORKERS", 1),
	}
}

func envInt(name string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return fallback
	}
	return value
}

// Plan computes the deterministic subset of keys the given (rank, worker)
// pair must read. Rank striding applies first, cluster-wide, then worker
// striding within the rank's share. Both use modular interleaving
// (index ≡ start mod step), never contiguous blocks, so shard sizes across
// all combinations differ by at most one.
//
// Every replica must call Plan with an identically ordered key list; with
// key shuffling enabled that ordering comes from the epoch-seeded
// permutation, which is identical on all replicas for a given epoch.
func Plan(keys []string, spec ShardSpec) []string {
	assigned := keys
	if spec.WorldSize > 1 {
		assigned = strided(assigned, spec.Rank, spec.WorldSize)
	}
	if spec.WorkerCount > 1 {
		assigned = strided(assigned, spec.WorkerID, spec.WorkerCount)
	}
	return assigned
}

func strided(keys []string, start int, step int) []string {
	if start >= len(keys) {
		return nil
	}
	out := make([]string, 0, (len(keys)-start+step-1)/step)
	for i := start; i < len(keys); i += step {
		out = append(out, keys[i])
	}
	return out
}
