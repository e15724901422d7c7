// Package config holds the ambient, non-domain configuration for training
// and searching indexes in this module: iteration counts, seeds, and the
// IVF/LSQ knobs spec.md leaves to the caller. It does not configure a
// server, a wire protocol, or storage — this is a library, not a service.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the training and search tunables of the index/quantizer
// types. No constructor in this module reads a Config directly.
type Config struct {
	Train TrainConfig
	IVF   IVFConfig
	LSQ   LSQConfig
}

// TrainConfig governs k-means and generic training behavior shared by the
// RQ, product-AQ, and IVF coarse training paths.
type TrainConfig struct {
	KMeansIters int   // k-means Lloyd iterations per codebook (default: 25)
	MaxBeamSize int   // RQ beam width during re-encoding (default: 1)
	RandomSeed  int64 // seed for the training RNG (default: 42)
	Verbose     bool  // emit Debug-level progress through the configured Logger
}

// IVFConfig governs the inverted-file coarse quantizer and search fan-out.
type IVFConfig struct {
	NList      int  // number of inverted lists (coarse centroids)
	NProbe     int  // lists visited per query (default: 1)
	ByResidual bool // train/encode the fine quantizer on coarse residuals
}

// LSQConfig governs local-search-quantizer training (spec.md §4.6).
type LSQConfig struct {
	TrainIters     int     // outer ALS/ICM rounds (default: 25)
	ICMIters       int     // ICM sweeps per ILS round (default: 4)
	EncodeILSIters int     // ILS perturb/accept rounds at encode time (default: 2)
	TrainILSIters  int     // ILS perturb/accept rounds during training (default: 2)
	NPerts         int     // number of codes perturbed per ILS round (default: 4)
	Lambda         float64 // Tikhonov regularization strength for codebook updates (default: 1e-2)
	ChunkSize      int     // vectors processed per parallel_for chunk (default: 256)
}

// Default returns the library's default configuration.
func Default() *Config {
	return &Config{
		Train: TrainConfig{
			KMeansIters: 25,
			MaxBeamSize: 1,
			RandomSeed:  42,
			Verbose:     false,
		},
		IVF: IVFConfig{
			NList:      100,
			NProbe:     1,
			ByResidual: true,
		},
		LSQ: LSQConfig{
			TrainIters:     25,
			ICMIters:       4,
			EncodeILSIters: 2,
			TrainILSIters:  2,
			NPerts:         4,
			Lambda:         1e-2,
			ChunkSize:      256,
		},
	}
}

// LoadFromEnv overlays environment variables onto Default(). Every variable
// is optional; an unset or unparsable variable keeps the default.
func LoadFromEnv() *Config {
	cfg := Default()

	if v := os.Getenv("ANNQUANT_KMEANS_ITERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Train.KMeansIters = n
		}
	}
	if v := os.Getenv("ANNQUANT_MAX_BEAM_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Train.MaxBeamSize = n
		}
	}
	if v := os.Getenv("ANNQUANT_RANDOM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Train.RandomSeed = n
		}
	}
	if v := os.Getenv("ANNQUANT_VERBOSE"); v == "true" {
		cfg.Train.Verbose = true
	}

	if v := os.Getenv("ANNQUANT_IVF_NLIST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.IVF.NList = n
		}
	}
	if v := os.Getenv("ANNQUANT_IVF_NPROBE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.IVF.NProbe = n
		}
	}
	if v := os.Getenv("ANNQUANT_IVF_BY_RESIDUAL"); v == "false" {
		cfg.IVF.ByResidual = false
	}

	if v := os.Getenv("ANNQUANT_LSQ_TRAIN_ITERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LSQ.TrainIters = n
		}
	}
	if v := os.Getenv("ANNQUANT_LSQ_ICM_ITERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LSQ.ICMIters = n
		}
	}
	if v := os.Getenv("ANNQUANT_LSQ_NPERTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LSQ.NPerts = n
		}
	}
	if v := os.Getenv("ANNQUANT_LSQ_LAMBDA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LSQ.Lambda = f
		}
	}

	return cfg
}

// Validate checks that the configuration describes a runnable training and
// search setup.
func (c *Config) Validate() error {
	if c.Train.KMeansIters < 1 {
		return fmt.Errorf("invalid KMeansIters: %d (must be > 0)", c.Train.KMeansIters)
	}
	if c.Train.MaxBeamSize < 1 {
		return fmt.Errorf("invalid MaxBeamSize: %d (must be > 0)", c.Train.MaxBeamSize)
	}

	if c.IVF.NList < 1 {
		return fmt.Errorf("invalid IVF NList: %d (must be > 0)", c.IVF.NList)
	}
	if c.IVF.NProbe < 1 || c.IVF.NProbe > c.IVF.NList {
		return fmt.Errorf("invalid IVF NProbe: %d (must be in [1, NList=%d])", c.IVF.NProbe, c.IVF.NList)
	}

	if c.LSQ.TrainIters < 1 {
		return fmt.Errorf("invalid LSQ TrainIters: %d (must be > 0)", c.LSQ.TrainIters)
	}
	if c.LSQ.ICMIters < 1 {
		return fmt.Errorf("invalid LSQ ICMIters: %d (must be > 0)", c.LSQ.ICMIters)
	}
	if c.LSQ.NPerts < 0 {
		return fmt.Errorf("invalid LSQ NPerts: %d (must be >= 0)", c.LSQ.NPerts)
	}
	if c.LSQ.ChunkSize < 1 {
		return fmt.Errorf("invalid LSQ ChunkSize: %d (must be > 0)", c.LSQ.ChunkSize)
	}

	return nil
}
