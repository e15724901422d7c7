package config

import (
	"os"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Train.KMeansIters != 25 {
		t.Errorf("Expected KMeansIters=25, got %d", cfg.Train.KMeansIters)
	}
	if cfg.Train.RandomSeed != 42 {
		t.Errorf("Expected RandomSeed=42, got %d", cfg.Train.RandomSeed)
	}
	if cfg.Train.Verbose {
		t.Error("Expected Verbose disabled by default")
	}

	if cfg.IVF.NList != 100 {
		t.Errorf("Expected NList=100, got %d", cfg.IVF.NList)
	}
	if cfg.IVF.NProbe != 1 {
		t.Errorf("Expected NProbe=1, got %d", cfg.IVF.NProbe)
	}
	if !cfg.IVF.ByResidual {
		t.Error("Expected ByResidual enabled by default")
	}

	if cfg.LSQ.TrainIters != 25 {
		t.Errorf("Expected LSQ TrainIters=25, got %d", cfg.LSQ.TrainIters)
	}
	if cfg.LSQ.NPerts != 4 {
		t.Errorf("Expected LSQ NPerts=4, got %d", cfg.LSQ.NPerts)
	}
	if cfg.LSQ.Lambda != 1e-2 {
		t.Errorf("Expected LSQ Lambda=1e-2, got %v", cfg.LSQ.Lambda)
	}
}

func TestLoadFromEnv(t *testing.T) {
	envVars := []string{
		"ANNQUANT_KMEANS_ITERS", "ANNQUANT_MAX_BEAM_SIZE", "ANNQUANT_RANDOM_SEED",
		"ANNQUANT_VERBOSE", "ANNQUANT_IVF_NLIST", "ANNQUANT_IVF_NPROBE",
		"ANNQUANT_IVF_BY_RESIDUAL", "ANNQUANT_LSQ_TRAIN_ITERS",
		"ANNQUANT_LSQ_ICM_ITERS", "ANNQUANT_LSQ_NPERTS", "ANNQUANT_LSQ_LAMBDA",
	}
	original := make(map[string]string, len(envVars))
	for _, key := range envVars {
		original[key] = os.Getenv(key)
	}
	defer func() {
		for key, value := range original {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	os.Setenv("ANNQUANT_KMEANS_ITERS", "50")
	os.Setenv("ANNQUANT_MAX_BEAM_SIZE", "4")
	os.Setenv("ANNQUANT_RANDOM_SEED", "7")
	os.Setenv("ANNQUANT_VERBOSE", "true")
	os.Setenv("ANNQUANT_IVF_NLIST", "256")
	os.Setenv("ANNQUANT_IVF_NPROBE", "16")
	os.Setenv("ANNQUANT_IVF_BY_RESIDUAL", "false")
	os.Setenv("ANNQUANT_LSQ_TRAIN_ITERS", "10")
	os.Setenv("ANNQUANT_LSQ_ICM_ITERS", "8")
	os.Setenv("ANNQUANT_LSQ_NPERTS", "2")
	os.Setenv("ANNQUANT_LSQ_LAMBDA", "0.5")

	cfg := LoadFromEnv()

	if cfg.Train.KMeansIters != 50 {
		t.Errorf("Expected KMeansIters=50, got %d", cfg.Train.KMeansIters)
	}
	if cfg.Train.MaxBeamSize != 4 {
		t.Errorf("Expected MaxBeamSize=4, got %d", cfg.Train.MaxBeamSize)
	}
	if cfg.Train.RandomSeed != 7 {
		t.Errorf("Expected RandomSeed=7, got %d", cfg.Train.RandomSeed)
	}
	if !cfg.Train.Verbose {
		t.Error("Expected Verbose enabled")
	}
	if cfg.IVF.NList != 256 {
		t.Errorf("Expected NList=256, got %d", cfg.IVF.NList)
	}
	if cfg.IVF.NProbe != 16 {
		t.Errorf("Expected NProbe=16, got %d", cfg.IVF.NProbe)
	}
	if cfg.IVF.ByResidual {
		t.Error("Expected ByResidual disabled")
	}
	if cfg.LSQ.TrainIters != 10 {
		t.Errorf("Expected LSQ TrainIters=10, got %d", cfg.LSQ.TrainIters)
	}
	if cfg.LSQ.ICMIters != 8 {
		t.Errorf("Expected LSQ ICMIters=8, got %d", cfg.LSQ.ICMIters)
	}
	if cfg.LSQ.NPerts != 2 {
		t.Errorf("Expected LSQ NPerts=2, got %d", cfg.LSQ.NPerts)
	}
	if cfg.LSQ.Lambda != 0.5 {
		t.Errorf("Expected LSQ Lambda=0.5, got %v", cfg.LSQ.Lambda)
	}
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	original := os.Getenv("ANNQUANT_KMEANS_ITERS")
	defer func() {
		if original == "" {
			os.Unsetenv("ANNQUANT_KMEANS_ITERS")
		} else {
			os.Setenv("ANNQUANT_KMEANS_ITERS", original)
		}
	}()

	os.Setenv("ANNQUANT_KMEANS_ITERS", "not-a-number")
	cfg := LoadFromEnv()

	if cfg.Train.KMeansIters != 25 {
		t.Errorf("Expected default KMeansIters=25 for invalid value, got %d", cfg.Train.KMeansIters)
	}
}

func TestLoadFromEnv_DefaultsWhenNotSet(t *testing.T) {
	envVars := []string{
		"ANNQUANT_KMEANS_ITERS", "ANNQUANT_MAX_BEAM_SIZE", "ANNQUANT_RANDOM_SEED",
		"ANNQUANT_VERBOSE", "ANNQUANT_IVF_NLIST", "ANNQUANT_IVF_NPROBE",
	}
	original := make(map[string]string, len(envVars))
	for _, key := range envVars {
		original[key] = os.Getenv(key)
		os.Unsetenv(key)
	}
	defer func() {
		for key, value := range original {
			if value != "" {
				os.Setenv(key, value)
			}
		}
	}()

	cfg := LoadFromEnv()
	defaults := Default()

	if cfg.Train.KMeansIters != defaults.Train.KMeansIters {
		t.Errorf("Expected default KMeansIters, got %d", cfg.Train.KMeansIters)
	}
	if cfg.IVF.NList != defaults.IVF.NList {
		t.Errorf("Expected default NList, got %d", cfg.IVF.NList)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "valid default config", config: Default(), wantErr: false},
		{
			name: "invalid KMeansIters",
			config: &Config{
				Train: TrainConfig{KMeansIters: 0, MaxBeamSize: 1},
				IVF:   IVFConfig{NList: 10, NProbe: 1},
				LSQ:   LSQConfig{TrainIters: 1, ICMIters: 1, ChunkSize: 1},
			},
			wantErr: true,
		},
		{
			name: "invalid nprobe greater than nlist",
			config: &Config{
				Train: TrainConfig{KMeansIters: 1, MaxBeamSize: 1},
				IVF:   IVFConfig{NList: 10, NProbe: 20},
				LSQ:   LSQConfig{TrainIters: 1, ICMIters: 1, ChunkSize: 1},
			},
			wantErr: true,
		},
		{
			name: "invalid negative nperts",
			config: &Config{
				Train: TrainConfig{KMeansIters: 1, MaxBeamSize: 1},
				IVF:   IVFConfig{NList: 10, NProbe: 1},
				LSQ:   LSQConfig{TrainIters: 1, ICMIters: 1, NPerts: -1, ChunkSize: 1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
