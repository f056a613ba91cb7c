package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultObjectNetDir       = "benchmarks/datasets/objectnet-1.0"
	DefaultBenchmarkBatchSize = 256
	DefaultBenchmarkDevice    = "cpu"
)

// BenchmarkEnv configures the ObjectNet benchmark
type BenchmarkEnv struct {
	DatasetDir string
	BatchSize  int
	Device     string
}

// LoadBenchmarkEnv reads OBJECTNET_DIR, BATCH_SIZE and DEVICE from the
// environment, after loading an optional .env file
func LoadBenchmarkEnv() (BenchmarkEnv, error) {
	_ = godotenv.Load()

	batchSize, err := getEnvInt("BATCH_SIZE", DefaultBenchmarkBatchSize)
	if err != nil {
		return BenchmarkEnv{}, err
	}
	if batchSize < 1 {
		return BenchmarkEnv{}, fmt.Errorf("%w: BATCH_SIZE should be >0, got %d", ErrInvalidBatchSize, batchSize)
	}

	return BenchmarkEnv{
		DatasetDir: getEnv("OBJECTNET_DIR", DefaultObjectNetDir),
		BatchSize:  batchSize,
		Device:     getEnv("DEVICE", DefaultBenchmarkDevice),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidBatchSize, key, value)
	}
	return n, nil
}
