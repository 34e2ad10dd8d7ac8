// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML run-parameter file. Pointer fields
// distinguish "absent" from zero so flag merging stays unambiguous:
// an explicitly set flag always wins, then the file, then the flag's
// default.
type fileConfig struct {
	DSN                   string `yaml:"dsn"`
	SnapshotDir           string `yaml:"snapshot_dir"`
	VectorDim             *int   `yaml:"vector_dim"`
	ChunkBatchSize        *int   `yaml:"chunk_batch_size"`
	EmbeddingBatchSize    *int   `yaml:"embedding_batch_size"`
	ConversationBatchSize *int   `yaml:"conversation_batch_size"`
	ConflictMode          string `yaml:"conflict_mode"`
	Resume                *bool  `yaml:"resume"`
	Strict                *bool  `yaml:"strict"`
	DryRun                *bool  `yaml:"dry_run"`
	LedgerPath            string `yaml:"ledger_path"`
	MaxRetries            *int   `yaml:"max_retries"`
	RetryDelay            string `yaml:"retry_delay"`
	CallTimeout           string `yaml:"call_timeout"`
	ReportInterval        *int   `yaml:"report_interval"`
	ReportJSON            string `yaml:"report_json"`

	EmbeddingHost  string `yaml:"embedding_host"`
	EmbeddingModel string `yaml:"embedding_model"`
	FetchSize      *int   `yaml:"fetch_size"`
	EmbedBatchSize *int   `yaml:"embed_batch_size"`
	PoolSize       *int   `yaml:"pool_size"`
}

// loadFileConfig reads the YAML run-parameter file named by the
// --config flag. No flag means an empty file config.
func loadFileConfig(c *cli.Context) (*fileConfig, error) {
	path := c.String("config")
	if path == "" {
		return &fileConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &cfg, nil
}

func stringSetting(c *cli.Context, name, fileValue string) string {
	if c.IsSet(name) || fileValue == "" {
		return c.String(name)
	}
	return fileValue
}

func intSetting(c *cli.Context, name string, fileValue *int) int {
	if c.IsSet(name) || fileValue == nil {
		return c.Int(name)
	}
	return *fileValue
}

func boolSetting(c *cli.Context, name string, fileValue *bool) bool {
	if c.IsSet(name) || fileValue == nil {
		return c.Bool(name)
	}
	return *fileValue
}

func durationSetting(c *cli.Context, name, fileValue string) (time.Duration, error) {
	if c.IsSet(name) || fileValue == "" {
		return c.Duration(name), nil
	}
	d, err := time.ParseDuration(fileValue)
	if err != nil {
		return 0, fmt.Errorf("config file %s: %w", name, err)
	}
	return d, nil
}
