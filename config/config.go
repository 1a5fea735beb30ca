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


// Package config loads process configuration from the environment, with an
// optional .env file for local development. Library-level knobs stay in
// their packages; this is only what varies per deployment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the process configuration for the CLI.
type Config struct {
	// IMAP connection.
	IMAPHost     string
	IMAPPort     string
	IMAPUser     string
	IMAPPassword string
	IMAPFolder   string

	// Local index location.
	DBPath string

	// AI services. Hosts must be OpenAI-compatible.
	APIToken        string
	EmbeddingHost   string
	EmbeddingModel  string
	GenerationHost  string
	GenerationModel string

	// Chunking.
	ChunkMaxLen  int
	ChunkOverlap int
}

// Load reads an optional .env file, then the environment. A missing .env
// file is not an error; a present but unreadable one is.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	} else {
		// Best effort: pick up ./.env when present.
		_ = godotenv.Load()
	}

	cfg := &Config{
		IMAPHost:        os.Getenv("IMAP_HOST"),
		IMAPPort:        envOr("IMAP_PORT", "993"),
		IMAPUser:        os.Getenv("IMAP_USER"),
		IMAPPassword:    os.Getenv("IMAP_PASSWORD"),
		IMAPFolder:      envOr("IMAP_FOLDER", "INBOX"),
		DBPath:          envOr("DB_PATH", "email-agent.db"),
		APIToken:        envOr("OPENAI_API_KEY", "none"),
		EmbeddingHost:   envOr("EMBEDDING_HOST", "http://localhost:11434/v1"),
		EmbeddingModel:  envOr("EMBEDDING_MODEL", "embeddinggemma"),
		GenerationHost:  envOr("GENERATION_HOST", "http://localhost:11434/v1"),
		GenerationModel: envOr("GENERATION_MODEL", "qwen2.5:3b"),
	}

	var err error
	if cfg.ChunkMaxLen, err = envInt("CHUNK_MAX_LEN", 1000); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = envInt("CHUNK_OVERLAP", 100); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateIMAP checks the variables ingestion needs. Query-only commands
// never touch the mailbox and skip this.
func (c *Config) ValidateIMAP() error {
	for _, v := range []struct{ name, value string }{
		{"IMAP_HOST", c.IMAPHost},
		{"IMAP_USER", c.IMAPUser},
		{"IMAP_PASSWORD", c.IMAPPassword},
	} {
		if v.value == "" {
			return fmt.Errorf("missing required environment variable %s", v.name)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}
