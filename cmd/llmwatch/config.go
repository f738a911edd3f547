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

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the watch command flags in a YAML file. Flags and
// environment variables take precedence over file values.
type fileConfig struct {
	Elasticsearch struct {
		URL      string `yaml:"url"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"elasticsearch"`

	LocalDB    string `yaml:"local_db"`
	WatchIndex string `yaml:"watch_index"`

	Ollama struct {
		Host string `yaml:"host"`
	} `yaml:"ollama"`

	OpenAI struct {
		Key  string `yaml:"key"`
		Host string `yaml:"host"`
	} `yaml:"openai"`

	BatchSize   int    `yaml:"batch_size"`
	Interval    string `yaml:"interval"`
	RetryErrors bool   `yaml:"retry_errors"`
	SortField   string `yaml:"sort_field"`
	PoolSize    int    `yaml:"pool_size"`
	ItemTimeout string `yaml:"item_timeout"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &fileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// interval returns the parsed poll interval, or zero when unset.
func (c *fileConfig) interval() (time.Duration, error) {
	return parseOptionalDuration("interval", c.Interval)
}

// itemTimeout returns the parsed per-item timeout, or zero when unset.
func (c *fileConfig) itemTimeout() (time.Duration, error) {
	return parseOptionalDuration("item_timeout", c.ItemTimeout)
}

func parseOptionalDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
