/*
 * Copyright (c) 2026, Ringboard, Inc. (https://www.ringboard.io).
 *
 * Ringboard, Inc. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package config provides structures and functions for loading and managing server configurations.
package config

import (
	"os"
	"path/filepath"

	"github.com/ringboard/ringboard/internal/system/log"

	yaml "gopkg.in/yaml.v3"
)

// ServerConfig holds the server configuration details.
type ServerConfig struct {
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port"`
}

// DataSource holds the durable medium connection details for cache persistence.
type DataSource struct {
	Type     string `yaml:"type"`
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	Path     string `yaml:"path"`
	Options  string `yaml:"options"`
}

// PersistenceConfig holds the cache persistence configuration details.
type PersistenceConfig struct {
	Disabled   bool       `yaml:"disabled"`
	DataSource DataSource `yaml:"datasource"`
}

// CacheProperty holds the configuration overrides for an individual cache store.
type CacheProperty struct {
	Name            string `yaml:"name"`
	Disabled        bool   `yaml:"disabled"`
	Size            int    `yaml:"size"`
	TTL             int    `yaml:"ttl"`
	CleanupInterval int    `yaml:"cleanup_interval"`
	Persist         bool   `yaml:"persist"`
	Namespace       string `yaml:"namespace"`
}

// CacheConfig holds the cache engine configuration details.
type CacheConfig struct {
	Disabled        bool            `yaml:"disabled"`
	Size            int             `yaml:"size"`
	TTL             int             `yaml:"ttl"`
	CleanupInterval int             `yaml:"cleanup_interval"`
	PrefetchDelay   int             `yaml:"prefetch_delay"`
	Properties      []CacheProperty `yaml:"properties"`
}

// Config holds the complete configuration details of the server.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Cache       CacheConfig       `yaml:"cache"`
}

// LoadConfig loads the configurations from the specified YAML file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	path = filepath.Clean(path)

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if ferr := file.Close(); ferr != nil {
			log.GetLogger().Error("Failed to close config file", log.Error(ferr))
		}
	}()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetCacheProperty retrieves the cache property for the specified cache name.
func (c CacheConfig) GetCacheProperty(cacheName string) CacheProperty {
	for _, property := range c.Properties {
		if property.Name == cacheName {
			return property
		}
	}
	return CacheProperty{}
}
