package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv reads KEY=value pairs from the given .env files (".env" when none
// are given) into the process environment. Variables already set win, and
// missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// legacyFile is the flat per-vendor layout used by earlier prototype
// config.json files.
type legacyFile struct {
	OpenAI map[string]interface{} `json:"openai"`
	Redis  map[string]interface{} `json:"redis"`
}

// ReadLegacyFile translates a legacy config.json into section data. Only the
// openai and redis blocks carry over.
func ReadLegacyFile(path string) (map[string]map[string]interface{}, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy config: %w", err)
	}
	var legacy legacyFile
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, fmt.Errorf("failed to decode legacy config: %w", err)
	}

	out := make(map[string]map[string]interface{})
	if len(legacy.OpenAI) > 0 {
		llm := make(map[string]interface{})
		for _, key := range []string{"api_key", "base_url", "temperature", "max_tokens"} {
			if v, ok := legacy.OpenAI[key]; ok {
				llm[key] = v
			}
		}
		// default_model is what the prototypes read; model is a fallback.
		if v, ok := legacy.OpenAI["model"]; ok {
			llm["model"] = v
		}
		if v, ok := legacy.OpenAI["default_model"]; ok {
			llm["model"] = v
		}
		out[SectionIDLLM] = llm
	}
	if url, ok := legacy.Redis["url"]; ok {
		out[SectionIDStorage] = map[string]interface{}{
			"threads_backend": ThreadsBackendRedis,
			"redis_url":       url,
		}
	}
	return out, nil
}

// Import applies translated section data to the registered sections.
// Sections not present in data are left untouched.
func (m *Manager) Import(data map[string]map[string]interface{}) error {
	for id, values := range data {
		section, ok := m.GetSection(id)
		if !ok {
			continue
		}
		if err := section.SetData(values); err != nil {
			return fmt.Errorf("failed to import section %s: %w", id, err)
		}
	}
	return nil
}
