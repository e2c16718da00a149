package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDStorage is the identifier for the storage settings section
	SectionIDStorage = "storage"

	// ThreadsBackendFile keeps saved threads as JSON files.
	ThreadsBackendFile = "file"
	// ThreadsBackendRedis keeps saved threads in Redis.
	ThreadsBackendRedis = "redis"

	defaultThreadsDir = "saved_threads"
)

// StorageSection selects where saved chat threads live.
type StorageSection struct {
	ThreadsBackend string
	ThreadsDir     string
	RedisURL       string
	mu             sync.RWMutex
}

// NewStorageSection creates a storage section with default settings.
func NewStorageSection() *StorageSection {
	return &StorageSection{
		ThreadsBackend: ThreadsBackendFile,
		ThreadsDir:     defaultThreadsDir,
	}
}

// ID returns the section identifier.
func (s *StorageSection) ID() string {
	return SectionIDStorage
}

// Title returns the section title.
func (s *StorageSection) Title() string {
	return "Storage"
}

// Description returns the section description.
func (s *StorageSection) Description() string {
	return "Where saved chat threads are kept: JSON files in threads_dir, or Redis at redis_url."
}

// Data returns the current configuration data.
func (s *StorageSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"threads_backend": s.ThreadsBackend,
		"threads_dir":     s.ThreadsDir,
		"redis_url":       s.RedisURL,
	}
}

// SetData updates the configuration from the provided data.
func (s *StorageSection) SetData(data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "threads_backend":
			s.ThreadsBackend, err = asString(key, value)
		case "threads_dir":
			s.ThreadsDir, err = asString(key, value)
		case "redis_url":
			s.RedisURL, err = asString(key, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *StorageSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.ThreadsBackend {
	case ThreadsBackendFile:
		if s.ThreadsDir == "" {
			return fmt.Errorf("threads_dir is required for the file backend")
		}
	case ThreadsBackendRedis:
		if s.RedisURL == "" {
			return fmt.Errorf("redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown threads_backend %q", s.ThreadsBackend)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *StorageSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ThreadsBackend = ThreadsBackendFile
	s.ThreadsDir = defaultThreadsDir
	s.RedisURL = ""
}

// GetThreadsBackend returns the configured backend name.
func (s *StorageSection) GetThreadsBackend() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ThreadsBackend
}

// GetThreadsDir returns the directory for file-backed threads.
func (s *StorageSection) GetThreadsDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ThreadsDir
}

// GetRedisURL returns the Redis connection URL.
func (s *StorageSection) GetRedisURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.RedisURL
}

// SetRedisURL sets the Redis connection URL.
func (s *StorageSection) SetRedisURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RedisURL = url
}
