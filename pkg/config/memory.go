package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDMemory is the identifier for the memory settings section
	SectionIDMemory = "memory"

	defaultKeepRecent       = 5
	defaultThresholdPercent = 80
	defaultThresholdRecent  = 1
	defaultTopK             = 5
	defaultMinScore         = 0.3
)

// MemorySection controls the recency window, the summarizer and the
// long-term fact store.
type MemorySection struct {
	Enabled                 bool
	KeepRecentMessages      int
	CumulativeSummary       bool
	SummaryThresholdPercent int
	ThresholdMinRecent      int // messages the threshold fold leaves verbatim
	TopK                    int
	MinScore                float64
	StoreDir                string // empty means ~/.recall/memories
	mu                      sync.RWMutex
}

// NewMemorySection creates a memory section with default settings.
func NewMemorySection() *MemorySection {
	s := &MemorySection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *MemorySection) ID() string {
	return SectionIDMemory
}

// Title returns the section title.
func (s *MemorySection) Title() string {
	return "Memory"
}

// Description returns the section description.
func (s *MemorySection) Description() string {
	return "How many recent messages stay verbatim, how older history is summarized, and how long-term facts are retrieved."
}

// Data returns the current configuration data.
func (s *MemorySection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"enabled":                   s.Enabled,
		"keep_recent_messages":      s.KeepRecentMessages,
		"cumulative_summary":        s.CumulativeSummary,
		"summary_threshold_percent": s.SummaryThresholdPercent,
		"threshold_min_recent":      s.ThresholdMinRecent,
		"top_k":                     s.TopK,
		"min_score":                 s.MinScore,
		"store_dir":                 s.StoreDir,
	}
}

// SetData updates the configuration from the provided data.
func (s *MemorySection) SetData(data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "enabled":
			s.Enabled, err = asBool(key, value)
		case "keep_recent_messages":
			s.KeepRecentMessages, err = asInt(key, value)
		case "cumulative_summary":
			s.CumulativeSummary, err = asBool(key, value)
		case "summary_threshold_percent":
			s.SummaryThresholdPercent, err = asInt(key, value)
		case "threshold_min_recent":
			s.ThresholdMinRecent, err = asInt(key, value)
		case "top_k":
			s.TopK, err = asInt(key, value)
		case "min_score":
			s.MinScore, err = asFloat(key, value)
		case "store_dir":
			s.StoreDir, err = asString(key, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *MemorySection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.KeepRecentMessages < 1 {
		return fmt.Errorf("keep_recent_messages must be at least 1, got %d", s.KeepRecentMessages)
	}
	if s.SummaryThresholdPercent < 10 || s.SummaryThresholdPercent > 100 {
		return fmt.Errorf("summary_threshold_percent must be between 10 and 100, got %d", s.SummaryThresholdPercent)
	}
	if s.ThresholdMinRecent < 1 {
		return fmt.Errorf("threshold_min_recent must be at least 1, got %d", s.ThresholdMinRecent)
	}
	if s.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1, got %d", s.TopK)
	}
	if s.MinScore < -1 || s.MinScore > 1 {
		return fmt.Errorf("min_score must be between -1 and 1, got %v", s.MinScore)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *MemorySection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Enabled = true
	s.KeepRecentMessages = defaultKeepRecent
	s.CumulativeSummary = true
	s.SummaryThresholdPercent = defaultThresholdPercent
	s.ThresholdMinRecent = defaultThresholdRecent
	s.TopK = defaultTopK
	s.MinScore = defaultMinScore
	s.StoreDir = ""
}

// Snapshot returns a copy of the settings safe to read without locking.
func (s *MemorySection) Snapshot() MemorySettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return MemorySettings{
		Enabled:                 s.Enabled,
		KeepRecentMessages:      s.KeepRecentMessages,
		CumulativeSummary:       s.CumulativeSummary,
		SummaryThresholdPercent: s.SummaryThresholdPercent,
		ThresholdMinRecent:      s.ThresholdMinRecent,
		TopK:                    s.TopK,
		MinScore:                s.MinScore,
		StoreDir:                s.StoreDir,
	}
}

// MemorySettings is an immutable copy of MemorySection.
type MemorySettings struct {
	Enabled                 bool
	KeepRecentMessages      int
	CumulativeSummary       bool
	SummaryThresholdPercent int
	ThresholdMinRecent      int
	TopK                    int
	MinScore                float64
	StoreDir                string
}
