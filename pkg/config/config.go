package config

import (
	"sync"
)

var (
	globalManager *Manager
	globalMu      sync.Mutex
)

// NewDefaultManager creates a manager over store with every recall section
// registered.
func NewDefaultManager(store Store) (*Manager, error) {
	manager := NewManager(store)
	for _, section := range []Section{
		NewLLMSection(),
		NewMemorySection(),
		NewStorageSection(),
		NewToolsSection(),
		NewUISection(),
	} {
		if err := manager.RegisterSection(section); err != nil {
			return nil, err
		}
	}
	return manager, nil
}

// Initialize creates the global configuration manager from the file at
// configPath (or the default path) and loads it. Call once at startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}
	manager, err := NewDefaultManager(store)
	if err != nil {
		return err
	}
	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}
	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

func globalSection[T Section](id string) T {
	var zero T
	if !IsInitialized() {
		return zero
	}
	section, ok := Global().GetSection(id)
	if !ok {
		return zero
	}
	typed, ok := section.(T)
	if !ok {
		return zero
	}
	return typed
}

// GetLLM returns the LLM section, or nil before Initialize.
func GetLLM() *LLMSection {
	return globalSection[*LLMSection](SectionIDLLM)
}

// GetMemory returns the memory section, or nil before Initialize.
func GetMemory() *MemorySection {
	return globalSection[*MemorySection](SectionIDMemory)
}

// GetStorage returns the storage section, or nil before Initialize.
func GetStorage() *StorageSection {
	return globalSection[*StorageSection](SectionIDStorage)
}

// GetTools returns the tools section, or nil before Initialize.
func GetTools() *ToolsSection {
	return globalSection[*ToolsSection](SectionIDTools)
}

// GetUI returns the UI section, or nil before Initialize.
func GetUI() *UISection {
	return globalSection[*UISection](SectionIDUI)
}
