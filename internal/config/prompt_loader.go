package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LoadedPrompts holds prompt content read from files
type LoadedPrompts struct {
	System string
	User   string
}

var (
	loadedMu     sync.RWMutex
	loadedGlobal LoadedPrompts
	loadedEnrich LoadedPrompts
)

// GetLoadedEnrichPrompts returns a copy of the prompts loaded from files for
// enrichment. Operation-specific files win over global ones.
func GetLoadedEnrichPrompts() LoadedPrompts {
	loadedMu.RLock()
	defer loadedMu.RUnlock()

	out := loadedEnrich
	if out.System == "" {
		out.System = loadedGlobal.System
	}
	if out.User == "" {
		out.User = loadedGlobal.User
	}
	return out
}

// loadPromptsFromFiles loads custom prompts from external files if file paths are specified
func (c *Config) loadPromptsFromFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	var global, enrich LoadedPrompts
	targets := []struct {
		path   string
		kind   string
		scope  string
		target *string
	}{
		{c.AI.CustomPrompts.SystemPrompts.EnrichFile, "system", "global", &global.System},
		{c.AI.CustomPrompts.UserPrompts.EnrichFile, "user", "global", &global.User},
		{c.AI.Enrich.CustomPrompts.SystemPrompts.EnrichFile, "system", "enrich", &enrich.System},
		{c.AI.Enrich.CustomPrompts.UserPrompts.EnrichFile, "user", "enrich", &enrich.User},
	}

	count := 0
	for _, t := range targets {
		if t.path == "" {
			continue
		}
		content, err := c.loadPromptFromFile(t.path, t.kind, t.scope)
		if err != nil {
			return err
		}
		*t.target = content
		count++
	}

	loadedMu.Lock()
	loadedGlobal, loadedEnrich = global, enrich
	loadedMu.Unlock()

	if count == 0 {
		log.Println("[CONFIG] No custom prompts loaded - using built-in defaults")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded: %d", count)
	}
	return nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func (c *Config) loadPromptFromFile(filePath, promptType, scope string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", scope, promptType, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", scope, promptType, absPath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", scope, promptType, absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", scope, promptType, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		scope, promptType, absPath, len(trimmed))

	return trimmed, nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var problems []string

	check := func(filePath, label string) {
		if filePath == "" {
			return
		}
		absPath, err := filepath.Abs(filePath)
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid path for %s prompt: %s", label, filePath))
			return
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			problems = append(problems, fmt.Sprintf("%s prompt file not found: %s", label, absPath))
		}
	}

	check(c.AI.CustomPrompts.SystemPrompts.EnrichFile, "global system")
	check(c.AI.CustomPrompts.UserPrompts.EnrichFile, "global user")
	check(c.AI.Enrich.CustomPrompts.SystemPrompts.EnrichFile, "enrich system")
	check(c.AI.Enrich.CustomPrompts.UserPrompts.EnrichFile, "enrich user")

	if len(problems) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}
