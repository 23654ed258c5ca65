// Package telemetry provides system ID generation and management
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/izzarra/Vertigini-VR/internal/privacy"
)

// LoadOrCreateSystemID loads an existing system ID from file or creates a new one.
// The ID is anonymous and stable across restarts so telemetry events from the
// same installation group together.
func LoadOrCreateSystemID(configDir string) (string, error) {
	// Ensure config directory exists
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	idFile := filepath.Join(configDir, ".system_id")

	// Try to read existing ID
	if data, err := os.ReadFile(idFile); err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" && privacy.IsValidSystemID(id) {
			return id, nil
		}
	}

	// Generate new ID
	id, err := privacy.GenerateSystemID()
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(idFile, []byte(id), 0o644); err != nil {
		return "", fmt.Errorf("failed to save system ID: %w", err)
	}

	return id, nil
}
