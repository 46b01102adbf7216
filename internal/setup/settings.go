package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// hookTimeoutMillis is the hook timeout written into settings.json. It
// exceeds the daemon's decision window so the auto-deny response reaches
// Claude Code before the hook process is killed.
const hookTimeoutMillis = 330000

// hookMarker identifies a previously installed stopkran hook entry.
const hookMarker = "stopkran"

// DefaultSettingsPath returns ~/.claude/settings.json.
func DefaultSettingsPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude", "settings.json")
}

// InstallHook inserts the permission hook into Claude Code's settings.json,
// preserving everything else in the file. Returns false when a stopkran
// hook is already present. The file is created if missing.
func InstallHook(settingsPath, command string) (bool, error) {
	settings := map[string]any{}
	if raw, err := os.ReadFile(settingsPath); err == nil {
		if err := json.Unmarshal(raw, &settings); err != nil {
			return false, fmt.Errorf("setup: parse %s: %w", settingsPath, err)
		}
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("setup: read %s: %w", settingsPath, err)
	}

	hooks, ok := settings["hooks"].(map[string]any)
	if !ok {
		hooks = map[string]any{}
		settings["hooks"] = hooks
	}
	permHooks, ok := hooks["PermissionRequest"].([]any)
	if !ok {
		permHooks = []any{}
	}

	if hookInstalled(permHooks) {
		return false, nil
	}

	permHooks = append(permHooks, map[string]any{
		"matcher": "*",
		"hooks": []any{
			map[string]any{
				"type":    "command",
				"command": command,
				"timeout": hookTimeoutMillis,
			},
		},
	})
	hooks["PermissionRequest"] = permHooks

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return false, fmt.Errorf("setup: marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(settingsPath), 0o755); err != nil {
		return false, fmt.Errorf("setup: create %s: %w", filepath.Dir(settingsPath), err)
	}
	if err := os.WriteFile(settingsPath, append(data, '\n'), 0o644); err != nil {
		return false, fmt.Errorf("setup: write %s: %w", settingsPath, err)
	}
	return true, nil
}

// hookInstalled scans the nested hooks arrays for a stopkran command.
func hookInstalled(permHooks []any) bool {
	for _, entry := range permHooks {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		inner, ok := m["hooks"].([]any)
		if !ok {
			continue
		}
		for _, h := range inner {
			hm, ok := h.(map[string]any)
			if !ok {
				continue
			}
			if cmd, ok := hm["command"].(string); ok && strings.Contains(cmd, hookMarker) {
				return true
			}
		}
	}
	return false
}
