package gate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Markers delimiting the managed block in the edge rules file. Everything
// between them belongs to this service; everything outside is left intact.
const (
	ruleBeginMarker = "# BEGIN accessgate bypass"
	ruleEndMarker   = "# END accessgate bypass"
)

// RuleInstaller manages a named rule block in the edge routing rules file.
// Install and Remove are idempotent: the block is keyed by its markers and
// rewritten as a unit, never patched in place.
type RuleInstaller struct {
	path string
	mu   sync.Mutex
}

// NewRuleInstaller creates a RuleInstaller for the given rules file.
func NewRuleInstaller(path string) *RuleInstaller {
	return &RuleInstaller{path: path}
}

// Install writes (or replaces) the managed block with the given rule body.
func (ri *RuleInstaller) Install(rules string) error {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	existing, err := ri.read()
	if err != nil {
		return err
	}

	content := stripBlock(existing)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += ruleBeginMarker + "\n" + strings.TrimRight(rules, "\n") + "\n" + ruleEndMarker + "\n"

	return ri.write(content)
}

// Remove deletes the managed block, leaving the rest of the file untouched.
// Removing an absent block is a no-op.
func (ri *RuleInstaller) Remove() error {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	existing, err := ri.read()
	if err != nil {
		return err
	}

	stripped := stripBlock(existing)
	if stripped == existing {
		return nil
	}

	return ri.write(stripped)
}

// Installed reports whether the managed block is currently present.
func (ri *RuleInstaller) Installed() (bool, error) {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	existing, err := ri.read()
	if err != nil {
		return false, err
	}
	return strings.Contains(existing, ruleBeginMarker), nil
}

func (ri *RuleInstaller) read() (string, error) {
	data, err := os.ReadFile(ri.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read rules file: %w", err)
	}
	return string(data), nil
}

// write replaces the rules file atomically via rename so the edge never
// observes a half-written file.
func (ri *RuleInstaller) write(content string) error {
	dir := filepath.Dir(ri.path)
	tmp, err := os.CreateTemp(dir, ".accessgate-rules-*")
	if err != nil {
		return fmt.Errorf("failed to create temp rules file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()           //nolint:errcheck
		_ = os.Remove(tmpName)    //nolint:errcheck
		return fmt.Errorf("failed to write rules file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("failed to close rules file: %w", err)
	}

	if err := os.Rename(tmpName, ri.path); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("failed to replace rules file: %w", err)
	}

	return nil
}

// stripBlock removes the managed block, markers included.
func stripBlock(content string) string {
	begin := strings.Index(content, ruleBeginMarker)
	if begin < 0 {
		return content
	}
	end := strings.Index(content, ruleEndMarker)
	if end < 0 {
		// Corrupt block (no end marker): drop everything from the begin
		// marker so a reinstall produces a clean file.
		return content[:begin]
	}
	tail := content[end+len(ruleEndMarker):]
	tail = strings.TrimPrefix(tail, "\n")
	return content[:begin] + tail
}
