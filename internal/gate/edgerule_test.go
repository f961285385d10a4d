package gate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testRules = "RewriteRule ^.*$ /maintenance.html [R=302,L]"

func newTestInstaller(t *testing.T) (*RuleInstaller, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.conf")
	return NewRuleInstaller(path), path
}

// TestInstallAndRemove verifies the managed block round trip.
func TestInstallAndRemove(t *testing.T) {
	t.Parallel()

	ri, path := newTestInstaller(t)

	installed, err := ri.Installed()
	if err != nil {
		t.Fatalf("Installed failed: %v", err)
	}
	if installed {
		t.Error("expected no block before install")
	}

	if err := ri.Install(testRules); err != nil {
		t.Fatalf("Install failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read rules file: %v", err)
	}
	if !strings.Contains(string(content), ruleBeginMarker) ||
		!strings.Contains(string(content), ruleEndMarker) {
		t.Error("expected both markers in rules file")
	}
	if !strings.Contains(string(content), testRules) {
		t.Error("expected rule body in rules file")
	}

	installed, err = ri.Installed()
	if err != nil {
		t.Fatalf("Installed failed: %v", err)
	}
	if !installed {
		t.Error("expected block to be reported installed")
	}

	if err := ri.Remove(); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	content, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read rules file: %v", err)
	}
	if strings.Contains(string(content), ruleBeginMarker) {
		t.Error("expected block to be gone after remove")
	}
}

// TestInstallIdempotent verifies a repeat install replaces rather than
// appends the block.
func TestInstallIdempotent(t *testing.T) {
	t.Parallel()

	ri, path := newTestInstaller(t)

	if err := ri.Install(testRules); err != nil {
		t.Fatalf("first Install failed: %v", err)
	}
	if err := ri.Install(testRules); err != nil {
		t.Fatalf("second Install failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read rules file: %v", err)
	}
	if n := strings.Count(string(content), ruleBeginMarker); n != 1 {
		t.Errorf("expected exactly 1 begin marker, got %d", n)
	}
}

// TestRemoveIdempotent verifies removing an absent block is a no-op.
func TestRemoveIdempotent(t *testing.T) {
	t.Parallel()

	ri, path := newTestInstaller(t)

	// Missing file
	if err := ri.Remove(); err != nil {
		t.Fatalf("Remove on missing file failed: %v", err)
	}

	// Present file, absent block
	if err := os.WriteFile(path, []byte("KeepThis on\n"), 0o644); err != nil {
		t.Fatalf("failed to seed rules file: %v", err)
	}
	if err := ri.Remove(); err != nil {
		t.Fatalf("Remove on absent block failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read rules file: %v", err)
	}
	if string(content) != "KeepThis on\n" {
		t.Errorf("expected file untouched, got %q", string(content))
	}
}

// TestInstallPreservesSurroundingContent verifies foreign rules survive the
// managed block lifecycle.
func TestInstallPreservesSurroundingContent(t *testing.T) {
	t.Parallel()

	ri, path := newTestInstaller(t)

	existing := "# hand-maintained\nRewriteEngine On\n"
	if err := os.WriteFile(path, []byte(existing), 0o644); err != nil {
		t.Fatalf("failed to seed rules file: %v", err)
	}

	if err := ri.Install(testRules); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if err := ri.Remove(); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read rules file: %v", err)
	}
	if string(content) != existing {
		t.Errorf("expected original content restored, got %q", string(content))
	}
}

// TestStripBlockMissingEndMarker verifies a corrupt block is cut from the
// begin marker so a reinstall produces a clean file.
func TestStripBlockMissingEndMarker(t *testing.T) {
	t.Parallel()

	content := "keep\n" + ruleBeginMarker + "\ncorrupt"
	if got := stripBlock(content); got != "keep\n" {
		t.Errorf("expected corrupt block dropped, got %q", got)
	}
}
