// Package e2e contains end-to-end tests for the framesource CLI.
// Tests run against a freshly built binary unless FRAMESOURCE_BINARY points
// at a pre-built one.
package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/user/framesource/pkg/mediatest"
)

// getBinaryName returns the test binary name with platform-specific extension
func getBinaryName() string {
	if runtime.GOOS == "windows" {
		return "framesource-test.exe"
	}
	return "framesource-test"
}

// getBinaryPath returns the path to execute the test binary
func getBinaryPath(t *testing.T) string {
	if path := os.Getenv("FRAMESOURCE_BINARY"); path != "" {
		return path
	}
	return filepath.Join(getProjectRoot(t), getBinaryName())
}

// prepareBinary skips unless E2E is enabled and builds the CLI when needed.
func prepareBinary(t *testing.T) string {
	t.Helper()
	if os.Getenv("FRAMESOURCE_E2E") != "1" {
		t.Skip("Skipping E2E test (set FRAMESOURCE_E2E=1 to run)")
	}

	if os.Getenv("FRAMESOURCE_BINARY") == "" {
		buildCmd := exec.Command("go", "build", "-o", getBinaryName(), "./cmd/framesource")
		buildCmd.Dir = getProjectRoot(t)
		if out, err := buildCmd.CombinedOutput(); err != nil {
			t.Fatalf("Failed to build CLI: %v\n%s", err, out)
		}
		t.Cleanup(func() {
			os.Remove(filepath.Join(getProjectRoot(t), getBinaryName()))
		})
	}
	return getBinaryPath(t)
}

// writeClip writes a three-frame MJPEG MP4 and returns its path.
func writeClip(t *testing.T) string {
	t.Helper()
	samples, err := mediatest.JPEGClip(64, 48, 0, 33, 66)
	if err != nil {
		t.Fatalf("Failed to encode frames: %v", err)
	}
	data, err := mediatest.BuildMP4("jpeg", 64, 48, samples)
	if err != nil {
		t.Fatalf("Failed to build MP4: %v", err)
	}
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write clip: %v", err)
	}
	return path
}

func runCLI(t *testing.T, binary string, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command(binary, args...)
	cmd.Dir = getProjectRoot(t)
	// Keep output in English regardless of the host locale.
	cmd.Env = append(os.Environ(), "LANG=C", "LC_ALL=C")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// TestPlayCommand plays a clip to the end and checks snapshots and summary.
func TestPlayCommand(t *testing.T) {
	binary := prepareBinary(t)
	clip := writeClip(t)
	outDir := t.TempDir()

	stdout, stderr, err := runCLI(t, binary, "play",
		"--fps", "120",
		"--snapshot-dir", filepath.Join(outDir, "snap"),
		"--snapshot-every", "1",
		"--summary", filepath.Join(outDir, "summary.md"),
		clip)
	if err != nil {
		t.Fatalf("Play command failed: %v\nstdout: %s\nstderr: %s", err, stdout, stderr)
	}

	if !strings.Contains(stdout, "3 frames shown") {
		t.Errorf("Unexpected output: %s", stdout)
	}

	entries, err := os.ReadDir(filepath.Join(outDir, "snap", "frames"))
	if err != nil {
		t.Fatalf("Snapshot directory not found: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("Expected 4 snapshots, got %d", len(entries))
	}

	summary, err := os.ReadFile(filepath.Join(outDir, "summary.md"))
	if err != nil {
		t.Fatalf("Summary not found: %v", err)
	}
	if !strings.Contains(string(summary), "# Playback Summary") {
		t.Errorf("Unexpected summary:\n%s", summary)
	}
}

// TestPlayMissingFile checks the exit status for a missing source.
func TestPlayMissingFile(t *testing.T) {
	binary := prepareBinary(t)

	_, stderr, err := runCLI(t, binary, "play", "--quiet", filepath.Join(t.TempDir(), "missing.mp4"))
	if err == nil {
		t.Fatal("Expected failure for missing file")
	}
	if !strings.Contains(stderr, "not found") {
		t.Errorf("Expected not found error, got: %s", stderr)
	}
}

// TestProbeCommand checks stream information output.
func TestProbeCommand(t *testing.T) {
	binary := prepareBinary(t)
	clip := writeClip(t)

	stdout, stderr, err := runCLI(t, binary, "probe", "--count", clip)
	if err != nil {
		t.Fatalf("Probe command failed: %v\nstderr: %s", err, stderr)
	}
	for _, want := range []string{"Container:", "mp4", "64x48", "Decoded:"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("Expected %q in output:\n%s", want, stdout)
		}
	}
}

// TestVersionCommand tests the version flag
func TestVersionCommand(t *testing.T) {
	binary := prepareBinary(t)

	stdout, _, err := runCLI(t, binary, "--version")
	if err != nil {
		t.Fatalf("Version command failed: %v", err)
	}
	if !strings.Contains(stdout, "framesource version") {
		t.Errorf("Unexpected version output: %s", stdout)
	}
}

// TestPlayHelp checks the documented flags are present.
func TestPlayHelp(t *testing.T) {
	binary := prepareBinary(t)

	stdout, _, err := runCLI(t, binary, "play", "--help")
	if err != nil {
		t.Fatalf("Help failed: %v", err)
	}
	for _, flag := range []string{"--fps", "--policy", "--backend", "--snapshot-dir", "--summary"} {
		if !strings.Contains(stdout, flag) {
			t.Errorf("Expected %s option in help", flag)
		}
	}
}

// getProjectRoot returns the project root directory
func getProjectRoot(t *testing.T) string {
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("Could not find project root (go.mod)")
		}
		dir = parent
	}
}
