// Package service manages the bootsift systemd user unit, which analyses the
// current boot's journal once per login.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"
)

const unitName = "bootsift.service"

// ErrUnitNotLoaded is returned when systemd does not know the unit.
var ErrUnitNotLoaded = errors.New("unit not loaded")

// StateFunc reports a unit's ActiveState.
type StateFunc func(ctx context.Context, unit string) (string, error)

// UnitContents returns the systemd unit file contents for the given binary
// path and output directory.
func UnitContents(binaryPath, outDir string) string {
	return fmt.Sprintf(`[Unit]
Description=bootsift boot log analysis
Documentation=https://github.com/modoterra/bootsift
After=systemd-journald.service

[Service]
Type=oneshot
ExecStart=%s run --journal --journal-log --out-dir %s
RemainAfterExit=no

[Install]
WantedBy=default.target
`, binaryPath, quote(outDir))
}

// quote wraps s in double quotes when systemd would otherwise split it.
func quote(s string) string {
	if !strings.ContainsAny(s, " \t\"\\") {
		return s
	}
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

// UnitPath returns the path to the systemd user unit file.
func UnitPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config directory: %w", err)
	}
	return filepath.Join(configDir, "systemd", "user", unitName), nil
}

// DefaultOutDir is where the service writes its artifacts.
func DefaultOutDir() (string, error) {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "bootsift"), nil
}

// Install writes the unit file, reloads systemd, and enables the service.
func Install(binaryPath, outDir string) error {
	binaryPath, err := filepath.Abs(binaryPath)
	if err != nil {
		return fmt.Errorf("cannot resolve bootsift path: %w", err)
	}
	outDir, err = filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("cannot resolve output dir: %w", err)
	}

	unitPath, err := UnitPath()
	if err != nil {
		return err
	}
	if err := WriteUnit(unitPath, binaryPath, outDir); err != nil {
		return err
	}

	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	return systemctl("enable", unitName)
}

// WriteUnit writes the unit file to unitPath, creating its directory.
func WriteUnit(unitPath, binaryPath, outDir string) error {
	if err := os.MkdirAll(filepath.Dir(unitPath), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	if err := os.WriteFile(unitPath, []byte(UnitContents(binaryPath, outDir)), 0o644); err != nil {
		return fmt.Errorf("cannot write unit file: %w", err)
	}
	return nil
}

// Uninstall disables the service, removes the unit file, and reloads systemd.
func Uninstall() error {
	// Best-effort; the unit may already be disabled.
	_ = systemctl("disable", unitName)

	unitPath, err := UnitPath()
	if err != nil {
		return err
	}

	if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot remove unit file: %w", err)
	}

	return systemctl("daemon-reload")
}

// Status returns a human-readable status string.
func Status(ctx context.Context) string {
	unitPath, err := UnitPath()
	if err != nil {
		return "systemd user service: unknown (" + err.Error() + ")"
	}
	return status(ctx, unitPath, ActiveState, isActive)
}

func status(ctx context.Context, unitPath string, states ...StateFunc) string {
	if _, err := os.Stat(unitPath); err != nil {
		return "systemd user service: not installed"
	}
	for _, state := range states {
		if s, err := state(ctx, unitName); err == nil && s != "" {
			return "systemd user service: " + s + " (" + unitPath + ")"
		}
	}
	return "systemd user service: unknown (" + unitPath + ")"
}

// ActiveState asks the user manager over D-Bus.
func ActiveState(ctx context.Context, unit string) (string, error) {
	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return "", fmt.Errorf("dbus connect: %w", err)
	}
	defer conn.Close()

	units, err := conn.ListUnitsByNamesContext(ctx, []string{unit})
	if err != nil {
		return "", fmt.Errorf("list units: %w", err)
	}
	if len(units) == 0 || units[0].LoadState == "not-found" {
		return "", fmt.Errorf("%s: %w", unit, ErrUnitNotLoaded)
	}
	return units[0].ActiveState, nil
}

// isActive falls back to systemctl when the bus is unreachable.
func isActive(ctx context.Context, unit string) (string, error) {
	out, err := exec.CommandContext(ctx, "systemctl", "--user", "is-active", unit).Output()
	state := strings.TrimSpace(string(out))
	if state == "" {
		if err == nil {
			err = ErrUnitNotLoaded
		}
		return "", err
	}
	return state, nil
}

func systemctl(args ...string) error {
	cmd := exec.Command("systemctl", append([]string{"--user"}, args...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("systemctl --user %s: %w", strings.Join(args, " "), err)
	}
	return nil
}
