// internal/radio/nmcli.go
package radio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/tamzrod/buttonfetch/internal/link"
)

// Runner executes one command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands on the host.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(redact(args), " "), err, bytes.TrimSpace(out))
	}
	return out, nil
}

// redact masks the value following a "password" argument.
func redact(args []string) []string {
	out := append([]string(nil), args...)
	for i := 0; i+1 < len(out); i++ {
		if out[i] == "password" {
			out[i+1] = "***"
		}
	}
	return out
}

// NMCLIConfig is minimal NetworkManager config.
type NMCLIConfig struct {
	Interface   string
	ConnectWait time.Duration // passed to nmcli --wait
	WatchEvery  time.Duration // device state poll while associated
}

// NMCLI drives a Wi-Fi device through NetworkManager's command line.
type NMCLI struct {
	cfg NMCLIConfig
	run Runner

	mu     sync.Mutex
	client *link.ClientConfig
}

// NewNMCLI creates a controller. A nil runner uses ExecRunner.
func NewNMCLI(cfg NMCLIConfig, run Runner) (*NMCLI, error) {
	if cfg.Interface == "" {
		return nil, errors.New("radio nmcli: interface required")
	}
	if cfg.ConnectWait <= 0 {
		cfg.ConnectWait = 15 * time.Second
	}
	if cfg.WatchEvery <= 0 {
		cfg.WatchEvery = 2 * time.Second
	}
	if run == nil {
		run = ExecRunner
	}
	return &NMCLI{cfg: cfg, run: run}, nil
}

// IsStarted reports whether the Wi-Fi radio is switched on.
func (n *NMCLI) IsStarted(ctx context.Context) (bool, error) {
	out, err := n.run(ctx, "nmcli", "-t", "-f", "WIFI", "radio")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(out)) == "enabled", nil
}

// SetConfiguration stores the client config used by Connect.
func (n *NMCLI) SetConfiguration(cfg link.ClientConfig) error {
	if cfg.SSID == "" {
		return errors.New("radio nmcli: empty ssid")
	}
	n.mu.Lock()
	n.client = &cfg
	n.mu.Unlock()
	return nil
}

// Start switches the radio on.
func (n *NMCLI) Start(ctx context.Context) error {
	_, err := n.run(ctx, "nmcli", "radio", "wifi", "on")
	return err
}

// Connect associates with the configured access point.
func (n *NMCLI) Connect(ctx context.Context) error {
	n.mu.Lock()
	cc := n.client
	n.mu.Unlock()
	if cc == nil {
		return errors.New("radio nmcli: not configured")
	}

	args := []string{
		"--wait", fmt.Sprintf("%d", int(n.cfg.ConnectWait/time.Second)),
		"device", "wifi", "connect", cc.SSID,
	}
	if cc.Auth == link.AuthWPA2Personal {
		args = append(args, "password", cc.Password)
	}
	args = append(args, "ifname", n.cfg.Interface)

	_, err := n.run(ctx, "nmcli", args...)
	return err
}

// WaitForDisconnect polls the device state until it leaves "connected".
func (n *NMCLI) WaitForDisconnect(ctx context.Context) error {
	ticker := time.NewTicker(n.cfg.WatchEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			up, err := n.connected(ctx)
			if err != nil {
				return err
			}
			if !up {
				return nil
			}
		}
	}
}

// connected parses "GENERAL.STATE:100 (connected)".
func (n *NMCLI) connected(ctx context.Context) (bool, error) {
	out, err := n.run(ctx, "nmcli", "-t", "-f", "GENERAL.STATE", "device", "show", n.cfg.Interface)
	if err != nil {
		return false, err
	}
	line := strings.TrimSpace(string(out))
	line = strings.TrimPrefix(line, "GENERAL.STATE:")
	return strings.HasPrefix(line, "100"), nil
}
