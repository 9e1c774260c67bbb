// internal/license/keygen.go
package license

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/keygen-sh/keygen-go/v3"
	"go.uber.org/zap"
)

var (
	ErrLicenseExpired = errors.New("license has expired")
	ErrLicenseMissing = errors.New("license key is not configured")
)

// Config: параметры аккаунта Keygen.
type Config struct {
	Account string
	Product string
	Token   string
	Key     string
}

// KeygenValidator handles license validation using Keygen.sh
type KeygenValidator struct {
	cfg    Config
	logger *zap.Logger

	fingerprint func() (string, error)
	validate    func(ctx context.Context, fingerprint string) (*keygen.License, error)
	activate    func(ctx context.Context, l *keygen.License, fingerprint string) (string, error)
}

// NewKeygenValidator configures the keygen SDK globals for cfg.
func NewKeygenValidator(cfg Config, logger *zap.Logger) *KeygenValidator {
	keygen.Account = cfg.Account
	keygen.Product = cfg.Product
	keygen.Token = cfg.Token
	keygen.LicenseKey = cfg.Key

	return &KeygenValidator{
		cfg:         cfg,
		logger:      logger.Named("license"),
		fingerprint: machineFingerprint,
		validate: func(ctx context.Context, fp string) (*keygen.License, error) {
			return keygen.Validate(ctx, fp)
		},
		activate: func(ctx context.Context, l *keygen.License, fp string) (string, error) {
			m, err := l.Activate(ctx, fp)
			if err != nil {
				return "", err
			}
			return m.ID, nil
		},
	}
}

// Validate checks the license for this machine, activating it on first use.
func (kv *KeygenValidator) Validate(ctx context.Context) error {
	if kv.cfg.Key == "" {
		return ErrLicenseMissing
	}
	kv.logger.Info("🔑 Validating license: " + mask(kv.cfg.Key))

	fp, err := kv.fingerprint()
	if err != nil {
		return fmt.Errorf("failed to generate machine fingerprint: %w", err)
	}

	lic, err := kv.validate(ctx, fp)
	switch {
	case errors.Is(err, keygen.ErrLicenseNotActivated):
		if lic == nil {
			return fmt.Errorf("license validation failed: %w", err)
		}
		kv.logger.Info("License not activated, attempting activation")
		machineID, activateErr := kv.activate(ctx, lic, fp)
		if activateErr != nil {
			return fmt.Errorf("failed to activate license: %w", activateErr)
		}
		kv.logger.Info("License activated", zap.String("machine_id", machineID))
	case errors.Is(err, keygen.ErrLicenseExpired):
		return ErrLicenseExpired
	case err != nil:
		return fmt.Errorf("license validation failed: %w", err)
	}

	if lic == nil {
		return fmt.Errorf("license not found")
	}
	kv.logger.Info("✅ License valid", zap.String("license_id", lic.ID))
	return nil
}

// Heartbeat re-validates every interval until ctx ends or validation fails.
func (kv *KeygenValidator) Heartbeat(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fp, err := kv.fingerprint()
			if err != nil {
				return fmt.Errorf("failed to generate machine fingerprint: %w", err)
			}
			if _, err := kv.validate(ctx, fp); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("heartbeat failed: %w", err)
			}
			kv.logger.Debug("License heartbeat sent")
		}
	}
}

func mask(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "..."
}

// machineFingerprint hashes hostname, the first active MAC and the OS.
func machineFingerprint() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	mac := ""
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 && len(iface.HardwareAddr) > 0 {
			mac = iface.HardwareAddr.String()
			break
		}
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%s", hostname, mac, runtime.GOOS)))
	return fmt.Sprintf("%x", hash), nil
}
