package license

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/keygen-sh/keygen-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestValidator(t *testing.T, validate func(context.Context, string) (*keygen.License, error)) (*KeygenValidator, *int) {
	t.Helper()
	activations := 0
	kv := NewKeygenValidator(Config{Account: "acc", Product: "prod", Key: "ABCDEFGH-1234"}, zaptest.NewLogger(t))
	kv.fingerprint = func() (string, error) { return "fp", nil }
	kv.validate = validate
	kv.activate = func(context.Context, *keygen.License, string) (string, error) {
		activations++
		return "machine-1", nil
	}
	return kv, &activations
}

func TestValidateOK(t *testing.T) {
	kv, activations := newTestValidator(t, func(_ context.Context, fp string) (*keygen.License, error) {
		assert.Equal(t, "fp", fp)
		return &keygen.License{ID: "lic-1"}, nil
	})
	require.NoError(t, kv.Validate(context.Background()))
	assert.Zero(t, *activations)
}

func TestValidateActivates(t *testing.T) {
	kv, activations := newTestValidator(t, func(context.Context, string) (*keygen.License, error) {
		return &keygen.License{ID: "lic-1"}, keygen.ErrLicenseNotActivated
	})
	require.NoError(t, kv.Validate(context.Background()))
	assert.Equal(t, 1, *activations)
}

func TestValidateErrors(t *testing.T) {
	kv, _ := newTestValidator(t, func(context.Context, string) (*keygen.License, error) {
		return nil, keygen.ErrLicenseExpired
	})
	assert.ErrorIs(t, kv.Validate(context.Background()), ErrLicenseExpired)

	boom := errors.New("network down")
	kv, _ = newTestValidator(t, func(context.Context, string) (*keygen.License, error) { return nil, boom })
	assert.ErrorIs(t, kv.Validate(context.Background()), boom)

	kv, _ = newTestValidator(t, func(context.Context, string) (*keygen.License, error) { return nil, nil })
	assert.ErrorContains(t, kv.Validate(context.Background()), "license not found")

	kv.cfg.Key = ""
	assert.ErrorIs(t, kv.Validate(context.Background()), ErrLicenseMissing)
}

func TestHeartbeat(t *testing.T) {
	calls := 0
	kv, _ := newTestValidator(t, func(context.Context, string) (*keygen.License, error) {
		calls++
		if calls == 3 {
			return nil, errors.New("revoked")
		}
		return &keygen.License{}, nil
	})
	err := kv.Heartbeat(context.Background(), time.Millisecond)
	assert.ErrorContains(t, err, "heartbeat failed")
	assert.Equal(t, 3, calls)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****", mask("short"))
	assert.Equal(t, "ABCDEFGH...", mask("ABCDEFGH-1234"))
}
