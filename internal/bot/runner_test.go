package bot

import (
	"testing"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/config"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/utils/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBuildPipelineBundleTipAccount(t *testing.T) {
	tests := []struct {
		name    string
		account string
		tip     float64
		wantErr bool
	}{
		{name: "no tip and no account", account: "", tip: 0},
		{name: "tip account set", account: testMint, tip: 0.001},
		{name: "malformed account", account: "not-an-account", tip: 0.001, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zaptest.NewLogger(t)
			r := NewRunner(&config.Config{
				SubmissionChannel: config.ChannelBundle,
				BundleEngineURL:   "http://127.0.0.1:1",
				BundleTip:         tt.tip,
				BundleTipAccount:  tt.account,
			}, logger)

			pipeline, err := r.buildPipeline(solbc.NewClient("http://127.0.0.1:1", logger), metrics.NewCollector())
			if tt.wantErr {
				assert.ErrorContains(t, err, "invalid bundle tip account")
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, pipeline)
		})
	}
}
