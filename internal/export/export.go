package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/storage"
	"go.uber.org/zap"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format      ExportFormat
	StartTime   time.Time
	EndTime     time.Time
	AssetFilter string
	SideFilter  string // buy / sell
	OnlySuccess bool
	OutputDir   string
}

// TradeExporter writes the trade journal to files.
type TradeExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{logger: logger.Named("export"), now: time.Now}
}

// ExportSummary contains summary statistics for exported trades
type ExportSummary struct {
	TotalTrades      int     `json:"total_trades"`
	SuccessfulTrades int     `json:"successful_trades"`
	BuyCount         int     `json:"buy_count"`
	SellCount        int     `json:"sell_count"`
	UniqueTokens     int     `json:"unique_tokens"`
	BuyLamports      uint64  `json:"buy_lamports"`
	SellLamports     uint64  `json:"sell_lamports"`
	ClosedPositions  int     `json:"closed_positions"`
	WinCount         int     `json:"win_count"`
	LossCount        int     `json:"loss_count"`
	WinRate          float64 `json:"win_rate"`
	AvgPnLPercent    float64 `json:"avg_pnl_percent"`
}

// ExportJournal reads everything from store and exports it.
func (te *TradeExporter) ExportJournal(ctx context.Context, store storage.Store, options ExportOptions) (string, error) {
	trades, err := store.ListTrades(ctx, "", 0)
	if err != nil {
		return "", fmt.Errorf("failed to list trades: %w", err)
	}
	positions, err := store.ListPositions(ctx, 0)
	if err != nil {
		return "", fmt.Errorf("failed to list positions: %w", err)
	}
	return te.ExportTrades(trades, positions, options)
}

// ExportTrades exports trades based on the provided options
func (te *TradeExporter) ExportTrades(trades []*storage.Trade, positions []*storage.Position, options ExportOptions) (string, error) {
	filtered := filterTrades(trades, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	if err := os.MkdirAll(options.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, te.generateFilename(options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = te.exportToJSON(filtered, positions, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	te.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))
	return outputPath, nil
}

func filterTrades(trades []*storage.Trade, options ExportOptions) []*storage.Trade {
	var filtered []*storage.Trade
	for _, trade := range trades {
		if !options.StartTime.IsZero() && trade.CreatedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && trade.CreatedAt.After(options.EndTime) {
			continue
		}
		if options.AssetFilter != "" && trade.AssetID != options.AssetFilter {
			continue
		}
		if options.SideFilter != "" && trade.Side != options.SideFilter {
			continue
		}
		if options.OnlySuccess && !trade.Success {
			continue
		}
		filtered = append(filtered, trade)
	}
	return filtered
}

func (te *TradeExporter) generateFilename(options ExportOptions) string {
	prefix := "trades_all"
	if options.SideFilter != "" {
		prefix = "trades_" + options.SideFilter
	}
	if len(options.AssetFilter) >= 8 {
		prefix += "_" + options.AssetFilter[:8]
	}
	return fmt.Sprintf("%s_%s.%s", prefix, te.now().Format("20060102_150405"), options.Format)
}

var csvHeaders = []string{"time", "asset_id", "side", "channel", "signature", "lamports", "tokens", "success", "latency_ms", "error"}

func tradeRecord(t *storage.Trade) []string {
	return []string{
		t.CreatedAt.UTC().Format(time.RFC3339),
		t.AssetID,
		t.Side,
		t.Channel,
		t.Signature,
		strconv.FormatUint(t.Lamports, 10),
		strconv.FormatUint(t.Tokens, 10),
		strconv.FormatBool(t.Success),
		strconv.FormatInt(t.LatencyMs, 10),
		t.Error,
	}
}

func exportToCSV(trades []*storage.Trade, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, trade := range trades {
		if err := writer.Write(tradeRecord(trade)); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (te *TradeExporter) exportToJSON(trades []*storage.Trade, positions []*storage.Position, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime time.Time           `json:"export_time"`
		TradeCount int                 `json:"trade_count"`
		Trades     []*storage.Trade    `json:"trades"`
		Positions  []*storage.Position `json:"positions"`
		Summary    ExportSummary       `json:"summary"`
	}{
		ExportTime: te.now().UTC(),
		TradeCount: len(trades),
		Trades:     trades,
		Positions:  positions,
		Summary:    CalculateSummary(trades, positions),
	}
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// CalculateSummary aggregates trades and closed positions.
func CalculateSummary(trades []*storage.Trade, positions []*storage.Position) ExportSummary {
	summary := ExportSummary{TotalTrades: len(trades)}

	tokens := make(map[string]struct{})
	for _, trade := range trades {
		tokens[trade.AssetID] = struct{}{}
		if !trade.Success {
			continue
		}
		summary.SuccessfulTrades++
		switch trade.Side {
		case "buy":
			summary.BuyCount++
			summary.BuyLamports += trade.Lamports
		case "sell":
			summary.SellCount++
			summary.SellLamports += trade.Lamports
		}
	}
	summary.UniqueTokens = len(tokens)

	var pnl float64
	for _, p := range positions {
		if p.ClosedAt.IsZero() || p.Status != "closed" || p.Signature == "" {
			continue
		}
		summary.ClosedPositions++
		pnl += p.PnLPercent
		switch {
		case p.PnLPercent > 0:
			summary.WinCount++
		case p.PnLPercent < 0:
			summary.LossCount++
		}
	}
	if summary.ClosedPositions > 0 {
		summary.WinRate = float64(summary.WinCount) / float64(summary.ClosedPositions) * 100
		summary.AvgPnLPercent = pnl / float64(summary.ClosedPositions)
	}
	return summary
}
