package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/ranking"
	"github.com/rovshanmuradov/topbags/internal/types"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ParseFormat accepts "csv" or "json".
func ParseFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case FormatCSV, FormatJSON:
		return ExportFormat(s), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format       ExportFormat
	Metric       ranking.Metric
	Limit        int     // 0: all positions
	MinMarketCap float64 // skip tokens below this market cap
	OnlyEarning  bool    // skip tokens with zero earnings
	OutputDir    string
}

// SnapshotExporter writes ranked snapshots to disk.
type SnapshotExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSnapshotExporter creates a new snapshot exporter
func NewSnapshotExporter(logger *zap.Logger) *SnapshotExporter {
	return &SnapshotExporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// Export ranks the snapshot by options.Metric and writes it to OutputDir.
// It returns the path of the written file.
func (se *SnapshotExporter) Export(snap types.Snapshot, options ExportOptions) (string, error) {
	filtered := se.filterRecords(snap.Records, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no tokens match the export criteria")
	}

	metric := options.Metric
	if metric == "" {
		metric = ranking.MarketCap
	}
	entries := ranking.NewBoard(filtered, metric, snap.UpdatedAt).Entries()
	if options.Limit > 0 && options.Limit < len(entries) {
		entries = entries[:options.Limit]
	}

	// Ensure output directory exists
	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, se.generateFilename(metric, options.Format))

	var err error
	switch options.Format {
	case FormatCSV:
		err = se.exportToCSV(entries, outputPath)
	case FormatJSON:
		err = se.exportToJSON(snap, metric, entries, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	se.logger.Info("Leaderboard exported",
		zap.String("file", outputPath),
		zap.Int("count", len(entries)),
		zap.String("metric", string(metric)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (se *SnapshotExporter) filterRecords(records []types.TokenRecord, options ExportOptions) []types.TokenRecord {
	var filtered []types.TokenRecord
	for _, r := range records {
		if !r.Loaded {
			continue
		}
		if r.MarketCapUSD < options.MinMarketCap {
			continue
		}
		if options.OnlyEarning && r.TotalEarningsUSD <= 0 {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

func (se *SnapshotExporter) generateFilename(metric ranking.Metric, format ExportFormat) string {
	return fmt.Sprintf("leaderboard_%s_%s.%s", metric, se.now().Format("20060102_150405"), format)
}

// CSVHeaders returns the column names of a CSV export.
func CSVHeaders() []string {
	return []string{"rank", "mint", "name", "symbol", "market_cap_usd", "price_usd", "earnings_usd", "earnings_sol", "pair_url"}
}

// CSVRow renders one ranked entry in CSVHeaders order.
func CSVRow(e ranking.Entry) []string {
	t := e.Token
	return []string{
		strconv.Itoa(e.Rank),
		t.Mint,
		t.Name,
		t.Symbol,
		strconv.FormatFloat(t.MarketCapUSD, 'f', 2, 64),
		strconv.FormatFloat(t.PriceUSD, 'f', -1, 64),
		strconv.FormatFloat(t.TotalEarningsUSD, 'f', 2, 64),
		strconv.FormatFloat(t.TotalEarningsSOL, 'f', 4, 64),
		t.PairURL,
	}
}

func (se *SnapshotExporter) exportToCSV(entries []ranking.Entry, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, e := range entries {
		if err := writer.Write(CSVRow(e)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Document is the JSON export layout.
type Document struct {
	ExportTime time.Time       `json:"export_time"`
	RunID      string          `json:"run_id"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Metric     ranking.Metric  `json:"metric"`
	Entries    []ranking.Entry `json:"entries"`
	Summary    ExportSummary   `json:"summary"`
}

func (se *SnapshotExporter) exportToJSON(snap types.Snapshot, metric ranking.Metric, entries []ranking.Entry, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	doc := Document{
		ExportTime: se.now(),
		RunID:      snap.RunID,
		UpdatedAt:  snap.UpdatedAt,
		Metric:     metric,
		Entries:    entries,
		Summary:    Summarize(snap, entries),
	}
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary contains totals over the exported entries.
type ExportSummary struct {
	Requested      int     `json:"requested"`
	Exported       int     `json:"exported"`
	EarningTokens  int     `json:"earning_tokens"`
	TotalMarketCap float64 `json:"total_market_cap_usd"`
	TotalEarnings  float64 `json:"total_earnings_usd"`
	TopMarketCap   string  `json:"top_market_cap,omitempty"`
	TopEarner      string  `json:"top_earner,omitempty"`
}

// Summarize totals entries and names the leader of each metric.
func Summarize(snap types.Snapshot, entries []ranking.Entry) ExportSummary {
	summary := ExportSummary{
		Requested: snap.Requested,
		Exported:  len(entries),
	}

	var bestMC, bestEarn float64
	for _, e := range entries {
		t := e.Token
		summary.TotalMarketCap += t.MarketCapUSD
		summary.TotalEarnings += t.TotalEarningsUSD
		if t.TotalEarningsUSD > 0 {
			summary.EarningTokens++
		}
		// Strict comparison keeps the earlier entry on ties
		if summary.TopMarketCap == "" || t.MarketCapUSD > bestMC {
			bestMC, summary.TopMarketCap = t.MarketCapUSD, t.Symbol
		}
		if t.TotalEarningsUSD > bestEarn {
			bestEarn, summary.TopEarner = t.TotalEarningsUSD, t.Symbol
		}
	}
	return summary
}
