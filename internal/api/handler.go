// =============================
// File: internal/api/handler.go
// =============================
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/cache"
	"github.com/rovshanmuradov/topbags/internal/details"
	"github.com/rovshanmuradov/topbags/internal/earnings"
	"github.com/rovshanmuradov/topbags/internal/metrics"
	"github.com/rovshanmuradov/topbags/internal/ranking"
	"github.com/rovshanmuradov/topbags/internal/state"
)

// FeesTTL is how long a token-fees answer is reused.
const FeesTTL = time.Minute

// FeeSource returns lifetime fees for a mint.
type FeeSource interface {
	Fees(ctx context.Context, mint string) (*earnings.FeesResponse, error)
}

// DetailSource assembles token details.
type DetailSource interface {
	Get(ctx context.Context, mint string) (*details.TokenDetails, error)
}

// TokenLister returns the known token list.
type TokenLister interface {
	Tokens(ctx context.Context) ([]string, error)
}

// Handler serves the HTTP API.
type Handler struct {
	fees    FeeSource
	details DetailSource
	tokens  TokenLister
	store   *state.Store
	cache   cache.Store
	metrics *metrics.Collector
	logger  *zap.Logger
	now     func() time.Time
}

// Deps groups Handler dependencies. Cache and Metrics are optional.
type Deps struct {
	Fees    FeeSource
	Details DetailSource
	Tokens  TokenLister
	Store   *state.Store
	Cache   cache.Store
	Metrics *metrics.Collector
}

// NewHandler creates a handler.
func NewHandler(d Deps, logger *zap.Logger) *Handler {
	if d.Cache == nil {
		d.Cache = cache.NewMemory(nil)
	}
	return &Handler{
		fees:    d.Fees,
		details: d.Details,
		tokens:  d.Tokens,
		store:   d.Store,
		cache:   d.Cache,
		metrics: d.Metrics,
		logger:  logger.Named("api"),
		now:     time.Now,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// validMint reports whether mint is a base58 ed25519 public key.
func validMint(mint string) bool {
	_, err := solana.PublicKeyFromBase58(mint)
	return err == nil
}

// GET /api/token-fees/:mint
func (h *Handler) TokenFees(c *gin.Context) {
	mint := c.Param("mint")
	if !validMint(mint) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid token mint address"})
		return
	}

	ctx := c.Request.Context()
	key := "fees:" + mint

	var cached earnings.FeesResponse
	hit, err := cache.GetJSON(ctx, h.cache, key, &cached)
	if err != nil {
		h.logger.Warn("Fee cache read failed", zap.String("mint", mint), zap.Error(err))
	}
	h.metrics.RecordCache("fees", hit)
	if hit {
		c.JSON(http.StatusOK, cached)
		return
	}

	fees, err := h.fees.Fees(ctx, mint)
	if err != nil {
		h.logger.Error("Error fetching token fees", zap.String("mint", mint), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{
			Error:   "Failed to fetch token fees",
			Details: err.Error(),
		})
		return
	}

	if err := cache.SetJSON(ctx, h.cache, key, fees, FeesTTL); err != nil {
		h.logger.Warn("Fee cache write failed", zap.String("mint", mint), zap.Error(err))
	}
	c.JSON(http.StatusOK, fees)
}

type detailsResponse struct {
	Success bool                  `json:"success"`
	Data    *details.TokenDetails `json:"data,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// GET /api/token-details/:mint
// Always 200; failures are reported through success=false.
func (h *Handler) TokenDetails(c *gin.Context) {
	mint := c.Param("mint")
	if !validMint(mint) {
		c.JSON(http.StatusOK, detailsResponse{Error: "Invalid token mint address"})
		return
	}

	d, err := h.details.Get(c.Request.Context(), mint)
	if err != nil {
		h.logger.Error("Error fetching token details", zap.String("mint", mint), zap.Error(err))
		c.JSON(http.StatusOK, detailsResponse{Error: "Failed to fetch token details"})
		return
	}
	c.JSON(http.StatusOK, detailsResponse{Success: true, Data: d})
}

// GET /api/all-tokens
func (h *Handler) AllTokens(c *gin.Context) {
	tokens, err := h.tokens.Tokens(c.Request.Context())
	if err != nil {
		h.logger.Error("Error fetching all tokens", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to fetch tokens"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

type leaderboardResponse struct {
	ranking.Board
	RunID     string `json:"runId"`
	Requested int    `json:"requested"`
}

// GET /api/leaderboard?metric=marketCap|earnings
func (h *Handler) Leaderboard(c *gin.Context) {
	metric, err := ranking.ParseMetric(c.Query("metric"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	snap, ok := h.store.Latest()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "Leaderboard is not ready yet"})
		return
	}

	c.JSON(http.StatusOK, leaderboardResponse{
		Board:     ranking.NewBoard(snap.Records, metric, snap.UpdatedAt),
		RunID:     snap.RunID,
		Requested: snap.Requested,
	})
}

// GET /healthz
func (h *Handler) Health(c *gin.Context) {
	_, ok := h.store.Latest()
	resp := gin.H{"status": "ok", "snapshot": ok}
	if ok {
		resp["snapshotAge"] = h.store.Age(h.now()).Round(time.Second).String()
	}
	c.JSON(http.StatusOK, resp)
}
