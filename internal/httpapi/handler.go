package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"openclaw-agent/internal/analyst"
	"openclaw-agent/internal/backtest"
	"openclaw-agent/internal/repository"
	"openclaw-agent/internal/types"
)

type Handler struct {
	deps Deps
}

func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps}
}

func (h *Handler) Analyze(c *gin.Context) {
	symbol := c.Param("symbol")
	a, err := h.deps.Analyst.Analyze(c.Request.Context(), symbol)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, analyst.ErrNoData) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error(), "symbol": symbol})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": a})
}

func (h *Handler) Scan(c *gin.Context) {
	results, err := h.deps.Scanner.ScanWatchlist(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 && n < len(results) {
		results = results[:n]
	}
	c.JSON(http.StatusOK, gin.H{"count": len(results), "data": results})
}

type backtestRequest struct {
	Start          string  `json:"start" binding:"required"`
	End            string  `json:"end" binding:"required"`
	InitialCapital float64 `json:"initial_capital"`
}

func (h *Handler) Backtest(c *gin.Context) {
	var body backtestRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := types.ParseDay(body.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be YYYY-MM-DD"})
		return
	}
	end, err := types.ParseDay(body.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be YYYY-MM-DD"})
		return
	}
	if body.InitialCapital < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "initial_capital must not be negative"})
		return
	}

	run, err := h.deps.Backtester.Run(c.Request.Context(), types.BacktestRequest{Start: start, End: end, InitialCapital: body.InitialCapital})
	if err != nil {
		status := http.StatusInternalServerError
		if backtest.IsEmpty(err) {
			status = http.StatusUnprocessableEntity
		} else if errors.Is(err, backtest.ErrInvalidRange) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":     run.ID,
		"result": run.Result.Rounded(),
		"trades": roundedTrades(run.Trades),
	})
}

func (h *Handler) ListBacktests(c *gin.Context) {
	if h.deps.Results == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "result storage disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.deps.Results.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(runs))
	for _, r := range runs {
		out = append(out, gin.H{"id": r.ID, "created_at": r.CreatedAt, "result": r.Result.Rounded()})
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "data": out})
}

func (h *Handler) GetBacktest(c *gin.Context) {
	if h.deps.Results == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "result storage disabled"})
		return
	}
	run, err := h.deps.Results.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "id": c.Param("id")})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         run.ID,
		"created_at": run.CreatedAt,
		"result":     run.Result.Rounded(),
		"trades":     roundedTrades(run.Trades),
		"equity":     run.Equity,
	})
}

func roundedTrades(trades []types.Trade) []types.Trade {
	out := make([]types.Trade, len(trades))
	for i, t := range trades {
		out[i] = t.Rounded()
	}
	return out
}
