package api

import (
	"time"

	models "MarketPulse/internal/domain/models"
	"MarketPulse/internal/usecase"
	xhttp "MarketPulse/pkg/http"
	xlogger "MarketPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketEchoHandler exposes the engine's outbound interface over HTTP.
type MarketEchoHandler struct {
	logger *xlogger.Logger
	engine *usecase.Engine
}

func NewMarketEchoHandler(logger *xlogger.Logger, engine *usecase.Engine) *MarketEchoHandler {
	return &MarketEchoHandler{logger: logger, engine: engine}
}

func (h *MarketEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/prices", h.Prices)
	g.GET("/prices/high-confidence", h.HighConfidence)
	g.GET("/prices/:symbol", h.Price)
	g.GET("/trends", h.Trends)
	g.GET("/trends/:symbol", h.Trend)
	g.GET("/summary", h.Summary)
	g.GET("/status", h.Status)
	g.PATCH("/config", h.UpdateConfig)
}

func (h *MarketEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":  "ok",
		"running": h.engine.IsRunning(),
	})
}

func (h *MarketEchoHandler) Prices(c echo.Context) error {
	recs := h.engine.GetAllAggregatedData()
	if since, ok := xhttp.ParseTime(c.QueryParam("since")); ok {
		kept := make([]models.AggregatedRecord, 0, len(recs))
		for _, rec := range recs {
			if rec.UpdatedAt.After(since) {
				kept = append(kept, rec)
			}
		}
		recs = kept
	}
	if limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 0); limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	return xhttp.ListResponse(c, recs, int64(len(recs)))
}

func (h *MarketEchoHandler) Price(c echo.Context) error {
	symbol := c.Param("symbol")
	rec := h.engine.GetAggregatedData(symbol)
	if rec == nil {
		return xhttp.NotFoundResponse(c, "unknown symbol: "+symbol)
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *MarketEchoHandler) HighConfidence(c echo.Context) error {
	recs := h.engine.GetHighConfidenceData()
	return xhttp.ListResponse(c, recs, int64(len(recs)))
}

func (h *MarketEchoHandler) Trends(c echo.Context) error {
	trends := h.engine.GetAllMarketTrends()
	if since := xhttp.ParseTimeDefault(c.QueryParam("since"), time.Time{}); !since.IsZero() {
		kept := make([]models.MarketTrend, 0, len(trends))
		for _, tr := range trends {
			if tr.Timestamp.After(since) {
				kept = append(kept, tr)
			}
		}
		trends = kept
	}
	return xhttp.ListResponse(c, trends, int64(len(trends)))
}

func (h *MarketEchoHandler) Trend(c echo.Context) error {
	symbol := c.Param("symbol")
	trend := h.engine.GetMarketTrend(symbol)
	if trend == nil {
		return xhttp.NotFoundResponse(c, "no trend for symbol: "+symbol)
	}
	return xhttp.SuccessResponse(c, trend)
}

func (h *MarketEchoHandler) Summary(c echo.Context) error {
	sum := h.engine.LastSummary()
	if sum == nil {
		// scheduler has not ticked yet; build one on demand
		sum = h.engine.GenerateSummary()
	}
	return xhttp.SuccessResponse(c, sum)
}

func (h *MarketEchoHandler) Status(c echo.Context) error {
	status := models.EngineStatus{
		Running:        h.engine.IsRunning(),
		TrackedSymbols: len(h.engine.GetAllAggregatedData()),
		Config:         h.engine.Config(),
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *MarketEchoHandler) UpdateConfig(c echo.Context) error {
	req := &models.ConfigUpdateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.engine.UpdateConfig(req.ToConfigUpdate()); err != nil {
		h.logger.Error("config update failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, h.engine.Config())
}
