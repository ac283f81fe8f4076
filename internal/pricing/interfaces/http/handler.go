// 包 定价服务的 HTTP 接口
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/response"

	"github.com/wyfcoding/energypricing/internal/pricing/application"
	"github.com/wyfcoding/energypricing/internal/pricing/domain"
	"github.com/wyfcoding/energypricing/pkg/logger"
)

// PricingHandler 定价 HTTP 处理器
type PricingHandler struct {
	cmd   *application.PricingCommandService
	query *application.PricingQueryService
}

// NewPricingHandler 创建 HTTP 处理器实例
func NewPricingHandler(cmd *application.PricingCommandService, query *application.PricingQueryService) *PricingHandler {
	return &PricingHandler{cmd: cmd, query: query}
}

// RegisterRoutes 将处理器方法绑定到 Gin 路由引擎
func (h *PricingHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/pricing")
	{
		api.POST("/option/price", h.PriceOption)
		api.POST("/option/batch", h.BatchPriceOptions)
		api.POST("/option/greeks", h.ComputeGreeks)
		api.POST("/option/validate", h.ValidatePricing)
		api.POST("/option/boundary", h.GetExerciseBoundary)
		api.GET("/option/results/:symbol", h.GetLatestResult)
		api.GET("/option/results/:symbol/history", h.ListResults)
		api.GET("/price/:symbol", h.GetLatestPrice)
		api.GET("/volatility/:symbol", h.EstimateVolatility)
	}
}

// statusFromError 领域错误到 HTTP 状态码的映射
func statusFromError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidParameters),
		errors.Is(err, domain.ErrInvalidRiskNeutralProbability),
		errors.Is(err, domain.ErrInsufficientSamples):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PriceOption 期权定价
func (h *PricingHandler) PriceOption(c *gin.Context) {
	var cmd application.PriceOptionCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.cmd.PriceOption(c.Request.Context(), cmd)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to price option", "symbol", cmd.Symbol, "error", err)
		response.ErrorWithStatus(c, statusFromError(err), err.Error(), "")
		return
	}
	response.Success(c, result)
}

// BatchPriceOptions 批量定价
func (h *PricingHandler) BatchPriceOptions(c *gin.Context) {
	var cmd application.BatchPriceOptionsCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	if len(cmd.Contracts) == 0 {
		response.ErrorWithStatus(c, http.StatusBadRequest, "contracts must not be empty", "")
		return
	}

	result, err := h.cmd.BatchPriceOptions(c.Request.Context(), cmd)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to batch price options", "batch_id", cmd.BatchID, "error", err)
		response.ErrorWithStatus(c, statusFromError(err), err.Error(), "")
		return
	}
	response.Success(c, result)
}

// ComputeGreeks 有限差分 Greeks
func (h *PricingHandler) ComputeGreeks(c *gin.Context) {
	var query application.GreeksQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	report, err := h.query.ComputeGreeks(c.Request.Context(), query)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to compute greeks", "error", err)
		response.ErrorWithStatus(c, statusFromError(err), err.Error(), "")
		return
	}
	response.Success(c, report)
}

// ValidatePricing 二叉树与 Monte Carlo 交叉验证
func (h *PricingHandler) ValidatePricing(c *gin.Context) {
	var cmd application.ValidatePricingCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	report, err := h.cmd.ValidatePricing(c.Request.Context(), cmd)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to validate pricing", "symbol", cmd.Symbol, "error", err)
		response.ErrorWithStatus(c, statusFromError(err), err.Error(), "")
		return
	}
	response.Success(c, report)
}

// GetExerciseBoundary 美式期权行权边界
func (h *PricingHandler) GetExerciseBoundary(c *gin.Context) {
	var query application.BoundaryQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	report, err := h.query.GetExerciseBoundary(c.Request.Context(), query)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to compute exercise boundary", "error", err)
		response.ErrorWithStatus(c, statusFromError(err), err.Error(), "")
		return
	}
	response.Success(c, report)
}

// GetLatestResult 最新定价结果
func (h *PricingHandler) GetLatestResult(c *gin.Context) {
	symbol := c.Param("symbol")

	result, err := h.query.GetLatestPricingResult(c.Request.Context(), symbol)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to get pricing result", "symbol", symbol, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	if result == nil {
		response.ErrorWithStatus(c, http.StatusNotFound, "no pricing result for symbol", "")
		return
	}
	response.Success(c, result)
}

// ListResults 历史定价结果
func (h *PricingHandler) ListResults(c *gin.Context) {
	symbol := c.Param("symbol")
	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	results, err := h.query.ListPricingResults(c.Request.Context(), symbol, query.Limit)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to list pricing results", "symbol", symbol, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, results)
}

// GetLatestPrice 最新行情报价
func (h *PricingHandler) GetLatestPrice(c *gin.Context) {
	symbol := c.Param("symbol")

	price, err := h.query.GetLatestPrice(c.Request.Context(), symbol)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to get spot price", "symbol", symbol, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	if price == nil {
		response.ErrorWithStatus(c, http.StatusNotFound, "no spot price for symbol", "")
		return
	}
	response.Success(c, price)
}

// EstimateVolatility 历史波动率标定
func (h *PricingHandler) EstimateVolatility(c *gin.Context) {
	symbol := c.Param("symbol")
	var query struct {
		Window int `form:"window"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	est, err := h.query.EstimateVolatility(c.Request.Context(), application.VolatilityQuery{
		Symbol: symbol,
		Window: query.Window,
	})
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to estimate volatility", "symbol", symbol, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, est)
}
