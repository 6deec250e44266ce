package hmmapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DecodeController wires the decode use case into gin handlers.
type DecodeController struct {
	logger *zap.Logger
}

// NewDecodeController builds a controller that logs through logger.
func NewDecodeController(logger *zap.Logger) *DecodeController {
	return &DecodeController{logger: logger}
}

// Decode handles POST /api/v1/decode.
func (c *DecodeController) Decode(ctx *gin.Context) {
	var req DecodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn("rejected malformed decode request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := Decode(req)
	if err != nil {
		c.logger.Error("decode failed", zap.Int("steps", len(req.Steps)), zap.Error(err))
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.logger.Info("decoded sequence",
		zap.Int("steps", len(req.Steps)),
		zap.Int("states", len(resp.States)),
		zap.Bool("broken", resp.Broken),
	)
	ctx.JSON(http.StatusOK, resp)
}

// StreamDecode handles POST /api/v1/stream, the online filter + k-State
// counterpart to Decode's batch Viterbi path.
func (c *DecodeController) StreamDecode(ctx *gin.Context) {
	var req StreamDecodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn("rejected malformed stream request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := StreamDecode(req)
	if err != nil {
		c.logger.Error("stream decode failed", zap.Int("steps", len(req.Steps)), zap.Error(err))
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.logger.Info("streamed sequence",
		zap.Int("steps", len(req.Steps)),
		zap.Int("states", len(resp.States)),
		zap.String("estimate", resp.Estimate),
	)
	ctx.JSON(http.StatusOK, resp)
}
