package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stake-plus/getfunded/src/api/funding"
	"go.uber.org/zap"
)

type Funding struct {
	disburser *funding.Disburser
	log       *zap.Logger
}

func NewFunding(d *funding.Disburser, log *zap.Logger) Funding {
	return Funding{disburser: d, log: log}
}

func (h Funding) Fund(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid JSON body"})
		return
	}

	res, err := h.disburser.Disburse(c.Request.Context(), c.Param("id"), req.WalletAddress)
	if err != nil {
		writeErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"txHash":  res.TxHash,
		"amount":  res.Amount,
		"message": res.Message,
	})
}
