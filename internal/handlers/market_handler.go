package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "magnate/internal/errors"
	"magnate/internal/models"
	"magnate/internal/pagination"
	"magnate/internal/services"
)

// MarketHandler handles asset listings, quotes, and price history.
type MarketHandler struct {
	stockService   services.StockServicer
	cryptoService  services.CryptoServicer
	tradingService services.TradingServicer
	historyService services.HistoryServicer
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(stockService services.StockServicer, cryptoService services.CryptoServicer, tradingService services.TradingServicer, historyService services.HistoryServicer) *MarketHandler {
	return &MarketHandler{
		stockService:   stockService,
		cryptoService:  cryptoService,
		tradingService: tradingService,
		historyService: historyService,
	}
}

// IPORequest represents the request payload for taking a company public
type IPORequest struct {
	CompanyID   string `json:"company_id" binding:"required,uuid"`
	Ticker      string `json:"ticker" binding:"required,ticker"`
	TotalShares int64  `json:"total_shares" binding:"required,gt=0"`
	Price       int64  `json:"price" binding:"required,gt=0"`
}

// IPO lists the authenticated player's company on the exchange.
func (h *MarketHandler) IPO(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req IPORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	stock, err := h.stockService.IPO(accountID, req.CompanyID, req.Ticker, req.TotalShares, req.Price)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"stock": stock})
}

// ListStocks returns all listed stocks.
func (h *MarketHandler) ListStocks(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	stocks, err := h.stockService.ListStocks(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stocks)
}

// GetStock returns one stock with its derived market cap.
func (h *MarketHandler) GetStock(c *gin.Context) {
	stockID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	stock, err := h.stockService.GetStockByID(stockID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stock": stock, "market_cap": stock.MarketCap()})
}

// CreateCryptoRequest represents the request payload for launching a coin
type CreateCryptoRequest struct {
	Ticker       string  `json:"ticker" binding:"required,ticker"`
	Name         string  `json:"name" binding:"required,min=2,max=64"`
	TotalSupply  float64 `json:"total_supply" binding:"required,gt=0"`
	Liquidity    float64 `json:"liquidity" binding:"required,gt=0"`
	InitialPrice int64   `json:"initial_price" binding:"required,gt=0"`
}

// CreateCrypto launches a coin created by the authenticated player.
func (h *MarketHandler) CreateCrypto(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateCryptoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	crypto, err := h.cryptoService.CreateCryptocurrency(accountID, req.Ticker, req.Name, req.TotalSupply, req.Liquidity, req.InitialPrice)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"crypto": crypto})
}

// ListCryptos returns all coins.
func (h *MarketHandler) ListCryptos(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	cryptos, err := h.cryptoService.ListCryptos(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, cryptos)
}

// GetCrypto returns one coin with its derived market cap.
func (h *MarketHandler) GetCrypto(c *gin.Context) {
	cryptoID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	crypto, err := h.cryptoService.GetCryptoByID(cryptoID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"crypto": crypto, "market_cap": crypto.MarketCap()})
}

// assetQuery binds the kind/id pair shared by candle and trade history.
type assetQuery struct {
	Kind string `uri:"kind" binding:"required,asset_kind"`
	ID   string `uri:"id" binding:"required,uuid"`
}

// GetCandles returns an asset's OHLCV series, newest first.
func (h *MarketHandler) GetCandles(c *gin.Context) {
	var asset assetQuery
	if err := c.ShouldBindUri(&asset); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	candles, err := h.historyService.GetCandles(models.AssetKind(asset.Kind), asset.ID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, candles)
}

// GetTrades returns an asset's trade tape, newest first.
func (h *MarketHandler) GetTrades(c *gin.Context) {
	var asset assetQuery
	if err := c.ShouldBindUri(&asset); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	trades, err := h.tradingService.GetAssetTrades(models.AssetKind(asset.Kind), asset.ID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, trades)
}
