package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "magnate/internal/errors"
	"magnate/internal/pagination"
	"magnate/internal/services"
)

// ProductHandler handles marketplace product listings.
type ProductHandler struct {
	productService services.ProductServicer
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(productService services.ProductServicer) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// CreateProductRequest represents the request payload for listing a product
type CreateProductRequest struct {
	CompanyID string `json:"company_id" binding:"required,uuid"`
	Name      string `json:"name" binding:"required,min=2,max=64"`
	Price     int64  `json:"price" binding:"required,gt=0"`
	Quality   int    `json:"quality" binding:"required,min=1,max=5"`
	Stock     int64  `json:"stock" binding:"min=0"`
}

// CreateProduct lists a product for a company the caller owns.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	product, err := h.productService.CreateProduct(accountID, req.CompanyID, req.Name, req.Price, req.Quality, req.Stock)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// RestockRequest represents the request payload for adding inventory
type RestockRequest struct {
	Quantity int64 `json:"quantity" binding:"required,gt=0"`
}

// RestockProduct adds inventory to a listing the caller owns.
func (h *ProductHandler) RestockProduct(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	productID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	product, err := h.productService.RestockProduct(accountID, productID, req.Quantity)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// SetActiveRequest represents the request payload for toggling a listing
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetProductActive toggles a listing in or out of the bot marketplace.
func (h *ProductHandler) SetProductActive(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	productID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	product, err := h.productService.SetProductActive(accountID, productID, *req.Active)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// ListCompanyProducts returns a company's listings.
func (h *ProductHandler) ListCompanyProducts(c *gin.Context) {
	companyID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	products, err := h.productService.ListCompanyProducts(companyID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}
