package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"vendazap/internal/http/middleware"
	"vendazap/internal/services"
	"vendazap/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProductHandler manages the tenant catalog
type ProductHandler struct {
	catalog    *services.CatalogService
	embeddings *services.EmbeddingService // nil quando busca semântica desabilitada
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalog *services.CatalogService, embeddings *services.EmbeddingService) *ProductHandler {
	return &ProductHandler{catalog: catalog, embeddings: embeddings}
}

// List returns catalog products with pagination
func (h *ProductHandler) List(c echo.Context) error {
	tenantID, err := middleware.TenantFromContext(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))

	result, err := h.catalog.List(tenantID, page, perPage)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "erro ao listar produtos"})
	}

	return c.JSON(http.StatusOK, result)
}

// GetByID returns one product
func (h *ProductHandler) GetByID(c echo.Context) error {
	tenantID, err := middleware.TenantFromContext(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "ID inválido"})
	}

	product, err := h.catalog.GetByID(tenantID, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "produto não encontrado"})
	}

	return c.JSON(http.StatusOK, product)
}

// Create adds a product to the catalog
func (h *ProductHandler) Create(c echo.Context) error {
	tenantID, err := middleware.TenantFromContext(c)
	if err != nil {
		return err
	}

	var product models.Product
	if err := c.Bind(&product); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&product); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	product.TenantID = tenantID
	if err := h.catalog.Create(&product); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "erro ao criar produto"})
	}

	h.indexAsync(&product)
	return c.JSON(http.StatusCreated, product)
}

// Update modifies a product
func (h *ProductHandler) Update(c echo.Context) error {
	tenantID, err := middleware.TenantFromContext(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "ID inválido"})
	}

	product, err := h.catalog.GetByID(tenantID, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "produto não encontrado"})
	}

	var req models.Product
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	product.Name = req.Name
	product.Description = req.Description
	product.Price = req.Price
	product.SKU = req.SKU
	product.Brand = req.Brand
	product.Tags = req.Tags
	product.IsActive = req.IsActive
	product.IsPublished = req.IsPublished
	product.SortOrder = req.SortOrder

	if err := h.catalog.Update(product); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "erro ao atualizar produto"})
	}

	h.indexAsync(product)
	return c.JSON(http.StatusOK, product)
}

// indexAsync refreshes the semantic index without blocking the request
func (h *ProductHandler) indexAsync(product *models.Product) {
	if h.embeddings == nil {
		return
	}
	p := *product
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.embeddings.IndexProduct(ctx, &p); err != nil {
			log.Warn().Err(err).
				Str("product_id", p.ID.String()).
				Msg("Falha ao indexar produto no Qdrant")
		}
	}()
}
