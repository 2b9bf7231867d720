package rental

import (
	"errors"
	"net/http"
	"strconv"

	"rentalhub/internal/pkg/response"
	"rentalhub/internal/storage"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	rentals := r.Group("/rentals")
	{
		rentals.POST("", h.Create)
		rentals.GET("", h.List)
		rentals.GET("/search", h.Search)
		rentals.GET("/export", h.Export)
		rentals.GET("/:id", h.GetByID)
		rentals.PUT("/:id", h.Update)
		rentals.DELETE("/:id", h.Delete)
	}
}

// RegisterImageRoutes serves stored images under prefix, matching the
// reference paths written on records.
func (h *Handler) RegisterImageRoutes(r gin.IRoutes, prefix string) {
	r.GET(prefix+"/:key", h.ServeImage)
}

// Create godoc
// @Summary Create a rental
// @Tags Rentals
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Name"
// @Param address formData string true "Address"
// @Param roomCount formData int true "Room count"
// @Param price formData number true "Monthly price"
// @Param description formData string true "Description"
// @Param image formData file true "Image"
// @Success 201 {object} domain.Rental
// @Failure 400,500 {object} map[string]interface{}
// @Router /rentals [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateRentalRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
		return
	}

	img, closeImg, err := formImage(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid image upload")
		return
	}
	defer closeImg()

	rental, err := h.svc.Create(c.Request.Context(), req, img)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rental)
}

// List godoc
// @Summary List rentals
// @Tags Rentals
// @Produce json
// @Param page query int false "Page (1-based, default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Param sort query string false "Sort field, e.g. price or roomCount"
// @Param order query string false "asc or desc"
// @Param query query string false "Case-insensitive match on name or address"
// @Success 200 {object} ListResult
// @Failure 400,500 {object} map[string]interface{}
// @Router /rentals [get]
func (h *Handler) List(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	result, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Search godoc
// @Summary Search rentals by name or address
// @Tags Rentals
// @Produce json
// @Param query query string true "Search text"
// @Success 200 {object} ListResult
// @Failure 400,500 {object} map[string]interface{}
// @Router /rentals/search [get]
func (h *Handler) Search(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	result, err := h.svc.Search(c.Request.Context(), q)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetByID godoc
// @Summary Get a rental
// @Tags Rentals
// @Produce json
// @Param id path string true "Rental ID"
// @Success 200 {object} domain.Rental
// @Failure 404,500 {object} map[string]interface{}
// @Router /rentals/{id} [get]
func (h *Handler) GetByID(c *gin.Context) {
	rental, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rental)
}

// Update godoc
// @Summary Update a rental
// @Description Only supplied fields change. A new image replaces and deletes the old one.
// @Tags Rentals
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Rental ID"
// @Param image formData file false "Replacement image"
// @Success 200 {object} domain.Rental
// @Failure 400,404,500 {object} map[string]interface{}
// @Router /rentals/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRentalRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
		return
	}

	img, closeImg, err := formImage(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid image upload")
		return
	}
	defer closeImg()

	rental, err := h.svc.Update(c.Request.Context(), c.Param("id"), req, img)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rental)
}

// Delete godoc
// @Summary Delete a rental and its image
// @Tags Rentals
// @Param id path string true "Rental ID"
// @Success 204
// @Failure 404,500 {object} map[string]interface{}
// @Router /rentals/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Export godoc
// @Summary Download every rental as a spreadsheet
// @Tags Rentals
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "xlsx (default) or csv"
// @Success 200 {file} file
// @Failure 400,500 {object} map[string]interface{}
// @Router /rentals/export [get]
func (h *Handler) Export(c *gin.Context) {
	file, err := h.svc.Export(c.Request.Context(), c.Query("format"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+file.Filename)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func (h *Handler) ServeImage(c *gin.Context) {
	key := c.Param("key")
	rc, err := h.svc.OpenImage(c.Request.Context(), key)
	switch {
	case errors.Is(err, storage.ErrInvalidKey):
		response.Error(c, http.StatusBadRequest, "INVALID_KEY", "Invalid file key")
		return
	case errors.Is(err, storage.ErrFileNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "File not found")
		return
	case err != nil:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL", "Internal error")
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, imageContentType(key), rc, map[string]string{
		"X-Content-Type-Options": "nosniff",
	})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", verr.Fields)
	case errors.Is(err, ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Rental not found")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL", "Internal error")
	}
}

// parseListQuery reads paging, sorting and search parameters. Missing
// page/limit take defaults; non-integer values are rejected.
func parseListQuery(c *gin.Context) (ListQuery, error) {
	q := ListQuery{
		Query: c.Query("query"),
		Sort:  c.Query("sort"),
		Order: c.Query("order"),
		Page:  defaultPage,
		Limit: defaultLimit,
	}

	var err error
	if v := c.Query("page"); v != "" {
		if q.Page, err = strconv.Atoi(v); err != nil {
			return q, ErrInvalidPageArg
		}
	}
	if v := c.Query("limit"); v != "" {
		if q.Limit, err = strconv.Atoi(v); err != nil {
			return q, ErrInvalidPageArg
		}
	}
	return q, nil
}

// formImage returns the optional "image" upload. The returned close
// func is always safe to call.
func formImage(c *gin.Context) (*ImageFile, func(), error) {
	noop := func() {}

	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, noop, err
	}
	return &ImageFile{Filename: fh.Filename, Size: fh.Size, Content: f}, func() { _ = f.Close() }, nil
}
