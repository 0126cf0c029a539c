package httpserver

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"customer-service/internal/auth"
	"customer-service/internal/domain"
	customersvc "customer-service/internal/service/customer"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxPictureBytes = 5 << 20

type handlers struct {
	customers customerService
	auth      authService
	logger    *zap.Logger
	timeout   time.Duration
}

type newCustomerRequest struct {
	Name       string  `json:"nome" binding:"required,min=5,max=120"`
	Email      string  `json:"email" binding:"required,email"`
	TaxID      string  `json:"cpfOuCnpj" binding:"required"`
	Type       int     `json:"tipo" binding:"required"`
	Password   string  `json:"senha" binding:"required"`
	Street     string  `json:"logradouro" binding:"required"`
	Number     string  `json:"numero" binding:"required"`
	Complement string  `json:"complemento"`
	District   string  `json:"bairro"`
	PostalCode string  `json:"cep" binding:"required"`
	Phone1     string  `json:"telefone1" binding:"required"`
	Phone2     *string `json:"telefone2"`
	Phone3     *string `json:"telefone3"`
	CityID     int64   `json:"cidadeId" binding:"required"`
}

func (r newCustomerRequest) input() customersvc.NewCustomerInput {
	return customersvc.NewCustomerInput{
		Name:       r.Name,
		Email:      r.Email,
		TaxID:      r.TaxID,
		Type:       r.Type,
		Password:   r.Password,
		Street:     r.Street,
		Number:     r.Number,
		Complement: r.Complement,
		District:   r.District,
		PostalCode: r.PostalCode,
		Phone1:     r.Phone1,
		Phone2:     r.Phone2,
		Phone3:     r.Phone3,
		CityID:     r.CityID,
	}
}

type updateCustomerRequest struct {
	Name  string `json:"nome" binding:"required,min=5,max=120"`
	Email string `json:"email" binding:"required,email"`
}

// customerSummary is the listing view of a customer.
type customerSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"nome"`
	Email string `json:"email"`
}

func summarize(c domain.Customer) customerSummary {
	return customerSummary{ID: c.ID, Name: c.Name, Email: c.Email}
}

func (h *handlers) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func principal(c *gin.Context) *domain.Principal {
	return auth.PrincipalFrom(c.Request.Context())
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortWith(c, http.StatusBadRequest, "Bad request", "invalid customer id", nil)
		return 0, false
	}
	return id, true
}

func (h *handlers) findCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	customer, err := h.customers.Find(ctx, principal(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *handlers) findCustomerByEmail(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	customer, err := h.customers.FindByEmail(ctx, principal(c), c.Query("value"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *handlers) createCustomer(c *gin.Context) {
	var req newCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	in := req.input()
	if err := h.customers.ValidateNew(ctx, in); err != nil {
		writeError(c, h.logger, err)
		return
	}
	customer, err := h.customers.FromDTO(in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	created, err := h.customers.Insert(ctx, customer)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Header("Location", requestURL(c)+"/"+strconv.FormatInt(created.ID, 10))
	c.Status(http.StatusCreated)
}

func (h *handlers) updateCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	in := customersvc.UpdateInput{Name: req.Name, Email: req.Email}
	if err := h.customers.ValidateUpdate(ctx, id, in); err != nil {
		writeError(c, h.logger, err)
		return
	}
	if _, err := h.customers.Update(ctx, principal(c), h.customers.FromUpdateDTO(id, in)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) deleteCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.customers.Delete(ctx, principal(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) findAllCustomers(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	all, err := h.customers.FindAll(ctx)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	out := make([]customerSummary, 0, len(all))
	for _, customer := range all {
		out = append(out, summarize(customer))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) findCustomerPage(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil {
		writeError(c, h.logger, domain.NewValidationError("page", "must be a number"))
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("linesPerPage", "24"))
	if err != nil {
		writeError(c, h.logger, domain.NewValidationError("linesPerPage", "must be a number"))
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	result, err := h.customers.FindPage(ctx, page, size, c.DefaultQuery("orderBy", "nome"), c.DefaultQuery("direction", "ASC"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	content := make([]customerSummary, 0, len(result.Content))
	for _, customer := range result.Content {
		content = append(content, summarize(customer))
	}
	c.JSON(http.StatusOK, domain.Page[customerSummary]{
		Content:       content,
		Number:        result.Number,
		Size:          result.Size,
		TotalElements: result.TotalElements,
		TotalPages:    result.TotalPages,
	})
}

func (h *handlers) uploadPicture(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		abortWith(c, http.StatusBadRequest, "File error", "multipart field \"file\" is required", nil)
		return
	}
	if fh.Size > maxPictureBytes {
		abortWith(c, http.StatusRequestEntityTooLarge, "File error", "file exceeds 5MB", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxPictureBytes+1))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if len(data) > maxPictureBytes {
		abortWith(c, http.StatusRequestEntityTooLarge, "File error", "file exceeds 5MB", nil)
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	u, err := h.customers.UploadProfilePicture(ctx, principal(c), data)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Header("Location", u.String())
	c.Status(http.StatusCreated)
}

func fileHandler(files fileSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		obj, ok := files.Get(c.Param("key"))
		if !ok {
			abortWith(c, http.StatusNotFound, "Not found", "file not found", nil)
			return
		}
		contentType := obj.ContentType
		if contentType == "" || contentType == "image" {
			contentType = http.DetectContentType(obj.Data)
		}
		c.Data(http.StatusOK, contentType, obj.Data)
	}
}

func requestURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if fwd := c.GetHeader("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.Path
}
