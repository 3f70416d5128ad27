package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"rentbook/internal/services"
	"rentbook/pkg/logger"
	"rentbook/pkg/pagination"
	"rentbook/pkg/response"

	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	service       *services.DocumentService
	apiPrefix     string
	maxUploadSize int64
}

func NewDocumentHandler(service *services.DocumentService, apiPrefix string, maxUploadSize int64) *DocumentHandler {
	return &DocumentHandler{
		service:       service,
		apiPrefix:     strings.TrimRight(apiPrefix, "/"),
		maxUploadSize: maxUploadSize,
	}
}

// List 文档列表，按上传时间倒序
func (h *DocumentHandler) List(c *gin.Context) {
	var filter services.DocumentFilter
	var err error
	if filter.TenantID, err = queryUint(c, "tenant_id"); err != nil {
		bindFailed(c, err)
		return
	}
	if filter.ApartmentID, err = queryUint(c, "apartment_id"); err != nil {
		bindFailed(c, err)
		return
	}
	filter.DocumentType = c.Query("document_type")
	page := pagination.ParsePageParams(c)

	docs, total, err := h.service.List(currentScope(c), filter, page)
	if err != nil {
		response.FromError(c, err)
		return
	}
	out := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, toDocumentResponse(&docs[i], h.apiPrefix))
	}
	response.SuccessWithPage(c, out, pagination.NewPageInfo(page.Page, page.PageSize, total))
}

// Get 文档详情
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	doc, err := h.service.Get(currentScope(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, toDocumentResponse(doc, h.apiPrefix))
}

// Create 上传文档（multipart/form-data）
func (h *DocumentHandler) Create(c *gin.Context) {
	in, upload, closer, ok := h.bindMultipart(c)
	if !ok {
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	doc, err := h.service.Create(c.Request.Context(), currentScope(c), in, upload)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, toDocumentResponse(doc, h.apiPrefix))
}

// Update 更新文档元数据，可替换文件
func (h *DocumentHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	in, upload, closer, ok := h.bindMultipart(c)
	if !ok {
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	doc, err := h.service.Update(c.Request.Context(), currentScope(c), id, in, upload)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, toDocumentResponse(doc, h.apiPrefix))
}

// Delete 删除文档及文件
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(currentScope(c), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

// Download 流式返回文件内容
func (h *DocumentHandler) Download(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	doc, rc, err := h.service.Open(c.Request.Context(), currentScope(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	defer rc.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", doc.FileName),
	}
	c.DataFromReader(http.StatusOK, doc.Size, contentType, rc, extraHeaders)
}

// bindMultipart 解析表单字段与 file 部分；空的 tenant_id/apartment_id 表示解除关联
func (h *DocumentHandler) bindMultipart(c *gin.Context) (services.DocumentInput, *services.Upload, io.Closer, bool) {
	var in services.DocumentInput

	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.ValidationFailed(c, map[string]string{"file": "file exceeds the maximum upload size"})
			return in, nil, nil, false
		}
		response.BadRequest(c, "malformed multipart body")
		return in, nil, nil, false
	}

	for _, ref := range []struct {
		field string
		value **uint
		clear *bool
	}{
		{"tenant_id", &in.TenantID, &in.ClearTenant},
		{"apartment_id", &in.ApartmentID, &in.ClearApartment},
	} {
		raw, present := c.GetPostForm(ref.field)
		if !present {
			continue
		}
		raw = strings.TrimSpace(raw)
		if raw == "" || raw == "null" {
			*ref.clear = true
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			response.ValidationFailed(c, map[string]string{ref.field: "must be a positive integer"})
			return in, nil, nil, false
		}
		v := uint(id)
		*ref.value = &v
	}

	if v, present := c.GetPostForm("document_type"); present {
		in.DocumentType = &v
	}
	if v, present := c.GetPostForm("title"); present {
		in.Title = &v
	}
	if v, present := c.GetPostForm("description"); present {
		in.Description = &v
	}

	header, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return in, nil, nil, true
		}
		response.BadRequest(c, "malformed multipart body")
		return in, nil, nil, false
	}
	file, err := header.Open()
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to open uploaded file")
		response.ServerError(c, "failed to read uploaded file")
		return in, nil, nil, false
	}
	return in, newUpload(header, file), file, true
}

func newUpload(header *multipart.FileHeader, file multipart.File) *services.Upload {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &services.Upload{
		FileName:    header.Filename,
		ContentType: contentType,
		Reader:      file,
	}
}
