package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"rentbook/internal/models"
	"rentbook/internal/storage"
	apperrors "rentbook/pkg/errors"
	"rentbook/pkg/logger"
	"rentbook/pkg/pagination"

	"gorm.io/gorm"
)

// DocumentService 文档元数据与文件
type DocumentService struct {
	db    *gorm.DB
	store storage.Store
}

// DocumentFilter 列表过滤条件
type DocumentFilter struct {
	TenantID     uint
	ApartmentID  uint
	DocumentType string
}

// DocumentInput 创建/更新参数；ClearTenant/ClearApartment 解除关联
type DocumentInput struct {
	TenantID       *uint
	ApartmentID    *uint
	ClearTenant    bool
	ClearApartment bool
	DocumentType   *string
	Title          *string
	Description    *string
}

// Upload 上传的文件
type Upload struct {
	FileName    string
	ContentType string
	Reader      io.Reader
}

func NewDocumentService(db *gorm.DB, store storage.Store) *DocumentService {
	return &DocumentService{db: db, store: store}
}

// List 分页查询可见文档，按上传时间倒序
func (s *DocumentService) List(scope OwnerScope, filter DocumentFilter, page *pagination.PageParams) ([]models.Document, int64, error) {
	query := s.db.Model(&models.Document{}).Scopes(scope.Documents)
	if filter.TenantID != 0 {
		query = query.Where("documents.tenant_id = ?", filter.TenantID)
	}
	if filter.ApartmentID != 0 {
		query = query.Where("documents.apartment_id = ?", filter.ApartmentID)
	}
	if filter.DocumentType != "" {
		query = query.Where("documents.document_type = ?", filter.DocumentType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var docs []models.Document
	err := query.Order("documents.created_at DESC").Order("documents.id DESC").
		Scopes(page.Scope()).
		Find(&docs).Error
	return docs, total, err
}

// Get 获取可见文档
func (s *DocumentService) Get(scope OwnerScope, id uint) (*models.Document, error) {
	return findDocument(s.db, scope, id)
}

// Create 保存文件并写入元数据，数据库写入失败时删除已保存的文件
func (s *DocumentService) Create(ctx context.Context, scope OwnerScope, in DocumentInput, file *Upload) (*models.Document, error) {
	doc := &models.Document{DocumentType: models.DocumentTypeOther}
	applyDocumentInput(doc, in)

	verr := documentFieldErrors(doc)
	if file == nil || file.Reader == nil {
		verr.Add("file", "no file was submitted")
	}
	if verr.HasErrors() {
		return nil, verr
	}
	if err := s.checkParents(s.db, scope, doc); err != nil {
		return nil, err
	}

	key, size, err := s.store.Save(ctx, file.FileName, file.Reader)
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	doc.FilePath = key
	doc.FileName = file.FileName
	doc.ContentType = file.ContentType
	doc.Size = size

	if err := s.db.Create(doc).Error; err != nil {
		removeBlobs(s.store, []string{key})
		return nil, err
	}
	return doc, nil
}

// Update 更新元数据，提供新文件时替换旧文件
func (s *DocumentService) Update(ctx context.Context, scope OwnerScope, id uint, in DocumentInput, file *Upload) (*models.Document, error) {
	doc, err := findDocument(s.db, scope, id)
	if err != nil {
		return nil, err
	}
	applyDocumentInput(doc, in)
	if verr := documentFieldErrors(doc); verr.HasErrors() {
		return nil, verr
	}
	if err := s.checkParents(s.db, scope, doc); err != nil {
		return nil, err
	}

	oldKey := ""
	if file != nil && file.Reader != nil {
		key, size, err := s.store.Save(ctx, file.FileName, file.Reader)
		if err != nil {
			return nil, fmt.Errorf("store document: %w", err)
		}
		oldKey = doc.FilePath
		doc.FilePath = key
		doc.FileName = file.FileName
		doc.ContentType = file.ContentType
		doc.Size = size
	}

	if err := s.db.Save(doc).Error; err != nil {
		if oldKey != "" {
			removeBlobs(s.store, []string{doc.FilePath})
		}
		return nil, err
	}
	if oldKey != "" {
		removeBlobs(s.store, []string{oldKey})
	}
	return doc, nil
}

// Delete 删除元数据与文件
func (s *DocumentService) Delete(scope OwnerScope, id uint) error {
	doc, err := findDocument(s.db, scope, id)
	if err != nil {
		return err
	}
	if err := s.db.Delete(&models.Document{}, doc.ID).Error; err != nil {
		return err
	}
	removeBlobs(s.store, []string{doc.FilePath})
	return nil
}

// Open 打开文档文件用于下载，调用方负责关闭
func (s *DocumentService) Open(ctx context.Context, scope OwnerScope, id uint) (*models.Document, io.ReadCloser, error) {
	doc, err := findDocument(s.db, scope, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, doc.FilePath)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("document_id", doc.ID).Warn("Document file missing")
		return nil, nil, apperrors.NotFound("document file")
	}
	return doc, rc, nil
}

// checkParents 至少关联租客或房源之一；引用须可见；同时指定时租客须属于该房源
func (s *DocumentService) checkParents(db *gorm.DB, scope OwnerScope, doc *models.Document) error {
	if doc.TenantID == nil && doc.ApartmentID == nil {
		return apperrors.NewValidationError("non_field_errors", "a document must reference a tenant or an apartment")
	}

	verr := &apperrors.ValidationError{}
	var tenant *models.Tenant
	if doc.TenantID != nil {
		t, err := visibleTenant(db, scope, *doc.TenantID)
		if err != nil {
			if !errors.Is(err, apperrors.ErrValidation) {
				return err
			}
			verr.Add("tenant_id", "tenant not found")
		}
		tenant = t
	}
	if doc.ApartmentID != nil {
		if _, err := visibleApartment(db, scope, *doc.ApartmentID); err != nil {
			if !errors.Is(err, apperrors.ErrValidation) {
				return err
			}
			verr.Add("apartment_id", "apartment not found")
		}
	}
	if tenant != nil && doc.ApartmentID != nil && tenant.ApartmentID != *doc.ApartmentID {
		verr.Add("apartment_id", "tenant does not belong to this apartment")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func findDocument(db *gorm.DB, scope OwnerScope, id uint) (*models.Document, error) {
	var doc models.Document
	if err := db.Scopes(scope.Documents).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("document")
		}
		return nil, err
	}
	return &doc, nil
}

func applyDocumentInput(d *models.Document, in DocumentInput) {
	if in.ClearTenant {
		d.TenantID = nil
	} else if in.TenantID != nil {
		id := *in.TenantID
		d.TenantID = &id
	}
	if in.ClearApartment {
		d.ApartmentID = nil
	} else if in.ApartmentID != nil {
		id := *in.ApartmentID
		d.ApartmentID = &id
	}
	if in.DocumentType != nil {
		d.DocumentType = *in.DocumentType
	}
	if in.Title != nil {
		d.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		d.Description = *in.Description
	}
}

func documentFieldErrors(d *models.Document) *apperrors.ValidationError {
	verr := &apperrors.ValidationError{}
	if d.Title == "" {
		verr.Add("title", "this field is required")
	}
	if !models.ValidDocumentType(d.DocumentType) {
		verr.Add("document_type", "invalid choice")
	}
	return verr
}
