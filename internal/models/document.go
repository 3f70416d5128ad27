package models

// 文档类型
const (
	DocumentTypeContract  = "contract"
	DocumentTypeReceipt   = "receipt"
	DocumentTypeInsurance = "insurance"
	DocumentTypeOther     = "other"
)

// Document 上传文件的元数据，文件本体保存在存储后端
type Document struct {
	BaseModel
	TenantID     *uint  `gorm:"index" json:"tenant_id"`
	ApartmentID  *uint  `gorm:"index" json:"apartment_id"`
	DocumentType string `gorm:"size:20;not null;default:'other'" json:"document_type"`
	Title        string `gorm:"size:200;not null" json:"title"`
	Description  string `gorm:"type:text" json:"description"`
	FilePath     string `gorm:"size:255;not null" json:"file_path"`
	FileName     string `gorm:"size:255" json:"file_name"`
	ContentType  string `gorm:"size:100" json:"content_type"`
	Size         int64  `json:"size"`

	Tenant    *Tenant    `gorm:"foreignKey:TenantID" json:"-"`
	Apartment *Apartment `gorm:"foreignKey:ApartmentID" json:"-"`
}

// TableName 指定表名
func (Document) TableName() string {
	return "documents"
}

// ValidDocumentType 是否为合法文档类型
func ValidDocumentType(t string) bool {
	switch t {
	case DocumentTypeContract, DocumentTypeReceipt, DocumentTypeInsurance, DocumentTypeOther:
		return true
	}
	return false
}
