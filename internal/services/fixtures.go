package services

import (
	"errors"
	"fmt"
	"strings"

	"rentbook/internal/models"
	"rentbook/pkg/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Fixtures 测试/演示数据
type Fixtures struct {
	Users       []FixtureUser       `yaml:"users"`
	Delegations []FixtureDelegation `yaml:"delegations"`
	Apartments  []FixtureApartment  `yaml:"apartments"`
}

type FixtureUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type FixtureDelegation struct {
	Accountant string `yaml:"accountant"`
	Owner      string `yaml:"owner"`
}

type FixtureApartment struct {
	Owner        string          `yaml:"owner"`
	Title        string          `yaml:"title"`
	Address      string          `yaml:"address"`
	SquareMeters int             `yaml:"square_meters"`
	PropertyType string          `yaml:"property_type"`
	Status       string          `yaml:"status"`
	City         string          `yaml:"city"`
	Area         string          `yaml:"area"`
	Region       string          `yaml:"region"`
	Tenants      []FixtureTenant `yaml:"tenants"`
}

type FixtureTenant struct {
	FullName      string   `yaml:"full_name"`
	Phone         string   `yaml:"phone"`
	Email         string   `yaml:"email"`
	ContractStart string   `yaml:"contract_start"`
	ContractEnd   string   `yaml:"contract_end"`
	MonthlyRent   string   `yaml:"monthly_rent"`
	Deposit       string   `yaml:"deposit"`
	PaidMonths    []string `yaml:"paid_months"` // YYYY-MM
}

// FixtureReport 导入结果
type FixtureReport struct {
	Users       int
	Delegations int
	Apartments  int
	Tenants     int
	Payments    int
	MarkedPaid  int
}

// FixtureLoader 幂等导入：用户按用户名、房源按业主+标题、租客按房源+姓名去重
type FixtureLoader struct {
	db *gorm.DB
}

func NewFixtureLoader(db *gorm.DB) *FixtureLoader {
	return &FixtureLoader{db: db}
}

// Load 在一个事务内导入
func (l *FixtureLoader) Load(f *Fixtures) (*FixtureReport, error) {
	report := &FixtureReport{}
	err := l.db.Transaction(func(tx *gorm.DB) error {
		users := make(map[string]*models.User)
		for _, fu := range f.Users {
			u, created, err := l.user(tx, fu)
			if err != nil {
				return fmt.Errorf("user %s: %w", fu.Username, err)
			}
			users[u.Username] = u
			if created {
				report.Users++
			}
		}

		lookup := func(username string) (*models.User, error) {
			if u, ok := users[username]; ok {
				return u, nil
			}
			var u models.User
			if err := tx.Where("username = ?", username).First(&u).Error; err != nil {
				return nil, fmt.Errorf("unknown user %q: %w", username, err)
			}
			users[username] = &u
			return &u, nil
		}

		for _, fd := range f.Delegations {
			acc, err := lookup(fd.Accountant)
			if err != nil {
				return err
			}
			owner, err := lookup(fd.Owner)
			if err != nil {
				return err
			}
			var count int64
			if err := tx.Model(&models.AccountantOwner{}).
				Where("accountant_id = ? AND owner_id = ?", acc.ID, owner.ID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			if err := tx.Create(&models.AccountantOwner{AccountantID: acc.ID, OwnerID: owner.ID}).Error; err != nil {
				return err
			}
			report.Delegations++
		}

		for _, fa := range f.Apartments {
			owner, err := lookup(fa.Owner)
			if err != nil {
				return err
			}
			if err := l.apartment(tx, owner, fa, report); err != nil {
				return fmt.Errorf("apartment %s: %w", fa.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.GetLogger().WithField("report", fmt.Sprintf("%+v", *report)).Info("Fixtures loaded")
	return report, nil
}

func (l *FixtureLoader) user(tx *gorm.DB, fu FixtureUser) (*models.User, bool, error) {
	var u models.User
	err := tx.Where("username = ?", fu.Username).First(&u).Error
	if err == nil {
		return &u, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	role := fu.Role
	if role == "" {
		role = models.RoleOwner
	}
	if !models.ValidRole(role) {
		return nil, false, fmt.Errorf("invalid role %q", role)
	}
	u = models.User{Username: fu.Username, Email: fu.Email, Role: role, IsActive: true}
	if err := u.SetPassword(fu.Password); err != nil {
		return nil, false, err
	}
	if err := tx.Create(&u).Error; err != nil {
		return nil, false, err
	}
	return &u, true, nil
}

func (l *FixtureLoader) apartment(tx *gorm.DB, owner *models.User, fa FixtureApartment, report *FixtureReport) error {
	var apt models.Apartment
	err := tx.Where("owner_id = ? AND title = ?", owner.ID, fa.Title).First(&apt).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		apt = models.Apartment{
			OwnerID:      owner.ID,
			Title:        fa.Title,
			Address:      fa.Address,
			SquareMeters: fa.SquareMeters,
			PropertyType: defaultString(fa.PropertyType, models.PropertyTypeApartment),
			Status:       defaultString(fa.Status, models.ApartmentStatusVacant),
			City:         fa.City,
			Area:         fa.Area,
			Region:       fa.Region,
		}
		if err := validateApartment(&apt); err != nil {
			return err
		}
		if err := tx.Create(&apt).Error; err != nil {
			return err
		}
		report.Apartments++
	case err != nil:
		return err
	}

	for _, ft := range fa.Tenants {
		if err := l.tenant(tx, &apt, ft, report); err != nil {
			return fmt.Errorf("tenant %s: %w", ft.FullName, err)
		}
	}
	return nil
}

func (l *FixtureLoader) tenant(tx *gorm.DB, apt *models.Apartment, ft FixtureTenant, report *FixtureReport) error {
	var tenant models.Tenant
	err := tx.Where("apartment_id = ? AND full_name = ?", apt.ID, ft.FullName).First(&tenant).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		tenant, err = buildFixtureTenant(apt.ID, ft)
		if err != nil {
			return err
		}
		if err := validateTenant(&tenant); err != nil {
			return err
		}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		report.Tenants++
	case err != nil:
		return err
	}

	created, err := GenerateRentPayments(tx, &tenant)
	if err != nil {
		return err
	}
	report.Payments += created

	for _, ym := range ft.PaidMonths {
		var year, month int
		if _, err := fmt.Sscanf(ym, "%d-%d", &year, &month); err != nil {
			return fmt.Errorf("invalid paid month %q", ym)
		}
		var p models.RentPayment
		err := tx.Where("tenant_id = ? AND year = ? AND month = ? AND paid = ?", tenant.ID, year, month, false).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		paidDate := p.DueDate
		p.Paid = true
		p.PaidDate = &paidDate
		if err := tx.Save(&p).Error; err != nil {
			return err
		}
		report.MarkedPaid++
	}
	return nil
}

func buildFixtureTenant(apartmentID uint, ft FixtureTenant) (models.Tenant, error) {
	t := models.Tenant{
		ApartmentID:   apartmentID,
		FullName:      ft.FullName,
		Phone:         ft.Phone,
		Email:         ft.Email,
		PaymentDueDay: models.DefaultPaymentDueDay,
		Deposit:       decimal.Zero,
	}

	start, err := models.ParseDate(ft.ContractStart)
	if err != nil {
		return t, fmt.Errorf("contract_start: %w", err)
	}
	t.ContractStart = start
	if strings.TrimSpace(ft.ContractEnd) != "" {
		end, err := models.ParseDate(ft.ContractEnd)
		if err != nil {
			return t, fmt.Errorf("contract_end: %w", err)
		}
		t.ContractEnd = &end
	}
	if t.MonthlyRent, err = decimal.NewFromString(ft.MonthlyRent); err != nil {
		return t, fmt.Errorf("monthly_rent: %w", err)
	}
	if ft.Deposit != "" {
		if t.Deposit, err = decimal.NewFromString(ft.Deposit); err != nil {
			return t, fmt.Errorf("deposit: %w", err)
		}
	}
	return t, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
