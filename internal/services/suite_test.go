package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"rentbook/internal/database"
	"rentbook/internal/models"
	"rentbook/pkg/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// freezeToday 固定"今天"
func freezeToday(t *testing.T, day time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return day.Add(9 * time.Hour) }
	t.Cleanup(func() { now = prev })
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

// memStore 内存存储
type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
	seq   int
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte)}
}

func (m *memStore) Save(_ context.Context, filename string, r io.Reader) (string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	key := fmt.Sprintf("documents/%d-%s", m.seq, filename)
	m.files[key] = data
	return key, int64(len(data)), nil
}

func (m *memStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[key]
	if !ok {
		return nil, fmt.Errorf("missing %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, key)
	return nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[key]
	return ok
}

// recordingPublisher 记录推送的通知
type recordingPublisher struct {
	mu   sync.Mutex
	sent []*models.Notification
}

func (p *recordingPublisher) Publish(n *models.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

// ServiceSuite 每个用例一个新的内存数据库：管理员、业主A、业主B、授权给A的会计
type ServiceSuite struct {
	suite.Suite
	db         *gorm.DB
	store      *memStore
	publisher  *recordingPublisher
	admin      *models.User
	ownerA     *models.User
	ownerB     *models.User
	accountant *models.User
}

func (s *ServiceSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.store = newMemStore()
	s.publisher = &recordingPublisher{}
	s.admin = s.createUser("admin", models.RoleAdmin)
	s.ownerA = s.createUser("owner_a", models.RoleOwner)
	s.ownerB = s.createUser("owner_b", models.RoleOwner)
	s.accountant = s.createUser("accountant", models.RoleAccountant)
	s.Require().NoError(s.db.Create(&models.AccountantOwner{AccountantID: s.accountant.ID, OwnerID: s.ownerA.ID}).Error)
}

func (s *ServiceSuite) createUser(username, role string) *models.User {
	u := &models.User{Username: username, Email: username + "@example.com", Role: role, IsActive: true}
	s.Require().NoError(u.SetPassword("secret-pass"))
	s.Require().NoError(s.db.Create(u).Error)
	return u
}

func (s *ServiceSuite) actor(u *models.User) *Actor {
	scope, err := NewAccessResolver(s.db).Resolve(u)
	s.Require().NoError(err)
	return NewActor(u, scope)
}

func (s *ServiceSuite) createApartment(owner *models.User, title string) *models.Apartment {
	a := &models.Apartment{
		OwnerID:      owner.ID,
		Title:        title,
		Address:      title + " street 1",
		SquareMeters: 70,
		PropertyType: models.PropertyTypeApartment,
		Status:       models.ApartmentStatusVacant,
	}
	s.Require().NoError(s.db.Create(a).Error)
	return a
}

func (s *ServiceSuite) createTenant(apt *models.Apartment, name string, start time.Time, end *time.Time, rent int64) *models.Tenant {
	res, err := NewTenantService(s.db, s.store).Create(Unrestricted(), TenantInput{
		ApartmentID:   &apt.ID,
		FullName:      &name,
		ContractStart: &start,
		ContractEnd:   end,
		MonthlyRent:   ptr(decimal.NewFromInt(rent)),
	})
	s.Require().NoError(err)
	return res.Tenant
}

func (s *ServiceSuite) payments(tenantID uint) []models.RentPayment {
	var rows []models.RentPayment
	s.Require().NoError(s.db.Where("tenant_id = ?", tenantID).Order("year").Order("month").Find(&rows).Error)
	return rows
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
