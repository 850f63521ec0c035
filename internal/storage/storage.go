package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bquezada-bit/Silvacentinel/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("storage: not found")

type Storage interface {
	// InTx runs fn against a transaction-bound Storage. Every write made
	// through it commits or rolls back together.
	InTx(ctx context.Context, fn func(Storage) error) error

	CreateAccount(ctx context.Context, a *models.Account) error
	UpdateAccount(ctx context.Context, a *models.Account) error
	GetAccountByID(ctx context.Context, id uint) (*models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ListAccounts(ctx context.Context, f AccountFilter) ([]AccountRow, error)
	DeleteAccount(ctx context.Context, id uint) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id uint) (*models.Category, error)
	SeedCategories(ctx context.Context) error
	FindOrCreateLocation(ctx context.Context, lat, lng float64, description string) (*models.Location, error)

	CreateComplaint(ctx context.Context, c *models.Complaint) error
	SaveComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaint(ctx context.Context, id uint) (*models.Complaint, error)
	DeleteComplaint(ctx context.Context, id uint) error
	ListComplaints(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error)

	AppendHistory(ctx context.Context, e *models.HistoryEntry) error
	AppendActivity(ctx context.Context, e *models.ActivityLogEntry) error
	ListHistory(ctx context.Context, complaintID uint) ([]models.HistoryEntry, error)
	ListActivity(ctx context.Context, f ActivityFilter) ([]models.ActivityLogEntry, error)

	CountComplaints(ctx context.Context, ownerID *uint) (int64, error)
	CountComplaintsByStatus(ctx context.Context, ownerID *uint) (map[models.Status]int64, error)
	CountComplaintsByPriority(ctx context.Context) (map[models.Priority]int64, error)
	CountAccountsByRole(ctx context.Context) (map[models.Role]int64, error)
	CountCategories(ctx context.Context) (int64, error)
	TopCategories(ctx context.Context, n int) ([]NamedCount, error)
	TopReporters(ctx context.Context, n int) ([]NamedCount, error)

	RedisEnabled() bool
	RevokeSession(ctx context.Context, jti string, ttl time.Duration) error
	IsSessionRevoked(ctx context.Context, jti string) (bool, error)
	HitLoginAttempt(ctx context.Context, key string, window time.Duration) (int64, error)
	ResetLoginAttempts(ctx context.Context, key string) error
	SubscribeActivity(ctx context.Context) *redis.PubSub
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Log   *zap.Logger

	inTx    bool
	pending []*models.ActivityLogEntry
}

// NewStorageService Constructor. rdb may be nil, which disables the Redis
// backed features.
func NewStorageService(db *gorm.DB, rdb *redis.Client, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		DB:    db,
		Redis: rdb,
		Log:   log,
	}
}

func (s *Service) InTx(ctx context.Context, fn func(Storage) error) error {
	if s.inTx {
		return fn(s)
	}

	var committed []*models.ActivityLogEntry
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txs := &Service{DB: tx, Redis: s.Redis, Log: s.Log, inTx: true}
		if err := fn(txs); err != nil {
			return err
		}
		committed = txs.pending
		return nil
	})
	if err != nil {
		return err
	}

	for _, e := range committed {
		s.publishActivity(ctx, e)
	}
	return nil
}

func (s *Service) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// AccountFilter narrows the admin account listing. Zero values match all.
type AccountFilter struct {
	Role  models.Role
	Query string
}

// AccountRow is an account with the number of complaints it owns.
type AccountRow struct {
	models.Account
	ComplaintCount int64 `json:"denuncias_count"`
}

func (s *Service) CreateAccount(ctx context.Context, a *models.Account) error {
	return s.db(ctx).Omit(clause.Associations).Create(a).Error
}

func (s *Service) UpdateAccount(ctx context.Context, a *models.Account) error {
	return s.db(ctx).Omit(clause.Associations).Save(a).Error
}

func (s *Service) GetAccountByID(ctx context.Context, id uint) (*models.Account, error) {
	var a models.Account
	if err := s.db(ctx).First(&a, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *Service) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	var a models.Account
	if err := s.db(ctx).Where("username = ?", username).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *Service) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int64
	err := s.db(ctx).Model(&models.Account{}).Where("LOWER(username) = ?", strings.ToLower(username)).Count(&n).Error
	return n > 0, err
}

func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int64
	err := s.db(ctx).Model(&models.Account{}).Where("LOWER(email) = ?", strings.ToLower(email)).Count(&n).Error
	return n > 0, err
}

// ListAccounts returns accounts newest first, each with its complaint count.
func (s *Service) ListAccounts(ctx context.Context, f AccountFilter) ([]AccountRow, error) {
	q := s.db(ctx).Model(&models.Account{})
	if f.Role != "" {
		q = q.Where("role = ?", string(f.Role))
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var accounts []models.Account
	if err := q.Order("created_at DESC, id DESC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	var counts []struct {
		OwnerID uint
		Total   int64
	}
	if err := s.db(ctx).Model(&models.Complaint{}).
		Select("owner_id, COUNT(*) AS total").
		Group("owner_id").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("count complaints per account: %w", err)
	}
	byOwner := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byOwner[c.OwnerID] = c.Total
	}

	rows := make([]AccountRow, len(accounts))
	for i, a := range accounts {
		rows[i] = AccountRow{Account: a, ComplaintCount: byOwner[a.ID]}
	}
	return rows, nil
}

// DeleteAccount removes an account together with its complaints and their
// history. History and log entries it authored elsewhere keep existing with
// a nil actor.
func (s *Service) DeleteAccount(ctx context.Context, id uint) error {
	return s.InTx(ctx, func(st Storage) error {
		tx := st.(*Service).db(ctx)

		owned := tx.Model(&models.Complaint{}).Select("id").Where("owner_id = ?", id)
		if err := tx.Where("complaint_id IN (?)", owned).Delete(&models.HistoryEntry{}).Error; err != nil {
			return fmt.Errorf("delete history of owned complaints: %w", err)
		}
		if err := tx.Where("owner_id = ?", id).Delete(&models.Complaint{}).Error; err != nil {
			return fmt.Errorf("delete owned complaints: %w", err)
		}
		if err := tx.Model(&models.HistoryEntry{}).Where("actor_id = ?", id).Update("actor_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ActivityLogEntry{}).Where("actor_id = ?", id).Update("actor_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Account{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
