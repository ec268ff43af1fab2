package store

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/glefebvre/iptvplayer/internal/errors"
	"github.com/glefebvre/iptvplayer/internal/logger"
	"github.com/glefebvre/iptvplayer/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const currentAccountKey = "current_account_id"

// AccountReader is the read-only view of saved accounts that content
// acquisition depends on
type AccountReader interface {
	Accounts(ctx context.Context) ([]models.Account, error)
	CurrentAccountID(ctx context.Context) (string, error)
}

// AccountStore adds the write operations used by account management
type AccountStore interface {
	AccountReader
	Get(ctx context.Context, id string) (models.Account, error)
	Save(ctx context.Context, acct models.Account) (models.Account, error)
	Delete(ctx context.Context, id string) error
	SetCurrent(ctx context.Context, id string) error
}

// GormStore persists accounts with gorm
type GormStore struct {
	db     *gorm.DB
	logger *logger.Logger
	now    func() time.Time
}

// New creates a store over an opened, migrated database
func New(db *gorm.DB, log *logger.Logger) *GormStore {
	if log == nil {
		log = logger.StoreLogger()
	}
	return &GormStore{
		db:     db,
		logger: log,
		now:    time.Now,
	}
}

// Accounts returns every saved account in creation order
func (s *GormStore) Accounts(ctx context.Context) ([]models.Account, error) {
	var records []models.AccountRecord
	if err := s.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&records).Error; err != nil {
		return nil, apperrors.DatabaseError("failed to list accounts", err)
	}

	accounts := make([]models.Account, 0, len(records))
	for _, rec := range records {
		accounts = append(accounts, rec.ToAccount())
	}
	return accounts, nil
}

// Get returns one account
func (s *GormStore) Get(ctx context.Context, id string) (models.Account, error) {
	var rec models.AccountRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Account{}, apperrors.NotFoundError("account", id)
	}
	if err != nil {
		return models.Account{}, apperrors.DatabaseError("failed to load account", err)
	}
	return rec.ToAccount(), nil
}

// CurrentAccountID returns the selected account id, or "" when none is set
func (s *GormStore) CurrentAccountID(ctx context.Context) (string, error) {
	var setting models.Setting
	err := s.db.WithContext(ctx).First(&setting, "name = ?", currentAccountKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.DatabaseError("failed to read current account", err)
	}
	return setting.Value, nil
}

// Save inserts an account, or updates the saved account pointing at the
// same source (same server and username, or same playlist URL). The saved
// account keeps its original id, has LastUsed bumped and becomes current.
func (s *GormStore) Save(ctx context.Context, acct models.Account) (models.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	if err := acct.Validate(); err != nil {
		return models.Account{}, apperrors.ValidationError(err.Error())
	}

	now := s.now()
	var saved models.Account

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.AccountRecord
		if err := tx.Where("type = ?", string(acct.Type)).Find(&existing).Error; err != nil {
			return err
		}

		rec := models.NewAccountRecord(acct)
		rec.LastUsed = &now

		var match *models.AccountRecord
		for i := range existing {
			if existing[i].ToAccount().SameSource(acct) {
				match = &existing[i]
				break
			}
		}

		if match != nil {
			rec.ID = match.ID
			rec.CreatedAt = match.CreatedAt
			if err := tx.Save(&rec).Error; err != nil {
				return err
			}
		} else if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		if err := setCurrent(tx, rec.ID, now); err != nil {
			return err
		}

		saved = rec.ToAccount()
		return nil
	})
	if err != nil {
		return models.Account{}, apperrors.DatabaseError("failed to save account", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"account_id": saved.ID,
		"type":       saved.Type,
	}).Info("account saved")

	return saved, nil
}

// Delete removes an account and clears the current pointer when it
// referenced it
func (s *GormStore) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.AccountRecord{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFoundError("account", id)
		}
		return tx.Where("name = ? AND value = ?", currentAccountKey, id).Delete(&models.Setting{}).Error
	})
	if apperrors.GetErrorCode(err) == apperrors.CodeNotFound {
		return err
	}
	if err != nil {
		return apperrors.DatabaseError("failed to delete account", err)
	}

	s.logger.WithFields(map[string]interface{}{"account_id": id}).Info("account deleted")
	return nil
}

// SetCurrent selects an account
func (s *GormStore) SetCurrent(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := setCurrent(s.db.WithContext(ctx), id, s.now()); err != nil {
		return apperrors.DatabaseError("failed to set current account", err)
	}
	return nil
}

func setCurrent(tx *gorm.DB, id string, now time.Time) error {
	setting := models.Setting{Name: currentAccountKey, Value: id, UpdatedAt: now}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
}

// Current resolves the selected account. ok is false when no account is
// selected or the selection no longer exists.
func Current(ctx context.Context, r AccountReader) (acct models.Account, ok bool, err error) {
	id, err := r.CurrentAccountID(ctx)
	if err != nil || id == "" {
		return models.Account{}, false, err
	}

	accounts, err := r.Accounts(ctx)
	if err != nil {
		return models.Account{}, false, err
	}
	for _, a := range accounts {
		if a.ID == id {
			return a, true, nil
		}
	}
	return models.Account{}, false, nil
}
