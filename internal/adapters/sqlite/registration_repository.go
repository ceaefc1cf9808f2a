package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atvirokodosprendimai/regform/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/regform/internal/core/domain"
	"gorm.io/gorm"
)

type sessionModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (sessionModel) TableName() string {
	return "sessions"
}

type registrationModel struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	SessionID   string    `gorm:"column:session_id;not null"`
	SubmittedAt time.Time `gorm:"column:submitted_at;not null"`
	FullName    string    `gorm:"column:full_name;not null"`
	Email       string    `gorm:"column:email;not null"`
	Phone       string    `gorm:"column:phone;not null"`
	BirthDate   string    `gorm:"column:birth_date;not null"`
	Status      string    `gorm:"column:status;not null"`
}

func (registrationModel) TableName() string {
	return "registrations"
}

type RegistrationRepository struct {
	db *gormsqlite.DB
}

func NewRegistrationRepository(db *gormsqlite.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

func (r *RegistrationRepository) CreateSession(ctx context.Context, session domain.Session) error {
	model := sessionModel{ID: session.ID, CreatedAt: session.CreatedAt.UTC()}
	return r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
}

func (r *RegistrationRepository) GetSession(ctx context.Context, id string) (domain.Session, error) {
	var model sessionModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		var err error
		model, err = findSession(tx.DB, id)
		return err
	})
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{ID: model.ID, CreatedAt: model.CreatedAt}, nil
}

// PruneSessions deletes sessions created before the cutoff. Their rows go
// with them through the foreign key cascade.
func (r *RegistrationRepository) PruneSessions(ctx context.Context, createdBefore time.Time) (int64, error) {
	var deleted int64
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Where("created_at < ?", createdBefore.UTC()).Delete(&sessionModel{})
		if res.Error != nil {
			return fmt.Errorf("delete sessions: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

func (r *RegistrationRepository) Append(ctx context.Context, rec domain.RegistrationRecord) (domain.RegistrationRecord, error) {
	model := registrationModel{
		SessionID:   rec.SessionID,
		SubmittedAt: rec.SubmittedAt.UTC(),
		FullName:    rec.FullName,
		Email:       rec.Email,
		Phone:       rec.Phone,
		BirthDate:   rec.BirthDate,
		Status:      rec.Status,
	}

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := sessionExists(tx.DB, rec.SessionID); err != nil {
			return err
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert registration: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.RegistrationRecord{}, err
	}
	return toDomain(model), nil
}

func (r *RegistrationRepository) List(ctx context.Context, sessionID string) ([]domain.RegistrationRecord, error) {
	var models []registrationModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := sessionExists(tx.DB, sessionID); err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Order("id ASC").Find(&models).Error; err != nil {
			return fmt.Errorf("list registrations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	records := make([]domain.RegistrationRecord, 0, len(models))
	for _, model := range models {
		records = append(records, toDomain(model))
	}
	return records, nil
}

func findSession(db *gorm.DB, id string) (sessionModel, error) {
	var model sessionModel
	err := db.Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return sessionModel{}, domain.ErrNotFound
		}
		return sessionModel{}, fmt.Errorf("get session: %w", err)
	}
	return model, nil
}

func sessionExists(db *gorm.DB, id string) error {
	_, err := findSession(db, id)
	return err
}

func toDomain(model registrationModel) domain.RegistrationRecord {
	return domain.RegistrationRecord{
		ID:          model.ID,
		SessionID:   model.SessionID,
		SubmittedAt: model.SubmittedAt,
		FullName:    model.FullName,
		Email:       model.Email,
		Phone:       model.Phone,
		BirthDate:   model.BirthDate,
		Status:      model.Status,
	}
}
