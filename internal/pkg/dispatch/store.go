package dispatch

import (
	"context"

	"github.com/hookline/hookline/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence gateway consumed by the dispatcher: append-only
// writes plus one insert-if-absent operation. Each call commits on its own;
// the dispatcher relies on that so a later event's failure cannot roll back
// an earlier event.
type Store interface {
	AppendMessage(msg *models.Message) error
	AppendAdminMessage(msg *models.AdminMessage) error
	AppendInteraction(entry *models.AIInteraction) error
	ProfileExists(userID string) (bool, error)
	InsertProfileIfAbsent(profile *models.UserProfile) (bool, error)
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a persistence gateway backed by GORM.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// NewStoreContext binds the gateway to a request context so every write
// carries the request's deadline.
func NewStoreContext(ctx context.Context, db *gorm.DB) Store {
	return &gormStore{db: db.WithContext(ctx)}
}

func (s *gormStore) AppendMessage(msg *models.Message) error {
	return s.db.Create(msg).Error
}

func (s *gormStore) AppendAdminMessage(msg *models.AdminMessage) error {
	return s.db.Create(msg).Error
}

func (s *gormStore) AppendInteraction(entry *models.AIInteraction) error {
	return s.db.Create(entry).Error
}

func (s *gormStore) ProfileExists(userID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.UserProfile{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *gormStore) InsertProfileIfAbsent(profile *models.UserProfile) (bool, error) {
	tx := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(profile)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
