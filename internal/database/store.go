package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/pathakanu/mediping/internal/model"
	"github.com/pathakanu/mediping/internal/tracker"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a requested user or reminder does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrUserExists is returned when registering a phone number twice.
	ErrUserExists = errors.New("user with this phone number already exists")
)

// Store reads and writes users and reminder definitions.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open gorm connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FindDueDefinitions returns every reminder scheduled at hhmm together with
// its owner's contact details.
func (s *Store) FindDueDefinitions(ctx context.Context, hhmm string) ([]model.MedicineReminder, error) {
	var defs []model.MedicineReminder
	err := s.db.WithContext(ctx).
		Preload("User").
		Where(map[string]any{"time": hhmm}).
		Order("id ASC").
		Find(&defs).Error
	if err != nil {
		return nil, fmt.Errorf("find reminders at %s: %w", hhmm, err)
	}
	return defs, nil
}

// CreateUser registers a new user; phone numbers are unique.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	user.PhoneNumber = tracker.NormalizePhone(user.PhoneNumber)
	user.EmergencyNumber = tracker.NormalizePhone(user.EmergencyNumber)
	if _, err := s.FindUserByPhone(ctx, user.PhoneNumber); err == nil {
		return ErrUserExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if user.Language == "" {
		user.Language = "English"
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindUserByPhone looks a user up by their WhatsApp number in any of the
// forms NormalizePhone accepts.
func (s *Store) FindUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	phone = tracker.NormalizePhone(phone)
	var user model.User
	err := s.db.WithContext(ctx).Where(map[string]any{"phone_number": phone}).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", phone, err)
	}
	return &user, nil
}

// ListUsers returns all registered users.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// CreateReminder persists a validated reminder definition for an existing user.
func (s *Store) CreateReminder(ctx context.Context, reminder *model.MedicineReminder) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", reminder.UserID).Count(&count).Error; err != nil {
		return fmt.Errorf("check user %d: %w", reminder.UserID, err)
	}
	if count == 0 {
		return fmt.Errorf("user %d: %w", reminder.UserID, ErrNotFound)
	}
	if err := s.db.WithContext(ctx).Omit("User").Create(reminder).Error; err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

// ListReminders returns reminder definitions, optionally for a single user.
func (s *Store) ListReminders(ctx context.Context, userID *uint) ([]model.MedicineReminder, error) {
	query := s.db.WithContext(ctx).Preload("User").Order("id ASC")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	var reminders []model.MedicineReminder
	if err := query.Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return reminders, nil
}

// GetReminder loads a single definition with its owner.
func (s *Store) GetReminder(ctx context.Context, id uint) (*model.MedicineReminder, error) {
	var reminder model.MedicineReminder
	err := s.db.WithContext(ctx).Preload("User").First(&reminder, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder %d: %w", id, err)
	}
	return &reminder, nil
}

// UpdateReminderResponse stores the last response recorded for a definition.
func (s *Store) UpdateReminderResponse(ctx context.Context, id uint, response string) (*model.MedicineReminder, error) {
	res := s.db.WithContext(ctx).Model(&model.MedicineReminder{}).Where("id = ?", id).Update("response", response)
	if res.Error != nil {
		return nil, fmt.Errorf("update reminder %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetReminder(ctx, id)
}
