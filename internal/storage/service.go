package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sharetrack/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service is the PostgreSQL (gorm) + Redis implementation of Storage.
// Redis is optional; without it the location cache is disabled.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{DB: db, Redis: rdb}
}

// Migrate creates or updates the tables and partial unique indexes.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ShareRequest{},
		&models.SharedSession{},
		&models.ChatMessage{},
		&models.ReadReceipt{},
	)
}

// translate maps gorm errors onto the package sentinels. The DB must be
// opened with gorm.Config{TranslateError: true} for ErrDuplicatedKey.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func (s *Service) CreateShareRequest(ctx context.Context, req *models.ShareRequest) error {
	return translate(s.DB.WithContext(ctx).Create(req).Error)
}

func (s *Service) GetShareRequest(ctx context.Context, id string) (*models.ShareRequest, error) {
	var req models.ShareRequest
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (s *Service) FindPendingRequest(ctx context.Context, pairKey string) (*models.ShareRequest, error) {
	var req models.ShareRequest
	err := s.DB.WithContext(ctx).
		Where("pair_key = ? AND status = ?", pairKey, models.RequestPending).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Service) ListShareRequests(ctx context.Context, userID string, f RequestFilter) ([]models.ShareRequest, error) {
	q := s.DB.WithContext(ctx).Model(&models.ShareRequest{})
	switch f.Direction {
	case DirectionIncoming:
		q = q.Where("to_id = ?", userID)
	case DirectionOutgoing:
		q = q.Where("from_id = ?", userID)
	default:
		q = q.Where("from_id = ? OR to_id = ?", userID, userID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var out []models.ShareRequest
	if err := q.Order("requested_at desc").Find(&out).Error; err != nil {
		log.Printf("ERROR: Failed to list share requests for %s: %v", userID, err)
		return nil, err
	}
	return out, nil
}

func resolveColumns(next models.RequestStatus, actorID string, at time.Time) map[string]interface{} {
	cols := map[string]interface{}{"status": next}
	if next == models.RequestRevoked {
		cols["revoked_by"] = actorID
		cols["revoked_at"] = at
	} else {
		cols["responded_at"] = at
	}
	return cols
}

func (s *Service) ResolveShareRequest(ctx context.Context, id string, next models.RequestStatus, actorID string, at time.Time) error {
	res := s.DB.WithContext(ctx).Model(&models.ShareRequest{}).
		Where("id = ? AND status = ?", id, models.RequestPending).
		Updates(resolveColumns(next, actorID, at))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return missingOrConflict(s.DB.WithContext(ctx), id)
	}
	return nil
}

// missingOrConflict explains a conditional request update that matched no
// row: the request is gone, or it is no longer pending.
func missingOrConflict(db *gorm.DB, id string) error {
	var n int64
	if err := db.Model(&models.ShareRequest{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func (s *Service) ApproveShareRequest(ctx context.Context, id string, session *models.SharedSession, at time.Time) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cols := resolveColumns(models.RequestApproved, "", at)
		cols["session_id"] = session.ID
		res := tx.Model(&models.ShareRequest{}).
			Where("id = ? AND status = ?", id, models.RequestPending).
			Updates(cols)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return missingOrConflict(tx, id)
		}
		return translate(tx.Create(session).Error)
	})
}

func (s *Service) CreateSession(ctx context.Context, sess *models.SharedSession) error {
	return translate(s.DB.WithContext(ctx).Create(sess).Error)
}

func (s *Service) GetSession(ctx context.Context, id string) (*models.SharedSession, error) {
	var sess models.SharedSession
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&sess).Error; err != nil {
		return nil, translate(err)
	}
	return &sess, nil
}

func (s *Service) FindActiveSession(ctx context.Context, pairKey string) (*models.SharedSession, error) {
	var sess models.SharedSession
	err := s.DB.WithContext(ctx).
		Where("pair_key = ? AND is_active = ?", pairKey, true).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Service) ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]models.SharedSession, error) {
	var out []models.SharedSession
	err := s.DB.WithContext(ctx).
		Where("is_active = ? AND expires_at > ?", true, now).
		Where("? = ANY(participants)", userID).
		Order("created_at desc").
		Find(&out).Error
	if err != nil {
		log.Printf("ERROR: Failed to list active sessions for %s: %v", userID, err)
		return nil, err
	}
	return out, nil
}

func (s *Service) ListExpiredSessions(ctx context.Context, now time.Time, limit int) ([]models.SharedSession, error) {
	var out []models.SharedSession
	err := s.DB.WithContext(ctx).
		Where("is_active = ? AND expires_at <= ?", true, now).
		Order("expires_at asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (s *Service) EndSession(ctx context.Context, id string, reason models.SessionEndReason, actorID string, at time.Time) (bool, error) {
	cols := map[string]interface{}{
		"is_active":  false,
		"end_reason": reason,
		"ended_at":   at,
	}
	if reason == models.EndRevoked {
		cols["revoked_by"] = actorID
		cols["revoked_at"] = at
	}
	res := s.DB.WithContext(ctx).Model(&models.SharedSession{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(cols)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Service) PurgeEnded(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("status <> ? AND COALESCE(revoked_at, responded_at, requested_at) < ?", models.RequestPending, cutoff).
			Delete(&models.ShareRequest{})
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected

		res = tx.Where("is_active = ? AND ended_at < ?", false, cutoff).
			Delete(&models.SharedSession{})
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected
		return nil
	})
	return total, err
}

func (s *Service) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		log.Printf("ERROR: Failed to save message for channel %s: %v", msg.ChannelID, err)
		return err
	}
	return nil
}

func (s *Service) GetMessage(ctx context.Context, id string) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&msg).Error; err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

func (s *Service) ListMessages(ctx context.Context, channelID string, limit int) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	err := s.DB.WithContext(ctx).
		Preload("ReadBy").
		Where("channel_id = ?", channelID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		log.Printf("ERROR: Failed to get chat history for %s: %v", channelID, err)
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Service) MarkMessageDeleted(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("id = ?", id).
		Update("deleted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) MarkChannelRead(ctx context.Context, channelID, readerID string, at time.Time) (int64, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("channel_id = ? AND sender_id <> ? AND deleted = ?", channelID, readerID, false).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	receipts := make([]models.ReadReceipt, 0, len(ids))
	for _, id := range ids {
		receipts = append(receipts, models.ReadReceipt{MessageID: id, ReaderID: readerID, ReadAt: at})
	}
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&receipts)
	return res.RowsAffected, res.Error
}

// Ping checks both backends.
func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if s.Redis != nil {
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
