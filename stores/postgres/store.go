package postgres

import (
	"context"
	"drawboard-server/config"
	"drawboard-server/core"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type userRecord struct {
	ID       int64  `gorm:"primaryKey"`
	Username string `gorm:"type:text;not null;uniqueIndex"`
	Password string `gorm:"type:text;not null"`
}

func (userRecord) TableName() string { return "users" }

type drawingRecord struct {
	ID        int64       `gorm:"primaryKey"`
	UserID    *int64      `gorm:"index"`
	User      *userRecord `gorm:"foreignKey:UserID"`
	Name      string      `gorm:"type:text;not null"`
	Data      string      `gorm:"type:text;not null"`
	CreatedAt string      `gorm:"type:text;not null;autoCreateTime:false"`
	UpdatedAt string      `gorm:"type:text;not null;autoUpdateTime:false"`
}

func (drawingRecord) TableName() string { return "drawings" }

func (r *drawingRecord) toDrawing() *core.Drawing {
	d := &core.Drawing{
		ID:        r.ID,
		Name:      r.Name,
		Data:      r.Data,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.UserID != nil {
		uid := *r.UserID
		d.UserID = &uid
	}
	return d
}

type pgStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore connects to the database at dsn and migrates the users and
// drawings tables.
func NewStore(dsn string, pool config.DBConfig) (*pgStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)

	if err := db.AutoMigrate(&userRecord{}, &drawingRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate tables: %w", err)
	}

	logrus.Info("Successfully connected to database")
	return &pgStore{db: db, now: time.Now}, nil
}

func (s *pgStore) CreateUser(ctx context.Context, user *core.NewUser) (*core.User, error) {
	log := logrus.WithField("username", user.Username)

	hash, err := core.HashPassword(user.Password)
	if err != nil {
		log.WithError(err).Error("Failed to hash password")
		return nil, err
	}

	rec := userRecord{Username: user.Username, Password: hash}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Warn("Username already exists")
			return nil, fmt.Errorf("create user %q: %w", user.Username, core.ErrUsernameTaken)
		}
		log.WithError(err).Error("Failed to create user")
		return nil, err
	}

	log.WithField("user_id", rec.ID).Info("User created successfully")
	return &core.User{ID: rec.ID, Username: rec.Username, PasswordHash: rec.Password}, nil
}

func (s *pgStore) GetUser(ctx context.Context, id int64) (*core.User, error) {
	return s.findUser(ctx, logrus.WithField("user_id", id), "id = ?", id)
}

func (s *pgStore) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return s.findUser(ctx, logrus.WithField("username", username), "username = ?", username)
}

func (s *pgStore) findUser(ctx context.Context, log *logrus.Entry, cond string, arg any) (*core.User, error) {
	var rec userRecord
	if err := s.db.WithContext(ctx).Where(cond, arg).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("User not found")
			return nil, fmt.Errorf("user %v: %w", arg, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve user")
		return nil, err
	}
	return &core.User{ID: rec.ID, Username: rec.Username, PasswordHash: rec.Password}, nil
}

func (s *pgStore) SaveDrawing(ctx context.Context, drawing *core.NewDrawing) (*core.Drawing, error) {
	nd := *drawing
	core.FillTimestamps(&nd, s.now())

	rec := drawingRecord{
		UserID:    nd.UserID,
		Name:      nd.Name,
		Data:      nd.Data,
		CreatedAt: nd.CreatedAt,
		UpdatedAt: nd.UpdatedAt,
	}
	log := logrus.WithField("data_length", len(rec.Data))

	if err := s.db.WithContext(ctx).Omit("User").Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			log.WithField("user_id", *nd.UserID).Warn("Drawing owner does not exist")
			return nil, fmt.Errorf("save drawing for user %d: %w", *nd.UserID, core.ErrUnknownUser)
		}
		log.WithError(err).Error("Failed to create drawing")
		return nil, err
	}

	log.WithField("drawing_id", rec.ID).Info("Drawing created successfully")
	return rec.toDrawing(), nil
}

func (s *pgStore) GetDrawing(ctx context.Context, id int64) (*core.Drawing, error) {
	log := logrus.WithField("drawing_id", id)

	var rec drawingRecord
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("Drawing with specified ID not found")
			return nil, fmt.Errorf("drawing %d: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve drawing")
		return nil, err
	}
	return rec.toDrawing(), nil
}

func (s *pgStore) GetDrawingsByUserID(ctx context.Context, userID int64) ([]*core.Drawing, error) {
	return s.listDrawings(s.db.WithContext(ctx).Where("user_id = ?", userID), logrus.WithField("user_id", userID))
}

func (s *pgStore) GetAllDrawings(ctx context.Context) ([]*core.Drawing, error) {
	return s.listDrawings(s.db.WithContext(ctx), logrus.NewEntry(logrus.StandardLogger()))
}

func (s *pgStore) listDrawings(q *gorm.DB, log *logrus.Entry) ([]*core.Drawing, error) {
	var recs []drawingRecord
	if err := q.Order("id").Find(&recs).Error; err != nil {
		log.WithError(err).Error("Failed to list drawings")
		return nil, err
	}

	drawings := make([]*core.Drawing, 0, len(recs))
	for i := range recs {
		drawings = append(drawings, recs[i].toDrawing())
	}
	log.Debugf("Listed %d drawings", len(drawings))
	return drawings, nil
}

func (s *pgStore) UpdateDrawing(ctx context.Context, id int64, data string) (*core.Drawing, error) {
	log := logrus.WithFields(logrus.Fields{
		"drawing_id":  id,
		"data_length": len(data),
	})

	var updated *core.Drawing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec drawingRecord
		if err := tx.First(&rec, id).Error; err != nil {
			return err
		}

		d := rec.toDrawing()
		d.Data = data
		d.UpdatedAt = core.NextUpdatedAt(d, s.now())

		if err := tx.Model(&drawingRecord{}).Where("id = ?", id).Updates(map[string]any{
			"data":       d.Data,
			"updated_at": d.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("Drawing with specified ID not found")
			return nil, fmt.Errorf("drawing %d: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to update drawing")
		return nil, err
	}

	log.Info("Drawing updated successfully")
	return updated, nil
}

func (s *pgStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
