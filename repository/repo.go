package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"medscribe/constant"
	"medscribe/entities"
)

type ConsultationRepository interface {
	Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error
	CreateConsultation(ctx context.Context, consultation *entities.Consultation) error
	FindConsultationById(ctx context.Context, id uuid.UUID) (*entities.Consultation, error)
	FindConsultationByIdAndUser(ctx context.Context, id, userId uuid.UUID) (*entities.Consultation, error)
	FindConsultationsByUser(ctx context.Context, userId uuid.UUID) ([]*entities.Consultation, error)
	UpdateConsultationStatus(ctx context.Context, status constant.ConsultationStatus, id uuid.UUID) error
	UpdateConsultation(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteConsultation(ctx context.Context, id, userId uuid.UUID) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *entities.User) error
	FindUserById(ctx context.Context, id uuid.UUID) (*entities.User, error)
	FindUserByEmail(ctx context.Context, email string) (*entities.User, error)
	FindUserByEmailOrUsername(ctx context.Context, email, username string) (*entities.User, error)
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) (ConsultationRepository, UserRepository) {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	r := &repo{db: gormDB}
	return r, r
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

func (r *repo) Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error {
	return r.GetDB().Transaction(func(tx *gorm.DB) error {
		return callback(ctx)
	}, opts...)
}

func (r *repo) CreateConsultation(ctx context.Context, consultation *entities.Consultation) error {
	return r.GetDB().WithContext(ctx).Create(consultation).Error
}

func (r *repo) FindConsultationById(ctx context.Context, id uuid.UUID) (*entities.Consultation, error) {
	consultation := &entities.Consultation{}
	err := r.GetDB().WithContext(ctx).First(consultation, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return consultation, nil
}

func (r *repo) FindConsultationByIdAndUser(ctx context.Context, id, userId uuid.UUID) (*entities.Consultation, error) {
	consultation := &entities.Consultation{}
	err := r.GetDB().WithContext(ctx).First(consultation, "id = ? AND user_id = ?", id, userId).Error
	if err != nil {
		return nil, err
	}

	return consultation, nil
}

func (r *repo) FindConsultationsByUser(ctx context.Context, userId uuid.UUID) ([]*entities.Consultation, error) {
	var consultations []*entities.Consultation
	err := r.GetDB().WithContext(ctx).Where("user_id = ?", userId).Order("created_at DESC").Find(&consultations).Error
	if err != nil {
		return nil, err
	}
	return consultations, nil
}

func (r *repo) UpdateConsultationStatus(ctx context.Context, status constant.ConsultationStatus, id uuid.UUID) error {
	consultation := &entities.Consultation{}
	err := r.GetDB().WithContext(ctx).Model(consultation).Where("id = ?", id).Update("status", status).Error
	if err != nil {
		return err
	}
	return nil
}

func (r *repo) UpdateConsultation(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	consultation := &entities.Consultation{}
	err := r.GetDB().WithContext(ctx).Model(consultation).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return err
	}
	return nil
}

func (r *repo) DeleteConsultation(ctx context.Context, id, userId uuid.UUID) error {
	res := r.GetDB().WithContext(ctx).Where("id = ? AND user_id = ?", id, userId).Delete(&entities.Consultation{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repo) CreateUser(ctx context.Context, user *entities.User) error {
	return r.GetDB().WithContext(ctx).Create(user).Error
}

func (r *repo) FindUserById(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	user := &entities.User{}
	err := r.GetDB().WithContext(ctx).First(user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *repo) FindUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	user := &entities.User{}
	err := r.GetDB().WithContext(ctx).First(user, "email = ?", email).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *repo) FindUserByEmailOrUsername(ctx context.Context, email, username string) (*entities.User, error) {
	user := &entities.User{}
	err := r.GetDB().WithContext(ctx).First(user, "email = ? OR username = ?", email, username).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}
