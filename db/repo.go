package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"guardiao/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	DB  *gorm.DB
	Log *zap.Logger

	// bcrypt 成本，测试里可调低
	PasswordCost int
}

func NewRepo(db *gorm.DB, log *zap.Logger) *Repo {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repo{DB: db, Log: log, PasswordCost: bcrypt.DefaultCost}
}

// lockForUpdate 在 Postgres 上加行锁；SQLite 没有行锁，直接返回
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// Operators

type OperatorInput struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password"`
	Name        string `json:"name" binding:"required"`
	Identity    string `json:"identity" binding:"required"`
	Function    string `json:"function"`
	AccessLevel int    `json:"accessLevel" binding:"required"`
}

func validLevel(l int) bool { return l >= models.LevelReader && l <= models.LevelSupervisor }

func (r *Repo) CreateOperator(ctx context.Context, in OperatorInput) (*models.Operator, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if username == "" || in.Password == "" {
		return nil, invalid("username and password are required")
	}
	if !validLevel(in.AccessLevel) {
		return nil, invalid("access level must be between 1 and 3")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), r.PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	op := &models.Operator{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Name:         in.Name,
		Identity:     in.Identity,
		Function:     in.Function,
		AccessLevel:  in.AccessLevel,
	}
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Operator{}).Where("username = ?", username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return conflict("operator", "username %q already exists", username)
		}
		return tx.Create(op).Error
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

// 按 ID 查
func (r *Repo) FindOperatorByID(ctx context.Context, id string) (*models.Operator, error) {
	var op models.Operator
	if err := r.DB.WithContext(ctx).First(&op, "id = ?", id).Error; err != nil {
		return nil, notFound("operator", err)
	}
	return &op, nil
}

func (r *Repo) FindOperatorByUsername(ctx context.Context, username string) (*models.Operator, error) {
	var op models.Operator
	if err := r.DB.WithContext(ctx).Where("username = ?", strings.ToLower(strings.TrimSpace(username))).First(&op).Error; err != nil {
		return nil, notFound("operator", err)
	}
	return &op, nil
}

// Authenticate 校验用户名密码；两种失败都返回 ErrInvalidCredentials
func (r *Repo) Authenticate(ctx context.Context, username, password string) (*models.Operator, error) {
	op, err := r.FindOperatorByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return op, nil
}

func (r *Repo) ListOperators(ctx context.Context) ([]models.Operator, error) {
	var ops []models.Operator
	err := r.DB.WithContext(ctx).Order("name").Find(&ops).Error
	return ops, err
}

func (r *Repo) CountOperators(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Operator{}).Count(&n).Error
	return n, err
}

// UpdateOperator 修改资料与级别；Password 非空时一并重置
func (r *Repo) UpdateOperator(ctx context.Context, id string, in OperatorInput) (*models.Operator, error) {
	if !validLevel(in.AccessLevel) {
		return nil, invalid("access level must be between 1 and 3")
	}
	op, err := r.FindOperatorByID(ctx, id)
	if err != nil {
		return nil, err
	}
	update := map[string]any{
		"name":         in.Name,
		"identity":     in.Identity,
		"function":     in.Function,
		"access_level": in.AccessLevel,
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), r.PasswordCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		update["password_hash"] = string(hash)
	}
	if err := r.DB.WithContext(ctx).Model(op).Updates(update).Error; err != nil {
		return nil, err
	}
	return r.FindOperatorByID(ctx, id)
}

// DeleteOperator 已登记过借用单的操作员不可删除；历史记录里的操作员置空
func (r *Repo) DeleteOperator(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var op models.Operator
		if err := tx.First(&op, "id = ?", id).Error; err != nil {
			return notFound("operator", err)
		}
		var n int64
		if err := tx.Model(&models.Loan{}).Where("operator_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return conflict("operator", "%s recorded %d loans and cannot be removed", op.Username, n)
		}
		if err := tx.Model(&models.LoanHistory{}).
			Where("operator_id = ?", id).
			Update("operator_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Operator{}, "id = ?", id).Error
	})
}

func (r *Repo) TouchOperatorLogin(ctx context.Context, id, ip string) error {
	now := time.Now().UTC()
	return r.DB.WithContext(ctx).Model(&models.Operator{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_login_at": now,
			"last_seen_at":  now,
			"login_count":   gorm.Expr("COALESCE(login_count, 0) + 1"),
			"last_login_ip": ip,
		}).Error
}

func (r *Repo) TouchOperatorSeen(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Model(&models.Operator{}).
		Where("id = ?", id).
		Update("last_seen_at", time.Now().UTC()).Error
}
