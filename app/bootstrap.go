// app/bootstrap.go
package app

import (
	"context"

	"guardiao/db"
	"guardiao/models"

	"go.uber.org/zap"
)

// BootstrapFirstOperator 库里还没有操作员时，用环境变量里的账号建一个主管
func BootstrapFirstOperator(ctx context.Context, cfg Config, repo *db.Repo) error {
	if cfg.BootstrapUser == "" || cfg.BootstrapPassword == "" {
		return nil
	}
	n, err := repo.CountOperators(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	op, err := repo.CreateOperator(ctx, db.OperatorInput{
		Username:    cfg.BootstrapUser,
		Password:    cfg.BootstrapPassword,
		Name:        cfg.BootstrapUser,
		Identity:    "-",
		Function:    "bootstrap",
		AccessLevel: models.LevelSupervisor,
	})
	if err != nil {
		return err
	}
	repo.Log.Info("[BOOTSTRAP] created first supervisor", zap.String("username", op.Username))
	return nil
}
