package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/jc96818/sayitschedule-sub003/internal/config"
	"github.com/jc96818/sayitschedule-sub003/pkg/postgres"
	"github.com/jc96818/sayitschedule-sub003/pkg/proposer"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Database *postgres.DB
	Proposer proposer.Proposer
	Logger   *zap.Logger
	Ctx      context.Context
}
