package repo

import (
	"justbecause/internal/domain"
	"justbecause/internal/infra"
)

// NewStore wires every PostgreSQL repository onto one executor.
func NewStore(sql infra.SQLExecutor) *domain.Store {
	return &domain.Store{
		Users:         NewUserRepository(sql),
		Tokens:        NewTokenRepository(sql),
		Projects:      NewProjectRepository(sql),
		Applications:  NewApplicationRepository(sql),
		Unlocks:       NewUnlockRepository(sql),
		Conversations: NewConversationRepository(sql),
		Notifications: NewNotificationRepository(sql),
		Outbox:        NewEmailOutbox(sql),
		Transactions:  NewTransactionRepository(sql),
		Coupons:       NewCouponRepository(sql),
		Settings:      NewSettingsRepository(sql),
		Stats:         NewStatsRepository(sql),
	}
}

var (
	_ domain.UserRepository         = (*UserRepositoryPG)(nil)
	_ domain.TokenRepository        = (*TokenRepositoryPG)(nil)
	_ domain.ProjectRepository      = (*ProjectRepositoryPG)(nil)
	_ domain.ApplicationRepository  = (*ApplicationRepositoryPG)(nil)
	_ domain.UnlockRepository       = (*UnlockRepositoryPG)(nil)
	_ domain.ConversationRepository = (*ConversationRepositoryPG)(nil)
	_ domain.NotificationRepository = (*NotificationRepositoryPG)(nil)
	_ domain.EmailOutbox            = (*EmailOutboxPG)(nil)
	_ domain.TransactionRepository  = (*TransactionRepositoryPG)(nil)
	_ domain.CouponRepository       = (*CouponRepositoryPG)(nil)
	_ domain.SettingsRepository     = (*SettingsRepositoryPG)(nil)
	_ domain.StatsRepository        = (*StatsRepositoryPG)(nil)
)
