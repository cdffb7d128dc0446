package service

import (
	"context"

	"fuelpump/internal/dto"
	"fuelpump/internal/model"
	"fuelpump/internal/repository"
)

// PushService registers browser subscriptions for shift close notifications.
type PushService interface {
	Subscribe(ctx context.Context, sess Session, req dto.PushSubscriptionRequest) error
}

type pushService struct {
	repo repository.PushSubscriptionRepository
}

func NewPushService(repo repository.PushSubscriptionRepository) PushService {
	return &pushService{repo: repo}
}

func (s *pushService) Subscribe(ctx context.Context, sess Session, req dto.PushSubscriptionRequest) error {
	return s.repo.Upsert(ctx, &model.PushSubscription{
		FuelPumpID: sess.FuelPumpID,
		StaffID:    sess.StaffID,
		Endpoint:   req.Endpoint,
		P256dh:     req.Keys.P256dh,
		Auth:       req.Keys.Auth,
	})
}
