package service

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/civic-issue-service/internal/domain"
	"github.com/spec-kit/civic-issue-service/internal/repository"
)

const usedCountTTL = 5 * time.Minute

// EntitlementService answers "may this account submit another issue".
// Used counts come from a reporter counter that is incremented at submit
// time and never decremented, so deleting a pending issue does not free a
// quota slot. A redis read-through cache fronts the count; the service
// degrades to direct store reads when redis is unavailable.
type EntitlementService struct {
	issues    repository.IssueRepository
	cache     *redis.Client
	logger    *zap.Logger
	freeLimit int
}

// NewEntitlementService constructs the service. cache may be nil.
func NewEntitlementService(issues repository.IssueRepository, cache *redis.Client, logger *zap.Logger, freeLimit int) *EntitlementService {
	if freeLimit <= 0 {
		freeLimit = 3
	}
	return &EntitlementService{
		issues:    issues,
		cache:     cache,
		logger:    logger,
		freeLimit: freeLimit,
	}
}

// FreeLimit returns the free tier submission cap.
func (s *EntitlementService) FreeLimit() int {
	return s.freeLimit
}

// UsedCount returns how many issues the account has ever created.
func (s *EntitlementService) UsedCount(ctx context.Context, email string) (int, error) {
	if s.cache != nil {
		val, err := s.cache.Get(ctx, usedCountKey(email)).Result()
		if err == nil {
			if count, convErr := strconv.Atoi(val); convErr == nil {
				return count, nil
			}
		} else if err != redis.Nil && s.logger != nil {
			s.logger.Warn("quota cache read failed", zap.Error(err))
		}
	}

	count, err := s.issues.CountByReporter(ctx, email)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, usedCountKey(email), count, usedCountTTL).Err(); err != nil && s.logger != nil {
			s.logger.Warn("quota cache write failed", zap.Error(err))
		}
	}
	return count, nil
}

// CanSubmit reports whether the account may create another issue: premium
// accounts always may, free accounts up to the quota.
func (s *EntitlementService) CanSubmit(ctx context.Context, account *domain.Account) (bool, error) {
	if account.IsPremium {
		return true, nil
	}
	used, err := s.UsedCount(ctx, account.Email)
	if err != nil {
		return false, err
	}
	return used < s.freeLimit, nil
}

// InvalidateUsedCount drops the cached count after a submission or a
// premium grant so the next read hits the store.
func (s *EntitlementService) InvalidateUsedCount(ctx context.Context, email string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, usedCountKey(email)).Err(); err != nil && s.logger != nil {
		s.logger.Warn("quota cache invalidation failed", zap.Error(err))
	}
}

func usedCountKey(email string) string {
	return "quota:used:" + email
}
