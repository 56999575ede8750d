package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var ErrRefreshRevoked = errors.New("refresh token revoked")

type Service struct {
	jwt         *JWTManager
	redisClient redis.Cmdable
}

func NewService(jwt *JWTManager, redisClient redis.Cmdable) *Service {
	return &Service{
		jwt:         jwt,
		redisClient: redisClient,
	}
}

func refreshKey(userID, tokenID string) string {
	return fmt.Sprintf("refresh:%s:%s", userID, tokenID)
}

// GenerateTokens issues a token pair and records the refresh token id in Redis.
func (s *Service) GenerateTokens(ctx context.Context, id Identity) (*TokenPair, error) {
	pair, tokenID, err := s.jwt.GenerateTokenPair(id)
	if err != nil {
		return nil, err
	}

	err = s.redisClient.Set(ctx, refreshKey(id.UserID, tokenID), "1", s.jwt.RefreshExpiry()).Err()
	if err != nil {
		return nil, fmt.Errorf("storing refresh token: %w", err)
	}

	return pair, nil
}

// ConsumeRefreshToken validates a refresh token, revokes it, and returns the
// user id it was issued for. The caller reloads the user and issues a new pair
// so role and status changes take effect on refresh.
func (s *Service) ConsumeRefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", fmt.Errorf("invalid refresh token: %w", err)
	}

	deleted, err := s.redisClient.Del(ctx, refreshKey(claims.UserID, claims.TokenID)).Result()
	if err != nil {
		return "", fmt.Errorf("revoking refresh token: %w", err)
	}
	if deleted == 0 {
		return "", ErrRefreshRevoked
	}

	return claims.UserID, nil
}

func (s *Service) Logout(ctx context.Context, userID string) error {
	// Delete all refresh tokens for this user
	iter := s.redisClient.Scan(ctx, 0, refreshKey(userID, "*"), 100).Iterator()
	for iter.Next(ctx) {
		s.redisClient.Del(ctx, iter.Val())
	}
	return iter.Err()
}

func (s *Service) ValidateAccessToken(token string) (*AccessClaims, error) {
	return s.jwt.ValidateAccessToken(token)
}
