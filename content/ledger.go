package content

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"pressroom/models"
)

type LikeState string

const (
	Liked   LikeState = "liked"
	Unliked LikeState = "unliked"
)

type LikeResult struct {
	State      LikeState `json:"action"`
	LikesCount int64     `json:"likes_count"`
}

// ToggleLike likes the post for user, or removes the like when one already
// exists. The insert is attempted first and a unique violation is taken as
// "already liked", so concurrent toggles on one pair never leave duplicate
// rows. LikesCount is the live row count; posts.likes_count is not touched.
func (s *Service) ToggleLike(ctx context.Context, postID, userID uint, ip string) (LikeResult, error) {
	var res LikeResult
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		if _, err := tx.FindPostByID(ctx, postID); err != nil {
			return err
		}

		err := tx.CreateLike(ctx, &models.Like{PostID: postID, UserID: userID, IPAddress: optional(ip)})
		switch {
		case err == nil:
			res.State = Liked
		case errors.Is(err, ErrDuplicate):
			if _, err := tx.DeleteLike(ctx, postID, userID); err != nil {
				return err
			}
			res.State = Unliked
		default:
			return err
		}

		count, err := tx.CountLikes(ctx, postID)
		if err != nil {
			return err
		}
		res.LikesCount = count
		return nil
	})
	if err != nil {
		return LikeResult{}, err
	}
	return res, nil
}

// HasLiked reports whether user currently likes the post.
func (s *Service) HasLiked(ctx context.Context, postID, userID uint) (bool, error) {
	_, err := s.repo.FindLike(ctx, postID, userID)
	if isNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

type subscribeInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	IPAddress string `json:"ip_address" validate:"omitempty,ip"`
}

// Subscribe registers email for updates. An inactive subscription for the
// same address is reactivated with a fresh confirmation token.
func (s *Service) Subscribe(ctx context.Context, email, ip string) (*models.Subscription, error) {
	in := subscribeInput{Email: strings.ToLower(strings.TrimSpace(email)), IPAddress: ip}
	if err := s.check(in); err != nil {
		return nil, err
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	var sub *models.Subscription
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		_, err := tx.FindActiveSubscriptionByEmail(ctx, in.Email)
		if err == nil {
			return ErrDuplicateSubscription
		}
		if !isNotFound(err) {
			return err
		}

		existing, err := tx.FindSubscriptionByEmail(ctx, in.Email)
		if err == nil {
			existing.IsActive = true
			existing.ConfirmationToken = token
			existing.ConfirmedAt = nil
			existing.IPAddress = optional(in.IPAddress)
			sub = existing
			return tx.UpdateSubscription(ctx, sub)
		}
		if !isNotFound(err) {
			return err
		}

		sub = &models.Subscription{
			Email:             in.Email,
			IsActive:          true,
			ConfirmationToken: token,
			IPAddress:         optional(in.IPAddress),
		}
		err = tx.CreateSubscription(ctx, sub)
		if errors.Is(err, ErrDuplicate) {
			return ErrDuplicateSubscription
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// ConfirmSubscription records the first confirmation of token; repeated
// confirmations keep the original timestamp.
func (s *Service) ConfirmSubscription(ctx context.Context, token string) (*models.Subscription, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var sub *models.Subscription
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		var err error
		sub, err = tx.FindSubscriptionByToken(ctx, token)
		if err != nil {
			return err
		}
		if sub.ConfirmedAt != nil {
			return nil
		}
		now := s.now()
		sub.ConfirmedAt = &now
		return tx.UpdateSubscription(ctx, sub)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) Unsubscribe(ctx context.Context, token string) error {
	if token == "" {
		return ErrNotFound
	}
	return s.repo.Transaction(ctx, func(tx Repository) error {
		sub, err := tx.FindSubscriptionByToken(ctx, token)
		if err != nil {
			return err
		}
		if !sub.IsActive {
			return nil
		}
		sub.IsActive = false
		return tx.UpdateSubscription(ctx, sub)
	})
}

// generateToken returns 32 random bytes, base64url encoded (43 chars).
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
