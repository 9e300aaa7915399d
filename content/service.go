// Package content holds the rules of the post lifecycle and comment
// moderation: derived post fields, publication gating, the comment tree
// and the like/subscription ledger. Persistence goes through Repository.
package content

import (
	"context"
	"errors"
	"log"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"pressroom/models"
)

// DefaultMaxCommentDepth bounds reply nesting. A root comment has depth 0.
const DefaultMaxCommentDepth = 8

// CommentHook runs after a comment has been committed.
type CommentHook func(ctx context.Context, comment models.Comment)

type Options struct {
	Now             func() time.Time
	MaxCommentDepth int
}

type Service struct {
	repo            Repository
	now             func() time.Time
	maxCommentDepth int
	validate        *validator.Validate

	hooksMu sync.RWMutex
	hooks   []CommentHook
}

func NewService(repo Repository, opts Options) *Service {
	s := &Service{
		repo:            repo,
		now:             opts.Now,
		maxCommentDepth: opts.MaxCommentDepth,
		validate:        newValidator(),
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.maxCommentDepth <= 0 {
		s.maxCommentDepth = DefaultMaxCommentDepth
	}
	return s
}

// OnCommentSubmitted registers a hook invoked after every successful
// SubmitComment, in registration order.
func (s *Service) OnCommentSubmitted(hook CommentHook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, hook)
}

func (s *Service) runCommentHooks(ctx context.Context, comment models.Comment) {
	s.hooksMu.RLock()
	hooks := append([]CommentHook(nil), s.hooks...)
	s.hooksMu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("comment hook panicked for comment %d: %v", comment.ID, r)
				}
			}()
			hook(ctx, comment)
		}()
	}
}

func (s *Service) User(ctx context.Context, id uint) (*models.User, error) {
	return s.repo.FindUserByID(ctx, id)
}

// slugPattern accepts the letters, digits, hyphens and underscores that
// can sit in a URL path segment unescaped by readers.
var slugPattern = regexp.MustCompile(`^[\p{L}\p{N}_-]+$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return v
}

// check runs struct validation and reports the first failing field.
func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return invalid(fe.Field(), describe(fe))
	}
	return err
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "hexcolor":
		return "must be a hex color"
	case "ip":
		return "must be an IP address"
	case "slug":
		return "may only contain letters, digits, hyphens and underscores"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
