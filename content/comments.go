package content

import (
	"context"

	"pressroom/models"
)

type CommentInput struct {
	AuthorName    string `json:"author_name" validate:"required,max=100"`
	AuthorEmail   string `json:"author_email" validate:"required,email"`
	AuthorWebsite string `json:"author_website" validate:"omitempty,url"`
	Content       string `json:"content" validate:"required"`
	ParentID      *uint  `json:"parent_id"`
	IPAddress     string `json:"ip_address" validate:"omitempty,ip"`
	UserAgent     string `json:"user_agent"`
}

// SubmitComment attaches a pending comment to a post. A reply takes the
// depth of its parent plus one; the parent must belong to the same post.
func (s *Service) SubmitComment(ctx context.Context, postID uint, in CommentInput) (*models.Comment, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	if blank(in.AuthorName) {
		return nil, invalid("author_name", "must not be empty")
	}
	if blank(in.Content) {
		return nil, invalid("content", "must not be empty")
	}

	var comment *models.Comment
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		post, err := tx.FindPostByID(ctx, postID)
		if err != nil {
			return err
		}
		if !post.AllowComments {
			return ErrCommentsDisabled
		}

		depth := 0
		if in.ParentID != nil {
			parent, err := tx.FindCommentByID(ctx, *in.ParentID)
			if isNotFound(err) {
				return ErrParentNotFound
			}
			if err != nil {
				return err
			}
			if parent.PostID != post.ID {
				return ErrParentNotFound
			}
			depth = parent.Depth + 1
		}
		if depth > s.maxCommentDepth {
			return invalid("parent_id", "replies are nested too deeply")
		}

		comment = &models.Comment{
			PostID:        post.ID,
			AuthorName:    in.AuthorName,
			AuthorEmail:   in.AuthorEmail,
			AuthorWebsite: in.AuthorWebsite,
			Content:       in.Content,
			IPAddress:     optional(in.IPAddress),
			UserAgent:     in.UserAgent,
			ParentID:      in.ParentID,
			Depth:         depth,
		}
		return tx.CreateComment(ctx, comment)
	})
	if err != nil {
		return nil, err
	}

	s.runCommentHooks(ctx, *comment)
	return comment, nil
}

// ApproveComments makes comments public and clears the spam flag.
func (s *Service) ApproveComments(ctx context.Context, ids []uint) (int64, error) {
	spam := false
	return s.moderate(ctx, ids, true, &spam)
}

// RejectComments hides comments, leaving the spam flag as it is.
func (s *Service) RejectComments(ctx context.Context, ids []uint) (int64, error) {
	return s.moderate(ctx, ids, false, nil)
}

// MarkSpam hides comments and flags them as spam.
func (s *Service) MarkSpam(ctx context.Context, ids []uint) (int64, error) {
	spam := true
	return s.moderate(ctx, ids, false, &spam)
}

func (s *Service) moderate(ctx context.Context, ids []uint, approved bool, isSpam *bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.repo.BulkUpdateCommentModeration(ctx, ids, approved, isSpam)
}

// PublicComments returns the approved comments of a post.
func (s *Service) PublicComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	return s.repo.ListComments(ctx, CommentQuery{PostID: postID, ApprovedOnly: true})
}

// RootComments returns the approved top-level comments of a post.
func (s *Service) RootComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	return s.repo.ListComments(ctx, CommentQuery{PostID: postID, ApprovedOnly: true, RootsOnly: true})
}

// Replies returns the approved direct replies to a comment.
func (s *Service) Replies(ctx context.Context, commentID uint) ([]models.Comment, error) {
	return s.repo.ListComments(ctx, CommentQuery{ParentID: &commentID, ApprovedOnly: true})
}

// PendingComments is the moderation queue across all posts.
func (s *Service) PendingComments(ctx context.Context) ([]models.Comment, error) {
	return s.repo.ListComments(ctx, CommentQuery{PendingOnly: true})
}

type CommentNode struct {
	models.Comment
	Replies []*CommentNode `json:"replies"`
}

// Thread assembles the approved comments of a post into trees. A reply is
// only reachable when every ancestor is approved as well.
func (s *Service) Thread(ctx context.Context, postID uint) ([]*CommentNode, error) {
	comments, err := s.PublicComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	return buildThread(comments), nil
}

func buildThread(comments []models.Comment) []*CommentNode {
	children := make(map[uint][]*CommentNode)
	var roots []*CommentNode
	for i := range comments {
		node := &CommentNode{Comment: comments[i], Replies: []*CommentNode{}}
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		children[*node.ParentID] = append(children[*node.ParentID], node)
	}

	var attach func(nodes []*CommentNode)
	attach = func(nodes []*CommentNode) {
		for _, n := range nodes {
			if replies, ok := children[n.ID]; ok {
				n.Replies = replies
				attach(replies)
			}
		}
	}
	attach(roots)

	if roots == nil {
		roots = []*CommentNode{}
	}
	return roots
}
