// Package feedback はサイト・スポットへのフィードバック受付を提供する。
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/marga/internal/model"
	"github.com/hitoshi/marga/internal/repository"
	"github.com/hitoshi/marga/internal/security"
)

// MaxCommentLength はコメントの最大文字数。
const MaxCommentLength = 2000

// Input はフィードバックの入力値。
// Subjectを指定するとサイト宛て、SpotNameを指定するとスポット宛てになる。
type Input struct {
	Subject  string `json:"subject"`
	SpotName string `json:"spot_name"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}

// Service はフィードバックのサービス層。
type Service struct {
	repo      repository.FeedbackRepository
	sanitizer security.Sanitizer
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.FeedbackRepository, sanitizer security.Sanitizer) *Service {
	return &Service{repo: repo, sanitizer: sanitizer, now: time.Now}
}

// Submit はフィードバックを検証して保存する。
// 送信者のメールアドレスはセッションのプロフィールから設定する。
func (s *Service) Submit(ctx context.Context, actor *model.Profile, in Input) (*model.Feedback, error) {
	fb := &model.Feedback{
		ID:        uuid.New().String(),
		UserEmail: model.AnonymousEmail,
		Subject:   s.sanitizer.Text(in.Subject),
		SpotName:  s.sanitizer.Text(in.SpotName),
		Comment:   s.sanitizer.Text(in.Comment),
		CreatedAt: s.now(),
	}
	if actor != nil && actor.Email != "" {
		fb.UserEmail = actor.Email
	}

	fields := model.FieldErrors{}
	switch n := utf8.RuneCountInString(fb.Comment); {
	case n == 0:
		fields["comment"] = "コメントを入力してください。"
	case n > MaxCommentLength:
		fields["comment"] = fmt.Sprintf("コメントは%d文字以内で入力してください。", MaxCommentLength)
	}

	switch {
	case fb.SpotName != "":
		if in.Rating < 1 || in.Rating > 5 {
			fields["rating"] = "評価は1から5で指定してください。"
		}
		fb.Rating = in.Rating
	case fb.Subject == "":
		fields["subject"] = "件名またはスポット名を入力してください。"
	}

	if len(fields) > 0 {
		return nil, model.NewValidationError(fields)
	}

	if err := s.repo.Create(ctx, fb); err != nil {
		return nil, fmt.Errorf("フィードバックの保存に失敗しました: %w", err)
	}

	slog.Info("フィードバックを受け付けました",
		slog.String("feedback_id", fb.ID),
		slog.String("spot_name", fb.SpotName),
	)
	return fb, nil
}
