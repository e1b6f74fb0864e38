package model

import "time"

// AnonymousEmail はメールアドレス不明のフィードバック送信者に使う値。
const AnonymousEmail = "Anonymous"

// Feedback はサイトまたはスポットに対するフィードバック。
// Subjectを持つものはサイト全体、SpotNameとRatingを持つものはスポット宛て。
type Feedback struct {
	ID        string
	UserEmail string
	Subject   string
	SpotName  string
	Rating    int
	Comment   string
	CreatedAt time.Time
}
