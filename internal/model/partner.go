package model

import "time"

// ApplicationStatus はパートナー申請の審査状態。
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Valid は審査状態が既知の値かどうかを返す。
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationAccepted, ApplicationRejected:
		return true
	}
	return false
}

// DefaultPartnerCategory はカテゴリ未指定の申請に使う値。
const DefaultPartnerCategory = "Heritage"

// PartnerApplication はパートナーがスポットとの提携を申し込む申請。
// 申請者の氏名・メールアドレスは申請時点の値を保持する。
type PartnerApplication struct {
	ID         string
	UserID     string
	FullName   string
	Email      string
	SpotName   string
	Category   string
	Status     ApplicationStatus
	ReviewedBy string // 未審査の場合は空
	CreatedAt  time.Time
	ReviewedAt *time.Time
}

// VerifiedPartner は承認済み申請から登録される認定パートナー。
// パートナー1人につき1件で、再承認時は最新の申請内容で上書きする。
type VerifiedPartner struct {
	UserID     string
	Name       string
	Email      string
	SpotName   string
	Category   string
	VerifiedAt time.Time
}
