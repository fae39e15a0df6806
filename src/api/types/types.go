package types

import "time"

// Pitch statuses
const (
	StatusPending  = "pending"
	StatusFunded   = "funded"
	StatusRejected = "rejected"
)

// Chat roles
const (
	RoleVC      = "vc"
	RoleFounder = "founder"
)

// Disbursement ledger states
const (
	DisbursementSubmitted = "submitted"
	DisbursementConfirmed = "confirmed"
	DisbursementFailed    = "failed"
)

const DefaultAgentID = "kaido"

// Pitch is one founder submission.
type Pitch struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	StartupName   string     `gorm:"size:255;not null" json:"startupName"`
	OneLiner      string     `gorm:"size:100;not null" json:"oneLiner"`
	Problem       string     `gorm:"type:text;not null" json:"problem"`
	Solution      string     `gorm:"type:text;not null" json:"solution"`
	Market        string     `gorm:"type:text;not null" json:"market"`
	Traction      string     `gorm:"type:text;not null" json:"traction"`
	Team          string     `gorm:"type:text;not null" json:"team"`
	Ask           string     `gorm:"type:text;not null" json:"ask"`
	TwitterHandle string     `gorm:"size:64;not null" json:"twitterHandle"`
	Email         string     `gorm:"size:256;not null" json:"-"`
	WalletAddress *string    `gorm:"size:42" json:"walletAddress,omitempty"`
	Status        string     `gorm:"size:16;not null;default:pending;index" json:"status"`
	Score         *float64   `json:"score,omitempty"`
	Valuation     *string    `gorm:"size:128" json:"valuation,omitempty"`
	Feedback      *string    `gorm:"type:text" json:"feedback,omitempty"`
	VcAgentID     string     `gorm:"size:64;not null;default:kaido" json:"vcAgentId"`
	CreatedAt     time.Time  `gorm:"index" json:"createdAt"`
	FundedAt      *time.Time `json:"fundedAt,omitempty"`
	TxHash        *string    `gorm:"size:66" json:"txHash,omitempty"`
}

// Terminal reports whether the verdict has been given.
func (p *Pitch) Terminal() bool {
	return p.Status == StatusFunded || p.Status == StatusRejected
}

// ChatMessage is one turn of the pitch conversation. IDs are uuid v7 so they
// sort in insertion order when timestamps tie.
type ChatMessage struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PitchID   string    `gorm:"size:36;not null;index:idx_chat_pitch_created,priority:1" json:"pitchId"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_chat_pitch_created,priority:2" json:"timestamp"`
}

// VcAgent is the evaluating persona.
type VcAgent struct {
	ID                string  `gorm:"primaryKey;size:64"`
	Name              string  `gorm:"size:128;not null"`
	Handle            string  `gorm:"size:64;not null"`
	TwitterHandle     string  `gorm:"size:64"`
	PersonalityPrompt string  `gorm:"type:text"`
	WalletAddress     *string `gorm:"size:42"`
	IsActive          bool    `gorm:"default:true"`
	CreatedAt         time.Time
}

// Disbursement is the payout ledger; one row per pitch.
type Disbursement struct {
	ID            uint64 `gorm:"primaryKey"`
	PitchID       string `gorm:"size:36;not null;uniqueIndex"`
	WalletAddress string `gorm:"size:42;not null"`
	AmountUSD     int    `gorm:"not null"`
	Units         string `gorm:"size:78;not null"`
	TxHash        string `gorm:"size:66;not null;index"`
	RawTx         []byte `gorm:"not null"`
	State         string `gorm:"size:16;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Setting is a runtime configuration override.
type Setting struct {
	Name  string `gorm:"primaryKey;size:64"`
	Value string `gorm:"type:text"`
}
