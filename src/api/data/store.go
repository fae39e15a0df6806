package data

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/stake-plus/getfunded/src/api/apperr"
	"github.com/stake-plus/getfunded/src/api/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence collaborator for pitches, chat messages, agents and
// the payout ledger.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB { return s.db }

// VerdictUpdate is the score/valuation/feedback/status set written together.
type VerdictUpdate struct {
	Score     float64
	Valuation string
	Feedback  string
	Funded    bool
}

// PendingPitch is a non-terminal pitch plus the conversation summary needed to
// decide whether the agent owes a reply.
type PendingPitch struct {
	types.Pitch
	MessageCount int64
	LastRole     *string
}

// NeedsResponse is true when the conversation has not started or the founder
// spoke last.
func (p PendingPitch) NeedsResponse() bool {
	return p.MessageCount == 0 || (p.LastRole != nil && *p.LastRole == types.RoleFounder)
}

func (s *Store) CreatePitch(ctx context.Context, p *types.Pitch) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.VcAgentID == "" {
		p.VcAgentID = types.DefaultAgentID
	}
	p.Status = types.StatusPending
	p.Score, p.Valuation, p.Feedback = nil, nil, nil
	p.WalletAddress, p.TxHash, p.FundedAt = nil, nil, nil
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *Store) GetPitch(ctx context.Context, id string) (*types.Pitch, error) {
	var p types.Pitch
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrPitchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CountPitchesSince counts submissions created at or after since.
func (s *Store) CountPitchesSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&types.Pitch{}).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}

// PendingPitches returns every pitch awaiting an agent reply, oldest first.
func (s *Store) PendingPitches(ctx context.Context) ([]PendingPitch, error) {
	var rows []PendingPitch
	err := s.db.WithContext(ctx).Raw(`
		SELECT p.*,
		       (SELECT COUNT(*) FROM chat_messages cm WHERE cm.pitch_id = p.id) AS message_count,
		       (SELECT cm.role FROM chat_messages cm WHERE cm.pitch_id = p.id
		         ORDER BY cm.created_at DESC, cm.id DESC LIMIT 1) AS last_role
		FROM pitches p
		WHERE p.status NOT IN (?, ?)
		ORDER BY p.created_at ASC, p.id ASC`,
		types.StatusFunded, types.StatusRejected).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := rows[:0]
	for _, r := range rows {
		if r.NeedsResponse() {
			out = append(out, r)
		}
	}
	return out, nil
}

// FundedPitches lists funded, claimed pitches for the leaderboard.
func (s *Store) FundedPitches(ctx context.Context, sortBy string) ([]types.Pitch, error) {
	q := s.db.WithContext(ctx).
		Where("status = ? AND tx_hash IS NOT NULL", types.StatusFunded)

	switch sortBy {
	case "score":
		q = q.Order("score DESC").Order("funded_at DESC")
	default:
		q = q.Order("funded_at DESC")
	}

	var out []types.Pitch
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	if sortBy == "valuation" {
		sort.SliceStable(out, func(i, j int) bool {
			return ParseValuation(out[i].Valuation) > ParseValuation(out[j].Valuation)
		})
	}
	return out, nil
}

func (s *Store) AppendMessage(ctx context.Context, pitchID, role, content string) (*types.ChatMessage, error) {
	return appendMessage(s.db.WithContext(ctx), pitchID, role, content)
}

func appendMessage(tx *gorm.DB, pitchID, role, content string) (*types.ChatMessage, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}
	msg := &types.ChatMessage{
		ID:        id.String(),
		PitchID:   pitchID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

// AppendMessageAfter appends a message only if the pitch is still pending and
// afterID is still the newest message ("" meaning none yet). Two writers racing
// on the same turn see apperr.ErrStaleConversation instead of both appending.
func (s *Store) AppendMessageAfter(ctx context.Context, pitchID, role, content, afterID string) (*types.ChatMessage, error) {
	var msg *types.ChatMessage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p types.Pitch
		if err := tx.Select("id", "status").First(&p, "id = ?", pitchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrPitchNotFound
			}
			return err
		}
		if p.Terminal() {
			return apperr.ErrAlreadyEvaluated
		}

		var last []string
		if err := tx.Model(&types.ChatMessage{}).
			Where("pitch_id = ?", pitchID).
			Order("created_at DESC").Order("id DESC").
			Limit(1).Pluck("id", &last).Error; err != nil {
			return err
		}
		newest := ""
		if len(last) == 1 {
			newest = last[0]
		}
		if newest != afterID {
			return apperr.ErrStaleConversation
		}

		var err error
		msg, err = appendMessage(tx, pitchID, role, content)
		return err
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns the conversation in insertion order.
func (s *Store) ListMessages(ctx context.Context, pitchID string) ([]types.ChatMessage, error) {
	var msgs []types.ChatMessage
	err := s.db.WithContext(ctx).
		Where("pitch_id = ?", pitchID).
		Order("created_at ASC").Order("id ASC").
		Find(&msgs).Error
	return msgs, err
}

// ApplyVerdict writes the verdict onto a pending pitch and appends the final
// VC message in one transaction. A pitch that already has a verdict is left
// untouched and apperr.ErrAlreadyEvaluated is returned.
func (s *Store) ApplyVerdict(ctx context.Context, pitchID string, v VerdictUpdate, vcMessage string) (*types.ChatMessage, error) {
	status := types.StatusRejected
	if v.Funded {
		status = types.StatusFunded
	}

	var msg *types.ChatMessage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&types.Pitch{}).
			Where("id = ? AND status = ?", pitchID, types.StatusPending).
			Updates(map[string]any{
				"score":     v.Score,
				"valuation": v.Valuation,
				"feedback":  v.Feedback,
				"status":    status,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&types.Pitch{}).Where("id = ?", pitchID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return apperr.ErrPitchNotFound
			}
			return apperr.ErrAlreadyEvaluated
		}

		var err error
		msg, err = appendMessage(tx, pitchID, types.RoleVC, vcMessage)
		return err
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Store) GetAgent(ctx context.Context, id string) (*types.VcAgent, error) {
	var a types.VcAgent
	err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrAgentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetDisbursement returns the ledger row for a pitch, or nil if none exists.
func (s *Store) GetDisbursement(ctx context.Context, pitchID string) (*types.Disbursement, error) {
	var d types.Disbursement
	err := s.db.WithContext(ctx).First(&d, "pitch_id = ?", pitchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ReserveDisbursement inserts the ledger row unless one already exists for the
// pitch. The unique index on pitch_id makes this the atomic claim: it reports
// false when another request got there first.
func (s *Store) ReserveDisbursement(ctx context.Context, d *types.Disbursement) (bool, error) {
	d.State = types.DisbursementSubmitted
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "pitch_id"}}, DoNothing: true}).
		Create(d)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReplaceFailedDisbursement swaps a reverted transfer for a freshly signed one.
// It only succeeds while the existing row is still marked failed.
func (s *Store) ReplaceFailedDisbursement(ctx context.Context, d *types.Disbursement) (bool, error) {
	res := s.db.WithContext(ctx).Model(&types.Disbursement{}).
		Where("pitch_id = ? AND state = ?", d.PitchID, types.DisbursementFailed).
		Updates(map[string]any{
			"wallet_address": d.WalletAddress,
			"amount_usd":     d.AmountUSD,
			"units":          d.Units,
			"tx_hash":        d.TxHash,
			"raw_tx":         d.RawTx,
			"state":          types.DisbursementSubmitted,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) MarkDisbursementFailed(ctx context.Context, pitchID, txHash string) error {
	return s.db.WithContext(ctx).Model(&types.Disbursement{}).
		Where("pitch_id = ? AND tx_hash = ? AND state = ?", pitchID, txHash, types.DisbursementSubmitted).
		Update("state", types.DisbursementFailed).Error
}

// RecordFunding stamps a confirmed transfer onto the pitch. The write is
// conditional on the pitch being funded and having no proof yet; losing that
// race yields apperr.ErrAlreadyClaimed.
func (s *Store) RecordFunding(ctx context.Context, pitchID, wallet, txHash string, at time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&types.Pitch{}).
			Where("id = ? AND status = ? AND tx_hash IS NULL", pitchID, types.StatusFunded).
			Updates(map[string]any{
				"wallet_address": wallet,
				"tx_hash":        txHash,
				"funded_at":      at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrAlreadyClaimed
		}
		return tx.Model(&types.Disbursement{}).
			Where("pitch_id = ? AND tx_hash = ?", pitchID, txHash).
			Update("state", types.DisbursementConfirmed).Error
	})
}
