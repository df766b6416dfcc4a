package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/gigflow/internal/model"
)

const gigColumns = `
			id,
			owner_id,
			title,
			description,
			budget,
			status,
			created_at,
			updated_at`

type GigRepository struct {
	db *gorm.DB
}

func NewGigRepository(db *gorm.DB) *GigRepository {
	return &GigRepository{db: db}
}

func (r *GigRepository) CreateGig(ctx context.Context, gig model.Gig) (*model.Gig, error) {
	if gig.ID == uuid.Nil {
		gig.ID = uuid.New()
	}
	if gig.Status == "" {
		gig.Status = model.GigStatusOpen
	}
	now := time.Now().UTC()
	gig.CreatedAt = now
	gig.UpdatedAt = now

	err := conn(ctx, r.db).Exec(`
		INSERT INTO gigs (id, owner_id, title, description, budget, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		gig.ID,
		gig.OwnerID,
		gig.Title,
		gig.Description,
		gig.Budget,
		gig.Status,
		gig.CreatedAt,
		gig.UpdatedAt,
	).Error
	if err != nil {
		return nil, err
	}
	return &gig, nil
}

func (r *GigRepository) GetGig(ctx context.Context, id uuid.UUID) (*model.Gig, error) {
	var gig model.Gig
	err := conn(ctx, r.db).Raw(`
		SELECT`+gigColumns+`
		FROM gigs
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&gig).Error
	if err != nil {
		return nil, err
	}
	if gig.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &gig, nil
}

// ListOpenGigs returns open gigs newest first, optionally filtered by a
// case-insensitive title substring.
func (r *GigRepository) ListOpenGigs(ctx context.Context, search string) ([]model.Gig, error) {
	query := `
		SELECT` + gigColumns + `
		FROM gigs
		WHERE status = ?`
	args := []interface{}{model.GigStatusOpen}

	search = strings.TrimSpace(search)
	if search != "" {
		query += ` AND LOWER(title) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(search))+"%")
	}
	query += " ORDER BY created_at DESC"

	var gigs []model.Gig
	if err := conn(ctx, r.db).Raw(query, args...).Scan(&gigs).Error; err != nil {
		return nil, err
	}
	return gigs, nil
}

// AssignGig closes the gig only if it is still open. ErrStaleState means a
// concurrent hire already claimed it.
func (r *GigRepository) AssignGig(ctx context.Context, id uuid.UUID) (*model.Gig, error) {
	res := conn(ctx, r.db).Exec(`
		UPDATE gigs
		SET
			status = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`, model.GigStatusAssigned, time.Now().UTC(), id, model.GigStatusOpen)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrStaleState
	}
	return r.GetGig(ctx, id)
}

// ListGigsNeedingCascade returns assigned gigs that already have a hired bid
// but still carry pending bids.
func (r *GigRepository) ListGigsNeedingCascade(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := conn(ctx, r.db).Raw(`
		SELECT g.id
		FROM gigs g
		WHERE g.status = ?
			AND EXISTS (SELECT 1 FROM bids b WHERE b.gig_id = g.id AND b.status = ?)
			AND EXISTS (SELECT 1 FROM bids b WHERE b.gig_id = g.id AND b.status = ?)
		ORDER BY g.updated_at ASC
	`, model.GigStatusAssigned, model.BidStatusHired, model.BidStatusPending).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListOrphanedAssignments returns assigned gigs without any hired bid: hires
// that closed the gig but failed to commit the bid.
func (r *GigRepository) ListOrphanedAssignments(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := conn(ctx, r.db).Raw(`
		SELECT g.id
		FROM gigs g
		WHERE g.status = ?
			AND NOT EXISTS (SELECT 1 FROM bids b WHERE b.gig_id = g.id AND b.status = ?)
		ORDER BY g.updated_at ASC
	`, model.GigStatusAssigned, model.BidStatusHired).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		"%", `\%`,
		"_", `\_`,
	)
	return replacer.Replace(value)
}
