package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/gigflow/internal/model"
)

type ExcelGenerator interface {
	Generate(sheet model.BidSheet) ([]byte, error)
}

type PDFGenerator interface {
	Generate(doc model.HireConfirmation) ([]byte, error)
}

type ExportService struct {
	gigs  GigStore
	bids  BidStore
	excel ExcelGenerator
	pdf   PDFGenerator
	now   func() time.Time
}

type ExportResult struct {
	FileName string
	Content  []byte
}

func NewExportService(gigs GigStore, bids BidStore, excel ExcelGenerator, pdf PDFGenerator) *ExportService {
	return &ExportService{
		gigs:  gigs,
		bids:  bids,
		excel: excel,
		pdf:   pdf,
		now:   time.Now,
	}
}

// BidsWorkbook renders every bid of a gig into a spreadsheet for its owner.
func (s *ExportService) BidsWorkbook(ctx context.Context, principal model.Principal, gigID uuid.UUID) (*ExportResult, error) {
	gig, err := s.gigs.GetGig(ctx, gigID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGigNotFound
		}
		return nil, err
	}
	if !gig.OwnedBy(principal.UserID) {
		return nil, ErrPermissionDenied
	}

	bids, err := s.bids.ListBidsByGig(ctx, gig.ID)
	if err != nil {
		return nil, err
	}

	generatedAt := s.now().UTC()
	content, err := s.excel.Generate(model.BidSheet{
		Gig:         *gig,
		Bids:        bids,
		GeneratedAt: generatedAt,
	})
	if err != nil {
		return nil, err
	}

	return &ExportResult{
		FileName: buildFileName("bids", gig.Title, gig.ID, generatedAt, "xlsx"),
		Content:  content,
	}, nil
}

// HireConfirmation renders the confirmation document of a hired bid. The gig
// owner and the hired freelancer may fetch it.
func (s *ExportService) HireConfirmation(ctx context.Context, principal model.Principal, bidID uuid.UUID) (*ExportResult, error) {
	bid, err := s.bids.GetBid(ctx, bidID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBidNotFound
		}
		return nil, err
	}
	gig, err := s.gigs.GetGig(ctx, bid.GigID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGigNotFound
		}
		return nil, err
	}
	if !gig.OwnedBy(principal.UserID) && bid.FreelancerID != principal.UserID {
		return nil, ErrPermissionDenied
	}
	if bid.Status != model.BidStatusHired {
		return nil, fmt.Errorf("%w: bid is not hired", ErrInvalidInput)
	}

	issuedAt := s.now().UTC()
	content, err := s.pdf.Generate(model.HireConfirmation{
		Gig:      *gig,
		Bid:      *bid,
		IssuedAt: issuedAt,
	})
	if err != nil {
		return nil, err
	}

	return &ExportResult{
		FileName: buildFileName("hire", gig.Title, gig.ID, issuedAt, "pdf"),
		Content:  content,
	}, nil
}

func buildFileName(kind, title string, id uuid.UUID, at time.Time, ext string) string {
	name := sanitizeFileName(title)
	if name == "" {
		name = id.String()
	}
	return fmt.Sprintf("gigflow-%s-%s-%s.%s", kind, strings.ToLower(name), at.Format("20060102"), ext)
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}
