package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/gigflow/internal/model"
)

const (
	summarySheet = "Summary"
	bidsSheet    = "Bids"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(sheet model.BidSheet) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if err := g.writeSummary(file, sheet); err != nil {
		return nil, err
	}

	if _, err := file.NewSheet(bidsSheet); err != nil {
		return nil, err
	}
	if err := g.writeBids(file, sheet.Bids); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet model.BidSheet) error {
	counts := countByStatus(sheet.Bids)
	lowest, ok := lowestPrice(sheet.Bids)

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(summarySheet, cell, value)
	}

	set("A1", "Gig")
	set("B1", sheet.Gig.Title)
	set("A2", "Gig ID")
	set("B2", sheet.Gig.ID.String())
	set("A3", "Status")
	set("B3", string(sheet.Gig.Status))
	set("A4", "Budget")
	set("B4", formatAmount(sheet.Gig.Budget))
	set("A5", "Posted")
	set("B5", formatDateTime(sheet.Gig.CreatedAt))
	set("A6", "Bids")
	set("B6", len(sheet.Bids))
	set("A7", "Pending")
	set("B7", counts[model.BidStatusPending])
	set("A8", "Hired")
	set("B8", counts[model.BidStatusHired])
	set("A9", "Rejected")
	set("B9", counts[model.BidStatusRejected])
	set("A10", "Lowest price")
	if ok {
		set("B10", formatAmount(lowest))
	}
	set("A11", "Generated")
	set("B11", formatDateTime(sheet.GeneratedAt))

	_ = file.SetColWidth(summarySheet, "A", "A", 20)
	_ = file.SetColWidth(summarySheet, "B", "B", 45)
	return nil
}

func (g *Generator) writeBids(file *excelize.File, bids []model.Bid) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(bidsSheet, cell, value)
	}

	headers := []string{
		"Bid ID",
		"Freelancer ID",
		"Price",
		"Status",
		"Submitted",
		"Message",
	}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		set(cell, header)
	}

	for i, bid := range bids {
		row := i + 2
		set(fmt.Sprintf("A%d", row), bid.ID.String())
		set(fmt.Sprintf("B%d", row), bid.FreelancerID.String())
		set(fmt.Sprintf("C%d", row), formatAmount(bid.Price))
		set(fmt.Sprintf("D%d", row), string(bid.Status))
		set(fmt.Sprintf("E%d", row), formatDateTime(bid.CreatedAt))
		set(fmt.Sprintf("F%d", row), bid.Message)
	}

	_ = file.SetColWidth(bidsSheet, "A", "B", 38)
	_ = file.SetColWidth(bidsSheet, "C", "D", 12)
	_ = file.SetColWidth(bidsSheet, "E", "E", 20)
	_ = file.SetColWidth(bidsSheet, "F", "F", 60)
	return nil
}

func countByStatus(bids []model.Bid) map[model.BidStatus]int {
	counts := make(map[model.BidStatus]int, 3)
	for _, bid := range bids {
		counts[bid.Status]++
	}
	return counts
}

func lowestPrice(bids []model.Bid) (float64, bool) {
	if len(bids) == 0 {
		return 0, false
	}
	lowest := bids[0].Price
	for _, bid := range bids[1:] {
		if bid.Price < lowest {
			lowest = bid.Price
		}
	}
	return lowest, true
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatAmount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
