package sfclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"vacancy-report-service/internal/models"
)

const (
	resourcePosition = "Position"
	resourceEmpJob   = "EmpJob"

	effectiveStatusActive = "A"

	// EmpJob is effective-dated; query from the epoch the source accepts
	// so the latest record is visible regardless of its start date.
	empJobFromDate = "1900-01-01"
)

// positionRow is the wire shape of a Position result row.
type positionRow struct {
	Code                     string `json:"code"`
	ExternalNameDefaultValue string `json:"externalName_defaultValue"`
	EffectiveStartDate       string `json:"effectiveStartDate"`
	BusinessUnit             string `json:"businessUnit"`
	ParentPosition           *struct {
		Code string `json:"code"`
	} `json:"parentPosition"`
}

// ActivePositions fetches every active position for the business unit and
// employee group, paging through the source pageSize rows at a time.
func (c *Client) ActivePositions(ctx context.Context, ic, empGroup string, pageSize int) ([]models.PositionRecord, error) {
	q := Query{
		Resource: resourcePosition,
		Filter: And(
			Eq("businessUnit", ic),
			Eq("cust_EmployeeGroup", empGroup),
			Eq("effectiveStatus", effectiveStatusActive),
		),
		Select: "code,externalName_defaultValue,effectiveStartDate,parentPosition/code",
		Expand: "parentPosition",
	}

	rows, err := c.FetchAll(ctx, q, pageSize)
	if err != nil {
		return nil, err
	}

	positions := make([]models.PositionRecord, 0, len(rows))
	for _, raw := range rows {
		var row positionRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("decode position row: %w", err)
		}
		record := models.PositionRecord{
			Code:               row.Code,
			ExternalName:       row.ExternalNameDefaultValue,
			EffectiveStartDate: row.EffectiveStartDate,
			BusinessUnit:       ic,
		}
		if row.ParentPosition != nil {
			record.ParentCode = row.ParentPosition.Code
		}
		positions = append(positions, record)
	}
	return positions, nil
}

// Employment is the latest employment record tied to a position.
type Employment struct {
	EmplStatus string `json:"emplStatus"`
	StartDate  string `json:"startDate"`
}

// LatestEmployment returns the most recent employment record for the
// position, or nil when the position has none.
func (c *Client) LatestEmployment(ctx context.Context, positionCode string) (*Employment, error) {
	q := Query{
		Resource: resourceEmpJob,
		Filter:   Eq("position", positionCode),
		Select:   "emplStatus,startDate",
		OrderBy:  "startDate desc",
		Top:      1,
		Extra:    url.Values{"fromDate": []string{empJobFromDate}},
	}

	rows, err := c.Get(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var emp Employment
	if err := json.Unmarshal(rows[0], &emp); err != nil {
		return nil, fmt.Errorf("decode employment row: %w", err)
	}
	return &emp, nil
}

// ActiveReporteeCount counts active positions whose parent is parentCode.
func (c *Client) ActiveReporteeCount(ctx context.Context, parentCode string) (int, error) {
	q := Query{
		Resource: resourcePosition,
		Filter: And(
			Eq("parentPosition/code", parentCode),
			Eq("effectiveStatus", effectiveStatusActive),
		),
		Select: "code",
	}

	rows, err := c.Get(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
