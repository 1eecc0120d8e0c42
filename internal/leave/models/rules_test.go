package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "legajo/pkg/domain"
)

// 2026-03-09 is a Monday.
var (
	today  = Date(2026, 3, 2)
	monday = Date(2026, 3, 9)
)

func weekdaysOnly(employeeID id.EmployeeID) *WorkPlan {
	return &WorkPlan{EmployeeID: employeeID, Days: [7]bool{true, true, true, true, true, false, false}, Start: "09:00", End: "18:00"}
}

func TestCheck(t *testing.T) {
	emp, other := id.NewEmployeeID(), id.NewEmployeeID()
	limited := &LeaveType{ID: id.NewLeaveTypeID(), Description: "Estudio", MaxDays: 2}
	free := &LeaveType{ID: id.NewLeaveTypeID(), Description: "Libre"}

	request := func(from, to time.Time) *Request {
		return &Request{ID: id.NewLeaveRequestID(), EmployeeID: emp, Kind: KindLeave, From: from, To: to, Status: StatusPending}
	}
	existing := func(owner id.EmployeeID, from, to time.Time, status Status) *Request {
		return &Request{ID: id.NewLeaveRequestID(), EmployeeID: owner, Kind: KindLeave, From: from, To: to, Status: status}
	}

	tests := []struct {
		name         string
		in           CheckInput
		wantReason   string
		wantWarnings []string
	}{
		{
			name: "plain weekday range",
			in:   CheckInput{Request: request(monday, monday.AddDate(0, 0, 1)), Type: limited, Plan: weekdaysOnly(emp)},
		},
		{
			name:       "starts before today",
			in:         CheckInput{Request: request(today.AddDate(0, 0, -1), monday)},
			wantReason: ReasonPastDates,
		},
		{
			name: "starting today is allowed",
			in:   CheckInput{Request: request(today, today)},
		},
		{
			name:       "more days than the type allows",
			in:         CheckInput{Request: request(monday, monday.AddDate(0, 0, 2)), Type: limited},
			wantReason: "estudio allows at most 2 days, 3 requested",
		},
		{
			name: "free leave has no limit",
			in:   CheckInput{Request: request(monday, monday.AddDate(0, 0, 20)), Type: free},
		},
		{
			name:       "only holidays",
			in:         CheckInput{Request: request(monday, monday), Type: limited, Holidays: []time.Time{monday}},
			wantReason: ReasonAllHolidays,
		},
		{
			name:         "free leave on holidays only warns",
			in:           CheckInput{Request: request(monday, monday), Type: free, Holidays: []time.Time{monday}},
			wantWarnings: []string{WarnFreeHolidays},
		},
		{
			name:         "some holidays",
			in:           CheckInput{Request: request(monday, monday.AddDate(0, 0, 1)), Type: limited, Holidays: []time.Time{monday, Date(2026, 5, 25)}},
			wantWarnings: []string{WarnHolidays},
		},
		{
			name:       "weekend only for a weekday plan",
			in:         CheckInput{Request: request(monday.AddDate(0, 0, 5), monday.AddDate(0, 0, 6)), Plan: weekdaysOnly(emp)},
			wantReason: ReasonNoWorkdays,
		},
		{
			name:         "range over a weekend",
			in:           CheckInput{Request: request(monday.AddDate(0, 0, 4), monday.AddDate(0, 0, 7)), Plan: weekdaysOnly(emp)},
			wantWarnings: []string{WarnDaysOff},
		},
		{
			name: "days off are not reported when holidays are",
			in: CheckInput{
				Request:  request(monday.AddDate(0, 0, 4), monday.AddDate(0, 0, 7)),
				Plan:     weekdaysOnly(emp),
				Holidays: []time.Time{monday.AddDate(0, 0, 4)},
			},
			wantWarnings: []string{WarnHolidays},
		},
		{
			name: "no plan means every day is worked",
			in:   CheckInput{Request: request(monday.AddDate(0, 0, 5), monday.AddDate(0, 0, 6))},
		},
		{
			name: "overlaps a pending request of the same employee",
			in: CheckInput{
				Request: request(monday, monday),
				Others:  []*Request{existing(emp, monday.AddDate(0, 0, -1), monday, StatusPending)},
			},
			wantReason: ReasonOwnOverlap,
		},
		{
			name: "a rejected request does not block",
			in: CheckInput{
				Request: request(monday, monday),
				Others:  []*Request{existing(emp, monday, monday, StatusRejected)},
			},
		},
		{
			name: "pending requests do not block an approval",
			in: CheckInput{
				Request: request(monday, monday),
				Others:  []*Request{existing(emp, monday, monday, StatusPending)},
				Stage:   StageApprove,
			},
		},
		{
			name: "approved requests block an approval",
			in: CheckInput{
				Request: request(monday, monday),
				Others:  []*Request{existing(emp, monday, monday, StatusApproved)},
				Stage:   StageApprove,
			},
			wantReason: ReasonOwnOverlap,
		},
		{
			name: "another employee away",
			in: CheckInput{
				Request: request(monday, monday.AddDate(0, 0, 1)),
				Others: []*Request{
					existing(other, monday.AddDate(0, 0, 1), monday.AddDate(0, 0, 3), StatusApproved),
					existing(other, monday, monday, StatusPending),
				},
			},
			wantWarnings: []string{WarnOthersAway},
		},
		{
			name: "requests outside the range are ignored",
			in: CheckInput{
				Request: request(monday, monday),
				Others:  []*Request{existing(emp, monday.AddDate(0, 0, 1), monday.AddDate(0, 0, 2), StatusApproved)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			in.Today = today
			warnings, err := Check(in)
			if tt.wantReason != "" {
				var rej *Rejection
				require.ErrorAs(t, err, &rej)
				assert.Equal(t, tt.wantReason, rej.Reason)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantWarnings, warnings)
		})
	}

	t.Run("the request itself never counts as an overlap", func(t *testing.T) {
		r := request(monday, monday)
		r.Status = StatusApproved
		_, err := Check(CheckInput{Request: r, Others: []*Request{r}, Today: today, Stage: StageApprove})
		require.NoError(t, err)
	})
}

func TestWarningNote(t *testing.T) {
	assert.Empty(t, WarningNote(nil))
	assert.Equal(t, "Warnings: a; b", WarningNote([]string{"a", "b"}))
}
