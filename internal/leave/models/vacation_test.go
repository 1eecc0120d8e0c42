package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "legajo/pkg/domain"
)

func TestCutoffDate(t *testing.T) {
	assert.Equal(t, Date(2027, time.December, 31), CutoffDate(2027))
}

func TestVacationDays(t *testing.T) {
	tests := []struct {
		name string
		hire time.Time
		ref  time.Time
		want int
	}{
		{"hired in september, pro-rated at the cutoff", Date(2026, 9, 11), CutoffDate(2026), 4},
		{"hired on june 1 gets the full minimum", Date(2026, 6, 1), CutoffDate(2026), 14},
		{"hired on june 2 is pro-rated", Date(2026, 6, 2), CutoffDate(2026), 7},
		{"day 31 counts as 30", Date(2026, 7, 31), CutoffDate(2026), 5},
		{"end of february counts as 30", Date(2026, 1, 31), Date(2026, 2, 28), 14},
		{"previous year under 180 base days", Date(2025, 8, 20), Date(2026, 1, 31), 5},
		{"previous year past 180 base days", Date(2025, 7, 1), CutoffDate(2026), 14},
		{"five full years", Date(2021, 1, 1), CutoffDate(2026), 21},
		{"ten full years", Date(2016, 12, 31), CutoffDate(2026), 28},
		{"twenty full years", Date(2006, 1, 1), CutoffDate(2026), 35},
		{"one day short of twenty years", Date(2006, 12, 31), Date(2026, 12, 30), 28},
		{"hired after the reference", Date(2027, 1, 1), CutoffDate(2026), 0},
		{"no hire date", time.Time{}, CutoffDate(2026), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VacationDays(tt.hire, tt.ref))
		})
	}
}

func TestConsume(t *testing.T) {
	emp := id.NewEmployeeID()
	fresh := id.NewVacationGrantID()
	newID := func() id.VacationGrantID { return fresh }
	vacation := func(from, to time.Time) *Request {
		return &Request{EmployeeID: emp, Kind: KindVacation, From: from, To: to}
	}
	grant := func(year, available, consumed int) *Grant {
		return &Grant{
			ID:         id.NewVacationGrantID(),
			EmployeeID: emp,
			From:       Date(year, time.January, 1),
			To:         CutoffDate(year),
			Available:  available,
			Consumed:   consumed,
		}
	}

	t.Run("previous years are used before the current one", func(t *testing.T) {
		prev, curr := grant(2025, 14, 10), grant(2026, 14, 0)
		changed := Consume([]*Grant{curr, prev}, vacation(Date(2026, 3, 2), Date(2026, 3, 8)), newID)

		require.Len(t, changed, 2)
		assert.Equal(t, prev.ID, changed[0].ID)
		assert.Equal(t, 14, changed[0].Consumed)
		assert.Equal(t, curr.ID, changed[1].ID)
		assert.Equal(t, 3, changed[1].Consumed)
		assert.Equal(t, 10, prev.Consumed, "input grants are not modified")
	})

	t.Run("later years are not touched", func(t *testing.T) {
		next := grant(2027, 14, 0)
		changed := Consume([]*Grant{next}, vacation(Date(2026, 3, 2), Date(2026, 3, 3)), newID)

		require.Len(t, changed, 1)
		assert.NotEqual(t, next.ID, changed[0].ID)
	})

	t.Run("uncovered days become a consumed grant over the vacation", func(t *testing.T) {
		curr := grant(2026, 14, 12)
		changed := Consume([]*Grant{curr}, vacation(Date(2026, 3, 2), Date(2026, 3, 6)), newID)

		require.Len(t, changed, 2)
		assert.Equal(t, 14, changed[0].Consumed)
		extra := changed[1]
		assert.Equal(t, fresh, extra.ID)
		assert.Equal(t, 3, extra.Available)
		assert.Equal(t, 3, extra.Consumed)
		assert.Equal(t, Date(2026, 3, 2), extra.From)
		assert.Equal(t, Date(2026, 3, 6), extra.To)
	})

	t.Run("exhausted grants are skipped", func(t *testing.T) {
		spent, curr := grant(2025, 14, 14), grant(2026, 14, 0)
		changed := Consume([]*Grant{spent, curr}, vacation(Date(2026, 3, 2), Date(2026, 3, 2)), newID)

		require.Len(t, changed, 1)
		assert.Equal(t, curr.ID, changed[0].ID)
	})
}

func TestYearlyGrant(t *testing.T) {
	emp := id.NewEmployeeID()
	existing := &Grant{
		ID:         id.NewVacationGrantID(),
		EmployeeID: emp,
		From:       Date(2026, time.January, 1),
		To:         CutoffDate(2026),
		Available:  14,
		Consumed:   5,
	}

	t.Run("regenerating keeps consumed days", func(t *testing.T) {
		g := YearlyGrant([]*Grant{existing}, emp, 2026, 21, id.NewVacationGrantID)
		assert.Equal(t, existing.ID, g.ID)
		assert.Equal(t, 21, g.Available)
		assert.Equal(t, 5, g.Consumed)
		assert.Equal(t, 14, existing.Available)
	})

	t.Run("a new year starts empty", func(t *testing.T) {
		g := YearlyGrant([]*Grant{existing}, emp, 2027, 21, id.NewVacationGrantID)
		assert.NotEqual(t, existing.ID, g.ID)
		assert.True(t, g.Yearly(2027))
		assert.Zero(t, g.Consumed)
	})
}
