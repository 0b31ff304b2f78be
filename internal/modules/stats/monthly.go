package stats

import "sort"

// MonthlyCell aggregates one calendar month of a daily series.
type MonthlyCell struct {
	PnL     float64 `json:"pnl"`
	Days    int     `json:"days"`
	WinDays int     `json:"winDays"`
	WinRate float64 `json:"winRate"` // percent of positive-pnl days
}

// MonthlyTable is the heatmap view: per-year, per-month pnl and daily win
// rate, with years listed newest first.
type MonthlyTable struct {
	Years  []int                       `json:"years"`
	Months map[int]map[int]MonthlyCell `json:"months"` // year -> month -> cell
}

// Monthly folds the bundle's points into the calendar heatmap table.
func (b Bundle) Monthly() MonthlyTable {
	table := MonthlyTable{Months: make(map[int]map[int]MonthlyCell)}

	for _, p := range b.Points {
		year, ok := table.Months[p.Year]
		if !ok {
			year = make(map[int]MonthlyCell)
			table.Months[p.Year] = year
		}
		cell := year[p.Month]
		cell.PnL += p.PnL
		cell.Days++
		if p.PnL > 0 {
			cell.WinDays++
		}
		year[p.Month] = cell
	}

	for year, months := range table.Months {
		for month, cell := range months {
			if cell.Days > 0 {
				cell.WinRate = float64(cell.WinDays) / float64(cell.Days) * 100
			}
			months[month] = cell
		}
		table.Years = append(table.Years, year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(table.Years)))

	return table
}
