package backtest

import (
	"log"
	"sort"

	"github.com/cbeeswax/stock-alert/internal/sim"
)

// GroupStats aggregates one slice of the ledger. Trades, wins, and losses
// count Full and Runner rows only; a Partial row and its Runner describe
// one logical trade, so counting both would double it. PnL sums every row
// because partial and runner cover disjoint position fractions.
type GroupStats struct {
	Trades         int
	Wins           int
	Losses         int
	WinRatePct     float64
	TotalPnL       float64
	AvgHoldingDays float64
	AvgRMultiple   float64
}

// Report is the full evaluation of a backtest ledger.
type Report struct {
	Overall    GroupStats
	ByYear     map[int]GroupStats
	ByStrategy map[string]GroupStats
	ByExit     map[string]GroupStats
}

// Evaluate aggregates the trade ledger. Pure; the ledger is never
// mutated.
func Evaluate(ledger []sim.Outcome) Report {
	report := Report{
		Overall:    groupStats(ledger),
		ByYear:     make(map[int]GroupStats),
		ByStrategy: make(map[string]GroupStats),
		ByExit:     make(map[string]GroupStats),
	}

	byYear := make(map[int][]sim.Outcome)
	byStrategy := make(map[string][]sim.Outcome)
	byExit := make(map[string][]sim.Outcome)
	for _, o := range ledger {
		year := o.EntryDate.Year()
		byYear[year] = append(byYear[year], o)
		byStrategy[string(o.Strategy)] = append(byStrategy[string(o.Strategy)], o)
		byExit[o.ExitReason] = append(byExit[o.ExitReason], o)
	}
	for year, rows := range byYear {
		report.ByYear[year] = groupStats(rows)
	}
	for name, rows := range byStrategy {
		report.ByStrategy[name] = groupStats(rows)
	}
	for reason, rows := range byExit {
		report.ByExit[reason] = groupStats(rows)
	}
	return report
}

func groupStats(rows []sim.Outcome) GroupStats {
	var g GroupStats
	var holdingSum, rSum float64
	counted := 0
	for _, o := range rows {
		g.TotalPnL += o.PnLDollars
		if o.PositionType == sim.PositionPartial {
			continue
		}
		counted++
		holdingSum += float64(o.HoldingDays)
		rSum += o.RMultiple
		if o.Result == sim.ResultWin {
			g.Wins++
		} else {
			g.Losses++
		}
	}
	g.Trades = counted
	if counted > 0 {
		g.WinRatePct = float64(g.Wins) / float64(counted) * 100
		g.AvgHoldingDays = holdingSum / float64(counted)
		g.AvgRMultiple = rSum / float64(counted)
	}
	return g
}

// PrintReport logs the evaluation in a readable form.
func PrintReport(report Report) {
	o := report.Overall
	log.Printf("PrintReport | Trades: %d | Wins: %d | Losses: %d | WinRate: %.2f%% | TotalPnL: $%.2f | AvgHold: %.1fd | AvgR: %.2f",
		o.Trades, o.Wins, o.Losses, o.WinRatePct, o.TotalPnL, o.AvgHoldingDays, o.AvgRMultiple)

	years := make([]int, 0, len(report.ByYear))
	for y := range report.ByYear {
		years = append(years, y)
	}
	sort.Ints(years)
	for _, y := range years {
		g := report.ByYear[y]
		log.Printf("PrintReport | %d: %d trades, %.2f%% win rate, $%.2f", y, g.Trades, g.WinRatePct, g.TotalPnL)
	}

	strategies := make([]string, 0, len(report.ByStrategy))
	for name := range report.ByStrategy {
		strategies = append(strategies, name)
	}
	sort.Strings(strategies)
	for _, name := range strategies {
		g := report.ByStrategy[name]
		log.Printf("PrintReport | %s: %d trades, %.2f%% win rate, $%.2f, avg %.2fR", name, g.Trades, g.WinRatePct, g.TotalPnL, g.AvgRMultiple)
	}

	reasons := make([]string, 0, len(report.ByExit))
	for reason := range report.ByExit {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		g := report.ByExit[reason]
		log.Printf("PrintReport | exit %s: %d trades, $%.2f", reason, g.Trades, g.TotalPnL)
	}
}
