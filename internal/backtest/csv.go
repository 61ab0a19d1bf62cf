package backtest

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"

	"github.com/cbeeswax/stock-alert/internal/sim"
)

// WriteLedger saves the trade ledger as tabular rows, one outcome per row.
func WriteLedger(filename string, ledger []sim.Outcome) error {
	rows := [][]string{{
		"Date", "Year", "Ticker", "Strategy", "PositionType", "PartialTrigger",
		"CrossoverType", "CrossoverBonus", "Score", "Entry", "Exit", "Outcome",
		"ExitReason", "RMultiple", "PnL_$", "HoldingDays", "PositionSize%",
	}}
	for _, o := range ledger {
		rows = append(rows, []string{
			o.EntryDate.Format("2006-01-02"),
			fmt.Sprintf("%d", o.EntryDate.Year()),
			o.Ticker,
			string(o.Strategy),
			string(o.PositionType),
			o.PartialTrigger,
			o.CrossoverType,
			fmt.Sprintf("%.2f", o.CrossoverBonus),
			fmt.Sprintf("%.2f", o.Score),
			fmt.Sprintf("%.2f", o.EntryPrice),
			fmt.Sprintf("%.2f", o.ExitPrice),
			string(o.Result),
			o.ExitReason,
			fmt.Sprintf("%.2f", o.RMultiple),
			fmt.Sprintf("%.2f", o.PnLDollars),
			fmt.Sprintf("%d", o.HoldingDays),
			fmt.Sprintf("%.1f", o.PositionSizePct),
		})
	}
	return saveCSV(filename, rows)
}

// saveCSV saves data to a CSV file
func saveCSV(filename string, rows [][]string) error {
	f, err := os.Create(filename)
	if err != nil {
		log.Printf("saveCSV | Error creating CSV file %s: %v", filename, err)
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	for _, row := range rows {
		if err := w.Write(row); err != nil {
			log.Printf("saveCSV | Error writing to CSV file %s: %v", filename, err)
			return err
		}
	}

	log.Printf("saveCSV | Saved results to %s", filename)
	return nil
}
