// Command posadmin runs operator tasks against the shop database without the
// HTTP server: schema setup, product import, report export, backup and restore,
// and admin password recovery.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"shop-pos/internal/auth"
	"shop-pos/internal/backup"
	"shop-pos/internal/config"
	"shop-pos/internal/database"
	"shop-pos/internal/inventory"
	"shop-pos/internal/reports"
	"shop-pos/internal/utils"
)

const usage = `usage: posadmin <command> [flags]

commands:
  init                                  create tables and seed defaults
  import-products -file products.xlsx   import products from Excel
  export-report -kind sales|monthly|top|valuation [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-month YYYY-MM] -out report.xlsx
  backup                                write a snapshot to BACKUP_DIR
  restore -file backup_YYYYMMDD_HHMMSS.db
  reset-admin-password -password NEW
  terminal-id                           print this machine's terminal id
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(context.Background(), os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func run(ctx context.Context, cmd string, args []string) error {
	if cmd == "terminal-id" {
		fmt.Println(utils.TerminalID())
		return nil
	}

	cfg := config.Load()
	store, err := database.Open(cfg, nil)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		return err
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	switch cmd {
	case "init":
		fmt.Println("Database ready:", cfg.DBDSN)
		return nil

	case "import-products":
		file := fs.String("file", "", "xlsx file to import")
		_ = fs.Parse(args)
		if *file == "" {
			return fmt.Errorf("-file is required")
		}
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()
		res, err := inventory.NewService(store).ImportExcel(ctx, 0, f)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d, skipped %d\n", res.Imported, res.Skipped)
		for _, p := range res.Problems {
			fmt.Println("  ", p)
		}
		return nil

	case "export-report":
		kind := fs.String("kind", "sales", "sales, monthly, top or valuation")
		from := fs.String("from", "", "first day (YYYY-MM-DD), default today")
		to := fs.String("to", "", "last day (YYYY-MM-DD), default today")
		month := fs.String("month", "", "month for the monthly report (YYYY-MM)")
		out := fs.String("out", "", "output xlsx file")
		_ = fs.Parse(args)
		if *out == "" {
			*out = fmt.Sprintf("%s_report_%s.xlsx", *kind, time.Now().Format("20060102_150405"))
		}
		return exportReport(ctx, reports.NewService(store), *kind, *from, *to, *month, *out)

	case "backup":
		path, err := backup.NewManager(store, cfg.BackupDir).Create(ctx, 0)
		if err != nil {
			return err
		}
		fmt.Println("Backup written:", path)
		return nil

	case "restore":
		file := fs.String("file", "", "backup file name inside BACKUP_DIR")
		_ = fs.Parse(args)
		if err := backup.NewManager(store, cfg.BackupDir).Restore(ctx, 0, filepath.Base(*file)); err != nil {
			return err
		}
		fmt.Println("Database restored from", *file)
		return nil

	case "reset-admin-password":
		password := fs.String("password", "", "new password for the admin account")
		_ = fs.Parse(args)
		if err := auth.NewService(store).ResetAdminPassword(ctx, *password); err != nil {
			return err
		}
		fmt.Println("Admin password reset")
		return nil
	}
	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

func exportReport(ctx context.Context, svc *reports.Service, kind, from, to, month, out string) error {
	start, err := parseDay(from)
	if err != nil {
		return err
	}
	end, err := parseDay(to)
	if err != nil {
		return err
	}

	var table reports.Table
	switch kind {
	case "sales":
		sales, err := svc.Sales(ctx, start, end)
		if err != nil {
			return err
		}
		table = reports.SalesTable(sales)
	case "top":
		rows, err := svc.TopProducts(ctx, start, end, 50)
		if err != nil {
			return err
		}
		table = reports.TopProductsTable(rows)
	case "monthly":
		m := time.Now()
		if month != "" {
			if m, err = time.Parse("2006-01", month); err != nil {
				return fmt.Errorf("-month must be YYYY-MM")
			}
		}
		days, err := svc.MonthlySummary(ctx, m.Year(), m.Month())
		if err != nil {
			return err
		}
		table = reports.MonthlyTable(days)
	case "valuation":
		v, err := svc.StockValuation(ctx)
		if err != nil {
			return err
		}
		table = reports.ValuationTable(v)
	default:
		return fmt.Errorf("unknown report kind %q", kind)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := reports.ExportExcel(f, table); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Println("Report written:", out)
	return nil
}

func parseDay(v string) (time.Time, error) {
	if v == "" {
		return time.Now(), nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("dates must be YYYY-MM-DD: %q", v)
	}
	return t, nil
}
