package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/restocklab/replaysim/internal/cache"
	"github.com/restocklab/replaysim/internal/config"
	"github.com/restocklab/replaysim/internal/domain"
	"github.com/restocklab/replaysim/internal/forecast"
	"github.com/restocklab/replaysim/internal/ingest"
	"github.com/restocklab/replaysim/internal/policy"
	"github.com/restocklab/replaysim/internal/repository"
	"github.com/restocklab/replaysim/internal/repository/postgres"
	"github.com/restocklab/replaysim/internal/service"
	"github.com/restocklab/replaysim/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func openDB(c *cli.Context) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", c.String("db-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "simulate",
		Usage: "Run ordering replay simulations against historical data",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Execute a simulation for a tenant over a date range",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{Name: "tenant", Usage: "Tenant identifier", Required: true},
					&cli.StringFlag{Name: "start", Usage: "First replay day (YYYY-MM-DD)", Required: true},
					&cli.StringFlag{Name: "end", Usage: "Last replay day (YYYY-MM-DD)", Required: true},
					&cli.StringSliceFlag{Name: "item", Usage: "Item ID to include (repeatable, default all)"},
					&cli.BoolFlag{Name: "observe-only", Usage: "Evaluate the policy without placing orders"},
					&cli.IntFlag{Name: "lead-time-buffer", Usage: "Extra safety days on top of each item's lead time"},
					&cli.Float64Flag{Name: "min-order-qty", Usage: "Run-wide minimum order quantity"},
					&cli.StringFlag{Name: "output", Usage: "Write the full report JSON to this file"},
				},
				Action: runSimulation,
			},
			{
				Name:  "seed",
				Usage: "Load history and product CSV files into the database",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{Name: "tenant", Usage: "Tenant identifier", Required: true},
					&cli.StringFlag{Name: "history", Usage: "CSV with item_id,date,units_sold[,stock_on_hand]"},
					&cli.StringFlag{Name: "products", Usage: "CSV with item_id,name[,unit_cost,lead_time_days,safety_buffer_days,min_order_qty]"},
				},
				Action: runSeeder,
			},
			{
				Name:  "archive",
				Usage: "Export a stored report to object storage",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{Name: "run-id", Usage: "Simulation run identifier", Required: true},
				},
				Action: runArchive,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runSimulation(c *cli.Context) error {
	cfg := config.Load()

	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	start, err := time.Parse("2006-01-02", c.String("start"))
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", c.String("end"))
	if err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}

	forecaster := forecast.NewHTTPForecaster(cfg.Forecast.URL,
		time.Duration(cfg.Forecast.TimeoutSeconds)*time.Second)

	svc := service.NewSimulationService(
		postgres.NewHistoryRepository(db),
		postgres.NewProductRepository(db),
		postgres.NewRunRepository(db),
		cache.NewNoopReportCache(),
		nil,
		forecaster, policy.DefaultEngine{}, cfg,
	)

	report, err := svc.Run(c.Context, domain.SimulationRun{
		TenantID:           c.String("tenant"),
		ItemIDs:            c.StringSlice("item"),
		StartDate:          start,
		EndDate:            end,
		AutoPlaceOrders:    !c.Bool("observe-only"),
		LeadTimeBufferDays: c.Int("lead-time-buffer"),
		MinOrderQuantity:   c.Float64("min-order-qty"),
	})
	if err != nil {
		return err
	}

	if path := c.String("output"); path != "" {
		payload, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	printSummary(report)
	return nil
}

func printSummary(report *domain.SimulationReport) {
	s := report.Summary
	fmt.Printf("run %s: %d items, %d warnings, %d orders placed\n",
		report.RunID, s.ItemCount, len(report.Warnings), len(report.Orders))
	fmt.Printf("  stockout rate:  simulated %.4f, real %.4f (reduction %.4f)\n",
		s.SimulatedStockoutRate, s.RealStockoutRate, s.StockoutReduction)
	fmt.Printf("  service level:  simulated %.4f, real %.4f\n",
		s.SimulatedServiceLevel, s.RealServiceLevel)
	fmt.Printf("  inventory value: simulated %s, real %s (reduction %s)\n",
		s.SimulatedInventoryValue.StringFixed(2), s.RealInventoryValue.StringFixed(2),
		s.InventoryReduction.StringFixed(2))
	fmt.Printf("  estimated savings per day: %s\n", s.EstimatedSavings.StringFixed(2))
}

func runSeeder(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	tenantID := c.String("tenant")
	repo := postgres.NewIngestRepository(db)

	if path := c.String("history"); path != "" {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open history file: %w", err)
		}
		defer file.Close()

		svc := ingest.NewService(nil, repo)
		rows, err := svc.IngestCSV(c.Context, tenantID, file)
		if err != nil {
			return fmt.Errorf("failed to seed history: %w", err)
		}
		log.Printf("seeded %d history rows", rows)
	}

	if path := c.String("products"); path != "" {
		count, err := seedProducts(c, repo, tenantID, path)
		if err != nil {
			return fmt.Errorf("failed to seed products: %w", err)
		}
		log.Printf("seeded %d products", count)
	}

	return nil
}

func seedProducts(c *cli.Context, repo repository.IngestRepository, tenantID, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open products file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap := make(map[string]int)
	for i, col := range header {
		colMap[strings.TrimSpace(strings.ToLower(col))] = i
	}
	for _, col := range []string{"item_id", "name"} {
		if _, ok := colMap[col]; !ok {
			return 0, fmt.Errorf("missing required column: %s", col)
		}
	}

	count := 0
	for {
		record, err := reader.Read()
		if err != nil {
			if err.Error() == "EOF" {
				break
			}
			return count, fmt.Errorf("failed to read CSV record: %w", err)
		}

		getValue := func(colName string) string {
			if idx, ok := colMap[colName]; ok && idx < len(record) {
				return strings.TrimSpace(record[idx])
			}
			return ""
		}

		product := domain.Product{
			TenantID: tenantID,
			ItemID:   getValue("item_id"),
			Name:     getValue("name"),
		}
		if product.ItemID == "" {
			return count, fmt.Errorf("empty item_id in row %d", count+1)
		}

		if raw := getValue("unit_cost"); raw != "" {
			cost, err := decimal.NewFromString(raw)
			if err != nil {
				return count, fmt.Errorf("invalid unit_cost %q: %w", raw, err)
			}
			product.UnitCost = &cost
		}
		if raw := getValue("lead_time_days"); raw != "" {
			days, err := strconv.Atoi(raw)
			if err != nil {
				return count, fmt.Errorf("invalid lead_time_days %q: %w", raw, err)
			}
			product.LeadTimeDays = &days
		}
		if raw := getValue("safety_buffer_days"); raw != "" {
			days, err := strconv.Atoi(raw)
			if err != nil {
				return count, fmt.Errorf("invalid safety_buffer_days %q: %w", raw, err)
			}
			product.SafetyBufferDays = days
		}
		if raw := getValue("min_order_qty"); raw != "" {
			qty, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return count, fmt.Errorf("invalid min_order_qty %q: %w", raw, err)
			}
			product.MinOrderQty = &qty
		}

		if err := repo.UpsertProduct(c.Context, product); err != nil {
			return count, fmt.Errorf("failed to upsert product %s: %w", product.ItemID, err)
		}
		count++
	}

	return count, nil
}

func runArchive(c *cli.Context) error {
	cfg := config.Load()

	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	archive, err := storage.NewMinioClient(cfg.Archive)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	svc := service.NewSimulationService(
		postgres.NewHistoryRepository(db),
		postgres.NewProductRepository(db),
		postgres.NewRunRepository(db),
		cache.NewNoopReportCache(),
		archive,
		nil, policy.DefaultEngine{}, cfg,
	)

	key, err := svc.ArchiveReport(c.Context, c.String("run-id"))
	if err != nil {
		return err
	}

	log.Printf("archived report to %s", key)
	return nil
}
