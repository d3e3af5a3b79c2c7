package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/poolcare-ownerverify/internal/config"
	"github.com/poolcare-ownerverify/internal/db"
	"github.com/poolcare-ownerverify/internal/importer"
	"github.com/poolcare-ownerverify/internal/migrate"
	"github.com/poolcare-ownerverify/internal/store"
	"github.com/poolcare-ownerverify/internal/verify"
	"github.com/poolcare-ownerverify/internal/web"
)

var (
	// Global database connection
	dbConn *db.Connection
)

func main() {
	config.LoadEnv()

	var err error
	dbConn, err = db.NewConnection()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbConn.Close()

	rootCmd := &cobra.Command{
		Use:   "verifier",
		Short: "Property ownership verification service",
		Long:  `Verifies customer property ownership against the Pima County assessor roll`,
	}

	rootCmd.AddCommand(createServeCmd())
	rootCmd.AddCommand(createVerifyCmd())
	rootCmd.AddCommand(createImportCmd())
	rootCmd.AddCommand(createSearchCmd())
	rootCmd.AddCommand(createDBCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// createServeCmd starts the HTTP API
func createServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the verification web API",
		Run: func(cmd *cobra.Command, args []string) {
			webConfig := &web.Config{
				Server: web.ServerConfig{
					Host: config.GetEnv("WEB_HOST", "0.0.0.0"),
					Port: config.GetEnvInt("WEB_PORT", 8080),
				},
				Auth: web.AuthConfig{
					Enabled: config.GetEnvBool("API_AUTH_ENABLED", false),
					APIKey:  config.GetEnv("API_KEY", ""),
				},
				Features: web.FeatureConfig{
					ImportEnabled: config.GetEnvBool("ENABLE_IMPORT", true),
					WritesEnabled: config.GetEnvBool("ENABLE_WRITES", true),
				},
			}

			server := web.NewServer(webConfig, dbConn.DB)
			if err := server.Start(); err != nil {
				log.Fatalf("Server failed: %v", err)
			}
		},
	}
}

// createVerifyCmd runs the matching pipeline from the command line
func createVerifyCmd() *cobra.Command {
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Run ownership verification",
	}

	var limit int
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Verify pending customers sequentially",
		Run: func(cmd *cobra.Command, args []string) {
			dataStore := store.NewPostgres(dbConn.DB)
			pipeline := verify.NewPipeline(verify.NewLocator(dataStore), dataStore)

			outcomes, err := pipeline.VerifyPending(context.Background(), limit)
			if err != nil {
				log.Fatalf("Batch verification failed: %v", err)
			}

			matched, mismatched, manual := 0, 0, 0
			for _, outcome := range outcomes {
				switch {
				case outcome.Resolution != nil && outcome.Resolution.NeedsManualChoice:
					manual++
				case outcome.Result != nil && outcome.Result.Status == verify.Match:
					matched++
				default:
					mismatched++
				}
				printOutcome(outcome)
			}
			fmt.Printf("\nProcessed %d customers: %d matched, %d mismatched, %d need manual review\n",
				len(outcomes), matched, mismatched, manual)
		},
	}
	batchCmd.Flags().IntVar(&limit, "limit", verify.MaxBatchSize, "customers per batch (capped at 20)")

	customerCmd := &cobra.Command{
		Use:   "customer [id]",
		Short: "Verify one customer",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dataStore := store.NewPostgres(dbConn.DB)
			pipeline := verify.NewPipeline(verify.NewLocator(dataStore), dataStore)

			var id int64
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				log.Fatalf("Invalid customer id: %s", args[0])
			}

			customer, err := dataStore.GetCustomer(context.Background(), id)
			if err != nil {
				log.Fatalf("Failed to load customer: %v", err)
			}

			printOutcome(pipeline.VerifyOne(context.Background(), customer))
		},
	}

	verifyCmd.AddCommand(batchCmd)
	verifyCmd.AddCommand(customerCmd)
	return verifyCmd
}

func printOutcome(outcome verify.Outcome) {
	c := outcome.Customer
	fmt.Printf("Customer %d (%s, %s):\n", c.ID, c.FullName(), c.Address)

	if outcome.Resolution != nil && outcome.Resolution.NeedsManualChoice {
		fmt.Printf("  needs manual choice (%d candidates)\n", len(outcome.Resolution.Options))
		for _, option := range outcome.Resolution.Options {
			fmt.Printf("    [%d] parcel %s  %s\n",
				option.Score, option.Record.ParcelNumber, option.Record.EffectiveOwnerName())
		}
		return
	}

	result := outcome.Result
	fmt.Printf("  %s", result.Status)
	if result.Record != nil {
		fmt.Printf(" (parcel %s, owner %s)", result.Record.ParcelNumber, result.Record.EffectiveOwnerName())
	}
	fmt.Println()
	for _, issue := range result.Issues {
		fmt.Printf("  - %s\n", issue)
	}
}

// createImportCmd imports the assessor roll extract
func createImportCmd() *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import assessor roll data",
	}

	var fromBatch, batchSize int
	var all bool
	rollCmd := &cobra.Command{
		Use:   "roll [filename]",
		Short: "Import the assessor roll CSV in resumable batches",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			rollImporter := importer.NewImporter(dbConn.DB)
			ctx := context.Background()

			if fromBatch < 0 {
				cursor, err := rollImporter.Cursor(ctx)
				if err != nil {
					log.Fatalf("Failed to read import cursor: %v", err)
				}
				fromBatch = cursor.BatchNumber + 1
				// Batch numbering only lines up with the cursor when the
				// size matches what the earlier batches used.
				if !cmd.Flags().Changed("batch-size") && cursor.BatchSize > 0 {
					batchSize = cursor.BatchSize
				}
			}

			if all {
				progress, err := rollImporter.Run(ctx, args[0], fromBatch, batchSize)
				if err != nil {
					log.Fatalf("Import failed: %v", err)
				}
				fmt.Printf("Import complete: %d records total\n", progress.TotalRecords)
				return
			}

			progress, err := rollImporter.ImportBatch(ctx, args[0], fromBatch, batchSize)
			if err != nil {
				log.Fatalf("Import failed: %v", err)
			}
			if progress.HasMoreBatches {
				fmt.Printf("More batches remain; next is %d\n", progress.BatchNumber+1)
			}
		},
	}
	rollCmd.Flags().IntVar(&fromBatch, "from-batch", -1, "batch number to start at (-1 resumes from the cursor)")
	rollCmd.Flags().IntVar(&batchSize, "batch-size", importer.DefaultBatchSize, "records per batch")
	rollCmd.Flags().BoolVar(&all, "all", false, "keep importing batches until the extract is exhausted")

	progressCmd := &cobra.Command{
		Use:   "progress",
		Short: "Show the persisted import cursor",
		Run: func(cmd *cobra.Command, args []string) {
			cursor, err := importer.NewImporter(dbConn.DB).Cursor(context.Background())
			if err != nil {
				log.Fatalf("Failed to read import cursor: %v", err)
			}
			fmt.Printf("Last batch: %d, inserted: %d, total: %d, more: %v\n",
				cursor.BatchNumber, cursor.Inserted, cursor.TotalRecords, cursor.HasMoreBatches)
		},
	}

	importCmd.AddCommand(rollCmd)
	importCmd.AddCommand(progressCmd)
	return importCmd
}

// createSearchCmd searches the assessor dataset
func createSearchCmd() *cobra.Command {
	var page, perPage int
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the assessor dataset by owner, address or parcel",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dataStore := store.NewPostgres(dbConn.DB)

			records, total, err := dataStore.SearchAssessor(context.Background(), args[0], page, perPage)
			if err != nil {
				log.Fatalf("Search failed: %v", err)
			}

			for _, rec := range records {
				fmt.Printf("%-14s %-40s %s\n", rec.ParcelNumber, rec.EffectiveOwnerName(), rec.Mail1)
			}
			fmt.Printf("\n%d of %d records (page %d)\n", len(records), total, page)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "result page")
	cmd.Flags().IntVar(&perPage, "per-page", 50, "results per page")
	return cmd
}

// createDBCmd groups database utilities
func createDBCmd() *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database utilities",
	}

	dbCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		Run: func(cmd *cobra.Command, args []string) {
			if err := migrate.Apply(dbConn.DB); err != nil {
				log.Fatalf("Migration failed: %v", err)
			}
			fmt.Println("Migrations applied")
		},
	})

	dbCmd.AddCommand(&cobra.Command{
		Use:   "ping",
		Short: "Test database connectivity",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Database connection successful!")

			var count int
			if err := dbConn.DB.QueryRow("SELECT COUNT(*) FROM assessor_record").Scan(&count); err != nil {
				log.Printf("Error counting assessor records: %v", err)
			} else {
				fmt.Printf("Assessor records loaded: %d\n", count)
			}

			if err := dbConn.DB.QueryRow("SELECT COUNT(*) FROM customer WHERE owner_verified_at IS NULL").Scan(&count); err != nil {
				log.Printf("Error counting customers: %v", err)
			} else {
				fmt.Printf("Customers pending verification: %d\n", count)
			}
		},
	})

	return dbCmd
}
