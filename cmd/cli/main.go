package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-insights/internal/app"
	"github.com/dvloznov/statement-insights/internal/config"
	"github.com/dvloznov/statement-insights/internal/jobs"
	"github.com/dvloznov/statement-insights/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "cli"})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "users":
		runUsers(cfg, log, os.Args[2:])
	case "statements":
		runStatements(cfg, log, os.Args[2:])
	case "dashboard":
		runDashboard(cfg, log, os.Args[2:])
	case "outputs":
		runOutputs(cfg, log, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Insights CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> <subcommand> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  users add          Register a user")
	fmt.Println("  statements list    List a user's statements")
	fmt.Println("  statements show    Show one statement and its summary")
	fmt.Println("  dashboard render   Render a statement dashboard")
	fmt.Println("  outputs list       List archived model outputs of a statement")
	fmt.Println("  help               Show this help message")
	fmt.Println("\nRun 'cli <command> <subcommand> -h' for more information on a command.")
}

// open connects the shared services with a bounded context.
func open(cfg *config.Config, log zerolog.Logger) (context.Context, context.CancelFunc, *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	return ctx, cancel, a
}

func subcommand(args []string, name string) string {
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Missing subcommand for %s\n\n", name)
		printUsage()
		os.Exit(1)
	}
	return args[0]
}

func runUsers(cfg *config.Config, log zerolog.Logger, args []string) {
	if sub := subcommand(args, "users"); sub != "add" {
		log.Fatal().Str("subcommand", sub).Msg("Unknown users subcommand")
	}

	fs := flag.NewFlagSet("users add", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (at least 8 characters)")
	fs.Parse(args[1:])

	if *email == "" || len(*password) < 8 {
		log.Fatal().Msg("Usage: cli users add -email EMAIL -password PASSWORD")
	}

	ctx, cancel, a := open(cfg, log)
	defer cancel()
	defer a.Close()

	user, err := a.Users.Create(ctx, *email, *password)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create user")
	}
	fmt.Printf("Created user %s (%s)\n", user.ID, user.Email)
}

func runStatements(cfg *config.Config, log zerolog.Logger, args []string) {
	switch sub := subcommand(args, "statements"); sub {
	case "list":
		fs := flag.NewFlagSet("statements list", flag.ExitOnError)
		userID := fs.String("user", "", "Owner user id")
		limit := fs.Int("limit", 20, "Maximum number of statements")
		fs.Parse(args[1:])
		if *userID == "" {
			log.Fatal().Msg("Error: -user is required")
		}

		ctx, cancel, a := open(cfg, log)
		defer cancel()
		defer a.Close()

		statements, err := a.Statements.ListByOwner(ctx, *userID, *limit)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list statements")
		}
		fmt.Printf("\n=== Statements (%d) ===\n", len(statements))
		for i, st := range statements {
			fmt.Printf("\n%d. %s\n", i+1, st.StorageKey)
			fmt.Printf("   ID:      %s\n", st.ID)
			fmt.Printf("   Status:  %s\n", st.Status)
			fmt.Printf("   Created: %s\n", st.CreatedAt.Format(time.RFC3339))
		}
		fmt.Println()

	case "show":
		fs := flag.NewFlagSet("statements show", flag.ExitOnError)
		rawID := fs.String("id", "", "Statement id")
		fs.Parse(args[1:])
		id := parseID(log, *rawID)

		ctx, cancel, a := open(cfg, log)
		defer cancel()
		defer a.Close()

		st, err := a.Statements.Get(ctx, id)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load statement")
		}

		fmt.Println("\n=== Statement Details ===")
		fmt.Printf("ID:      %s\n", st.ID)
		fmt.Printf("User:    %s\n", st.OwnerID)
		fmt.Printf("Key:     %s\n", st.StorageKey)
		fmt.Printf("Status:  %s\n", st.Status)
		fmt.Printf("Created: %s\n", st.CreatedAt.Format(time.RFC3339))

		if st.AnalysisSummary == nil {
			fmt.Println("\nNo analysis summary yet.")
			return
		}
		sum := st.AnalysisSummary
		fmt.Println("\n=== Summary ===")
		fmt.Printf("Income:       %s\n", sum.TotalIncome.StringFixed(2))
		fmt.Printf("Expense:      %s\n", sum.TotalExpense.StringFixed(2))
		fmt.Printf("Net:          %s\n", sum.NetAmount.StringFixed(2))
		fmt.Printf("Transactions: %d\n", sum.TransactionCount)
		for _, name := range sum.Categories {
			c := sum.CategoriesAmount[name]
			fmt.Printf("   %-24s %12s  %-7s (%d)\n", name, c.TotalAmount.StringFixed(2), c.Type, c.TransactionCount)
		}
		fmt.Println()

	default:
		log.Fatal().Str("subcommand", sub).Msg("Unknown statements subcommand")
	}
}

func runDashboard(cfg *config.Config, log zerolog.Logger, args []string) {
	if sub := subcommand(args, "dashboard"); sub != "render" {
		log.Fatal().Str("subcommand", sub).Msg("Unknown dashboard subcommand")
	}

	fs := flag.NewFlagSet("dashboard render", flag.ExitOnError)
	rawID := fs.String("id", "", "Statement id")
	upload := fs.Bool("upload", false, "Upload the page and print a signed URL instead of writing HTML to stdout")
	fs.Parse(args[1:])
	id := parseID(log, *rawID)

	ctx, cancel, a := open(cfg, log)
	defer cancel()
	defer a.Close()

	if !*upload {
		fmt.Print(a.Renderer.Render(ctx, id))
		return
	}

	payload, err := json.Marshal(jobs.RenderDashboardJob{TriggerSource: jobs.TriggerSourceBankExtract, StatementID: id.String()})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode dashboard event")
	}
	resp := a.Dashboards.Handle(ctx, payload)
	fmt.Println(string(resp.Body))
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}

func runOutputs(cfg *config.Config, log zerolog.Logger, args []string) {
	if sub := subcommand(args, "outputs"); sub != "list" {
		log.Fatal().Str("subcommand", sub).Msg("Unknown outputs subcommand")
	}

	fs := flag.NewFlagSet("outputs list", flag.ExitOnError)
	rawID := fs.String("id", "", "Statement id")
	fs.Parse(args[1:])
	id := parseID(log, *rawID)

	if !cfg.GCP.ArchiveEnabled {
		log.Fatal().Msg("BigQuery archive is disabled (set ARCHIVE_ENABLED=true)")
	}

	ctx, cancel, a := open(cfg, log)
	defer cancel()
	defer a.Close()

	outputs, err := a.Archive.ListModelOutputs(ctx, id.String())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list model outputs")
	}

	fmt.Printf("\n=== Model outputs (%d) ===\n", len(outputs))
	for i, o := range outputs {
		fmt.Printf("\n%d. %s\n", i+1, o.OutputID)
		fmt.Printf("   Model:     %s\n", o.ModelName)
		fmt.Printf("   Created:   %s\n", o.CreatedTS.Format(time.RFC3339))
		fmt.Printf("   Chars in:  %d\n", o.TextChars)
		fmt.Printf("   Defaulted: %t\n", o.Defaulted)
		if o.RawOutput.Valid {
			fmt.Printf("   Raw bytes: %d\n", len(o.RawOutput.StringVal))
		}
	}
	fmt.Println()
}

func parseID(log zerolog.Logger, raw string) uuid.UUID {
	if raw == "" {
		log.Fatal().Msg("Error: -id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		log.Fatal().Err(err).Str("id", raw).Msg("Invalid statement id")
	}
	return id
}
