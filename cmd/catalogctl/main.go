package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"mediacatalog/internal/app"
	"mediacatalog/internal/config"
	"mediacatalog/internal/database"
	"mediacatalog/internal/jobs"
	"mediacatalog/internal/services"
)

// Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var jobCommands = map[string]string{
	"import-shows":     jobs.TypeImportShows,
	"import-movies":    jobs.TypeImportMovies,
	"refresh-ratings":  jobs.TypeRefreshRatings,
	"validate-sources": jobs.TypeValidateSources,
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: catalogctl [-sync] [-config <file>] <command> [args]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  import-shows | import-movies | refresh-ratings | validate-sources")
	fmt.Fprintln(os.Stderr, "  stats                 print row counts per catalog table")
	fmt.Fprintln(os.Stderr, "  delete-movie <id>     remove a movie and its sources")
	fmt.Fprintln(os.Stderr, "  delete-show <id>      remove a show with its seasons, episodes and sources")
	fmt.Fprintln(os.Stderr, "")
	flag.PrintDefaults()
}

func main() {
	sync := flag.Bool("sync", false, "Run the task in this process instead of enqueueing it")
	configPath := flag.String("config", "", "Path to config file (defaults to ./config.yaml)")
	flag.Usage = usage
	flag.Parse()

	os.Exit(run(*configPath, *sync, flag.Args()))
}

// run executes one command and returns the process exit code. Everything it
// opens is closed before it returns.
func run(configPath string, sync bool, args []string) int {
	if len(args) < 1 {
		usage()
		return exitUsage
	}
	command := args[0]

	_, isJob := jobCommands[command]
	switch {
	case isJob, command == "stats":
		if len(args) != 1 {
			usage()
			return exitUsage
		}
	case command == "delete-movie", command == "delete-show":
		if len(args) != 2 {
			usage()
			return exitUsage
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		usage()
		return exitUsage
	}

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	tracer, err := app.InitTracing(context.Background(), cfg, "catalogctl")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	defer app.ShutdownTracing(tracer)

	dbManager, err := app.OpenDatabase(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		return exitError
	}
	defer dbManager.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := services.NewRepository(dbManager.GetGormDB())

	switch command {
	case "stats":
		err = printStats(ctx, repo)
	case "delete-movie", "delete-show":
		err = deleteTitle(ctx, repo, command, args[1])
	default:
		err = runJob(ctx, cfg, dbManager, jobCommands[command], sync)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

func runJob(ctx context.Context, cfg *config.AppConfig, dbManager *database.DatabaseManager, taskType string, sync bool) error {
	dispatcher := jobs.NewDispatcher(jobs.RedisOpt(cfg.Redis), cfg.Worker.Queue)
	defer dispatcher.Close()

	result, err := jobs.DispatchOrRun(ctx, dispatcher, app.NewRunner(cfg, dbManager.GetGormDB()), taskType, jobs.TriggerManual, sync)
	if result.OK() {
		fmt.Printf("Dispatched %s (task %s)\n", taskType, result.TaskID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("running %s: %w", taskType, err)
	}
	fmt.Printf("Ran %s synchronously (%s)\n", taskType, result.Reason)
	return nil
}

func deleteTitle(ctx context.Context, repo *services.Repository, command, rawID string) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid id %q", rawID)
	}

	kind := "movie"
	if command == "delete-show" {
		kind = "show"
		err = repo.DeleteShow(ctx, id)
	} else {
		err = repo.DeleteMovie(ctx, id)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %s %d\n", kind, id)
	return nil
}

func printStats(ctx context.Context, repo *services.Repository) error {
	counts, err := repo.Counts(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-10s %d\n", name, counts[name])
	}
	return nil
}
