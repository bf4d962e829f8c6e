package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"subsplash-sync/internal/auth"
	"subsplash-sync/internal/config"
	"subsplash-sync/internal/event"
	"subsplash-sync/internal/export"
	"subsplash-sync/internal/extract"
	"subsplash-sync/internal/gcal"
	"subsplash-sync/internal/scrape"
	"subsplash-sync/internal/sync"
	"subsplash-sync/internal/web"

	"golang.org/x/oauth2"
)

func printHelp() {
	fmt.Fprintf(os.Stderr, `Subsplash Calendar Sync Tool

A one-way synchronization tool that scrapes events from a public Subsplash
calendar widget and syncs them into a Google Calendar. Events are extracted
from the rendered widget, normalized, and created in the target calendar
unless a matching event already exists there.

USAGE:
    %s [OPTIONS]

OPTIONS:
    -h, --help                    Show this help message and exit
    -v, --verbose                 Enable verbose output (include file/line in logs)
    --config FILE                 Path to JSON config file (required)
                                  Sources must be specified in the config file
    --source NAME                 Sync only the named source (optional)
                                  If not specified, syncs all configured sources
    --dry-run                     Reconcile and report, but do not write to the
                                  target calendar
    --export-ics FILE             Scrape and normalize only, writing the result
                                  as an iCalendar file instead of syncing.
                                  Does not require Google authentication
    --serve                       Run as an HTTP service exposing sync trigger
                                  and status endpoints instead of a one-shot run
    --google-credentials-path PATH Path to Google OAuth credentials JSON file
                                  (overrides config file and GOOGLE_CREDENTIALS_PATH env var)
    --token-path PATH             Path to store the OAuth token
                                  (overrides config file and GOOGLE_TOKEN_PATH env var)
    --default-location LOCATION   Location applied to events from sources that
                                  do not set their own
                                  (overrides config file and DEFAULT_LOCATION env var)
    --listen-addr ADDR            Address for --serve mode, default ":8080"
                                  (overrides config file and LISTEN_ADDR env var)

CONFIGURATION PRECEDENCE (highest to lowest):
    1. Command-line flags
    2. Environment variables (GOOGLE_CREDENTIALS_PATH, GOOGLE_TOKEN_PATH, DEFAULT_LOCATION, LISTEN_ADDR, MAX_MONTHS_TO_CHECK)
    3. Config file (--config)
    4. Defaults

CONFIG FILE:
    Settings are specified in a JSON config file. The sources array is
    required and must contain at least one source. Example:
    {
      "google_credentials_path": "/path/to/credentials.json",
      "token_path": "/path/to/token.json",
      "default_location": "123 Main St, Springfield",
      "update_on_match": false,
      "max_months": 6,
      "max_empty_months": 3,
      "sources": [
        {
          "name": "Main Campus",
          "url": "https://example.subsplash.com/calendar",
          "calendar_id": "primary"
        },
        {
          "name": "Youth",
          "url": "https://example.subsplash.com/youth-calendar",
          "calendar_id": "abc123@group.calendar.google.com",
          "location": "Youth Hall"
        }
      ]
    }

    The Google credentials JSON file should be in the format downloaded from
    Google Cloud Console. It should contain either an "installed" or "web"
    section with "client_id" and "client_secret" fields.

ENVIRONMENT VARIABLES:
    Some settings can be provided via environment variables:
        GOOGLE_CREDENTIALS_PATH   Path to Google OAuth credentials JSON file
        GOOGLE_TOKEN_PATH         Path to store the OAuth token
        DEFAULT_LOCATION          Default event location
        LISTEN_ADDR               Address for --serve mode
        MAX_MONTHS_TO_CHECK       How many month views to scan per source (default: 6)

    Note: Source configuration must be specified in the config file.

DESCRIPTION:
    This tool renders each configured widget page in headless Chromium,
    walking forward month by month until max_months views have been scanned
    or max_empty_months consecutive views held no events. Each rendered
    event is classified, parsed and normalized into a canonical event, then
    reconciled against the target Google Calendar:
    - An event whose title and start already exist in the calendar (within
      a 5 minute tolerance for timed events) is skipped, or updated in
      place when update_on_match is set
    - Everything else is created, with notifications suppressed

    Events scraped from the widget carry Eastern wall-clock times; the tool
    applies the US daylight-saving offset when converting them, so created
    events land at the advertised local time year round.

    Authentication uses OAuth 2.0; you'll be prompted on first run and the
    token is stored at token_path for subsequent runs.

EXAMPLES:
    # Sync all configured sources
    %s --config /path/to/config.json

    # Sync only one source
    %s --config /path/to/config.json --source "Main Campus"

    # See what a run would do without writing anything
    %s --config /path/to/config.json --dry-run

    # Export the scraped events as an .ics file (no Google account needed)
    %s --config /path/to/config.json --export-ics events.ics

    # Run as a service with trigger/status endpoints
    %s --config /path/to/config.json --serve

    # Show help
    %s --help

`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	// Parse command-line flags
	helpFlag := flag.Bool("help", false, "Show help message")
	helpFlagShort := flag.Bool("h", false, "Show help message (shorthand)")
	verboseFlag := flag.Bool("verbose", false, "Enable verbose output")
	verboseFlagShort := flag.Bool("v", false, "Enable verbose output (shorthand)")
	configFile := flag.String("config", "", "Path to JSON config file (required)")
	sourceName := flag.String("source", "", "Sync only the named source (optional)")
	dryRun := flag.Bool("dry-run", false, "Reconcile and report without writing to the target calendar")
	exportPath := flag.String("export-ics", "", "Write scraped events to an iCalendar file instead of syncing")
	serve := flag.Bool("serve", false, "Run as an HTTP service instead of a one-shot sync")
	googleCredentialsPath := flag.String("google-credentials-path", "", "Path to Google OAuth credentials JSON file (overrides config file and GOOGLE_CREDENTIALS_PATH env var)")
	tokenPath := flag.String("token-path", "", "Path to store the OAuth token (overrides config file and GOOGLE_TOKEN_PATH env var)")
	defaultLocation := flag.String("default-location", "", "Default event location (overrides config file and DEFAULT_LOCATION env var)")
	listenAddr := flag.String("listen-addr", "", "Address for --serve mode (overrides config file and LISTEN_ADDR env var)")
	flag.Parse()

	// Show help if requested
	if *helpFlag || *helpFlagShort {
		printHelp()
		os.Exit(0)
	}

	// Set up logging
	if *verboseFlag || *verboseFlagShort {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	ctx := context.Background()

	// Load configuration (precedence: flags > env vars > config file > defaults)
	if *configFile == "" {
		log.Fatalf("--config FILE is required. Use --help for more information.")
	}
	cfg, err := config.LoadConfig(*configFile, config.Flags{
		GoogleCredentialsPath: *googleCredentialsPath,
		TokenPath:             *tokenPath,
		DefaultLocation:       *defaultLocation,
		ListenAddr:            *listenAddr,
	})
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Narrow to a single source if requested
	if *sourceName != "" {
		src, ok := cfg.SourceByName(*sourceName)
		if !ok {
			log.Fatalf("Source %q not found in config. Available sources: %v", *sourceName, sourceNames(cfg.Sources))
		}
		cfg.Sources = []config.Source{src}
		log.Printf("Syncing only source: %s", *sourceName)
	}

	scraper := scrape.NewScraper()
	scraper.Timeout = time.Duration(cfg.BrowserTimeoutSeconds) * time.Second
	scraper.MaxMonths = cfg.MaxMonths
	scraper.MaxEmptyMonths = cfg.MaxEmptyMonths

	// Export mode scrapes and normalizes without touching Google at all.
	if *exportPath != "" {
		if err := runExport(ctx, cfg, scraper, *exportPath); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		return
	}

	target, err := authenticatedTarget(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to authenticate: %v", err)
	}

	syncer := sync.NewSyncer(scraper, target, cfg)
	syncer.DryRun = *dryRun

	if *serve {
		server := web.NewServer(syncer, cfg)
		log.Printf("Listening on %s", cfg.ListenAddr)
		log.Fatal(server.Start(cfg.ListenAddr))
	}

	summaries := syncer.SyncAll(ctx)
	failed := false
	for _, s := range summaries {
		if s.Error != "" {
			failed = true
			log.Printf("[%s] sync failed: %s", s.Source, s.Error)
		}
	}
	if failed {
		os.Exit(1)
	}
}

// authenticatedTarget runs the OAuth flow and builds the Google Calendar
// client the sync engine writes to.
func authenticatedTarget(ctx context.Context, cfg *config.Config) (*gcal.Client, error) {
	clientID, clientSecret, err := auth.LoadGoogleCredentials(cfg.GoogleCredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load Google credentials: %w", err)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "http://127.0.0.1:8080", // Will be updated dynamically by auth flow
		Scopes: []string{
			"https://www.googleapis.com/auth/calendar",
			"https://www.googleapis.com/auth/calendar.events",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}

	tokenStore := auth.NewFileTokenStore(cfg.TokenPath)
	httpClient, err := auth.GetAuthenticatedClient(ctx, oauthConfig, tokenStore)
	if err != nil {
		return nil, err
	}

	return gcal.NewClient(ctx, httpClient)
}

// runExport scrapes every configured source and writes the combined
// normalized batch as an .ics file.
func runExport(ctx context.Context, cfg *config.Config, scraper *scrape.Scraper, path string) error {
	var events []event.CanonicalEvent
	for _, src := range cfg.Sources {
		log.Printf("[%s] scraping %s", src.Name, src.URL)
		frags, err := scraper.Fetch(ctx, src.URL)
		if err != nil {
			return fmt.Errorf("source %q: %w", src.Name, err)
		}
		normalizer := &extract.Normalizer{DefaultLocation: cfg.LocationFor(src)}
		events = append(events, normalizer.NormalizeBatch(frags)...)
	}

	if err := export.WriteFile(path, events); err != nil {
		return err
	}
	log.Printf("Wrote %d events to %s", len(events), path)
	return nil
}

func sourceNames(sources []config.Source) []string {
	names := make([]string, 0, len(sources))
	for _, src := range sources {
		names = append(names, src.Name)
	}
	return names
}
