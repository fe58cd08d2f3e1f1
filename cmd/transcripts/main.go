package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/laytan/transcripts/internal/backend"
	"github.com/laytan/transcripts/internal/command"
	"github.com/laytan/transcripts/internal/editor"
	"github.com/laytan/transcripts/internal/events"
	"github.com/laytan/transcripts/internal/render"
	"github.com/laytan/transcripts/internal/search"
	"github.com/laytan/transcripts/internal/store"
	"github.com/laytan/transcripts/internal/store/migrations"
	"github.com/laytan/transcripts/internal/transcripts"
	"github.com/laytan/transcripts/internal/tube"
	_ "github.com/lib/pq"
)

var (
	queries *store.Queries
	db      *sql.DB
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("[ERROR]: %v", err)
	}
}

// run returns instead of exiting so the deferred cleanup happens.
func run() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN]: loading .env: %v", err)
	}

	pgDsn := os.Getenv("POSTGRES_DSN")
	if pgDsn == "" {
		panic("POSTGRES_DSN environment variable must be set")
	}

	d, err := sql.Open("postgres", pgDsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer d.Close()

	if err := migrations.Up(d, "postgres"); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	db = d
	queries = store.New(db)

	ctx := context.Background()
	if len(os.Args) > 3 && os.Args[1] == "search" {
		componentID, query := os.Args[2], strings.Join(os.Args[3:], " ")
		results, err := search.Component(ctx, queries, componentID, query)
		if err != nil {
			return fmt.Errorf("searching %q: %w", componentID, err)
		}

		for _, r := range results {
			for _, at := range r.At {
				fmt.Printf("%s\t%s\t%s\n", r.Transcript.VideoID, r.Transcript.FileName, time.Duration(at)*time.Second)
			}
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx)
}

// serve runs the backend and editor until ctx is done.
func serve(ctx context.Context) error {
	addr := env("LISTEN_ADDR", ":8080")
	backendURL := env("BACKEND_URL", "http://localhost"+addr)
	reload := os.Getenv("TEMPLATES_RELOAD") == "true"

	var publisher events.Publisher = events.Nop{}
	if url := os.Getenv("AMQP_URL"); url != "" {
		p, err := events.NewAMQPPublisher(url)
		if err != nil {
			return fmt.Errorf("connecting to the message broker: %w", err)
		}
		defer p.Close()
		publisher = p
	}

	renderer, err := render.New(reload)
	if err != nil {
		return fmt.Errorf("loading status templates: %w", err)
	}

	client := &http.Client{Timeout: time.Minute}
	commands := &command.Client{BaseURL: backendURL, HTTP: client}

	app := fiber.New(fiber.Config{
		Views:       editor.Views(reload),
		ViewsLayout: "layout",
		BodyLimit:   int(backend.MaxFileSize) + 1<<20,
	})

	srv := &backend.Server{
		Db:      db,
		Queries: queries,
		Tube:    &tube.Client{HTTP: client},
		Events:  publisher,
	}
	srv.Register(app)

	ed := &editor.Editor{
		Service:    commands,
		Checker:    commands,
		Renderer:   renderer,
		Observer:   transcripts.LogObserver(log.Default()),
		BackendURL: backendURL,
		HTTP:       client,
	}
	ed.Register(app)

	go func() {
		<-ctx.Done()
		log.Printf("[INFO]: shutting down")
		if err := app.Shutdown(); err != nil {
			log.Printf("[WARN]: shutting down: %v", err)
		}
	}()

	log.Printf("[INFO]: listening on %s", addr)
	return app.Listen(addr)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
