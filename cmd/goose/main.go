// See: https://github.com/pressly/goose/blob/master/examples/go-migrations/main.go

package main

import (
	"flag"
	"log"
	"os"

	"github.com/laytan/transcripts/internal/store/migrations"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

var (
	flags  = flag.NewFlagSet("goose", flag.ExitOnError)
	driver = flags.String("driver", "postgres", "database driver, postgres or sqlite3")
)

func main() {
	flags.Parse(os.Args[1:])
	args := flags.Args()

	if len(args) < 2 {
		flags.Usage()
		return
	}

	dbstring, command := args[0], args[1]

	db, err := goose.OpenDBWithDriver(*driver, dbstring)
	if err != nil {
		log.Fatalf("goose: failed to open DB: %v\n", err)
	}

	defer func() {
		if err := db.Close(); err != nil {
			log.Fatalf("goose: failed to close DB: %v\n", err)
		}
	}()

	arguments := []string{}
	if len(args) > 2 {
		arguments = append(arguments, args[2:]...)
	}

	// The Go migrations register themselves, the SQL ones are embedded.
	goose.SetBaseFS(migrations.FS)
	if err := goose.Run(command, db, ".", arguments...); err != nil {
		log.Fatalf("goose %v: %v", command, err)
	}
}
