package search

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/laytan/transcripts/internal/stem"
	"github.com/laytan/transcripts/internal/store"
	"golang.org/x/sync/errgroup"
)

var (
	SearchRoutines = 20
	MaxResults     = 100
)

type Result struct {
	Transcript store.Transcript
	// At holds the start, in seconds, of every cue the query matched in.
	At []int
}

// Component searches the transcripts of the component for the query.
// The results keep the order of the database, by video and file name.
func Component(ctx context.Context, queries *store.Queries, componentID, query string) ([]Result, error) {
	// Optimistic matches, the words have to be in order and can not span cues.
	transcripts, err := queries.SearchTranscripts(ctx, componentID, stem.Words(query))
	if err != nil {
		return nil, fmt.Errorf("retrieving component transcripts: %w", err)
	}

	log.Printf("[INFO]: searching through %d optimistic transcript matches", len(transcripts))
	matches := make([][]int, len(transcripts))
	var group errgroup.Group
	group.SetLimit(SearchRoutines)
	for i, t := range transcripts {
		i, t := i, t
		group.Go(func() error {
			at, err := Transcript(t.Searchable, query)
			if err != nil {
				return fmt.Errorf("searching %q: %w", t.ID, err)
			}

			matches[i] = at
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("iterating transcripts: %w", err)
	}

	res := make([]Result, 0, len(transcripts))
	for i, t := range transcripts {
		if len(matches[i]) == 0 {
			continue
		}

		res = append(res, Result{Transcript: t, At: matches[i]})
	}

	log.Printf("[INFO]: there were %d actual transcript matches, capping to %d", len(res), MaxResults)
	if len(res) > MaxResults {
		res = res[:MaxResults]
	}

	return res, nil
}

// Transcript searches for the query inside a searchable transcript (see store.Searchable).
// Returning the start seconds of the matching cues.
//
// This is done in O(n) time where n is the length of the searchable transcript.
//
// The query and the transcript are stemmed using the stem package, so different "styles" of the same word
// will match.
//
// If the match is on the boundary of a cue (so part is in cue 1 and the other part in 2),
// the second cue's start is returned.
func Transcript(searchable, query string) (res []int, err error) {
	runes := []rune(stem.Line(query))
	if len(runes) == 0 {
		return nil, nil
	}

	var inMeta bool
	var matching int
	var metaStart int
	var metaEnd int
	for i, ch := range searchable {
		if ch == '~' {
			if inMeta {
				inMeta = false
				metaEnd = i
			} else {
				inMeta = true
				metaStart = i + 1
			}
			continue
		}

		if inMeta {
			continue
		}

		if runes[matching] != ch {
			matching = 0
		}
		if runes[matching] != ch {
			continue
		}

		matching++
		if matching < len(runes) {
			continue
		}

		at, err := strconv.Atoi(searchable[metaStart:metaEnd])
		if err != nil {
			return nil, fmt.Errorf("could not parse cue start: %w", err)
		}

		if len(res) == 0 || res[len(res)-1] != at {
			res = append(res, at)
		}
		matching = 0
	}

	return res, nil
}
