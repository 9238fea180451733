// Package mail reads the account inbox to resolve out-of-band sign-in links.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Message is the subset of an email the reader inspects.
type Message struct {
	ID      string
	Subject string
	Date    time.Time
	HTML    string
	Text    string
}

// Source returns the most recent message in the inbox.
type Source interface {
	Latest(ctx context.Context) (*Message, error)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Reader resolves the sign-in link from the newest matching message.
type Reader interface {
	FetchLatestMatching(ctx context.Context, subjectContains string, maxAge time.Duration) (string, error)
}

type InboxReader struct {
	source  Source
	clock   Clock
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewInboxReader paces source calls to requestsPerSec. A nil clock uses local time.
func NewInboxReader(source Source, clock Clock, requestsPerSec float64, log zerolog.Logger) *InboxReader {
	if clock == nil {
		clock = systemClock{}
	}
	limit := rate.Inf
	if requestsPerSec > 0 {
		limit = rate.Limit(requestsPerSec)
	}
	return &InboxReader{
		source:  source,
		clock:   clock,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// FetchLatestMatching inspects only the newest message: it must be younger
// than maxAge, carry subjectContains in its subject, and contain a link whose
// anchor text includes the same phrase.
func (r *InboxReader) FetchLatestMatching(ctx context.Context, subjectContains string, maxAge time.Duration) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}

	msg, err := r.source.Latest(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoMessages), errors.Is(err, ErrCredentialsUnavailable):
		return "", err
	default:
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	age := r.clock.Now().Sub(msg.Date)
	logger := r.log.With().Str("id", msg.ID).Str("subject", msg.Subject).Dur("age", age).Logger()

	if age > maxAge {
		logger.Info().Dur("max_age", maxAge).Msg("latest email is stale")
		return "", fmt.Errorf("%w: sent %s ago", ErrStaleMessage, age.Round(time.Second))
	}

	if !strings.Contains(msg.Subject, subjectContains) {
		logger.Info().Str("want", subjectContains).Msg("unrecognized subject in latest email")
		return "", fmt.Errorf("%w: %q", ErrSubjectMismatch, msg.Subject)
	}

	link, err := ExtractLink(msg, subjectContains)
	if err != nil {
		logger.Warn().Err(err).Msg("sign-in email has no usable link")
		return "", err
	}

	logger.Info().Msg("sign-in link found")
	return link, nil
}
