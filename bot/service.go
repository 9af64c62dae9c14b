// Package bot implements the feeding commands shared by every front-end:
// matching a free-form food query against the catalog, recording the feeding
// in the ledger, and rendering the reply text. The Discord webhook handler
// and the Twitch chat listener both drive the same Service.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/onnwee/feedbot/food"
	"github.com/onnwee/feedbot/ledger"
	"github.com/onnwee/feedbot/telemetry"
)

// Service executes the bot's commands against the catalog and the ledger.
type Service struct {
	matcher *food.Matcher
	ledger  *ledger.Ledger
	now     func() time.Time
}

// NewService wires a Service over the given matcher and ledger.
func NewService(matcher *food.Matcher, lgr *ledger.Ledger) *Service {
	return &Service{matcher: matcher, ledger: lgr, now: time.Now}
}

// Foods returns the catalog size, for status reporting.
func (s *Service) Foods() int { return s.matcher.CatalogLen() }

// DiscordUserID prefixes a Discord snowflake for the shared ledger keyspace.
func DiscordUserID(id string) string { return "discord:" + id }

// TwitchUserID prefixes a Twitch user id for the shared ledger keyspace.
func TwitchUserID(id string) string { return "twitch:" + id }

// Feeding is the outcome of a successful eat or feed: the catalog entry that
// matched and the recipient's updated record.
type Feeding struct {
	Food   food.Entry
	Record ledger.Record
}

// Feed matches query against the catalog and credits the matched food to
// recipientID. Returns food.ErrNotFound (wrapped) when nothing matches.
func (s *Service) Feed(ctx context.Context, recipientID, query string) (Feeding, error) {
	entry, err := s.matcher.Match(query)
	if err != nil {
		telemetry.IncMatchMiss()
		return Feeding{}, fmt.Errorf("match %q: %w", query, err)
	}
	rec, err := s.ledger.RecordFeeding(ctx, recipientID, entry, s.now())
	if err != nil {
		return Feeding{}, err
	}
	telemetry.IncFeeding()
	return Feeding{Food: entry, Record: rec}, nil
}

// Stats returns the user's record, or ledger.ErrNotFound (wrapped) when the
// user has never been fed.
func (s *Service) Stats(ctx context.Context, userID string) (ledger.Record, error) {
	return s.ledger.Stats(ctx, userID)
}

// Reply rendering ------------------------------------------------------------

// FoodNotFoundReply renders the miss message, echoing the query as typed.
func FoodNotFoundReply(query string) string {
	return fmt.Sprintf("Could not find %s in my food database", query)
}

// UserNotFoundReply renders the missing-user message.
func UserNotFoundReply(display string) string {
	return fmt.Sprintf("Could not find %s in my user database", display)
}

// FeedingReply renders the feeding announcement. Self-feeds read differently
// from gifts.
func FeedingReply(f Feeding, feederName, feedeeName string, self bool) string {
	var title, sub string
	if self {
		title = fmt.Sprintf("You had a %s!", f.Food.Name)
		sub = fmt.Sprintf("%s just had a %s!", feedeeName, f.Food.Name)
	} else {
		title = fmt.Sprintf("You were given a %s!", f.Food.Name)
		sub = fmt.Sprintf("%s was given a %s by %s!", feedeeName, f.Food.Name, feederName)
	}
	return fmt.Sprintf("%s\n+ %d calories!\n%s\nReady for more in 0 seconds", title, f.Food.Calories, sub)
}

// StatsReply renders a user's totals and account age in whole days.
func StatsReply(display string, rec ledger.Record, now time.Time) string {
	days := int(now.UTC().Sub(rec.Created) / (24 * time.Hour))
	return fmt.Sprintf("User statistics for %s\nTotal calories: %d\nDays since joining: %d", display, rec.Calories, days)
}
