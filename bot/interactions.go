package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/onnwee/feedbot/discordapi"
	"github.com/onnwee/feedbot/food"
	"github.com/onnwee/feedbot/ledger"
	"github.com/onnwee/feedbot/telemetry"
)

const fallbackReply = "Something went wrong, try again later"

// HandleInteraction routes a verified webhook interaction to its command and
// renders the response. Pings are answered with a pong; anything the bot does
// not recognize gets a plain-text note rather than an error.
func (s *Service) HandleInteraction(ctx context.Context, in *discordapi.Interaction) discordapi.InteractionResponse {
	if in.Type == discordapi.InteractionPing {
		return discordapi.PongResponse()
	}
	if in.Type != discordapi.InteractionApplicationCommand || in.Data == nil {
		return discordapi.MessageResponse("Unsupported interaction")
	}

	telemetry.IncInteraction(in.Data.Name)
	switch in.Data.Name {
	case "eat":
		return s.handleEat(ctx, in)
	case "feed":
		return s.handleFeed(ctx, in)
	case "stats":
		return s.handleStats(ctx, in)
	default:
		return discordapi.MessageResponse(fmt.Sprintf("Unknown command %s", in.Data.Name))
	}
}

func (s *Service) handleEat(ctx context.Context, in *discordapi.Interaction) discordapi.InteractionResponse {
	sender := in.Sender()
	if sender == nil {
		return discordapi.MessageResponse(fallbackReply)
	}
	query, _ := in.Data.Option("food")

	f, err := s.Feed(ctx, DiscordUserID(sender.ID), query)
	if errors.Is(err, food.ErrNotFound) {
		return discordapi.MessageResponse(FoodNotFoundReply(query))
	}
	if err != nil {
		telemetry.LoggerWithCorr(ctx).Error("eat failed", slog.String("user", sender.ID), slog.Any("err", err))
		return discordapi.MessageResponse(fallbackReply)
	}

	name := in.SenderDisplayName()
	return discordapi.MessageResponse(FeedingReply(f, name, name, true))
}

func (s *Service) handleFeed(ctx context.Context, in *discordapi.Interaction) discordapi.InteractionResponse {
	sender := in.Sender()
	if sender == nil {
		return discordapi.MessageResponse(fallbackReply)
	}
	query, _ := in.Data.Option("food")
	targetID, ok := in.Data.Option("user")
	if !ok {
		return discordapi.MessageResponse(fallbackReply)
	}

	feedeeName := targetID
	if u, found := in.Data.ResolvedUser(targetID); found {
		feedeeName = u.DisplayName()
	}

	// The food goes to the chosen user, not the invoker.
	f, err := s.Feed(ctx, DiscordUserID(targetID), query)
	if errors.Is(err, food.ErrNotFound) {
		return discordapi.MessageResponse(FoodNotFoundReply(query))
	}
	if err != nil {
		telemetry.LoggerWithCorr(ctx).Error("feed failed", slog.String("user", targetID), slog.Any("err", err))
		return discordapi.MessageResponse(fallbackReply)
	}

	self := sender.ID == targetID
	return discordapi.MessageResponse(FeedingReply(f, in.SenderDisplayName(), feedeeName, self))
}

func (s *Service) handleStats(ctx context.Context, in *discordapi.Interaction) discordapi.InteractionResponse {
	sender := in.Sender()
	if sender == nil {
		return discordapi.MessageResponse(fallbackReply)
	}

	// Default to the invoker when no user option was given.
	id := sender.ID
	display := in.SenderDisplayName()
	if targetID, ok := in.Data.Option("user"); ok {
		id = targetID
		display = targetID
		if u, found := in.Data.ResolvedUser(targetID); found {
			display = u.DisplayName()
		}
	}

	rec, err := s.Stats(ctx, DiscordUserID(id))
	if errors.Is(err, ledger.ErrNotFound) {
		return discordapi.MessageResponse(UserNotFoundReply(display))
	}
	if err != nil {
		telemetry.LoggerWithCorr(ctx).Error("stats failed", slog.String("user", id), slog.Any("err", err))
		return discordapi.MessageResponse(fallbackReply)
	}
	return discordapi.MessageResponse(StatsReply(display, rec, s.now()))
}
