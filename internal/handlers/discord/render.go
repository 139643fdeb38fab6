package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/rallyrank/rallyrank/internal/models"
	"github.com/rallyrank/rallyrank/internal/services/settlement"
)

// Embed colors
const (
	colorOK      = 0x00ff00
	colorError   = 0xff0000
	colorNeutral = 0xffcc00
)

// mentionList renders player IDs as Discord mentions
func mentionList(playerIDs []string) string {
	mentions := make([]string, 0, len(playerIDs))
	for _, id := range playerIDs {
		mentions = append(mentions, fmt.Sprintf("<@%s>", id))
	}
	return strings.Join(mentions, " ")
}

// kindLabel returns a display label for a match kind
func kindLabel(kind models.MatchKind) string {
	switch kind {
	case models.MatchKindSingles:
		return "Singles"
	case models.MatchKindDoubles:
		return "Doubles"
	default:
		return string(kind)
	}
}

// renderPendingEmbed announces a submitted result awaiting confirmation
func renderPendingEmbed(pending *models.PendingMatch, confirmWindow time.Duration) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s Result Reported", kindLabel(pending.Kind)),
		Description: fmt.Sprintf(
			"%s beat %s **%s**.\n\nAny player in this match can confirm. Unconfirmed results expire after %s.",
			mentionList(pending.WinnerIDs), mentionList(pending.LoserIDs), pending.Score,
			confirmWindow,
		),
		Color: colorNeutral,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Report #%d", pending.ID),
		},
	}
}

// renderSettledEmbed announces a confirmed, rated match
func renderSettledEmbed(out *settlement.ConfirmOutput) *discordgo.MessageEmbed {
	var ratings strings.Builder
	for _, id := range out.Match.WinnerIDs {
		fmt.Fprintf(&ratings, "<@%s>: **%d** (+%d)\n", id, out.WinnerRatings[id], out.Delta)
	}
	for _, id := range out.Match.LoserIDs {
		fmt.Fprintf(&ratings, "<@%s>: **%d** (-%d)\n", id, out.LoserRatings[id], out.Delta)
	}

	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s Match Settled", kindLabel(out.Match.Kind)),
		Description: fmt.Sprintf("%s beat %s **%s**.",
			mentionList(out.Match.WinnerIDs), mentionList(out.Match.LoserIDs), out.Match.Score),
		Color: colorOK,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "New Ratings",
				Value:  ratings.String(),
				Inline: false,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Match #%d", out.Match.ID),
		},
	}
}

// renderExpiredEmbed announces a report that expired unconfirmed
func renderExpiredEmbed(pending *models.PendingMatch) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Result Expired",
		Description: fmt.Sprintf(
			"The reported %s result %s vs %s (**%s**) was never confirmed and has been discarded. Ratings are unchanged.",
			strings.ToLower(kindLabel(pending.Kind)),
			mentionList(pending.WinnerIDs), mentionList(pending.LoserIDs), pending.Score,
		),
		Color: colorError,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Report #%d", pending.ID),
		},
	}
}

// renderLeaderboardEmbed renders the standings ordered by rating
func renderLeaderboardEmbed(entries []*models.LeaderboardEntry) *discordgo.MessageEmbed {
	if len(entries) == 0 {
		return &discordgo.MessageEmbed{
			Title:       "Leaderboard",
			Description: "Nobody has played yet.",
			Color:       colorNeutral,
		}
	}

	var rows strings.Builder
	for rank, entry := range entries {
		fmt.Fprintf(&rows, "**%d.** %s — %d (%d-%d)\n",
			rank+1, entry.Name, entry.Rating, entry.Wins, entry.Losses)
	}

	return &discordgo.MessageEmbed{
		Title:       "Leaderboard",
		Description: rows.String(),
		Color:       colorOK,
	}
}

// renderStatsEmbed renders one player's stats row
func renderStatsEmbed(stats *models.LeaderboardEntry) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Stats for %s", stats.Name),
		Color: colorOK,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Rating", Value: fmt.Sprintf("%d", stats.Rating), Inline: true},
			{Name: "Wins", Value: fmt.Sprintf("%d", stats.Wins), Inline: true},
			{Name: "Losses", Value: fmt.Sprintf("%d", stats.Losses), Inline: true},
		},
	}
}

// renderHistoryEmbed renders recent settled matches, most recent first
func renderHistoryEmbed(matches []*models.Match) *discordgo.MessageEmbed {
	if len(matches) == 0 {
		return &discordgo.MessageEmbed{
			Title:       "Match History",
			Description: "No settled matches yet.",
			Color:       colorNeutral,
		}
	}

	var rows strings.Builder
	for _, match := range matches {
		fmt.Fprintf(&rows, "**#%d** [%s] %s beat %s **%s** — %s\n",
			match.ID, kindLabel(match.Kind),
			mentionList(match.WinnerIDs), mentionList(match.LoserIDs),
			match.Score, match.SettledAt.Format("Jan 2 15:04"))
	}

	return &discordgo.MessageEmbed{
		Title:       "Match History",
		Description: rows.String(),
		Color:       colorOK,
	}
}
