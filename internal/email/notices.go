package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dunkinducks/courtside/internal/models"
)

const noticeTimeout = 5 * time.Second

// Notifier delivers registration and waitlist notices over email. It
// satisfies ledger.Notifier; sends happen asynchronously on detached
// contexts so a slow SES call never holds a request or a transaction.
type Notifier struct {
	sender EmailSender
}

func NewNotifier(sender EmailSender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) RegistrationConfirmed(ctx context.Context, player models.Player, game models.Game) {
	subject := fmt.Sprintf("You're in: %s", game.Title)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour spot for %s on %s at %s is confirmed.%s\n\nSee you on the court!\nDunkin' Ducks",
		player.FullName,
		game.Title,
		game.GameDate.Format("Mon, 2 Jan 2006 15:04"),
		game.Location,
		feeLine(game),
	)
	n.dispatch(ctx, player, subject, body)
}

func (n *Notifier) WaitlistJoined(ctx context.Context, player models.Player, game models.Game, entry models.WaitlistEntry) {
	subject := fmt.Sprintf("Waitlisted for %s", game.Title)
	body := fmt.Sprintf(
		"Hi %s,\n\n%s is currently full. You're number %d on the waitlist - we'll email you the moment a spot opens up.\n\nDunkin' Ducks",
		player.FullName,
		game.Title,
		entry.Position,
	)
	n.dispatch(ctx, player, subject, body)
}

func (n *Notifier) WaitlistPromoted(ctx context.Context, player models.Player, game models.Game) {
	subject := fmt.Sprintf("A spot opened up: %s", game.Title)
	body := fmt.Sprintf(
		"Hi %s,\n\nGood news - a spot opened up for %s on %s and it's yours. Your registration is confirmed.%s\n\nDunkin' Ducks",
		player.FullName,
		game.Title,
		game.GameDate.Format("Mon, 2 Jan 2006 15:04"),
		feeLine(game),
	)
	n.dispatch(ctx, player, subject, body)
}

func (n *Notifier) dispatch(ctx context.Context, player models.Player, subject, body string) {
	if n == nil || n.sender == nil {
		return
	}
	recipient := strings.TrimSpace(player.Email)
	if recipient == "" {
		return
	}

	go func() {
		sendCtx, cancel := noticeContext(ctx, noticeTimeout)
		defer cancel()
		if err := n.sender.Send(sendCtx, recipient, subject, body); err != nil {
			log.Error().Err(err).Str("recipient", recipient).Str("subject", subject).Msg("Failed to send notice")
		}
	}()
}

func feeLine(game models.Game) string {
	if game.JoiningFeeCents == 0 {
		return ""
	}
	return fmt.Sprintf("\n\nJoining fee: $%.2f (payable at the court or via the app).", float64(game.JoiningFeeCents)/100)
}
