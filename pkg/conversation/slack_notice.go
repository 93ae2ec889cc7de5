package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/docuchat/pkg/config"
	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/codeready-toolchain/docuchat/pkg/slack"
	goslack "github.com/slack-go/slack"
)

// SlackNotifier posts a best-effort operational notice whenever a user
// trips the Cost Guard ceiling, mirroring the teacher's nil-safe
// *slackService wiring (pkg/queue/worker.go's notifySlackStart/
// notifySlackTerminal): a nil or disabled notifier is a silent no-op, and
// a post failure is logged, never propagated — a Slack outage must never
// fail a chat request.
type SlackNotifier struct {
	client  *slack.Client
	timeout time.Duration
}

// NewSlackNotifier creates a SlackNotifier from cfg and the bot token read
// from the environment variable cfg names. Returns nil (a valid, inert
// notifier receiver) if cfg is disabled or the token is unset.
func NewSlackNotifier(cfg *config.SlackConfig, tokenEnv func(string) string) *SlackNotifier {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	token := tokenEnv(cfg.TokenEnv)
	if token == "" {
		slog.Warn("slack notifier disabled: token env var unset", "env", cfg.TokenEnv)
		return nil
	}
	return &SlackNotifier{
		client:  slack.NewClient(token, cfg.Channel),
		timeout: 5 * time.Second,
	}
}

// NotifyLimitExceeded posts a notice that userID tripped the cost ceiling.
// err is expected to be (or wrap) a *models.Error with Kind
// COST_LIMIT_EXCEEDED; any other error is ignored since this notifier only
// narrates that specific condition.
func (n *SlackNotifier) NotifyLimitExceeded(ctx context.Context, userID string, err error) {
	if n == nil || n.client == nil {
		return
	}
	var apiErr *models.Error
	if !errors.As(err, &apiErr) || apiErr.Kind != models.ErrKindCostLimitExceeded {
		return
	}

	text := fmt.Sprintf("User %s hit the cost ceiling (%.2f / %.2f)", userID, apiErr.Extra["user_cost"], apiErr.Extra["limit"])
	blocks := []goslack.Block{goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false), nil, nil)}
	if postErr := n.client.PostMessage(ctx, blocks, "", n.timeout); postErr != nil {
		slog.Error("slack notifier: post failed", "error", postErr)
	}
}
