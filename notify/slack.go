package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// SlackNotifier posts Block Kit messages to a Slack incoming webhook.
type SlackNotifier struct {
	WebhookURL string
	Channel    string
	Username   string
	Client     *http.Client
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL string, opts ...SlackOption) *SlackNotifier {
	n := &SlackNotifier{
		WebhookURL: webhookURL,
		Username:   "seedrepo",
		Client:     &http.Client{Timeout: postTimeout},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SlackOption configures SlackNotifier.
type SlackOption func(*SlackNotifier)

// WithSlackChannel sets the channel to post to.
func WithSlackChannel(channel string) SlackOption {
	return func(n *SlackNotifier) { n.Channel = channel }
}

// WithSlackUsername sets the bot username.
func WithSlackUsername(username string) SlackOption {
	return func(n *SlackNotifier) { n.Username = username }
}

// Notify implements Notifier.
func (n *SlackNotifier) Notify(ctx context.Context, event Event) error {
	msg := slackMessage{
		Text:     event.Summary(),
		Username: n.Username,
		Channel:  n.Channel,
		Blocks:   slackBlocks(event),
	}
	return postJSON(ctx, n.Client, n.WebhookURL, nil, msg)
}

func slackBlocks(event Event) []slackBlock {
	var blocks []slackBlock
	switch event.Type {
	case EventRunCompleted:
		headline := fmt.Sprintf(":white_check_mark: *%s* is ready", slackEscape(event.Run.Project))
		if event.Repo != nil {
			headline += fmt.Sprintf(": <%s|%s>", event.Repo.URL, slackEscape(event.Repo.FullName()))
		}
		blocks = append(blocks, section(headline))
		if event.Instructions != "" {
			blocks = append(blocks, section(slackEscape(event.Instructions)))
		}
	case EventRunFailed:
		blocks = append(blocks, section(fmt.Sprintf(":x: *%s* failed", slackEscape(event.Run.Project))))
		if f := event.Failure; f != nil {
			retry := "no"
			if f.Retryable {
				retry = "yes"
			}
			blocks = append(blocks, slackBlock{
				Type: "section",
				Fields: []slackText{
					mrkdwn("*Stage*\n" + orNone(f.Stage)),
					mrkdwn("*Kind*\n" + orNone(f.Kind)),
					mrkdwn("*Retryable*\n" + retry),
				},
			})
			text := slackEscape(f.Message)
			if f.Suggestion != "" {
				text += "\n" + slackEscape(f.Suggestion)
			}
			blocks = append(blocks, section(text))
		}
	default:
		blocks = append(blocks, section(fmt.Sprintf(":seedling: Seeding *%s*", slackEscape(event.Run.Project))))
	}
	return append(blocks, slackBlock{
		Type:     "context",
		Elements: []slackText{mrkdwn(fmt.Sprintf("Mode: %s | Run: %s", event.Run.Mode, event.Run.ID))},
	})
}

func section(text string) slackBlock {
	t := mrkdwn(text)
	return slackBlock{Type: "section", Text: &t}
}

func mrkdwn(text string) slackText {
	return slackText{Type: "mrkdwn", Text: text}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

var slackReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// slackEscape escapes the characters Slack treats as control sequences.
func slackEscape(s string) string {
	return slackReplacer.Replace(s)
}

type slackMessage struct {
	Text     string       `json:"text"`
	Username string       `json:"username,omitempty"`
	Channel  string       `json:"channel,omitempty"`
	Blocks   []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
