// Package notify announces seeding runs.
//
// Events are built with RunStarted, RunCompleted and RunFailed. A completed
// event carries the repository link and the follow-up instructions as both
// markdown and HTML; a failed event carries the stage and failure kind the
// orchestrator reported and whether a retry may help.
//
// Implementations:
//   - LogNotifier: Logs events with slog
//   - WebhookNotifier: POSTs the event and a text summary as JSON
//   - SlackNotifier: Posts Block Kit messages to an incoming webhook
//   - MultiNotifier: Fans out to several notifiers concurrently
//   - NopNotifier: Discards everything
//
// Example usage:
//
//	notifier := notify.New(logger, cfg.WebhookURL, cfg.SlackWebhookURL)
//	event, err := notify.RunCompleted(notify.Run{ID: runID, Mode: "full", Project: name}, result)
//	err = notifier.Notify(ctx, event)
package notify
