// Package observability records domain events to a JSONL log, derives
// throughput metrics from it, evaluates alert conditions over the current
// task lists and delivers alerts to Slack. It also builds the process-wide
// slog logger.
package observability
