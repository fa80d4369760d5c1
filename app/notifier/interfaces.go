package notifier

import (
	"context"

	"github.com/dmtral/aipulse/app/digest"
	"github.com/dmtral/aipulse/app/model"
)

// Notifier delivers rendered content to one chat platform. Send
// failures are per-channel: the orchestrator logs them and moves on,
// it never retries a channel within the same run.
type Notifier interface {
	Name() string
	SendItem(ctx context.Context, topic string, rec *model.Record) error
	SendDigest(ctx context.Context, topic string, dig *digest.Digest) error
}
