package notify

import (
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/fx"

	"github.com/polkiloo/pixstore/internal/config"
)

// Module exposes the configured notifier to fx graph.
var Module = fx.Provide(newNotifier)

type notifierParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
	AWS    aws.Config
}

func newNotifier(p notifierParams) (Notifier, error) {
	switch p.Config.Notifier {
	case "", "log":
		return NewLogNotifier(p.Logger), nil
	case "smtp":
		return NewSMTPNotifier(p.Config.SMTPHost, p.Config.SMTPPort, p.Config.SMTPUser, p.Config.SMTPPass)
	case "sns":
		return NewSNSNotifier(sns.NewFromConfig(p.AWS), p.Config.SNSTopicARN)
	default:
		return nil, fmt.Errorf("unknown notifier %q", p.Config.Notifier)
	}
}
