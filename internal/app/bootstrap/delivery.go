package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/dohanimedicare/medicare-platform/internal/archive"
	appconfig "github.com/dohanimedicare/medicare-platform/internal/config"
	"github.com/dohanimedicare/medicare-platform/internal/events"
	"github.com/dohanimedicare/medicare-platform/internal/notify"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
)

// BuildEmailSender returns the sender selected by EMAIL_PROVIDER. A provider
// that cannot be built falls back to the logging stub so bookings still succeed.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger)
	}

	switch cfg.EmailProvider {
	case appconfig.EmailSendGrid:
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SenderEmail,
			FromName:  cfg.SenderName,
		}, logger); sender != nil {
			logger.Info("email provider: sendgrid", "from", cfg.SenderEmail)
			return sender
		}
		logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty; emails will be logged only")
	case appconfig.EmailSES:
		if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SenderEmail,
			FromName:  cfg.SenderName,
		}, logger); sender != nil {
			logger.Info("email provider: ses", "from", cfg.SenderEmail, "region", awsCfg.Region)
			return sender
		}
	case appconfig.EmailStub, "":
	default:
		logger.Warn("unknown email provider; emails will be logged only", "provider", cfg.EmailProvider)
	}
	return notify.NewStubEmailSender(logger)
}

// BuildPublisher returns an SQS publisher when EVENTS_QUEUE_URL is set and a
// logging publisher otherwise.
func BuildPublisher(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) events.Publisher {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.EventsQueueURL) == "" {
		return events.NewLogPublisher(logger)
	}
	logger.Info("events: publishing to sqs", "queue", cfg.EventsQueueURL)
	return events.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.EventsQueueURL)
}

// BuildArchive returns the S3 export archive, or nil when EXPORT_BUCKET is unset.
func BuildArchive(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) *archive.Store {
	if cfg == nil || strings.TrimSpace(cfg.ExportBucket) == "" {
		return nil
	}
	return archive.NewStore(s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	}), cfg.ExportBucket, logger)
}
