// Package notify publica o resultado de cada run: tópico SNS, fila RabbitMQ ou e-mail.
package notify

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
)

var ErrTopicNotFound = errors.New("sns topic arn not found")

type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier lê o ARN do tópico no Parameter Store a cada envio e publica nele.
type SNSNotifier struct {
	ssm       SSMAPI
	sns       SNSAPI
	parameter string
	logger    *zap.Logger
}

func NewSNSNotifier(ssmAPI SSMAPI, snsAPI SNSAPI, parameter string, logger *zap.Logger) *SNSNotifier {
	return &SNSNotifier{ssm: ssmAPI, sns: snsAPI, parameter: parameter, logger: logger}
}

// NewSNSNotifierFromConfig usa ssmRegion para o Parameter Store quando ele difere da região padrão.
func NewSNSNotifierFromConfig(cfg aws.Config, ssmRegion, parameter string, logger *zap.Logger) *SNSNotifier {
	ssmClient := ssm.NewFromConfig(cfg, func(o *ssm.Options) {
		if ssmRegion != "" {
			o.Region = ssmRegion
		}
	})
	return NewSNSNotifier(ssmClient, sns.NewFromConfig(cfg), parameter, logger)
}

func (n *SNSNotifier) TopicARN(ctx context.Context) (string, error) {
	out, err := n.ssm.GetParameter(ctx, &ssm.GetParameterInput{Name: aws.String(n.parameter)})
	if err != nil {
		return "", eris.Wrapf(err, "failed to retrieve parameter %s", n.parameter)
	}
	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return "", eris.Wrapf(ErrTopicNotFound, "parameter %s", n.parameter)
	}
	return aws.ToString(out.Parameter.Value), nil
}

func (n *SNSNotifier) Notify(ctx context.Context, report entity.RunReport) error {
	topicARN, err := n.TopicARN(ctx)
	if err != nil {
		return err
	}

	out, err := n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(topicARN),
		Subject:  aws.String(entity.NotificationSubject),
		Message:  aws.String(report.Text()),
	})
	if err != nil {
		return eris.Wrapf(err, "failed to publish to %s", topicARN)
	}

	n.logger.Info("sns notification sent",
		zap.String("topic_arn", topicARN),
		zap.String("message_id", aws.ToString(out.MessageId)),
	)
	return nil
}
