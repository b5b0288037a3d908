package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
)

type mockSSMAPI struct {
	getParameterFunc func(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

func (m *mockSSMAPI) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	if m.getParameterFunc != nil {
		return m.getParameterFunc(ctx, params, optFns...)
	}
	return nil, fmt.Errorf("GetParameter not implemented")
}

type mockSNSAPI struct {
	publishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *mockSNSAPI) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, params, optFns...)
	}
	return nil, fmt.Errorf("Publish not implemented")
}

func topicParameter(arn string) *mockSSMAPI {
	return &mockSSMAPI{
		getParameterFunc: func(_ context.Context, params *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
			if aws.ToString(params.Name) != "sns_topic_arn" {
				return nil, &types.ParameterNotFound{Message: aws.String("missing")}
			}
			return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String(arn)}}, nil
		},
	}
}

func TestSNSNotifierPublishesToResolvedTopic(t *testing.T) {
	var published *sns.PublishInput
	snsAPI := &mockSNSAPI{
		publishFunc: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			published = params
			return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
		},
	}
	n := NewSNSNotifier(topicParameter("arn:aws:sns:ap-southeast-2:123:etl"), snsAPI, "sns_topic_arn", zap.NewNop())

	err := n.Notify(context.Background(), entity.RunReport{RunID: "run-1", Outcome: entity.OutcomeSuccess, Message: "ETL process completed successfully"})
	require.NoError(t, err)

	require.NotNil(t, published)
	assert.Equal(t, "arn:aws:sns:ap-southeast-2:123:etl", aws.ToString(published.TopicArn))
	assert.Equal(t, "ETL Process Completed", aws.ToString(published.Subject))
	assert.Contains(t, aws.ToString(published.Message), "run_id: run-1")
}

func TestSNSNotifierMissingParameter(t *testing.T) {
	snsAPI := &mockSNSAPI{}
	n := NewSNSNotifier(topicParameter("arn"), snsAPI, "other_parameter", zap.NewNop())

	err := n.Notify(context.Background(), entity.RunReport{})

	var notFound *types.ParameterNotFound
	assert.True(t, errors.As(err, &notFound))
}

func TestSNSNotifierEmptyParameter(t *testing.T) {
	n := NewSNSNotifier(topicParameter(""), &mockSNSAPI{}, "sns_topic_arn", zap.NewNop())

	err := n.Notify(context.Background(), entity.RunReport{})
	assert.True(t, errors.Is(err, ErrTopicNotFound))
}

type recordingNotifier struct {
	err   error
	calls int
}

func (r *recordingNotifier) Notify(context.Context, entity.RunReport) error {
	r.calls++
	return r.err
}

func TestMultiNotifiesEveryoneAndJoinsErrors(t *testing.T) {
	boom := errors.New("smtp down")
	first, second, third := &recordingNotifier{}, &recordingNotifier{err: boom}, &recordingNotifier{}

	err := Multi{first, second, third}.Notify(context.Background(), entity.RunReport{})

	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 1, third.calls)
}

func TestMultiEmpty(t *testing.T) {
	assert.NoError(t, Multi{}.Notify(context.Background(), entity.RunReport{}))
}
