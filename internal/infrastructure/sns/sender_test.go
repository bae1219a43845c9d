package sns

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func TestSendSMS(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.PhoneNumber) == "+15550100" && aws.ToString(in.Message) == "Your item was found"
	})).Return(&sns.PublishOutput{MessageId: aws.String("m1")}, nil)

	s := &Sender{client: pub}
	assert.NoError(t, s.SendSMS(context.Background(), "+15550100", "Your item was found"))
	pub.AssertExpectations(t)
}

func TestSendSMS_Error(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	err := (&Sender{client: pub}).SendSMS(context.Background(), "+15550100", "hi")
	assert.ErrorContains(t, err, "publish sms: throttled")
}
