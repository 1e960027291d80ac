package smssvc

import (
	"context"

	"github.com/pkg/errors"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/ada/core"
)

type twilioService struct {
	client *twilio.RestClient
	from   string
}

var _ core.SMSService = (*twilioService)(nil)

func NewTwilioService(conf *core.Config) core.SMSService {
	return &twilioService{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: conf.Twilio.AccountSID,
			Password: conf.Twilio.AuthToken,
		}),
		from: conf.Twilio.From,
	}
}

func (svc *twilioService) SendMessages(ctx context.Context, messages ...*core.SMSMessage) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, msg := range messages {
		msg := msg
		if msg.To == "" || msg.Body == "" {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			params := &twilioApi.CreateMessageParams{}
			params.SetTo(msg.To)
			params.SetFrom(svc.from)
			params.SetBody(msg.Body)

			if _, err := svc.client.Api.CreateMessage(params); err != nil {
				return errors.Wrapf(err, "sending SMS to %s", msg.To)
			}
			return nil
		})
	}
	return g.Wait()
}
