package smssvc

import (
	"context"
	"log"
	"os"
	"sync"

	"github.com/trezcool/ada/core"
)

type consoleService struct {
	from string
	out  *log.Logger
}

var _ core.SMSService = (*consoleService)(nil)

// NewConsoleService prints text messages to stdout instead of sending them.
func NewConsoleService(conf *core.Config) core.SMSService {
	return &consoleService{
		from: conf.Twilio.From,
		out:  log.New(os.Stdout, "SMS : ", log.LstdFlags),
	}
}

func (svc *consoleService) SendMessages(_ context.Context, messages ...*core.SMSMessage) error {
	for _, msg := range messages {
		if msg.To == "" || msg.Body == "" {
			continue
		}
		svc.out.Printf("From: %s\nTo: %s\n\n%s\n", svc.from, msg.To, msg.Body)
	}
	return nil
}

// ServiceMock records text messages instead of sending them.
type ServiceMock struct {
	mu   sync.Mutex
	sent []core.SMSMessage
	err  error
}

var _ core.SMSService = (*ServiceMock)(nil)

func NewServiceMock() *ServiceMock {
	return &ServiceMock{}
}

// FailWith makes every following send fail with `err` (nil to succeed again).
func (svc *ServiceMock) FailWith(err error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.err = err
}

func (svc *ServiceMock) SendMessages(_ context.Context, messages ...*core.SMSMessage) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.err != nil {
		return svc.err
	}
	for _, msg := range messages {
		if msg.To == "" || msg.Body == "" {
			continue
		}
		svc.sent = append(svc.sent, *msg)
	}
	return nil
}

func (svc *ServiceMock) SentMessages() []core.SMSMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.SMSMessage(nil), svc.sent...)
}

func (svc *ServiceMock) Reset() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sent = nil
	svc.err = nil
}
