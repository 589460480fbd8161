package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anmoldairy/dairy/internal/config"
	"github.com/anmoldairy/dairy/internal/domain/ledger"
	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/service/commands"
	"github.com/anmoldairy/dairy/internal/service/reporting"
	client "github.com/anmoldairy/dairy/pkg/clients/whatsapp"
)

var (
	// ErrNoRecipient indicates there is no phone number to send to.
	ErrNoRecipient = errors.New("no recipient phone number")

	// ErrSendFailed wraps failures of the WhatsApp Cloud API.
	ErrSendFailed = errors.New("whatsapp send failed")
)

// MessagingService describes the operations the HTTP layer and scheduler can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
	NotifyBalance(ctx context.Context, farmerID int64) error
	SendReport(ctx context.Context, report models.DailyReport) error
}

// BalanceSource prepares balance summaries.
type BalanceSource interface {
	BalanceSMS(ctx context.Context, farmerID int64) (reporting.BalanceMessage, error)
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg        config.WhatsAppConfig
	client     client.Client
	dispatcher commands.Dispatcher
	balances   BalanceSource
	dairyName  string
	logger     *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, dispatcher commands.Dispatcher, balances BalanceSource, dairyName string, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:        cfg,
		client:     client,
		dispatcher: dispatcher,
		balances:   balances,
		dairyName:  dairyName,
		logger:     logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

const helpMessage = "Send BALANCE (or HISAB) for your account summary, or RATES for today's milk rates."

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}

	if s.cfg.VerifyToken == "" || verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}

	return challenge, nil
}

// HandleWebhook answers every inbound message of the payload. The first error is returned.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}

	return firstErr
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	text := extractMessageText(msg)
	if text == "" {
		return errors.New("empty message body")
	}

	cmd := models.ParseCommand(text)
	s.logger.Info("parsed inbound command",
		zap.String("from", msg.From),
		zap.String("command", string(cmd.Type)))

	reply, err := s.dispatcher.HandleCommand(ctx, cmd, msg.From)
	switch {
	case errors.Is(err, commands.ErrUnsupportedCommand):
		reply = helpMessage
	case errors.Is(err, commands.ErrUnknownSender):
		reply = fmt.Sprintf("This number is not registered with %s. Please contact the collection center.", s.dairyName)
	case err != nil:
		return fmt.Errorf("handle %s command: %w", cmd.Type, err)
	}

	return s.send(ctx, msg.From, reply)
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         internationalize(req.To),
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

// NotifyBalance sends the farmer their balance summary.
func (s *MetaWhatsAppService) NotifyBalance(ctx context.Context, farmerID int64) error {
	msg, err := s.balances.BalanceSMS(ctx, farmerID)
	if err != nil {
		return err
	}
	if msg.Phone == "" {
		return fmt.Errorf("farmer %d: %w", farmerID, ErrNoRecipient)
	}
	return s.send(ctx, msg.Phone, msg.Message)
}

// SendReport sends a daily report to the manager.
func (s *MetaWhatsAppService) SendReport(ctx context.Context, report models.DailyReport) error {
	if s.cfg.ManagerPhone == "" {
		return fmt.Errorf("manager: %w", ErrNoRecipient)
	}
	return s.send(ctx, s.cfg.ManagerPhone, s.dairyName+"\n"+reporting.FormatDailyReport(report))
}

func (s *MetaWhatsAppService) send(ctx context.Context, to, body string) error {
	return s.SendOutbound(ctx, models.OutboundMessageRequest{To: to, Message: body})
}

// internationalize prefixes bare 10 digit Indian numbers with the country code.
func internationalize(phone string) string {
	p := strings.TrimPrefix(ledger.CleanPhone(phone), "+")
	if len(p) == 10 {
		return "91" + p
	}
	return p
}

func extractMessageText(msg models.InboundMessage) string {
	if msg.Text != nil {
		return msg.Text.Body
	}

	if msg.Interactive != nil && msg.Interactive.ButtonReply != nil {
		return msg.Interactive.ButtonReply.ID
	}

	return ""
}
