package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anmoldairy/dairy/internal/domain/ledger"
	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/domain/payment"
	"github.com/anmoldairy/dairy/internal/repository"
)

// ErrUnsupportedCommand indicates we do not support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

// ErrUnknownSender indicates the sender's number does not belong to any farmer.
var ErrUnknownSender = errors.New("sender is not a registered farmer")

// FarmerDirectory resolves a WhatsApp sender to a farmer.
type FarmerDirectory interface {
	FindFarmerByPhone(ctx context.Context, phone string) (models.Farmer, error)
	GetRates(ctx context.Context) (models.Rates, error)
}

// StatementSource builds the farmer's account statement.
type StatementSource interface {
	Statement(ctx context.Context, farmerID int64) (ledger.Statement, error)
}

// Dispatcher answers parsed commands.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	farmers    FarmerDirectory
	statements StatementSource
	portalURL  string
	loc        *time.Location
	logger     *zap.Logger
}

// NewService constructs a command dispatcher.
func NewService(farmers FarmerDirectory, statements StatementSource, portalURL string, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		farmers:    farmers,
		statements: statements,
		portalURL:  portalURL,
		loc:        loc,
		logger:     logger,
	}
}

// HandleCommand executes cmd on behalf of sender and returns the reply text.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandBalance:
		farmer, err := s.farmers.FindFarmerByPhone(ctx, sender)
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUnknownSender
		}
		if err != nil {
			return "", fmt.Errorf("resolve sender: %w", err)
		}
		st, err := s.statements.Statement(ctx, farmer.CustomerID)
		if err != nil {
			return "", err
		}
		return ledger.SMSSummary(st.Farmer, st.Balance, st.Transactions, s.portalURL, s.loc), nil
	case models.CommandRates:
		rates, err := s.farmers.GetRates(ctx)
		if err != nil {
			return "", fmt.Errorf("load rates: %w", err)
		}
		return RatesMessage(rates), nil
	default:
		return "", ErrUnsupportedCommand
	}
}

// RatesMessage renders the current per-kg rates.
func RatesMessage(rates models.Rates) string {
	var b strings.Builder
	b.WriteString("Current rates\n")
	fmt.Fprintf(&b, "VLC: %s/kg\n", payment.FormatCurrency(rates.VLC))
	fmt.Fprintf(&b, "Thekadari: %s/kg", payment.FormatCurrency(rates.Thekadari))
	return b.String()
}
