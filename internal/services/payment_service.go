package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"pharmacy/internal/apperrors"
	"pharmacy/internal/metrics"
	"pharmacy/internal/models"
	"pharmacy/internal/notifications"
	"pharmacy/internal/repositories"
)

// TestCardNumber is the only card number accepted by the mock gateway.
const TestCardNumber = "4111111111111111"

const (
	cardBrand        = "MASTERCARD"
	transactionIDLen = 8
)

var cvvPattern = regexp.MustCompile(`^\d{3}$`)

// OrderAdvancer moves an order forward once its payment has settled.
type OrderAdvancer interface {
	MarkPaid(ctx context.Context, orderID string) (*models.Order, error)
}

// InitiatePaymentRequest carries the card details of a payment attempt.
type InitiatePaymentRequest struct {
	OrderID        string
	UserID         string
	CardNumber     string
	CardHolderName string
	ExpiryMonth    string
	ExpiryYear     string
	Cvv            string
}

// PaymentService validates card payments against the test card and settles them.
type PaymentService struct {
	paymentRepo repositories.PaymentRepository
	orderRepo   repositories.OrderRepository
	userRepo    repositories.UserRepository
	orders      OrderAdvancer
	sink        notifications.Sink
	log         *zap.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	paymentRepo repositories.PaymentRepository,
	orderRepo repositories.OrderRepository,
	userRepo repositories.UserRepository,
	orders OrderAdvancer,
	sink notifications.Sink,
	log *zap.Logger,
	m *metrics.Metrics,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		orders:      orders,
		sink:        sink,
		log:         log,
		metrics:     m,
		now:         time.Now,
	}
}

// InitiatePayment validates the card and records a PROCESSING payment for the full order total.
// The payer must own the order, the order must still await payment and carry no other active
// payment. Nothing is stored when any check fails.
func (s *PaymentService) InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (payment *models.Payment, err error) {
	ctx, span := startSpan(ctx, "payment.initiate",
		attribute.String("order.id", req.OrderID), attribute.String("user.id", req.UserID))
	defer endSpan(span, &err)

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	if err = s.validateCard(req); err != nil {
		s.metrics.PaymentOutcome("rejected")
		s.log.Info("payment rejected", zap.String("order_id", order.ID), zap.Error(err))
		return nil, err
	}

	if order.UserID != user.ID {
		return nil, fmt.Errorf("order %s, user %s: %w", order.ID, user.ID, apperrors.ErrOrderNotOwned)
	}
	if !order.Status.Payable() {
		return nil, fmt.Errorf("order %s is %s: %w", order.ID, order.Status, apperrors.ErrOrderNotPayable)
	}

	payment = &models.Payment{
		ID:                 uuid.New().String(),
		OrderID:            order.ID,
		UserID:             user.ID,
		Amount:             order.TotalAmount,
		PaymentMethod:      cardBrand,
		Status:             models.PaymentStatusProcessing,
		TransactionID:      newTransactionID(),
		CardLastFourDigits: TestCardNumber[len(TestCardNumber)-4:],
	}
	if err = s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.metrics.PaymentOutcome("initiated")
	s.log.Info("payment initiated",
		zap.String("payment_id", payment.ID),
		zap.String("order_id", order.ID),
		zap.String("transaction_id", payment.TransactionID),
	)
	s.sink.Notify(ctx, notifications.NewEvent(user.ID, notifications.PaymentUpdate,
		"Payment Processing",
		fmt.Sprintf("Your payment of $%s is being processed.", payment.Amount.StringFixed(2)),
		payment.ID))
	return payment, nil
}

func (s *PaymentService) validateCard(req InitiatePaymentRequest) error {
	number := strings.Join(strings.Fields(req.CardNumber), "")
	if number != TestCardNumber {
		return apperrors.ErrInvalidCardNumber
	}
	if !cvvPattern.MatchString(req.Cvv) {
		return apperrors.ErrInvalidCvv
	}
	if !expiryValid(req.ExpiryMonth, req.ExpiryYear, s.now()) {
		return apperrors.ErrCardExpired
	}
	return nil
}

// expiryValid reports whether (year, month) is not before the current month. Two-digit years
// are read as 20YY; unparsable or out-of-range values are treated as expired.
func expiryValid(month, year string, now time.Time) bool {
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil || m < 1 || m > 12 {
		return false
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y < 0 {
		return false
	}
	if y < 100 {
		y += 2000
	}
	if y != now.Year() {
		return y > now.Year()
	}
	return m >= int(now.Month())
}

func newTransactionID() string {
	return "TXN-" + strings.ToUpper(uuid.New().String()[:transactionIDLen])
}

// VerifyPayment settles a PROCESSING payment and moves its order to PROCESSING.
// A payment can be verified once; later calls fail with ErrPaymentNotProcessing. When the order
// can no longer be paid (cancelled in the meantime) the payment stays PROCESSING.
func (s *PaymentService) VerifyPayment(ctx context.Context, paymentID string) (payment *models.Payment, err error) {
	ctx, span := startSpan(ctx, "payment.verify", attribute.String("payment.id", paymentID))
	defer endSpan(span, &err)

	payment, err = s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusProcessing {
		s.metrics.PaymentOutcome("verify_rejected")
		return nil, fmt.Errorf("payment %s is %s: %w", payment.ID, payment.Status, apperrors.ErrPaymentNotProcessing)
	}

	applied, err := s.paymentRepo.TransitionStatus(ctx, payment.ID, models.PaymentStatusProcessing, models.PaymentStatusCompleted)
	if err != nil {
		return nil, err
	}
	if !applied {
		s.metrics.PaymentOutcome("verify_rejected")
		return nil, fmt.Errorf("payment %s: %w", payment.ID, apperrors.ErrPaymentNotProcessing)
	}
	payment.Status = models.PaymentStatusCompleted

	if _, err = s.orders.MarkPaid(ctx, payment.OrderID); err != nil {
		if _, rbErr := s.paymentRepo.TransitionStatus(context.WithoutCancel(ctx), payment.ID,
			models.PaymentStatusCompleted, models.PaymentStatusProcessing); rbErr != nil {
			s.log.Error("failed to revert payment status", zap.String("payment_id", payment.ID), zap.Error(rbErr))
		}
		return nil, err
	}

	s.metrics.PaymentOutcome("completed")
	s.log.Info("payment completed",
		zap.String("payment_id", payment.ID),
		zap.String("order_id", payment.OrderID),
		zap.String("transaction_id", payment.TransactionID),
	)
	s.sink.Notify(ctx, notifications.NewEvent(payment.UserID, notifications.PaymentUpdate,
		"Payment Successful",
		fmt.Sprintf("Your payment of $%s has been processed successfully. Transaction ID: %s",
			payment.Amount.StringFixed(2), payment.TransactionID),
		payment.ID))
	return payment, nil
}

// GetPayment retrieves a payment by its ID.
func (s *PaymentService) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	return s.paymentRepo.GetByID(ctx, id)
}

// GetPaymentHistory lists the payments of an existing user.
func (s *PaymentService) GetPaymentHistory(ctx context.Context, userID string) ([]models.Payment, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.paymentRepo.GetByUserID(ctx, userID)
}
