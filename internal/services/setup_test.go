package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pharmacy/internal/metrics"
	"pharmacy/internal/models"
	"pharmacy/internal/notifications"
	"pharmacy/internal/repositories"
	"pharmacy/internal/services"
)

// MockSink is a mock implementation of notifications.Sink
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Notify(ctx context.Context, event notifications.Event) {
	m.Called(ctx, event)
}

// recordingSink keeps every event it receives.
type recordingSink struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (s *recordingSink) Notify(_ context.Context, event notifications.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) ofType(t notifications.EventType) []notifications.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notifications.Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// failingOrderRepository fails order creation and, optionally, status updates.
type failingOrderRepository struct {
	*repositories.MemoryOrderRepository
	failCreate bool
	failUpdate bool
}

var errStorage = errors.New("storage unavailable")

func (r *failingOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if r.failCreate {
		return errStorage
	}
	return r.MemoryOrderRepository.Create(ctx, order)
}

func (r *failingOrderRepository) UpdateStatusFrom(ctx context.Context, id string, from []models.OrderStatus, to models.OrderStatus) (bool, error) {
	if r.failUpdate {
		return false, errStorage
	}
	return r.MemoryOrderRepository.UpdateStatusFrom(ctx, id, from, to)
}

// interleavingOrderRepository runs afterRead once, right after the next order read, so a test can
// change the order between a service's read and its write.
type interleavingOrderRepository struct {
	*repositories.MemoryOrderRepository
	mu        sync.Mutex
	afterRead func()
}

func (r *interleavingOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	order, err := r.MemoryOrderRepository.GetByID(ctx, id)
	r.mu.Lock()
	hook := r.afterRead
	r.afterRead = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return order, err
}

func (r *interleavingOrderRepository) onNextRead(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterRead = fn
}

type fixture struct {
	products      *repositories.MemoryProductRepository
	orders        repositories.OrderRepository
	users         *repositories.MemoryUserRepository
	prescriptions *repositories.MemoryPrescriptionRepository
	payments      *repositories.MemoryPaymentRepository

	inventory      *services.InventoryService
	prescription   *services.PrescriptionService
	orderService   *services.OrderService
	paymentService *services.PaymentService

	sink    notifications.Sink
	metrics *metrics.Metrics

	customer   *models.User
	pharmacist *models.User
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, repositories.NewMemoryOrderRepository(), &recordingSink{})
}

func newFixtureWith(t *testing.T, orders repositories.OrderRepository, sink notifications.Sink) *fixture {
	t.Helper()
	log := zap.NewNop()
	f := &fixture{
		products:      repositories.NewMemoryProductRepository(),
		orders:        orders,
		users:         repositories.NewMemoryUserRepository(),
		prescriptions: repositories.NewMemoryPrescriptionRepository(),
		payments:      repositories.NewMemoryPaymentRepository(),
		sink:          sink,
		metrics:       metrics.New(prometheus.NewRegistry()),
	}
	f.inventory = services.NewInventoryService(f.products, log, f.metrics)
	f.prescription = services.NewPrescriptionService(f.prescriptions, f.users, f.sink, log)
	f.orderService = services.NewOrderService(f.orders, f.users, f.inventory, f.prescription, f.sink, log, f.metrics)
	f.paymentService = services.NewPaymentService(f.payments, f.orders, f.users, f.orderService, f.sink, log, f.metrics)

	ctx := context.Background()
	f.customer = &models.User{Name: "Carla Customer", Email: "carla@example.com", Role: models.RoleCustomer}
	require.NoError(t, f.users.Create(ctx, f.customer))
	f.pharmacist = &models.User{Name: "Pat Pharmacist", Email: "pat@example.com", Role: models.RolePharmacist}
	require.NoError(t, f.users.Create(ctx, f.pharmacist))
	return f
}

func (f *fixture) addProduct(t *testing.T, name string, stock int, price string, restricted bool) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:                 name,
		Price:                decimal.RequireFromString(price),
		StockQuantity:        stock,
		ReorderLevel:         10,
		PrescriptionRequired: restricted,
	}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func (f *fixture) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.products.GetByID(context.Background(), productID)
	require.NoError(t, err)
	return p.StockQuantity
}

// prescriptionWithStatus uploads a prescription for the customer and reviews it into status.
func (f *fixture) prescriptionWithStatus(t *testing.T, status models.PrescriptionStatus) string {
	t.Helper()
	ctx := context.Background()
	p, err := f.prescription.Upload(ctx, f.customer.ID, "rx.pdf", "Dr. House", "")
	require.NoError(t, err)
	switch status {
	case models.PrescriptionStatusApproved:
		_, err = f.prescription.Approve(ctx, p.ID, f.pharmacist.ID)
	case models.PrescriptionStatusRejected:
		_, err = f.prescription.Reject(ctx, p.ID, f.pharmacist.ID, "illegible")
	}
	require.NoError(t, err)
	return p.ID
}

func (f *fixture) placeOrder(t *testing.T, items ...services.OrderItemRequest) *models.Order {
	t.Helper()
	order, err := f.orderService.CreateOrder(context.Background(), services.CreateOrderRequest{
		UserID:          f.customer.ID,
		ShippingAddress: "1 Main St",
		PaymentMethod:   "CARD",
		Items:           items,
	})
	require.NoError(t, err)
	return order
}

func item(productID string, quantity int) services.OrderItemRequest {
	return services.OrderItemRequest{ProductID: productID, Quantity: quantity}
}

func ptr(s string) *string { return &s }
