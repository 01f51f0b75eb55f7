package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"pharmacy/internal/config"
	"pharmacy/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		AppPort:         ":0",
		StorageDriver:   config.DriverMemory,
		EventsBroker:    config.BrokerNone,
		JWTSecret:       "test_jwt_secret",
		AuthEnabled:     true,
		NotifyQueueSize: 16,
		NotifyWorkers:   1,
		LogLevel:        "info",
		SeedData:        true,
		ShutdownTimeout: time.Second,
	}
}

func startServer(t *testing.T, cfg *config.Config, log *zap.Logger) *server {
	t.Helper()
	srv, err := newServer(context.Background(), cfg, log, prometheus.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, srv.start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		assert.NoError(t, srv.shutdown(ctx))
	})
	return srv
}

func (s *server) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *server) tokenFor(t *testing.T, role models.Role) string {
	t.Helper()
	for i := range s.seeded {
		if s.seeded[i].Role == role {
			token, err := s.tokens.Issue(&s.seeded[i])
			require.NoError(t, err)
			return token
		}
	}
	t.Fatalf("no seeded user with role %s", role)
	return ""
}

func TestServerHealthAndMetrics(t *testing.T) {
	srv := startServer(t, testConfig(), zap.NewNop())

	resp := srv.get(t, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, config.DriverMemory, health["storage"])

	resp = srv.get(t, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "pharmacy_orders_created_total")
}

func TestServerSeedsCatalogAndGuardsRoutes(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := startServer(t, testConfig(), zap.New(core))

	assert.Len(t, logs.FilterMessage("development token").All(), 3)

	assert.Equal(t, http.StatusUnauthorized, srv.get(t, "/api/v1/products", "").StatusCode)

	customer := srv.tokenFor(t, models.RoleCustomer)
	resp := srv.get(t, "/api/v1/products", customer)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var products []models.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	assert.Len(t, products, 5)

	restricted := 0
	for _, p := range products {
		if p.PrescriptionRequired {
			restricted++
		}
	}
	assert.Equal(t, 2, restricted)

	assert.Equal(t, http.StatusForbidden, srv.get(t, "/api/v1/prescriptions/pending", customer).StatusCode)
	pharmacist := srv.tokenFor(t, models.RolePharmacist)
	assert.Equal(t, http.StatusOK, srv.get(t, "/api/v1/prescriptions/pending", pharmacist).StatusCode)

	resp = srv.get(t, "/api/v1/users/"+seedCustomerID+"/prescriptions", customer)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var prescriptions []models.Prescription
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&prescriptions))
	require.Len(t, prescriptions, 1)
	assert.Equal(t, models.PrescriptionStatusApproved, prescriptions[0].Status)
}

func TestServerWithoutAuth(t *testing.T) {
	cfg := testConfig()
	cfg.AuthEnabled = false
	cfg.SeedData = false
	srv := startServer(t, cfg, zap.NewNop())

	resp := srv.get(t, "/api/v1/orders", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = srv.get(t, "/api/v1/products", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var products []models.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	assert.Empty(t, products)
}

func TestServerWithSQLite(t *testing.T) {
	cfg := testConfig()
	cfg.StorageDriver = config.DriverSQLite
	cfg.DatabaseDSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	srv := startServer(t, cfg, zap.NewNop())

	products, err := srv.stores.products.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 5)

	again, err := seed(context.Background(), srv.stores, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, again, 3)
	products, err = srv.stores.products.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 5)
}

func TestServerWithKafkaBroker(t *testing.T) {
	cfg := testConfig()
	cfg.EventsBroker = config.BrokerKafka
	cfg.KafkaBrokers = []string{"localhost:9092"}
	cfg.KafkaTopic = "pharmacy.notifications"
	cfg.SeedData = false
	srv := startServer(t, cfg, zap.NewNop())

	assert.Nil(t, srv.rabbit)
	assert.Len(t, srv.closers, 1)
}

func TestNewServerRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.StorageDriver = "cassandra"
	_, err := newServer(context.Background(), cfg, zap.NewNop(), prometheus.NewRegistry())
	assert.Error(t, err)
}

func TestAuditNotification(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := &server{log: zap.New(core)}

	err := srv.auditNotification(amqp.Delivery{
		RoutingKey: "order.update",
		Body:       []byte(`{"id":"e1","user_id":"u1","type":"ORDER_UPDATE","reference":"o1"}`),
	})
	require.NoError(t, err)
	entries := logs.FilterMessage("notification received").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "order.update", entries[0].ContextMap()["routing_key"])

	assert.Error(t, srv.auditNotification(amqp.Delivery{Body: []byte("not json")}))
}
