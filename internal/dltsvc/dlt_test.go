package dltsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoplite/order-saga/internal/logger"
	"github.com/shoplite/order-saga/internal/message"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&Record{}))
	log, _ := logger.NewLogger()
	return NewService(db, log), db
}

func TestDescribe(t *testing.T) {
	desc, err := Describe(message.ConfirmAvailability)
	assert.NoError(t, err)
	assert.Equal(t, "PRODUCT-SERVICE couldn't process CONFIRM_AVAILABILITY.", desc)

	desc, err = Describe(message.PaymentFailed)
	assert.NoError(t, err)
	assert.Equal(t, "ORDER-SAGA-ORCHESTRATOR couldn't process PAYMENT_FAILED.", desc)

	desc, err = Describe(message.CancelOrder)
	assert.NoError(t, err)
	assert.Equal(t, "ORDER-SERVICE couldn't process CANCEL_ORDER.", desc)

	_, err = Describe("NOT_A_MESSAGE")
	assert.Error(t, err)
}

func TestRegisterAndRetrieve(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	orderID := uuid.New()

	msg := message.NewCommand(message.ProcessPayment, orderID, &message.ProcessPaymentPayload{OrderID: orderID})
	assert.NoError(t, svc.Register(ctx, msg))

	var rec Record
	assert.NoError(t, db.First(&rec).Error)
	assert.Equal(t, msg.ID, rec.MessageID)
	assert.Equal(t, orderID, rec.CorrelationID)
	assert.Equal(t, "COMMAND: PROCESS_PAYMENT", rec.Type)
	assert.Equal(t, StatusUnresolved, rec.Status)
	assert.Equal(t, "PAYMENT-SERVICE couldn't process PROCESS_PAYMENT.", rec.Description)
	assert.NotNil(t, rec.Payload)

	dtos, err := svc.RetrieveAll(ctx)
	assert.NoError(t, err)
	assert.Len(t, dtos, 1)
	assert.Equal(t, msg.ID, dtos[0].MessageID)
	assert.Equal(t, rec.Description, dtos[0].Description)
}

func TestErrorsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	ctx := context.Background()
	orderID := uuid.New()
	assert.NoError(t, svc.Register(ctx, message.NewEvent(message.PaymentFailed, orderID, &message.PaymentFailedPayload{
		OrderID: orderID, Reason: "card declined",
	})))

	log, _ := logger.NewLogger()
	router := NewRouter(svc, log)

	req := httptest.NewRequest(http.MethodGet, "/api/errors", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var dtos []RecordDTO
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &dtos))
	assert.Len(t, dtos, 1)
	assert.Equal(t, "ORDER-SAGA-ORCHESTRATOR couldn't process PAYMENT_FAILED.", dtos[0].Description)
}
