package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/coursehub-system/internal/model"
	"github.com/mmeshcher/coursehub-system/internal/paypal"
	"github.com/mmeshcher/coursehub-system/internal/validation"
)

const checkoutCurrency = "USD"

// CreateOrder оформляет покупку курса: создаёт платёж у провайдера и
// сохраняет заказ в состоянии pending/created. При отказе провайдера заказ
// не создаётся. Возвращает адрес подтверждения оплаты покупателем.
func (s *Service) CreateOrder(ctx context.Context, o *model.Order) (string, error) {
	if o.UserID == 0 || o.CourseID == "" || o.PriceCents <= 0 {
		return "", fmt.Errorf("%w: userId, courseId and positive coursePricing are required", ErrInvalidCheckout)
	}
	if s.gateway == nil {
		return "", fmt.Errorf("payment gateway not configured")
	}

	total := validation.FormatPrice(o.PriceCents)

	created, err := s.gateway.CreatePayment(ctx, paypal.PaymentRequest{
		ItemName:    o.CourseTitle,
		ItemSKU:     o.CourseID,
		Total:       total,
		Currency:    checkoutCurrency,
		Description: o.CourseTitle,
		ReturnURL:   s.clientURL + "/payment-return",
		CancelURL:   s.clientURL + "/payment-cancel",
	})
	if err != nil {
		return "", err
	}

	o.ID = uuid.NewString()
	o.PaymentMethod = "paypal"
	o.PaymentStatus = model.PaymentStatusPending
	o.OrderStatus = model.OrderStatusCreated
	o.PaymentID = created.PaymentID
	o.OrderDate = time.Now().UTC()

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return "", err
	}

	return created.ApproveURL, nil
}

// CapturePayment исполняет подтверждённый покупателем платёж и завершает
// заказ. При отказе провайдера заказ остаётся в состоянии pending.
func (s *Service) CapturePayment(ctx context.Context, paymentID, payerID, orderID string) (*model.Order, error) {
	if paymentID == "" || payerID == "" || orderID == "" {
		return nil, fmt.Errorf("%w: paymentId, payerId and orderId are required", ErrInvalidCapture)
	}
	if s.gateway == nil {
		return nil, fmt.Errorf("payment gateway not configured")
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	total := validation.FormatPrice(order.PriceCents)

	if _, err := s.gateway.ExecutePayment(ctx, paymentID, payerID, total, checkoutCurrency); err != nil {
		return nil, err
	}

	return s.repo.FinalizeOrder(ctx, orderID, paymentID, payerID)
}
