package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/coursehub-system/internal/middleware"
	"github.com/mmeshcher/coursehub-system/internal/model"
	"github.com/mmeshcher/coursehub-system/internal/paypal"
	"github.com/mmeshcher/coursehub-system/internal/repository"
	"github.com/mmeshcher/coursehub-system/internal/service"
	"github.com/mmeshcher/coursehub-system/internal/validation"
)

type createOrderRequest struct {
	InstructorID   int64  `json:"instructorId"`
	InstructorName string `json:"instructorName"`
	CourseID       string `json:"courseId"`
	CourseTitle    string `json:"courseTitle"`
	CourseImage    string `json:"courseImage"`
	CoursePricing  string `json:"coursePricing"`
}

type orderResponse struct {
	ID             string `json:"id"`
	UserID         int64  `json:"userId"`
	UserName       string `json:"userName"`
	UserEmail      string `json:"userEmail"`
	InstructorID   int64  `json:"instructorId"`
	InstructorName string `json:"instructorName"`
	CourseID       string `json:"courseId"`
	CourseTitle    string `json:"courseTitle"`
	CourseImage    string `json:"courseImage"`
	CoursePricing  string `json:"coursePricing"`
	PaymentMethod  string `json:"paymentMethod"`
	PaymentStatus  string `json:"paymentStatus"`
	OrderStatus    string `json:"orderStatus"`
	PaymentID      string `json:"paymentId"`
	PayerID        string `json:"payerId"`
	OrderDate      string `json:"orderDate"`
}

func newOrderResponse(o *model.Order) orderResponse {
	return orderResponse{
		ID:             o.ID,
		UserID:         o.UserID,
		UserName:       o.UserName,
		UserEmail:      o.UserEmail,
		InstructorID:   o.InstructorID,
		InstructorName: o.InstructorName,
		CourseID:       o.CourseID,
		CourseTitle:    o.CourseTitle,
		CourseImage:    o.CourseImage,
		CoursePricing:  validation.FormatPrice(o.PriceCents),
		PaymentMethod:  o.PaymentMethod,
		PaymentStatus:  string(o.PaymentStatus),
		OrderStatus:    string(o.OrderStatus),
		PaymentID:      o.PaymentID,
		PayerID:        o.PayerID,
		OrderDate:      o.OrderDate.Format(time.RFC3339),
	}
}

// CreateOrder оформляет покупку курса текущим пользователем и возвращает
// адрес подтверждения оплаты и идентификатор заказа.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CourseID == "" {
		writeError(w, http.StatusBadRequest, "courseId is required")
		return
	}

	priceCents, err := validation.ParsePrice(req.CoursePricing)
	if err != nil {
		writeError(w, http.StatusBadRequest, "coursePricing must be a positive decimal number")
		return
	}

	order := &model.Order{
		UserID:         claims.UserID,
		UserName:       claims.UserName,
		UserEmail:      claims.UserEmail,
		InstructorID:   req.InstructorID,
		InstructorName: req.InstructorName,
		CourseID:       req.CourseID,
		CourseTitle:    req.CourseTitle,
		CourseImage:    req.CourseImage,
		PriceCents:     priceCents,
	}

	approveURL, err := h.service.CreateOrder(r.Context(), order)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCheckout) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var gwErr *paypal.GatewayError
		if errors.As(err, &gwErr) {
			h.logger.Error("create payment error", zap.Error(err), zap.String("courseID", req.CourseID))
			writeError(w, http.StatusInternalServerError, "error while creating payment")
			return
		}
		h.logger.Error("create order error", zap.Error(err), zap.String("courseID", req.CourseID))
		writeError(w, http.StatusInternalServerError, "error while creating order")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"approveUrl": approveURL,
		"orderId":    order.ID,
	})
}

type captureRequest struct {
	PaymentID string `json:"paymentId"`
	PayerID   string `json:"payerId"`
	OrderID   string `json:"orderId"`
}

// CaptureOrder исполняет подтверждённый платёж и завершает заказ.
func (h *Handler) CaptureOrder(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.PaymentID == "" || req.PayerID == "" || req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "paymentId, payerId and orderId are required")
		return
	}

	order, err := h.service.CapturePayment(r.Context(), req.PaymentID, req.PayerID, req.OrderID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCapture) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, repository.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		var gwErr *paypal.GatewayError
		if errors.As(err, &gwErr) {
			h.logger.Error("execute payment error", zap.Error(err), zap.String("orderID", req.OrderID))
			writeError(w, http.StatusInternalServerError, "error while executing payment")
			return
		}
		h.logger.Error("capture order error", zap.Error(err), zap.String("orderID", req.OrderID))
		writeError(w, http.StatusInternalServerError, "error while capturing payment")
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(order))
}
