package v1orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/entities"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/interaction"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/restapi/common"
)

const (
	orderIDParam = "order_id"
	modeHeadless = "headless"

	maxBodyBytes = 16 * 1024
)

type orderHandler struct {
	interactor interaction.Interactor
}

func Create(router chi.Router, i interaction.Interactor) {
	handler := orderHandler{
		interactor: i,
	}

	router.Post("/orders", common.CreateHandler[RegisterOrderRequest, Order](
		handler.registerOrder,
		registerOrderRequestHandler,
		common.JSONResponseHandler[Order](http.StatusCreated),
	))
	router.Get("/orders/{order_id}", common.CreateHandler[OrderRequest, Order](
		handler.getOrder,
		orderRequestHandler,
		common.JSONResponseHandler[Order](http.StatusOK),
	))
	router.Get("/orders/{order_id}/notes", common.CreateHandler[OrderRequest, OrderNotes](
		handler.getOrderNotes,
		orderRequestHandler,
		common.JSONResponseHandler[OrderNotes](http.StatusOK),
	))
	router.Post("/orders/{order_id}/payment", common.CreateHandler[InitiatePaymentRequest, Initiation](
		handler.initiatePayment,
		initiatePaymentRequestHandler,
		common.JSONResponseHandler[Initiation](http.StatusOK),
	))
	router.Post("/orders/{order_id}/payment/check", common.CreateHandler[OrderRequest, Check](
		handler.checkPayment,
		orderRequestHandler,
		common.JSONResponseHandler[Check](http.StatusOK),
	))
	router.Post("/orders/{order_id}/payment/simulate", common.CreateHandler[OrderRequest, Simulation](
		handler.simulatePayment,
		orderRequestHandler,
		common.JSONResponseHandler[Simulation](http.StatusOK),
	))
	router.Post("/orders/{order_id}/refund", common.CreateHandler[RefundRequest, Refund](
		handler.refundPayment,
		refundRequestHandler,
		common.JSONResponseHandler[Refund](http.StatusOK),
	))
}

func (h *orderHandler) registerOrder(ctx context.Context, request *RegisterOrderRequest, logger logging.Logger) (*Order, error) {
	order, err := h.interactor.RegisterOrder(ctx, entities.Order{
		OrderID:  request.OrderID,
		Total:    request.Total,
		Currency: request.Currency,
	})
	if err != nil {
		return nil, err
	}

	result := V1OrderFrom(order)
	return &result, nil
}

func (h *orderHandler) getOrder(ctx context.Context, request *OrderRequest, logger logging.Logger) (*Order, error) {
	order, err := h.interactor.GetOrder(ctx, request.OrderID)
	if err != nil {
		return nil, err
	}

	result := V1OrderFrom(order)
	return &result, nil
}

func (h *orderHandler) getOrderNotes(ctx context.Context, request *OrderRequest, logger logging.Logger) (*OrderNotes, error) {
	notes, err := h.interactor.GetOrderNotes(ctx, request.OrderID)
	if err != nil {
		return nil, err
	}

	result := V1OrderNotesFrom(request.OrderID, notes)
	return &result, nil
}

func (h *orderHandler) initiatePayment(ctx context.Context, request *InitiatePaymentRequest, logger logging.Logger) (*Initiation, error) {
	mode := interaction.CheckoutModeRedirect
	if request.Headless {
		mode = interaction.CheckoutModeHeadless
	}

	res, err := h.interactor.InitiatePayment(ctx, request.OrderID, mode)
	if err != nil {
		return nil, err
	}

	result := V1InitiationFrom(res)
	return &result, nil
}

func (h *orderHandler) checkPayment(ctx context.Context, request *OrderRequest, logger logging.Logger) (*Check, error) {
	res, err := h.interactor.CheckPayment(ctx, request.OrderID)
	if err != nil {
		return nil, err
	}

	result := V1CheckFrom(res)
	return &result, nil
}

func (h *orderHandler) simulatePayment(ctx context.Context, request *OrderRequest, logger logging.Logger) (*Simulation, error) {
	res, err := h.interactor.SimulatePayment(ctx, request.OrderID)
	if err != nil {
		return nil, err
	}

	result := V1SimulationFrom(res)
	return &result, nil
}

func (h *orderHandler) refundPayment(ctx context.Context, request *RefundRequest, logger logging.Logger) (*Refund, error) {
	res, err := h.interactor.RefundPayment(ctx, request.OrderID, request.Amount, request.Reason)
	if err != nil {
		return nil, err
	}

	result := V1RefundFrom(res)
	return &result, nil
}

func orderIDFrom(r *http.Request) (string, error) {
	orderID := strings.TrimSpace(chi.URLParam(r, orderIDParam))
	if orderID == "" {
		return "", errors.New("order_id path parameter is missing")
	}
	return orderID, nil
}

func decodeBody(r *http.Request, target interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func registerOrderRequestHandler(r *http.Request) (*RegisterOrderRequest, error) {
	request := RegisterOrderRequest{}
	if err := decodeBody(r, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

func orderRequestHandler(r *http.Request) (*OrderRequest, error) {
	orderID, err := orderIDFrom(r)
	if err != nil {
		return nil, err
	}
	return &OrderRequest{OrderID: orderID}, nil
}

func initiatePaymentRequestHandler(r *http.Request) (*InitiatePaymentRequest, error) {
	orderID, err := orderIDFrom(r)
	if err != nil {
		return nil, err
	}

	mode := r.URL.Query().Get("mode")
	if mode != "" && mode != modeHeadless {
		return nil, fmt.Errorf("unsupported mode '%s'", mode)
	}

	return &InitiatePaymentRequest{
		OrderID:  orderID,
		Headless: mode == modeHeadless,
	}, nil
}

func refundRequestHandler(r *http.Request) (*RefundRequest, error) {
	orderID, err := orderIDFrom(r)
	if err != nil {
		return nil, err
	}

	request := RefundRequest{}
	if err := decodeBody(r, &request); err != nil {
		return nil, err
	}
	request.OrderID = orderID
	return &request, nil
}
