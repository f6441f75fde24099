package miaapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	aurestclientapi "github.com/StephanHCB/go-autumn-restclient/api"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/apierrors"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/downstreams"
)

const (
	ProductionBaseUrl = "https://api.maibmerchants.md"
	SandboxBaseUrl    = "https://sandbox.maibmerchants.md"

	apiVersionPath = "/v2"

	defaultPageSize = 100
)

type Options struct {
	// BaseUrl without trailing slash and without the version path.
	BaseUrl      string
	Timeout      time.Duration
	DebugLogging bool
}

type Impl struct {
	tokenClient aurestclientapi.Client
	client      aurestclientapi.Client
	baseUrl     string
}

var _ MiaApi = (*Impl)(nil)

// BaseUrlFor picks the api host, an explicit override wins.
func BaseUrlFor(sandbox bool, override string) string {
	if override != "" {
		return strings.TrimSuffix(override, "/")
	}
	if sandbox {
		return SandboxBaseUrl
	}
	return ProductionBaseUrl
}

func New(opts Options) (MiaApi, error) {
	if opts.BaseUrl == "" {
		return nil, errors.New("mia api base url not configured")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	tokenClient, err := downstreams.ClientWith(
		downstreams.PlainRequestManipulator(),
		downstreams.ClientOptions{
			CircuitBreakerName: "mia-auth-breaker",
			Timeout:            opts.Timeout,
			DebugLogging:       opts.DebugLogging,
		},
	)
	if err != nil {
		return nil, err
	}

	client, err := downstreams.ClientWith(
		downstreams.BearerTokenRequestManipulator(),
		downstreams.ClientOptions{
			CircuitBreakerName: "mia-api-breaker",
			Timeout:            opts.Timeout,
			DebugLogging:       opts.DebugLogging,
		},
	)
	if err != nil {
		return nil, err
	}

	return &Impl{
		tokenClient: tokenClient,
		client:      client,
		baseUrl:     strings.TrimSuffix(opts.BaseUrl, "/") + apiVersionPath,
	}, nil
}

func (i *Impl) GetToken(ctx context.Context, clientID string, clientSecret string) (string, error) {
	reqUrl := fmt.Sprintf("%s/auth/token", i.baseUrl)
	request := tokenRequest{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}

	result := tokenResult{}
	raw, err := i.perform(ctx, i.tokenClient, http.MethodPost, reqUrl, request, &result)
	if err != nil {
		return "", apierrors.NewAuthError(err.Error(), raw)
	}
	if result.AccessToken == "" {
		return "", apierrors.NewAuthError("no accessToken in response", raw)
	}

	return result.AccessToken, nil
}

func (i *Impl) CreateQr(ctx context.Context, token string, request CreateQrRequest) (CreateQrResult, error) {
	reqUrl := fmt.Sprintf("%s/mia/qr", i.baseUrl)
	request.Type = QrTypeDynamic
	request.AmountType = AmountTypeFixed

	result := CreateQrResult{}
	_, err := i.perform(downstreams.WithBearerToken(ctx, token), i.client, http.MethodPost, reqUrl, request, &result)
	if err == nil && (result.QrID == "" || result.URL == "") {
		err = apierrors.NewApiError("qr created without qrId or url", nil)
	}
	return result, err
}

func (i *Impl) QrDetails(ctx context.Context, token string, qrID string) (QrDetails, error) {
	reqUrl := fmt.Sprintf("%s/mia/qr/%s", i.baseUrl, url.PathEscape(qrID))

	result := QrDetails{}
	_, err := i.perform(downstreams.WithBearerToken(ctx, token), i.client, http.MethodGet, reqUrl, nil, &result)
	return result, err
}

func (i *Impl) PaymentList(ctx context.Context, token string, filter PaymentListFilter) (PaymentList, error) {
	query := url.Values{}
	if filter.QrID != "" {
		query.Set("qrId", filter.QrID)
	}
	if filter.OrderID != "" {
		query.Set("orderId", filter.OrderID)
	}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	count := filter.Count
	if count <= 0 {
		count = defaultPageSize
	}
	query.Set("count", strconv.Itoa(count))
	query.Set("offset", strconv.Itoa(filter.Offset))

	reqUrl := fmt.Sprintf("%s/mia/payments?%s", i.baseUrl, query.Encode())

	result := PaymentList{
		Items: make([]Payment, 0),
	}
	_, err := i.perform(downstreams.WithBearerToken(ctx, token), i.client, http.MethodGet, reqUrl, nil, &result)
	return result, err
}

func (i *Impl) PaymentRefund(ctx context.Context, token string, payID string, request RefundRequest) (RefundResult, error) {
	reqUrl := fmt.Sprintf("%s/mia/payments/%s/refund", i.baseUrl, url.PathEscape(payID))

	result := RefundResult{}
	_, err := i.perform(downstreams.WithBearerToken(ctx, token), i.client, http.MethodPost, reqUrl, request, &result)
	return result, err
}

func (i *Impl) CancelQr(ctx context.Context, token string, qrID string, request CancelQrRequest) (CancelQrResult, error) {
	reqUrl := fmt.Sprintf("%s/mia/qr/%s/cancel", i.baseUrl, url.PathEscape(qrID))

	result := CancelQrResult{}
	_, err := i.perform(downstreams.WithBearerToken(ctx, token), i.client, http.MethodPost, reqUrl, request, &result)
	return result, err
}

func (i *Impl) TestPay(ctx context.Context, token string, request TestPayRequest) (TestPayResult, error) {
	reqUrl := fmt.Sprintf("%s/mia/test-pay", i.baseUrl)

	result := TestPayResult{}
	_, err := i.perform(downstreams.WithBearerToken(ctx, token), i.client, http.MethodPost, reqUrl, request, &result)
	return result, err
}

// perform runs the request and unwraps the {ok, result, errors} envelope into result.
//
// The raw response body is returned alongside any error for diagnostics.
func (i *Impl) perform(ctx context.Context, client aurestclientapi.Client, method string, reqUrl string, requestBody interface{}, result interface{}) ([]byte, error) {
	// **[]byte makes the rest client keep the body verbatim, an html error page from a proxy included
	var bodyPtr *[]byte
	response := aurestclientapi.ParsedResponse{
		Body: &bodyPtr,
	}

	err := client.Perform(ctx, method, reqUrl, requestBody, &response)
	var raw []byte
	if bodyPtr != nil {
		raw = *bodyPtr
	}
	if err != nil {
		return raw, apierrors.NewApiError(fmt.Sprintf("%s %s failed: %v", method, stripQuery(reqUrl), err), raw)
	}

	if response.Status < 200 || response.Status >= 300 {
		return raw, apierrors.NewApiError(fmt.Sprintf("%s %s returned status %d%s", method, stripQuery(reqUrl), response.Status, errorSummary(raw)), raw)
	}

	env := envelope{}
	if err := json.Unmarshal(raw, &env); err != nil {
		return raw, apierrors.NewApiError(fmt.Sprintf("%s %s returned malformed body: %v", method, stripQuery(reqUrl), err), raw)
	}

	if !env.Ok {
		return raw, apierrors.NewApiError(fmt.Sprintf("%s %s returned ok=false%s", method, stripQuery(reqUrl), joinErrors(env.Errors)), raw)
	}

	if len(env.Result) == 0 || string(env.Result) == "null" {
		return raw, apierrors.NewApiError(fmt.Sprintf("%s %s returned no result", method, stripQuery(reqUrl)), raw)
	}

	if err := json.Unmarshal(env.Result, result); err != nil {
		return raw, apierrors.NewApiError(fmt.Sprintf("%s %s returned unexpected result: %v", method, stripQuery(reqUrl), err), raw)
	}

	return raw, nil
}

func errorSummary(raw []byte) string {
	env := envelope{}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return joinErrors(env.Errors)
}

func joinErrors(items []ErrorItem) string {
	if len(items) == 0 {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, item.String())
	}
	return ": " + strings.Join(parts, "; ")
}

func stripQuery(reqUrl string) string {
	if idx := strings.Index(reqUrl, "?"); idx >= 0 {
		return reqUrl[:idx]
	}
	return reqUrl
}
