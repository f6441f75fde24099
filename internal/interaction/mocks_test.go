package interaction

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/downstreams/miaapi"
)

type MiaApiMock struct {
	mu sync.Mutex

	TokenErr error

	CreateQrResult   miaapi.CreateQrResult
	CreateQrErr      error
	CreateQrRequests []miaapi.CreateQrRequest

	QrDetailsResult map[string]miaapi.QrDetails
	QrDetailsErr    error

	PaymentListResult miaapi.PaymentList
	PaymentListErr    error
	PaymentFilters    []miaapi.PaymentListFilter

	RefundResult   miaapi.RefundResult
	RefundErr      error
	RefundPayIDs   []string
	RefundRequests []miaapi.RefundRequest

	CancelledQrIDs []string

	TestPayResult   miaapi.TestPayResult
	TestPayRequests []miaapi.TestPayRequest

	Calls int
}

var _ miaapi.MiaApi = (*MiaApiMock)(nil)

func (m *MiaApiMock) GetToken(ctx context.Context, clientID string, clientSecret string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.TokenErr != nil {
		return "", m.TokenErr
	}
	return "access-token", nil
}

func (m *MiaApiMock) CreateQr(ctx context.Context, token string, request miaapi.CreateQrRequest) (miaapi.CreateQrResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.CreateQrRequests = append(m.CreateQrRequests, request)
	return m.CreateQrResult, m.CreateQrErr
}

func (m *MiaApiMock) QrDetails(ctx context.Context, token string, qrID string) (miaapi.QrDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.QrDetailsErr != nil {
		return miaapi.QrDetails{}, m.QrDetailsErr
	}
	details, ok := m.QrDetailsResult[qrID]
	if !ok {
		return miaapi.QrDetails{}, fmt.Errorf("unknown qr %s", qrID)
	}
	return details, nil
}

func (m *MiaApiMock) PaymentList(ctx context.Context, token string, filter miaapi.PaymentListFilter) (miaapi.PaymentList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.PaymentFilters = append(m.PaymentFilters, filter)
	return m.PaymentListResult, m.PaymentListErr
}

func (m *MiaApiMock) PaymentRefund(ctx context.Context, token string, payID string, request miaapi.RefundRequest) (miaapi.RefundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.RefundPayIDs = append(m.RefundPayIDs, payID)
	m.RefundRequests = append(m.RefundRequests, request)
	return m.RefundResult, m.RefundErr
}

func (m *MiaApiMock) CancelQr(ctx context.Context, token string, qrID string, request miaapi.CancelQrRequest) (miaapi.CancelQrResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.CancelledQrIDs = append(m.CancelledQrIDs, qrID)
	return miaapi.CancelQrResult{QrID: qrID, Status: miaapi.QrStatusCancelled}, nil
}

func (m *MiaApiMock) TestPay(ctx context.Context, token string, request miaapi.TestPayRequest) (miaapi.TestPayResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.TestPayRequests = append(m.TestPayRequests, request)
	return m.TestPayResult, nil
}

// recordingLogger keeps every line as "LEVEL message".
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) record(level string, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, v...))
}

func (l *recordingLogger) Debug(format string, v ...interface{}) { l.record("DEBUG", format, v...) }
func (l *recordingLogger) Info(format string, v ...interface{})  { l.record("INFO", format, v...) }
func (l *recordingLogger) Warn(format string, v ...interface{})  { l.record("WARN", format, v...) }
func (l *recordingLogger) Error(format string, v ...interface{}) { l.record("ERROR", format, v...) }
func (l *recordingLogger) Fatal(format string, v ...interface{}) { l.record("FATAL", format, v...) }

func (l *recordingLogger) contains(level string, fragment string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.HasPrefix(line, level+" ") && strings.Contains(line, fragment) {
			return true
		}
	}
	return false
}
