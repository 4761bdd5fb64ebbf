// internal/blockchain/solbc/rpc/errors.go
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	// ErrRateLimit возникает при превышении лимита запросов
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrTimeout возникает при превышении времени ожидания
	ErrTimeout = errors.New("request timeout")

	// ErrInvalidResponse возникает при получении некорректного ответа
	ErrInvalidResponse = errors.New("invalid RPC response")

	// ErrConnectionFailed возникает при ошибке подключения
	ErrConnectionFailed = errors.New("connection failed")
)

// Error представляет ошибку RPC с дополнительным контекстом
type Error struct {
	Err     error
	NodeURL string
	Method  string
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	return fmt.Sprintf("RPC error [%s] at %s: %v", e.Method, e.NodeURL, e.Err)
}

// Unwrap возвращает оригинальную ошибку
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError создает новую ошибку RPC. URL узла очищается от query-параметров,
// чтобы api-key не попадал в логи.
func NewError(err error, nodeURL, method string) error {
	err = classify(err)
	if secret := urlSecret(nodeURL); secret != "" && strings.Contains(err.Error(), secret) {
		err = &redactedError{err: err, secret: secret}
	}
	return &Error{
		Err:     err,
		NodeURL: RedactURL(nodeURL),
		Method:  method,
	}
}

// redactedError скрывает секрет эндпоинта в тексте ошибки транспорта,
// сохраняя цепочку для errors.Is / errors.As.
type redactedError struct {
	err    error
	secret string
}

func (e *redactedError) Error() string {
	return strings.ReplaceAll(e.err.Error(), e.secret, "REDACTED")
}

func (e *redactedError) Unwrap() error {
	return e.err
}

// urlSecret возвращает query-часть URL (обычно там api-key).
func urlSecret(raw string) string {
	idx := strings.Index(raw, "?")
	if idx < 0 || idx == len(raw)-1 {
		return ""
	}
	secret := raw[idx+1:]
	if hash := strings.Index(secret, "#"); hash >= 0 {
		secret = secret[:hash]
	}
	return secret
}

// classify приводит транспортные ошибки к сентинелам пакета, сохраняя исходную причину.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == 429 {
		return fmt.Errorf("%w: %w", ErrRateLimit, err)
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "429") || strings.Contains(errStr, "too many requests"):
		return fmt.Errorf("%w: %w", ErrRateLimit, err)
	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host"):
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return err
}

// IsRetryableError определяет, можно ли повторить операцию при данной ошибке
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	// отмена запроса вызывающей стороной не повод повторять
	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrConnectionFailed) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "status code: 5")
}

// IsCriticalError определяет, является ли ошибка критической (повтор бессмыслен)
func IsCriticalError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrInvalidResponse) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "invalid request") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "forbidden")
}

// RedactURL убирает из URL query и userinfo.
func RedactURL(raw string) string {
	idx := strings.IndexAny(raw, "?#")
	if idx >= 0 {
		raw = raw[:idx]
	}
	if schemeEnd := strings.Index(raw, "://"); schemeEnd >= 0 {
		rest := raw[schemeEnd+3:]
		if at := strings.LastIndex(rest, "@"); at >= 0 {
			raw = raw[:schemeEnd+3] + rest[at+1:]
		}
	}
	return raw
}
