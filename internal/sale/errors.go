// internal/sale/errors.go
package sale

import (
	"errors"
	"fmt"
)

// Kind перечисляет причины, по которым сборка транзакции может не состояться.
type Kind int

const (
	KindInvalidAddress Kind = iota + 1
	KindInvalidConfiguration
	KindAccountLookupFailed
	KindCheckpointFetchFailed
	KindFeeEstimationFailed
	KindSigningFailed
	KindSerializationFailed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidAddress:
		return "invalid_address"
	case KindInvalidConfiguration:
		return "invalid_configuration"
	case KindAccountLookupFailed:
		return "account_lookup_failed"
	case KindCheckpointFetchFailed:
		return "checkpoint_fetch_failed"
	case KindFeeEstimationFailed:
		return "fee_estimation_failed"
	case KindSigningFailed:
		return "signing_failed"
	case KindSerializationFailed:
		return "serialization_failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Class группирует виды ошибок по тому, как на них реагировать.
type Class int

const (
	ClassInternal Class = iota
	// ошибка вызывающей стороны
	ClassInvalidInput
	// сбой RPC, вызывающий может повторить запрос
	ClassTransientUpstream
	// неверная конфигурация сервиса
	ClassConfigurationFault
	// хранилище ключа недоступно или ключ неверен
	ClassSigningFault
)

func (c Class) String() string {
	switch c {
	case ClassInvalidInput:
		return "invalid_input"
	case ClassTransientUpstream:
		return "transient_upstream"
	case ClassConfigurationFault:
		return "configuration_fault"
	case ClassSigningFault:
		return "signing_fault"
	default:
		return "internal"
	}
}

// Class возвращает класс ошибки для данного вида.
func (k Kind) Class() Class {
	switch k {
	case KindInvalidAddress:
		return ClassInvalidInput
	case KindAccountLookupFailed, KindCheckpointFetchFailed, KindFeeEstimationFailed:
		return ClassTransientUpstream
	case KindInvalidConfiguration:
		return ClassConfigurationFault
	case KindSigningFailed:
		return ClassSigningFault
	default:
		return ClassInternal
	}
}

// AssemblyError is the only error type Assembler returns.
type AssemblyError struct {
	Kind Kind
	Err  error
}

func (e *AssemblyError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) *AssemblyError {
	return &AssemblyError{Kind: kind, Err: err}
}

// KindOf извлекает вид ошибки из цепочки. Для прочих ошибок возвращает 0.
func KindOf(err error) Kind {
	var ae *AssemblyError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}
