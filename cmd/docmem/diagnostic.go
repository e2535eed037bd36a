package docmemcmder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/papercomputeco/docmem/pkg/broker"
)

// Diagnostic renders err as the single line printed before a non-zero exit.
func Diagnostic(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, broker.ErrAuth):
		return "Login to the message broker failed: please check your username and password"
	case errors.Is(err, broker.ErrConnectionLost):
		return oneLine(fmt.Sprintf("Connection lost: the message broker closed the connection: %v", err))
	case errors.Is(err, broker.ErrConnection):
		return oneLine(fmt.Sprintf("Connection failed: unable to connect to the message broker: %v", err))
	case errors.Is(err, broker.ErrUnexpected):
		return oneLine(fmt.Sprintf("An unexpected error occurred while connecting to the message broker: %v", err))
	default:
		return oneLine(err.Error())
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
