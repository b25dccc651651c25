package elevation

import (
	"context"
	"strings"

	"github.com/kioskops/kioskctl/internal/gateway"
)

// Request carries one elevation attempt. Credential is only read for
// MethodPassword and is wiped before the call returns; it must never reach
// a log line.
type Request struct {
	Method     Method
	Credential []byte
}

// Grant is a broker's answer. Reason is set when Granted is false.
type Grant struct {
	Granted bool
	Reason  string
}

// Broker performs the actual privilege request against the OS. Errors are
// infrastructure failures only; a refusal comes back as an ungranted Grant.
type Broker interface {
	RequestElevation(ctx context.Context, req Request) (Grant, error)
}

// wipe zeroes a credential buffer in place.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// nativePrompt triggers the OS authorization dialog without running
// anything of substance under it.
const nativePrompt = `osascript -e 'do shell script "/usr/bin/true" with administrator privileges'`

// NativeBroker requests elevation through the OS authorization dialog. The
// prompt command carries no secrets, so it runs through the regular
// gateway and shares its debug logging.
type NativeBroker struct {
	gw gateway.Gateway
}

// NewNativeBroker builds a dialog-based broker on top of gw.
func NewNativeBroker(gw gateway.Gateway) *NativeBroker {
	return &NativeBroker{gw: gw}
}

var _ Broker = (*NativeBroker)(nil)

func (b *NativeBroker) RequestElevation(ctx context.Context, req Request) (Grant, error) {
	wipe(req.Credential)

	result, err := b.gw.Run(ctx, nativePrompt)
	if err != nil {
		return Grant{}, err
	}
	if result.ExitCode == 0 {
		return Grant{Granted: true}, nil
	}

	reason := "administrator request declined"
	if !strings.Contains(result.Stderr, "canceled") && result.Stderr != "" {
		reason = result.Stderr
	}
	return Grant{Reason: reason}, nil
}
