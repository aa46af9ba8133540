// Package vrcosc publishes avatar parameters to an OSC receiver over UDP.
// Sends are fire-and-forget: a failed send is reported to the caller and
// nothing is queued or retried.
package vrcosc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hypebeast/go-osc/osc"
)

// DefaultAddressPrefix is the avatar parameter namespace used by VRChat.
const DefaultAddressPrefix = "/avatar/parameters/"

// ErrTransportUnavailable wraps OSC send failures. Callers treat the
// reading as handled and move on.
var ErrTransportUnavailable = errors.New("vrcosc: transport unavailable")

// Emitter sends named avatar parameter values to one OSC destination.
type Emitter struct {
	client *osc.Client
	prefix string
}

// New creates an Emitter targeting host:port. An empty prefix falls back to
// DefaultAddressPrefix; a missing trailing slash is added.
func New(host string, port int, prefix string) *Emitter {
	if prefix == "" {
		prefix = DefaultAddressPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Emitter{
		client: osc.NewClient(host, port),
		prefix: prefix,
	}
}

// Address resolves the OSC address for a parameter name.
func (e *Emitter) Address(param string) string {
	return e.prefix + param
}

// PublishInt sends one integer parameter value.
func (e *Emitter) PublishInt(param string, value int32) error {
	msg := osc.NewMessage(e.Address(param))
	msg.Append(value)
	return e.send(msg)
}

// PublishFloat sends one float parameter value.
func (e *Emitter) PublishFloat(param string, value float32) error {
	msg := osc.NewMessage(e.Address(param))
	msg.Append(value)
	return e.send(msg)
}

func (e *Emitter) send(msg *osc.Message) error {
	if err := e.client.Send(msg); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTransportUnavailable, msg.Address, err)
	}
	return nil
}
