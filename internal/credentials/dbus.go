package credentials

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// VAPIX service account endpoint on the system bus.
const (
	DefaultBusName    = "com.axis.HTTPConf1"
	DefaultObjectPath = "/com/axis/HTTPConf1/VAPIXServiceAccounts1"
	DefaultInterface  = "com.axis.HTTPConf1.VAPIXServiceAccounts1"
	getCredentials    = "GetCredentials"
)

// BusCaller performs one method call on a bus object and stores the reply.
// It exists so the D-Bus provider can be tested without a system bus.
type BusCaller interface {
	Call(ctx context.Context, dest string, path dbus.ObjectPath, method string, args []any, reply ...any) error
}

// DBusProvider fetches credentials from the VAPIX service accounts service.
type DBusProvider struct {
	caller  BusCaller
	busName string
	path    dbus.ObjectPath
	iface   string
}

// NewDBusProvider creates a provider using caller (nil means the system bus).
func NewDBusProvider(caller BusCaller) *DBusProvider {
	if caller == nil {
		caller = SystemBus{}
	}
	return &DBusProvider{
		caller:  caller,
		busName: DefaultBusName,
		path:    DefaultObjectPath,
		iface:   DefaultInterface,
	}
}

// Credentials implements Provider.
func (p *DBusProvider) Credentials(ctx context.Context, account string) (string, error) {
	var raw string
	method := p.iface + "." + getCredentials
	if err := p.caller.Call(ctx, p.busName, p.path, method, []any{account}, &raw); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUnavailable, method, err)
	}
	return raw, nil
}

// SystemBus is a BusCaller that opens a private system bus connection per
// call. Credentials are fetched once at startup, so a long-lived connection
// would only sit idle.
type SystemBus struct{}

// Call implements BusCaller.
func (SystemBus) Call(ctx context.Context, dest string, path dbus.ObjectPath, method string, args []any, reply ...any) error {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("connecting to system bus: %w", err)
	}
	defer conn.Close()

	call := conn.Object(dest, path).CallWithContext(ctx, method, 0, args...)
	if call.Err != nil {
		return call.Err
	}
	return call.Store(reply...)
}
