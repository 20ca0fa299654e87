package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Credential
		wantErr bool
	}{
		{name: "simple", raw: "root:pass", want: Credential{ID: "root", Secret: "pass"}},
		{name: "first colon only", raw: "svc-user:p@ss:word", want: Credential{ID: "svc-user", Secret: "p@ss:word"}},
		{name: "secret with spaces", raw: "a:b c", want: Credential{ID: "a", Secret: "b c"}},
		{name: "no delimiter", raw: "justanid", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "empty id", raw: ":secret", wantErr: true},
		{name: "empty secret", raw: "id:", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("Parse(%q) error = %v, want ErrMalformed", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCredential_StringHidesSecret(t *testing.T) {
	c := Credential{ID: "svc", Secret: "topsecret"}
	if s := fmt.Sprint(c); strings.Contains(s, "topsecret") {
		t.Errorf("String() = %q leaks the secret", s)
	}
}

func TestStaticProvider(t *testing.T) {
	cred, err := Fetch(context.Background(), StaticProvider{Value: "dev:devpass"}, "user")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if cred.ID != "dev" || cred.Secret != "devpass" {
		t.Errorf("Fetch() = %+v", cred)
	}

	_, err = StaticProvider{}.Credentials(context.Background(), "user")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("empty StaticProvider error = %v, want ErrUnavailable", err)
	}
}

// =============================================================================
// D-Bus Provider Tests
// =============================================================================

type fakeBus struct {
	reply string
	err   error

	dest   string
	path   dbus.ObjectPath
	method string
	args   []any
}

func (f *fakeBus) Call(_ context.Context, dest string, path dbus.ObjectPath, method string, args []any, reply ...any) error {
	f.dest, f.path, f.method, f.args = dest, path, method, args
	if f.err != nil {
		return f.err
	}
	*(reply[0].(*string)) = f.reply
	return nil
}

func TestDBusProvider_Credentials(t *testing.T) {
	bus := &fakeBus{reply: "vapix-id:vapix:secret"}
	p := NewDBusProvider(bus)

	cred, err := Fetch(context.Background(), p, "user")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if cred.ID != "vapix-id" || cred.Secret != "vapix:secret" {
		t.Errorf("Fetch() = %+v", cred)
	}

	if bus.dest != DefaultBusName {
		t.Errorf("dest = %q, want %q", bus.dest, DefaultBusName)
	}
	if bus.path != DefaultObjectPath {
		t.Errorf("path = %q, want %q", bus.path, DefaultObjectPath)
	}
	if bus.method != "com.axis.HTTPConf1.VAPIXServiceAccounts1.GetCredentials" {
		t.Errorf("method = %q", bus.method)
	}
	if len(bus.args) != 1 || bus.args[0] != "user" {
		t.Errorf("args = %v, want [user]", bus.args)
	}
}

func TestDBusProvider_ServiceError(t *testing.T) {
	p := NewDBusProvider(&fakeBus{err: errors.New("org.freedesktop.DBus.Error.AccessDenied")})

	_, err := Fetch(context.Background(), p, "user")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Fetch() error = %v, want ErrUnavailable", err)
	}
	if !strings.Contains(err.Error(), "AccessDenied") {
		t.Errorf("error = %v, want service message preserved", err)
	}
}

func TestDBusProvider_MalformedReply(t *testing.T) {
	p := NewDBusProvider(&fakeBus{reply: "no-delimiter"})

	_, err := Fetch(context.Background(), p, "user")
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Fetch() error = %v, want ErrMalformed", err)
	}
}
